package kit

import (
	"context"
	"testing"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/internal/ledger"
)

type stubTokens struct {
	spec       ledger.TokenSpec
	transferTo ledger.EntityID
	amount     int64
	airdropped []ledger.Recipient
}

func (s *stubTokens) CreateFungibleToken(_ context.Context, spec ledger.TokenSpec) (ledger.EntityID, error) {
	s.spec = spec
	return ledger.EntityID{Num: 900}, nil
}

func (s *stubTokens) TransferToken(_ context.Context, _, to ledger.EntityID, amount int64) error {
	s.transferTo, s.amount = to, amount
	return nil
}

func (s *stubTokens) AirdropToken(_ context.Context, _ ledger.EntityID, recipients []ledger.Recipient) error {
	s.airdropped = recipients
	return nil
}

type fixedBalance float64

func (f fixedBalance) HbarBalance(context.Context) (float64, error) { return float64(f), nil }

func newKit(t *testing.T) (*Kit, *stubTokens) {
	t.Helper()
	tokens := &stubTokens{}
	k, err := New(tokens, fixedBalance(12.5))
	if err != nil {
		t.Fatalf("new kit: %v", err)
	}
	return k, tokens
}

func TestAirdropSummary(t *testing.T) {
	k, tokens := newKit(t)

	summary, err := k.AirdropToken(context.Background(), "0.0.900", []ledger.Recipient{
		{AccountID: "0.0.1", Amount: 10},
		{AccountID: "0.0.2", Amount: 20},
	})
	if err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	if summary.TotalAmount != 30 || summary.RecipientCount != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(tokens.airdropped) != 2 {
		t.Fatalf("recipients not forwarded: %+v", tokens.airdropped)
	}
}

func TestAirdropRejectsBadRecipients(t *testing.T) {
	k, tokens := newKit(t)
	ctx := context.Background()

	cases := [][]ledger.Recipient{
		nil,
		{{AccountID: "0.0.1", Amount: 0}},
		{{AccountID: "0.0.1", Amount: -5}},
		{{AccountID: "alice", Amount: 5}},
	}
	for _, recipients := range cases {
		if _, err := k.AirdropToken(ctx, "0.0.900", recipients); xerrors.CodeOf(err) != xerrors.CodeInvalidInput {
			t.Fatalf("expected invalid input for %+v, got %v", recipients, err)
		}
	}
	if tokens.airdropped != nil {
		t.Fatal("ledger must not be called for rejected airdrops")
	}
}

func TestTransferValidation(t *testing.T) {
	k, tokens := newKit(t)
	ctx := context.Background()

	if err := k.TransferToken(ctx, "0.0.900", "0.0.3", 0); xerrors.CodeOf(err) != xerrors.CodeInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if err := k.TransferToken(ctx, "0.0.900", "0.0.3", 4); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if tokens.transferTo.Num != 3 || tokens.amount != 4 {
		t.Fatalf("unexpected transfer %+v %d", tokens.transferTo, tokens.amount)
	}
}

func TestCreateFTTrimsAndValidates(t *testing.T) {
	k, tokens := newKit(t)

	if _, err := k.CreateFT(context.Background(), ledger.TokenSpec{Name: " ", Symbol: "X"}); xerrors.CodeOf(err) != xerrors.CodeInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
	id, err := k.CreateFT(context.Background(), ledger.TokenSpec{Name: " Gold ", Symbol: "GLD", Decimals: 2, InitialSupply: 1000})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id.Num != 900 || tokens.spec.Name != "Gold" {
		t.Fatalf("unexpected result %s %+v", id, tokens.spec)
	}
}

func TestHbarBalance(t *testing.T) {
	k, _ := newKit(t)
	if got, err := k.HbarBalance(context.Background()); err != nil || got != 12.5 {
		t.Fatalf("unexpected balance %v %v", got, err)
	}
}
