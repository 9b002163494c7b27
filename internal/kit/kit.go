// Package kit holds the token and balance operations behind the agent tools.
package kit

import (
	"context"
	"fmt"
	"math"
	"strings"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/internal/ledger"
)

// Kit validates tool arguments and forwards them to the ledger.
type Kit struct {
	tokens  ledger.TokenClient
	balance ledger.BalanceReader
}

// New wires a Kit. balance may come from a different source than tokens,
// e.g. the JSON-RPC relay.
func New(tokens ledger.TokenClient, balance ledger.BalanceReader) (*Kit, error) {
	if tokens == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置代币客户端")
	}
	if balance == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置余额来源")
	}
	return &Kit{tokens: tokens, balance: balance}, nil
}

// AirdropSummary reports what an airdrop distributed.
type AirdropSummary struct {
	RecipientCount int
	TotalAmount    int64
}

// CreateFT creates a fungible token held by the operator.
func (k *Kit) CreateFT(ctx context.Context, spec ledger.TokenSpec) (ledger.EntityID, error) {
	spec.Name = strings.TrimSpace(spec.Name)
	spec.Symbol = strings.TrimSpace(spec.Symbol)
	if spec.Name == "" || spec.Symbol == "" {
		return ledger.EntityID{}, xerrors.New(xerrors.CodeInvalidInput, "代币名称和符号不能为空")
	}
	return k.tokens.CreateFungibleToken(ctx, spec)
}

// TransferToken sends amount of tokenID from the operator to toAccountID.
func (k *Kit) TransferToken(ctx context.Context, tokenID, toAccountID string, amount int64) error {
	token, err := ledger.ParseEntityID(tokenID)
	if err != nil {
		return err
	}
	to, err := ledger.ParseEntityID(toAccountID)
	if err != nil {
		return err
	}
	if amount <= 0 {
		return xerrors.New(xerrors.CodeInvalidInput, "转账数量必须为正数")
	}
	return k.tokens.TransferToken(ctx, token, to, amount)
}

// AirdropToken distributes tokenID to every recipient in one transaction.
func (k *Kit) AirdropToken(ctx context.Context, tokenID string, recipients []ledger.Recipient) (AirdropSummary, error) {
	token, err := ledger.ParseEntityID(tokenID)
	if err != nil {
		return AirdropSummary{}, err
	}
	if len(recipients) == 0 {
		return AirdropSummary{}, xerrors.New(xerrors.CodeInvalidInput, "空投接收方不能为空")
	}

	var total int64
	for i, r := range recipients {
		if _, err := ledger.ParseEntityID(r.AccountID); err != nil {
			return AirdropSummary{}, err
		}
		if r.Amount <= 0 {
			return AirdropSummary{}, xerrors.New(xerrors.CodeInvalidInput,
				fmt.Sprintf("第 %d 个接收方的数量必须为正数", i+1))
		}
		if total > math.MaxInt64-r.Amount {
			return AirdropSummary{}, xerrors.New(xerrors.CodeInvalidInput, "空投总量溢出")
		}
		total += r.Amount
	}

	if err := k.tokens.AirdropToken(ctx, token, recipients); err != nil {
		return AirdropSummary{}, err
	}
	return AirdropSummary{RecipientCount: len(recipients), TotalAmount: total}, nil
}

// HbarBalance returns the operator balance in HBAR.
func (k *Kit) HbarBalance(ctx context.Context) (float64, error) {
	return k.balance.HbarBalance(ctx)
}
