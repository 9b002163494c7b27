package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
)

// EntityID is a shard.realm.num identifier shared by accounts, tokens and
// topics on the ledger.
type EntityID struct {
	Shard uint64
	Realm uint64
	Num   uint64
}

// ParseEntityID parses the "0.0.1234" form. A trailing "-abcde" address
// checksum is accepted and discarded; it is not verified against a network.
func ParseEntityID(raw string) (EntityID, error) {
	trimmed := strings.TrimSpace(raw)
	if body, sum, ok := strings.Cut(trimmed, "-"); ok {
		if !isChecksum(sum) {
			return EntityID{}, xerrors.New(xerrors.CodeInvalidInput, fmt.Sprintf("无效的实体 ID 校验和: %q", raw))
		}
		trimmed = body
	}
	parts := strings.Split(trimmed, ".")
	if len(parts) != 3 {
		return EntityID{}, xerrors.New(xerrors.CodeInvalidInput, fmt.Sprintf("无效的实体 ID: %q", raw))
	}
	var values [3]uint64
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return EntityID{}, xerrors.Wrap(xerrors.CodeInvalidInput, err, fmt.Sprintf("无效的实体 ID: %q", raw))
		}
		values[i] = v
	}
	return EntityID{Shard: values[0], Realm: values[1], Num: values[2]}, nil
}

func isChecksum(sum string) bool {
	if len(sum) != 5 {
		return false
	}
	for _, r := range sum {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// String renders the identifier as shard.realm.num.
func (id EntityID) String() string {
	return fmt.Sprintf("%d.%d.%d", id.Shard, id.Realm, id.Num)
}

// IsZero reports whether the identifier is unset.
func (id EntityID) IsZero() bool {
	return id == EntityID{}
}

// TokenSpec describes a fungible token to create. The operator account acts
// as treasury, admin and supply key holder.
type TokenSpec struct {
	Name          string
	Symbol        string
	Decimals      uint32
	InitialSupply uint64
}

// Recipient is one leg of an airdrop.
type Recipient struct {
	AccountID string `json:"accountId"`
	Amount    int64  `json:"amount"`
}

// TopicClient covers the consensus service transactions.
type TopicClient interface {
	// CreateTopic waits for the receipt and returns the assigned topic ID, or
	// the zero EntityID when the receipt carries none.
	CreateTopic(ctx context.Context, memo string) (EntityID, error)
	UpdateTopic(ctx context.Context, topicID EntityID, memo string) error
	DeleteTopic(ctx context.Context, topicID EntityID) error
	SubmitMessage(ctx context.Context, topicID EntityID, message []byte) error
}

// TokenClient covers the token service transactions.
type TokenClient interface {
	CreateFungibleToken(ctx context.Context, spec TokenSpec) (EntityID, error)
	TransferToken(ctx context.Context, tokenID, to EntityID, amount int64) error
	AirdropToken(ctx context.Context, tokenID EntityID, recipients []Recipient) error
}

// BalanceReader reports the operator's HBAR balance.
type BalanceReader interface {
	HbarBalance(ctx context.Context) (float64, error)
}

// Client is the full ledger surface used by the agent tools.
type Client interface {
	TopicClient
	TokenClient
	BalanceReader
	Close() error
}
