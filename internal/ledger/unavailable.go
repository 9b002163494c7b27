package ledger

import (
	"context"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
)

// Unavailable returns a Client whose every operation fails with reason. It
// lets the tool catalogue be served before operator credentials exist.
func Unavailable(reason string) Client {
	return unavailable{err: xerrors.New(xerrors.CodeInitializationFailure, reason)}
}

type unavailable struct{ err error }

func (u unavailable) CreateTopic(context.Context, string) (EntityID, error) { return EntityID{}, u.err }
func (u unavailable) UpdateTopic(context.Context, EntityID, string) error   { return u.err }
func (u unavailable) DeleteTopic(context.Context, EntityID) error           { return u.err }
func (u unavailable) SubmitMessage(context.Context, EntityID, []byte) error { return u.err }
func (u unavailable) CreateFungibleToken(context.Context, TokenSpec) (EntityID, error) {
	return EntityID{}, u.err
}
func (u unavailable) TransferToken(context.Context, EntityID, EntityID, int64) error { return u.err }
func (u unavailable) AirdropToken(context.Context, EntityID, []Recipient) error     { return u.err }
func (u unavailable) HbarBalance(context.Context) (float64, error)                  { return 0, u.err }
func (u unavailable) Close() error                                                  { return nil }
