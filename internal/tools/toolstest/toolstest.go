// Package toolstest provides an in-memory ledger and mirror node for tests
// that need a fully wired tool registry without network access.
package toolstest

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/jaycoolh/hedera-agent-kit/internal/consensus"
	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/internal/kit"
	"github.com/jaycoolh/hedera-agent-kit/internal/ledger"
	"github.com/jaycoolh/hedera-agent-kit/internal/mirror"
	"github.com/jaycoolh/hedera-agent-kit/internal/tools"
)

// Ledger is a ledger.Client that hands out sequential entity IDs and keeps
// submitted messages so the mirror side can serve them back.
type Ledger struct {
	mu       sync.Mutex
	next     uint64
	memos    map[ledger.EntityID]string
	messages map[string][]mirror.Message
	Balance  float64
	// FailWith, when set, is returned by every transaction.
	FailWith error
}

// NewLedger returns a Ledger whose first entity is 0.0.1001.
func NewLedger() *Ledger {
	return &Ledger{
		next:     1000,
		memos:    make(map[ledger.EntityID]string),
		messages: make(map[string][]mirror.Message),
		Balance:  100,
	}
}

func (l *Ledger) allocate() ledger.EntityID {
	l.next++
	return ledger.EntityID{Num: l.next}
}

// CreateTopic implements ledger.TopicClient.
func (l *Ledger) CreateTopic(_ context.Context, memo string) (ledger.EntityID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailWith != nil {
		return ledger.EntityID{}, l.FailWith
	}
	id := l.allocate()
	l.memos[id] = memo
	return id, nil
}

// UpdateTopic implements ledger.TopicClient.
func (l *Ledger) UpdateTopic(_ context.Context, id ledger.EntityID, memo string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailWith != nil {
		return l.FailWith
	}
	if _, ok := l.memos[id]; !ok {
		return xerrors.New(xerrors.CodeLedgerFailure, "INVALID_TOPIC_ID")
	}
	l.memos[id] = memo
	return nil
}

// DeleteTopic implements ledger.TopicClient.
func (l *Ledger) DeleteTopic(_ context.Context, id ledger.EntityID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailWith != nil {
		return l.FailWith
	}
	if _, ok := l.memos[id]; !ok {
		return xerrors.New(xerrors.CodeLedgerFailure, "INVALID_TOPIC_ID")
	}
	delete(l.memos, id)
	return nil
}

// SubmitMessage implements ledger.TopicClient.
func (l *Ledger) SubmitMessage(_ context.Context, id ledger.EntityID, message []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailWith != nil {
		return l.FailWith
	}
	key := id.String()
	seq := int64(len(l.messages[key]) + 1)
	l.messages[key] = append(l.messages[key], mirror.Message{
		TopicID:        key,
		SequenceNumber: seq,
		Message:        base64.StdEncoding.EncodeToString(message),
	})
	return nil
}

// CreateFungibleToken implements ledger.TokenClient.
func (l *Ledger) CreateFungibleToken(context.Context, ledger.TokenSpec) (ledger.EntityID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailWith != nil {
		return ledger.EntityID{}, l.FailWith
	}
	return l.allocate(), nil
}

// TransferToken implements ledger.TokenClient.
func (l *Ledger) TransferToken(context.Context, ledger.EntityID, ledger.EntityID, int64) error {
	return l.FailWith
}

// AirdropToken implements ledger.TokenClient.
func (l *Ledger) AirdropToken(context.Context, ledger.EntityID, []ledger.Recipient) error {
	return l.FailWith
}

// HbarBalance implements ledger.BalanceReader.
func (l *Ledger) HbarBalance(context.Context) (float64, error) {
	if l.FailWith != nil {
		return 0, l.FailWith
	}
	return l.Balance, nil
}

// Close implements ledger.Client.
func (l *Ledger) Close() error { return nil }

// TopicMessages serves previously submitted messages, ignoring the wait.
func (l *Ledger) TopicMessages(_ context.Context, topicID string, _ time.Duration, limit int) ([]mirror.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := append([]mirror.Message(nil), l.messages[topicID]...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ ledger.Client = (*Ledger)(nil)

// NewRegistry wires the nine tools over a fresh Ledger.
func NewRegistry(t testing.TB, opts ...tools.Option) (*tools.Registry, *Ledger) {
	t.Helper()
	l := NewLedger()
	topics, err := consensus.NewService(l, l)
	if err != nil {
		t.Fatalf("consensus: %v", err)
	}
	tokens, err := kit.New(l, l)
	if err != nil {
		t.Fatalf("kit: %v", err)
	}
	reg, err := tools.NewRegistry(topics, tokens, opts...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg, l
}
