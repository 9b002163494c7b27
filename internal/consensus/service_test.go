package consensus

import (
	"context"
	"errors"
	"testing"
	"time"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/internal/ledger"
	"github.com/jaycoolh/hedera-agent-kit/internal/mirror"
)

type stubTopics struct {
	createdMemo string
	createID    ledger.EntityID
	createErr   error
	updated     ledger.EntityID
	updatedMemo string
	deleted     ledger.EntityID
	submitted   []byte
}

func (s *stubTopics) CreateTopic(_ context.Context, memo string) (ledger.EntityID, error) {
	s.createdMemo = memo
	return s.createID, s.createErr
}

func (s *stubTopics) UpdateTopic(_ context.Context, id ledger.EntityID, memo string) error {
	s.updated, s.updatedMemo = id, memo
	return nil
}

func (s *stubTopics) DeleteTopic(_ context.Context, id ledger.EntityID) error {
	s.deleted = id
	return nil
}

func (s *stubTopics) SubmitMessage(_ context.Context, _ ledger.EntityID, message []byte) error {
	s.submitted = message
	return nil
}

type stubReader struct {
	topicID string
	wait    time.Duration
	limit   int
}

func (r *stubReader) TopicMessages(_ context.Context, topicID string, wait time.Duration, limit int) ([]mirror.Message, error) {
	r.topicID, r.wait, r.limit = topicID, wait, limit
	return []mirror.Message{{TopicID: topicID, SequenceNumber: 1}}, nil
}

func TestCreateTopicDefaultsMemo(t *testing.T) {
	topics := &stubTopics{createID: ledger.EntityID{Num: 77}}
	svc, err := NewService(topics, &stubReader{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	topic, err := svc.CreateTopic(context.Background(), "")
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}
	if topics.createdMemo != DefaultMemo || topic.Memo != DefaultMemo {
		t.Fatalf("expected default memo, got %q / %q", topics.createdMemo, topic.Memo)
	}
	if topic.ID.String() != "0.0.77" {
		t.Fatalf("unexpected topic id %s", topic.ID)
	}
}

func TestCreateTopicWithoutIDFails(t *testing.T) {
	svc, _ := NewService(&stubTopics{}, &stubReader{})

	_, err := svc.CreateTopic(context.Background(), "memo")
	if !errors.Is(err, ErrTopicCreation) {
		t.Fatalf("expected ErrTopicCreation, got %v", err)
	}
	if xerrors.CodeOf(err) != CodeTopicCreationFailed {
		t.Fatalf("unexpected code %s", xerrors.CodeOf(err))
	}
}

func TestCreateTopicPropagatesLedgerError(t *testing.T) {
	boom := xerrors.New(xerrors.CodeLedgerFailure, "rejected")
	svc, _ := NewService(&stubTopics{createErr: boom}, &stubReader{})

	if _, err := svc.CreateTopic(context.Background(), "memo"); !errors.Is(err, boom) {
		t.Fatalf("expected ledger error, got %v", err)
	}
}

func TestTopicMutationsParseIDs(t *testing.T) {
	topics := &stubTopics{}
	svc, _ := NewService(topics, &stubReader{})
	ctx := context.Background()

	if err := svc.UpdateTopic(ctx, "0.0.5", "x"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if topics.updated.Num != 5 || topics.updatedMemo != "x" {
		t.Fatalf("unexpected update %+v %q", topics.updated, topics.updatedMemo)
	}
	if err := svc.DeleteTopic(ctx, "0.0.6"); err != nil || topics.deleted.Num != 6 {
		t.Fatalf("delete: %v %+v", err, topics.deleted)
	}
	if err := svc.SubmitMessage(ctx, "0.0.7", "hi"); err != nil || string(topics.submitted) != "hi" {
		t.Fatalf("submit: %v %q", err, topics.submitted)
	}
	if err := svc.DeleteTopic(ctx, "topic"); xerrors.CodeOf(err) != xerrors.CodeInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestQueryMessagesAppliesDefaults(t *testing.T) {
	reader := &stubReader{}
	svc, _ := NewService(&stubTopics{}, reader, WithDefaultWait(time.Second), WithDefaultLimit(25))

	msgs, err := svc.QueryMessages(context.Background(), " 0.0.9 ", 0, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(msgs) != 1 || reader.topicID != "0.0.9" {
		t.Fatalf("unexpected result %+v via %q", msgs, reader.topicID)
	}
	if reader.wait != time.Second || reader.limit != 25 {
		t.Fatalf("defaults not applied: wait=%v limit=%d", reader.wait, reader.limit)
	}

	if _, err := svc.QueryMessages(context.Background(), "0.0.9", 10*time.Millisecond, 3); err != nil {
		t.Fatalf("query: %v", err)
	}
	if reader.wait != 10*time.Millisecond || reader.limit != 3 {
		t.Fatalf("explicit values overridden: wait=%v limit=%d", reader.wait, reader.limit)
	}
}

func TestNewServiceValidates(t *testing.T) {
	if _, err := NewService(nil, &stubReader{}); err == nil {
		t.Fatal("expected error without ledger client")
	}
	if _, err := NewService(&stubTopics{}, nil); err == nil {
		t.Fatal("expected error without reader")
	}
}
