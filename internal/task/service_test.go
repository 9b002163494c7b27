package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
)

type failingProducer struct{}

func (failingProducer) Publish(context.Context, string) error { return errors.New("broker down") }
func (failingProducer) Close() error                         { return nil }

func TestSubmitValidatesRequest(t *testing.T) {
	ctx := context.Background()
	service := NewService(NewMemoryStore(), NewMemoryQueue(4), WithCatalog(staticCatalog{"hedera_create_topic": true}))

	cases := []Request{
		{Tool: ""},
		{Tool: "hedera_unknown"},
		{Tool: "hedera_create_topic", Input: json.RawMessage(`{"memo":`)},
	}
	for _, req := range cases {
		if _, err := service.Submit(ctx, req); xerrors.CodeOf(err) != CodeJobValidation {
			t.Fatalf("request %+v: expected validation error, got %v", req, err)
		}
	}

	job, err := service.Submit(ctx, Request{Tool: " hedera_create_topic "})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Tool != "hedera_create_topic" || string(job.Input) != "{}" || job.Status != StatusPending || job.MaxRetries != 1 {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestSubmitIsIdempotentForExplicitID(t *testing.T) {
	ctx := context.Background()
	queue := NewMemoryQueue(4)
	service := NewService(NewMemoryStore(), queue, WithMaxRetries(3))

	first, err := service.Submit(ctx, Request{ID: "job-1", Tool: "hedera_get_hbar_balance"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	second, err := service.Submit(ctx, Request{ID: "job-1", Tool: "hedera_get_hbar_balance"})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if first.ID != second.ID || second.MaxRetries != 3 {
		t.Fatalf("expected the same job, got %+v and %+v", first, second)
	}
	if len(queue.ch) != 1 {
		t.Fatalf("expected a single publish, got %d", len(queue.ch))
	}
}

func TestSubmitMarksJobFailedWhenPublishFails(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	service := NewService(store, failingProducer{})

	_, err := service.Submit(ctx, Request{ID: "lost", Tool: "hedera_get_hbar_balance"})
	if xerrors.CodeOf(err) != CodeJobPublish {
		t.Fatalf("expected publish failure, got %v", err)
	}
	job, err := service.Get(ctx, "lost")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != StatusFailed || job.ErrorCode != string(CodeJobPublish) {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestWaitUntilCompletedHonoursContext(t *testing.T) {
	service := NewService(NewMemoryStore(), NewMemoryQueue(4))
	job, err := service.Submit(context.Background(), Request{Tool: "hedera_get_hbar_balance"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := service.WaitUntilCompleted(ctx, job.ID, 5*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if _, err := service.WaitUntilCompleted(context.Background(), "missing", 0); !IsJobError(err, CodeJobNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
