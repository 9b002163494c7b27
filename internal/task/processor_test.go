package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/internal/observability/alerting"
	"github.com/jaycoolh/hedera-agent-kit/internal/tools"
)

type fakeInvoker struct {
	processed atomic.Int32
	latency   time.Duration
}

func (f *fakeInvoker) Invoke(ctx context.Context, name string, input []byte) tools.Result {
	if f.latency > 0 {
		select {
		case <-time.After(f.latency):
		case <-ctx.Done():
		}
	}
	f.processed.Add(1)
	if name == "panicky" {
		return tools.Result{
			Tool:   name,
			Status: tools.StatusError,
			Code:   tools.CodeToolPanic,
			Output: json.RawMessage(`{"status":"error","message":"nil pointer","code":"TOOL_PANIC"}`),
		}
	}
	if name == "broken" {
		return tools.Result{
			Tool:   name,
			Status: tools.StatusError,
			Code:   xerrors.CodeLedgerFailure,
			Output: json.RawMessage(`{"status":"error","message":"insufficient balance","code":"LEDGER_FAILURE"}`),
		}
	}
	return tools.Result{
		Tool:   name,
		Status: tools.StatusSuccess,
		Output: json.RawMessage(fmt.Sprintf(`{"status":"success","echo":%s}`, input)),
	}
}

type staticCatalog map[string]bool

func (c staticCatalog) Has(name string) bool { return c[name] }

func startProcessor(t *testing.T, ctx context.Context, p *Processor) {
	t.Helper()
	go func() {
		if err := p.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("processor exited: %v", err)
		}
	}()
}

func TestProcessorHandlesConcurrentJobs(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := NewMemoryStore()
	queue := NewMemoryQueue(1024)
	invoker := &fakeInvoker{latency: 10 * time.Millisecond}

	service := NewService(store, queue)
	startProcessor(t, ctx, NewProcessor(invoker, store, queue, WithWorkerCount(8)))

	total := 200
	for i := 0; i < total; i++ {
		input := json.RawMessage(fmt.Sprintf(`{"n":%d}`, i))
		if _, err := service.Submit(ctx, Request{Tool: "hedera_get_hbar_balance", Input: input}); err != nil {
			t.Fatalf("提交作业失败: %v", err)
		}
	}

	deadline := time.After(5 * time.Second)
	for {
		stats, err := service.Stats(ctx)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats.Succeeded >= total {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("作业未能及时处理，已完成 %d", invoker.processed.Load())
		case <-time.After(50 * time.Millisecond):
		}
	}
	if got := invoker.processed.Load(); int(got) != total {
		t.Fatalf("expected each job to run once, got %d invocations", got)
	}
}

func TestProcessorStoresEnvelopes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewMemoryStore()
	queue := NewMemoryQueue(8)
	invoker := &fakeInvoker{}
	service := NewService(store, queue)
	startProcessor(t, ctx, NewProcessor(invoker, store, queue))

	ok, err := service.Submit(ctx, Request{Tool: "echo", Input: json.RawMessage(`{"a":1}`)})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	done, err := service.WaitUntilCompleted(ctx, ok.ID, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if done.Status != StatusSucceeded || string(done.Output) != `{"status":"success","echo":{"a":1}}` {
		t.Fatalf("unexpected job: %+v output=%s", done, done.Output)
	}

	bad, err := service.Submit(ctx, Request{Tool: "broken"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	failed, err := service.WaitUntilCompleted(ctx, bad.ID, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if failed.Status != StatusFailed || failed.ErrorCode != string(xerrors.CodeLedgerFailure) || failed.LastError != "insufficient balance" {
		t.Fatalf("unexpected failed job: %+v", failed)
	}
	if failed.Attempts != 1 {
		t.Fatalf("error envelopes must not be retried, attempts=%d", failed.Attempts)
	}
	if len(failed.Output) == 0 {
		t.Fatal("expected error envelope to be kept as output")
	}
}

func TestProcessorSkipsFinishedJobs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	invoker := &fakeInvoker{}
	p := NewProcessor(invoker, store, nil)

	if err := store.Create(ctx, &Job{ID: "done", Tool: "echo", Status: StatusPending, MaxRetries: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := p.handle(ctx, "done"); err != nil {
		t.Fatalf("first handle: %v", err)
	}
	if err := p.handle(ctx, "done"); err != nil {
		t.Fatalf("redelivery should be ignored: %v", err)
	}
	if err := p.handle(ctx, "unknown"); err != nil {
		t.Fatalf("unknown job should be ignored: %v", err)
	}
	if got := invoker.processed.Load(); got != 1 {
		t.Fatalf("expected a single invocation, got %d", got)
	}
	if err := p.Start(ctx); xerrors.CodeOf(err) != xerrors.CodeInitializationFailure {
		t.Fatalf("expected initialization failure without consumer, got %v", err)
	}
}

type recordingDispatcher struct {
	events []alerting.Event
}

func (r *recordingDispatcher) Notify(_ context.Context, event alerting.Event) error {
	r.events = append(r.events, event)
	return nil
}

func TestProcessorAlertsOnlyForAlertingCodes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	queue := NewMemoryQueue(8)
	service := NewService(store, queue)
	alerts := &recordingDispatcher{}
	p := NewProcessor(&fakeInvoker{}, store, queue, WithAlertDispatcher(alerts))

	broken, err := service.Submit(ctx, Request{Tool: "broken"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	panicky, err := service.Submit(ctx, Request{Tool: "panicky"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	for _, id := range []string{broken.ID, panicky.ID} {
		if err := p.handle(ctx, id); err != nil {
			t.Fatalf("handle %s: %v", id, err)
		}
	}

	if len(alerts.events) != 1 {
		t.Fatalf("expected exactly one alert, got %+v", alerts.events)
	}
	event := alerts.events[0]
	if event.JobID != panicky.ID || event.Code != tools.CodeToolPanic || event.Message != "nil pointer" {
		t.Fatalf("unexpected alert %+v", event)
	}
}
