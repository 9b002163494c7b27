package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
)

func TestMemoryQueueDeliversAndCloses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewMemoryQueue(0)

	var handled atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- q.Consume(ctx, 2, func(context.Context, string) error {
			handled.Add(1)
			return errors.New("ignored")
		})
	}()

	for i := 0; i < 5; i++ {
		if err := q.Publish(ctx, "job"); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	deadline := time.Now().Add(2 * time.Second)
	for handled.Load() < 5 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if handled.Load() != 5 {
		t.Fatalf("expected 5 deliveries, got %d", handled.Load())
	}

	_ = q.Close()
	if err := q.Publish(context.Background(), "late"); xerrors.CodeOf(err) != xerrors.CodeQueueFailure {
		t.Fatalf("expected queue failure after close, got %v", err)
	}
}

func TestQueueConstructorsValidateConfig(t *testing.T) {
	if _, err := NewRedisQueue(context.Background(), RedisQueueConfig{}); xerrors.CodeOf(err) != xerrors.CodeInitializationFailure {
		t.Fatalf("expected initialization failure, got %v", err)
	}
	if _, err := NewRabbitMQQueue(RabbitMQConfig{}); xerrors.CodeOf(err) != xerrors.CodeInitializationFailure {
		t.Fatalf("expected initialization failure, got %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	q := newRedisQueue(client, RedisQueueConfig{})
	defer q.Close()
	if q.queue != "hederakit:jobs" || q.wait != 5*time.Second {
		t.Fatalf("unexpected defaults: %s %s", q.queue, q.wait)
	}
}
