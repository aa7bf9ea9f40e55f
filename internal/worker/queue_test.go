package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"ptoj-judger/internal/worker"
)

func newTestQueue(t *testing.T) *worker.Queue {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return worker.NewQueueFromClient(client)
}

func TestQueuePushThenBlockingPop(t *testing.T) {
	t.Parallel()

	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.Push(ctx, worker.TaskQueueName, `{"sid":"sub-1"}`); err != nil {
		t.Fatalf("push: %v", err)
	}

	popCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	payload, err := q.BlockingPop(popCtx, worker.TaskQueueName)
	if err != nil {
		t.Fatalf("blocking pop: %v", err)
	}
	if payload != `{"sid":"sub-1"}` {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

// BlockingPop's own 5-second server-side timeout (not a context
// deadline) is what maps to an empty, error-free result; this exercises
// that real elapsed wait so it takes several seconds.
func TestQueueBlockingPopTimeoutReturnsEmpty(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out the real 5s BLPOP timeout; skipped in -short")
	}
	t.Parallel()

	q := newTestQueue(t)
	payload, err := q.BlockingPop(context.Background(), worker.TaskQueueName)
	if err != nil {
		t.Fatalf("expected no error on a BLPOP timeout, got %v", err)
	}
	if payload != "" {
		t.Fatalf("expected empty payload on timeout, got %q", payload)
	}
}
