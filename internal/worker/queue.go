// Package worker implements the worker-pool scheduler: a fixed-size
// pool of workers that block-pop submissions off a Redis-compatible
// queue, run the judging pipeline against a shared sandbox, and
// republish progress and final results.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// TaskQueueName is the list the scheduler blocking-left-pops
	// submissions from.
	TaskQueueName = "judger:task"
	// ResultQueueName is the list the scheduler right-pushes progress
	// and final results onto.
	ResultQueueName = "judger:result"

	popTimeout = 5 * time.Second
)

// Queue wraps the two Redis list operations the scheduler needs,
// grounded on the teacher's go-redis/v9 cache wrapper conventions.
type Queue struct {
	client *redis.Client
}

// NewQueue opens a Redis connection pool against url (e.g.
// redis://localhost:6379).
func NewQueue(url string) (*Queue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("worker: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("worker: ping redis: %w", err)
	}
	return &Queue{client: client}, nil
}

// NewQueueFromClient wraps an existing *redis.Client, used by tests
// against miniredis.
func NewQueueFromClient(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// BlockingPop pops the next payload off name, blocking for at most
// the 5-second BLPOP timeout (or until ctx is done). It does not retry:
// it returns ("", nil) on timeout so the caller can re-check its
// running flag.
func (q *Queue) BlockingPop(ctx context.Context, name string) (string, error) {
	result, err := q.client.BLPop(ctx, popTimeout, name).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	// BLPop returns [key, value].
	if len(result) < 2 {
		return "", nil
	}
	return result[1], nil
}

// Push right-pushes payload onto name.
func (q *Queue) Push(ctx context.Context, name, payload string) error {
	return q.client.RPush(ctx, name, payload).Err()
}

// Close releases the connection pool.
func (q *Queue) Close() error {
	return q.client.Close()
}
