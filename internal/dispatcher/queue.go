// Package dispatcher implements the Training Dispatcher: an unbounded
// multi-producer, single-consumer job queue over Redis (grounded on
// queue/redis/queue.go's RPush/BLPop/processing-set pattern), generalized
// to carry (modelID, family) retraining jobs instead of workflow actions.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Job is one retraining request.
type Job struct {
	ModelID    string    `json:"modelId"`
	Family     string    `json:"family"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Queue is the Redis-backed FIFO job queue. There is exactly one logical
// queue (the dispatcher has a single consumer by design), so unlike
// queue/redis/queue.go's per-queue-name key this uses one fixed key under
// the configured prefix.
type Queue struct {
	client *redis.Client
	prefix string
}

// NewQueue connects to redisURL and returns a ready Queue. Reusing the
// Distributed Cache Adapter's Redis instance under a distinct key prefix
// is fine since this queue and the cache are logically independent
// key-spaces.
func NewQueue(ctx context.Context, redisURL, prefix string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Queue{client: client, prefix: prefix}, nil
}

func (q *Queue) queueKey() string      { return q.prefix + "jobs" }
func (q *Queue) processingKey() string { return q.prefix + "processing" }

// Enqueue appends job to the tail of the queue (FIFO by enqueue order).
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return q.client.RPush(ctx, q.queueKey(), data).Err()
}

// Dequeue blocks up to timeout for the next job. A nil, nil return means
// the timeout elapsed with nothing available.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, q.queueKey()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

// MarkProcessing records job as in-flight with a deadline, so an operator
// tool can identify stuck jobs.
func (q *Queue) MarkProcessing(ctx context.Context, modelID string, deadline time.Time) error {
	return q.client.ZAdd(ctx, q.processingKey(), redis.Z{Score: float64(deadline.Unix()), Member: modelID}).Err()
}

// CompleteJob removes modelID from the processing set, whether the job
// succeeded or failed — the dispatcher does not automatically retry
// (operators may re-enqueue).
func (q *Queue) CompleteJob(ctx context.Context, modelID string) error {
	return q.client.ZRem(ctx, q.processingKey(), modelID).Err()
}

// Depth returns the number of jobs currently queued, used to feed the
// dispatcher queue-depth gauge.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueKey()).Result()
}

// Close releases the underlying Redis connection.
func (q *Queue) Close() error {
	return q.client.Close()
}
