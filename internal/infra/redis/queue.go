// Package redis provides the Redis-backed work queue feeding the
// notarization dispatcher.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Queue    string `yaml:"queue"`
}

// Job is one unit of work: a record identifier to run the workflow for.
type Job struct {
	ID         string `json:"id"`
	RecordID   string `json:"record_id"`
	EnqueuedAt int64  `json:"enqueued_at"`
}

// Queue wraps Redis list operations for the notarization work queue.
type Queue struct {
	rdb *redis.Client
	key string
}

// NewQueue creates a queue client and verifies connectivity.
func NewQueue(cfg Config) (*Queue, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	key := cfg.Queue
	if key == "" {
		key = "notarization_jobs"
	}
	return &Queue{rdb: rdb, key: key}, nil
}

// Close closes the Redis connection.
func (q *Queue) Close() error {
	return q.rdb.Close()
}

// Enqueue pushes a job for the record and returns the job id.
func (q *Queue) Enqueue(ctx context.Context, recordID string) (string, error) {
	job := Job{
		ID:         uuid.NewString(),
		RecordID:   recordID,
		EnqueuedAt: time.Now().Unix(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	if err := q.rdb.LPush(ctx, q.key, data).Err(); err != nil {
		return "", fmt.Errorf("lpush failed: %w", err)
	}
	return job.ID, nil
}

// Dequeue blocks up to timeout for the next job. The second return value
// is false when the wait timed out with an empty queue.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, bool, error) {
	result, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("brpop failed: %w", err)
	}
	if len(result) != 2 {
		return nil, false, fmt.Errorf("unexpected brpop result length %d", len(result))
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, false, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, true, nil
}

// Depth returns the number of pending jobs.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen failed: %w", err)
	}
	return n, nil
}

// Health checks Redis connectivity.
func (q *Queue) Health(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}
