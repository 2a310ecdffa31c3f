package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Enqueuer is the producer side of the sync queue. Enqueueing is
// fire-and-forget: it returns as soon as the job is durably queued and
// never waits on task execution.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

// Dequeuer is the consumer side of the sync queue. Dequeue blocks until a
// job is available or the context is cancelled.
type Dequeuer interface {
	Dequeue(ctx context.Context) (Job, error)
}

// RedisQueue is a durable queue backed by a Redis list shared by all
// worker processes. Jobs are JSON-encoded; LPUSH/BRPOP gives FIFO order
// at the queue level, though the dispatcher makes no cross-task ordering
// guarantee once jobs are picked up by parallel workers.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue connects to Redis and verifies the connection.
func NewRedisQueue(addr, password, key string) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisQueue{client: client, key: key}, nil
}

// Enqueue pushes a job onto the queue.
func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode sync job: %w", err)
	}

	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue sync job: %w", err)
	}
	return nil
}

// Dequeue pops the oldest job, blocking until one arrives. The short BRPOP
// timeout keeps the loop responsive to context cancellation.
func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Job{}, err
		}

		res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return Job{}, fmt.Errorf("failed to dequeue sync job: %w", err)
		}

		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return Job{}, fmt.Errorf("failed to decode sync job: %w", err)
		}
		return job, nil
	}
}

// Close releases the Redis connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// ChanQueue is an in-process queue used in tests and single-process
// deployments. It implements both queue sides over a buffered channel.
type ChanQueue struct {
	jobs chan Job
}

// NewChanQueue creates a ChanQueue with the given buffer size.
func NewChanQueue(size int) *ChanQueue {
	return &ChanQueue{jobs: make(chan Job, size)}
}

// Enqueue places a job on the channel.
func (q *ChanQueue) Enqueue(ctx context.Context, job Job) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue receives the next job.
func (q *ChanQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Len reports the number of queued jobs.
func (q *ChanQueue) Len() int {
	return len(q.jobs)
}
