package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"clinic-backend/pkg/clock"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisJobKeyPrefix prefixes the sorted set holding one queue's delayed jobs
const RedisJobKeyPrefix = "jobs:delayed:"

// claimDueJobsScript pops up to ARGV[2] members whose score <= ARGV[1].
// Range and removal run atomically, so a job is handed to exactly one worker.
var claimDueJobsScript = redis.NewScript(`
	local items = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
	if #items > 0 then
		redis.call('ZREM', KEYS[1], unpack(items))
	end
	return items
`)

// Job is the envelope stored in Redis
type Job struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	DueAt      time.Time       `json:"due_at"`
}

// JobHandle identifies a scheduled job
type JobHandle struct {
	ID    string
	Name  string
	DueAt time.Time
}

type JobHandler func(ctx context.Context, job *Job) error

// JobQueue schedules named jobs to run after a delay
type JobQueue interface {
	AddJob(ctx context.Context, name string, payload any, delay time.Duration) (*JobHandle, error)
	ProcessJob(name string, handler JobHandler)
}

// RedisJobQueue keeps delayed jobs in one Redis sorted set per job name,
// scored by due time in unix milliseconds. Jobs survive process restarts.
// Delivery is at most once: a claimed job whose handler fails is not retried.
type RedisJobQueue struct {
	redisClient  *redis.Client
	clock        clock.Clock
	log          *logrus.Logger
	pollInterval time.Duration
	batchSize    int

	mu       sync.RWMutex
	handlers map[string]JobHandler

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

func NewRedisJobQueue(redisClient *redis.Client, clk clock.Clock, log *logrus.Logger, pollInterval time.Duration, batchSize int) *RedisJobQueue {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	return &RedisJobQueue{
		redisClient:  redisClient,
		clock:        clk,
		log:          log,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		handlers:     make(map[string]JobHandler),
		stopChan:     make(chan struct{}),
	}
}

func (q *RedisJobQueue) AddJob(ctx context.Context, name string, payload any, delay time.Duration) (*JobHandle, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload for job %s: %w", name, err)
	}

	now := q.clock.Now()
	job := Job{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    raw,
		EnqueuedAt: now,
		DueAt:      now.Add(delay),
	}

	member, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job %s: %w", name, err)
	}

	err = q.redisClient.ZAdd(ctx, jobKey(name), redis.Z{
		Score:  float64(job.DueAt.UnixMilli()),
		Member: string(member),
	}).Err()
	if err != nil {
		q.log.Warnf("Failed to enqueue job %s: %+v", name, err)
		return nil, fmt.Errorf("enqueue job %s: %w", name, err)
	}

	q.log.Debugf("Enqueued job %s (%s) due at %s", name, job.ID, job.DueAt.Format(time.RFC3339))
	return &JobHandle{ID: job.ID, Name: name, DueAt: job.DueAt}, nil
}

// ProcessJob registers the handler for a job name. Registering again replaces it.
func (q *RedisJobQueue) ProcessJob(name string, handler JobHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[name] = handler
}

// Pending returns the number of jobs waiting under name
func (q *RedisJobQueue) Pending(ctx context.Context, name string) (int64, error) {
	return q.redisClient.ZCard(ctx, jobKey(name)).Result()
}

// Poll claims and runs every due job of every registered name once.
// It returns how many jobs were handed to a handler. A claim failure on one
// name does not skip the others; the failures are joined into the error.
func (q *RedisJobQueue) Poll(ctx context.Context) (int, error) {
	q.mu.RLock()
	handlers := make(map[string]JobHandler, len(q.handlers))
	for name, handler := range q.handlers {
		handlers[name] = handler
	}
	q.mu.RUnlock()

	now := q.clock.Now().UnixMilli()
	processed := 0
	var errs []error

	for name, handler := range handlers {
		items, err := claimDueJobsScript.Run(ctx, q.redisClient, []string{jobKey(name)}, now, q.batchSize).StringSlice()
		if err != nil && !errors.Is(err, redis.Nil) {
			q.log.Errorf("Failed to claim due jobs for %s: %+v", name, err)
			errs = append(errs, fmt.Errorf("claim jobs %s: %w", name, err))
			continue
		}

		for _, item := range items {
			var job Job
			if err := json.Unmarshal([]byte(item), &job); err != nil {
				q.log.Errorf("Failed to decode job from %s: %+v", name, err)
				continue
			}
			q.run(ctx, handler, &job)
			processed++
		}
	}

	return processed, errors.Join(errs...)
}

// Start polls on a ticker until ctx is done or Stop is called
func (q *RedisJobQueue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		ticker := time.NewTicker(q.pollInterval)
		defer ticker.Stop()

		q.log.Infof("Job worker started, polling every %s", q.pollInterval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-q.stopChan:
				return
			case <-ticker.C:
				if _, err := q.Poll(ctx); err != nil {
					q.log.Warnf("Failed to poll job queue: %+v", err)
				}
			}
		}
	}()
}

// Stop ends the polling loop and is safe to call multiple times.
// AddJob keeps writing to Redis after Stop; those jobs run on the next worker.
func (q *RedisJobQueue) Stop() {
	if q.stopped.CompareAndSwap(false, true) {
		close(q.stopChan)
		q.wg.Wait()
		q.log.Info("Job worker stopped")
	}
}

func (q *RedisJobQueue) run(ctx context.Context, handler JobHandler, job *Job) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Errorf("Job %s (%s) panicked: %v", job.Name, job.ID, r)
		}
	}()

	if err := handler(ctx, job); err != nil {
		q.log.Errorf("Job %s (%s) failed: %+v", job.Name, job.ID, err)
	}
}

func jobKey(name string) string {
	return RedisJobKeyPrefix + name
}
