package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"clinic-backend/pkg/clock"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var queueStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type testPayload struct {
	N int `json:"n"`
}

func TestRedisJobQueue_RunsDueJobsInDueOrder(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(queueStart)
	q := NewRedisJobQueue(newTestRedis(t), clk, newTestLogger(), time.Second, 10)

	var seen []int
	q.ProcessJob("check", func(ctx context.Context, job *Job) error {
		var p testPayload
		require.NoError(t, json.Unmarshal(job.Payload, &p))
		seen = append(seen, p.N)
		return nil
	})

	_, err := q.AddJob(ctx, "check", testPayload{N: 3}, 30*time.Minute)
	require.NoError(t, err)
	_, err = q.AddJob(ctx, "check", testPayload{N: 1}, 10*time.Minute)
	require.NoError(t, err)
	handle, err := q.AddJob(ctx, "check", testPayload{N: 2}, 20*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, queueStart.Add(20*time.Minute), handle.DueAt)

	n, err := q.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clk.Advance(20 * time.Minute)
	n, err = q.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{1, 2}, seen)

	pending, err := q.Pending(ctx, "check")
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}

func TestRedisJobQueue_JobsSurviveRestart(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)
	clk := clock.NewManual(queueStart)

	first := NewRedisJobQueue(client, clk, newTestLogger(), time.Second, 10)
	_, err := first.AddJob(ctx, "check", testPayload{N: 9}, time.Minute)
	require.NoError(t, err)
	first.Stop()

	second := NewRedisJobQueue(client, clk, newTestLogger(), time.Second, 10)
	ran := 0
	second.ProcessJob("check", func(ctx context.Context, job *Job) error {
		ran++
		return nil
	})

	clk.Advance(time.Minute)
	_, err = second.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ran)
}

func TestRedisJobQueue_FailedJobIsNotRetried(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(queueStart)
	q := NewRedisJobQueue(newTestRedis(t), clk, newTestLogger(), time.Second, 10)

	calls := 0
	q.ProcessJob("flaky", func(ctx context.Context, job *Job) error {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return errors.New("still failing")
	})

	_, err := q.AddJob(ctx, "flaky", testPayload{}, 0)
	require.NoError(t, err)
	_, err = q.AddJob(ctx, "flaky", testPayload{}, 0)
	require.NoError(t, err)

	n, err := q.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = q.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, calls)
}

func TestRedisJobQueue_UnregisteredNameIsLeftAlone(t *testing.T) {
	ctx := context.Background()
	q := NewRedisJobQueue(newTestRedis(t), clock.NewManual(queueStart), newTestLogger(), time.Second, 10)

	_, err := q.AddJob(ctx, "orphan", testPayload{}, 0)
	require.NoError(t, err)

	n, err := q.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	pending, err := q.Pending(ctx, "orphan")
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}

func TestRedisJobQueue_AddAfterStop(t *testing.T) {
	ctx := context.Background()
	q := NewRedisJobQueue(newTestRedis(t), clock.NewManual(queueStart), newTestLogger(), time.Second, 10)
	q.Stop()
	q.Stop()

	_, err := q.AddJob(ctx, "check", testPayload{}, time.Minute)
	require.NoError(t, err)

	pending, err := q.Pending(ctx, "check")
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}

func TestRedisJobQueue_ShutdownKeepsJobsFromInFlightTasks(t *testing.T) {
	ctx := context.Background()
	q := NewRedisJobQueue(newTestRedis(t), clock.NewManual(queueStart), newTestLogger(), 10*time.Millisecond, 10)
	d := NewAsyncDispatcher(newTestLogger(), 2, time.Second)

	q.Start(ctx)

	var addErr error
	d.Dispatch(ctx, "schedule-wait-check", func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		_, addErr = q.AddJob(ctx, "check", testPayload{N: 1}, time.Minute)
		return addErr
	})

	// same order as App.Close
	d.Wait()
	q.Stop()

	require.NoError(t, addErr)
	pending, err := q.Pending(ctx, "check")
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}

func TestRedisJobQueue_PollContinuesPastBrokenKey(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)
	q := NewRedisJobQueue(client, clock.NewManual(queueStart), newTestLogger(), time.Second, 10)

	require.NoError(t, client.Set(ctx, RedisJobKeyPrefix+"broken", "not-a-zset", 0).Err())
	q.ProcessJob("broken", func(ctx context.Context, job *Job) error { return nil })

	ran := 0
	q.ProcessJob("good", func(ctx context.Context, job *Job) error {
		ran++
		return nil
	})
	_, err := q.AddJob(ctx, "good", testPayload{}, 0)
	require.NoError(t, err)

	n, err := q.Poll(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "claim jobs broken")
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, ran)
}

func TestRedisJobQueue_StartPollsOnTicker(t *testing.T) {
	clk := clock.NewManual(queueStart)
	q := NewRedisJobQueue(newTestRedis(t), clk, newTestLogger(), 10*time.Millisecond, 10)

	done := make(chan struct{}, 1)
	q.ProcessJob("tick", func(ctx context.Context, job *Job) error {
		done <- struct{}{}
		return nil
	})
	_, err := q.AddJob(context.Background(), "tick", testPayload{}, 0)
	require.NoError(t, err)

	q.Start(context.Background())
	defer q.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not run by the worker")
	}
}
