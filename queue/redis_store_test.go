package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automateai/agentrun/types"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStoreWithClient(client, "test:")
}

func redisTestJob(id string, status Status) *Job {
	return &Job{
		ID:      id,
		AgentID: "agent-r",
		Agent: &types.Agent{
			ID: "agent-r",
			Nodes: []types.AgentNode{
				{ID: "in", Type: "customNode", Data: types.NodeData{NodeType: types.NodeKindInput}},
			},
		},
		Status:      status,
		MaxAttempts: 3,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestRedisStore_SaveAndGet(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	job := redisTestJob("job_1", StatusWaiting)
	require.NoError(t, s.Save(ctx, job))

	got, err := s.Get(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, StatusWaiting, got.Status)
	assert.Equal(t, "agent-r", got.Agent.ID)

	// Duplicate save is rejected.
	assert.Error(t, s.Save(ctx, job))
}

func TestRedisStore_GetMissing(t *testing.T) {
	s := newTestRedisStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRedisStore_UpdateMovesStatusIndex(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	job := redisTestJob("job_2", StatusWaiting)
	require.NoError(t, s.Save(ctx, job))

	job.Status = StatusActive
	job.Attempts = 1
	require.NoError(t, s.Update(ctx, job))

	waiting, err := s.List(ctx, StatusWaiting)
	require.NoError(t, err)
	assert.Empty(t, waiting)

	active, err := s.List(ctx, StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 1, active[0].Attempts)
}

func TestRedisStore_UpdateMissing(t *testing.T) {
	s := newTestRedisStore(t)
	err := s.Update(context.Background(), redisTestJob("ghost", StatusWaiting))
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRedisStore_Delete(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	job := redisTestJob("job_3", StatusWaiting)
	require.NoError(t, s.Save(ctx, job))
	require.NoError(t, s.Delete(ctx, "job_3"))

	_, err := s.Get(ctx, "job_3")
	assert.ErrorIs(t, err, ErrJobNotFound)
	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[StatusWaiting])

	// Deleting a missing job is not an error.
	assert.NoError(t, s.Delete(ctx, "job_3"))
}

func TestRedisStore_ListOrderedByCreation(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	older := redisTestJob("job_old", StatusWaiting)
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := redisTestJob("job_new", StatusWaiting)

	require.NoError(t, s.Save(ctx, newer))
	require.NoError(t, s.Save(ctx, older))

	jobs, err := s.List(ctx, StatusWaiting)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job_old", jobs[0].ID)
	assert.Equal(t, "job_new", jobs[1].ID)
}

func TestRedisStore_Counts(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, redisTestJob("w1", StatusWaiting)))
	require.NoError(t, s.Save(ctx, redisTestJob("w2", StatusWaiting)))
	require.NoError(t, s.Save(ctx, redisTestJob("f1", StatusFailed)))

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[StatusWaiting])
	assert.Equal(t, 1, counts[StatusFailed])
	assert.Zero(t, counts[StatusActive])
}

func TestQueue_WithRedisStore(t *testing.T) {
	s := newTestRedisStore(t)
	runner := &fakeRunner{}
	q := New(s, runner, nil, WithBackoff(fastBackoff()))
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	t.Cleanup(func() {
		cancel()
		q.Stop()
	})

	job, err := q.Enqueue(context.Background(), redisTestJob("x", StatusWaiting).Agent, nil, EnqueueOptions{})
	require.NoError(t, err)

	done := waitForStatus(t, q, job.ID, StatusCompleted)
	assert.Equal(t, 100, done.Progress)
}
