package jobqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eventTicketing/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestQueue(t *testing.T) (*Queue, *clock, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(rdb, WithClock(c.Now), WithVisibility(time.Minute)), c, mr
}

func reminder(fireAt time.Time) *models.Job {
	return &models.Job{
		Type:      models.JobAttendeeReminder,
		EventID:   "ev-1",
		Recipient: models.Recipient{UserID: "u-1", Email: "ann@example.com"},
		FireAt:    fireAt,
	}
}

func TestUpsert_SameKeyKeepsLatestFireTime(t *testing.T) {
	t.Parallel()

	q, c, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Upsert(ctx, reminder(c.Now().Add(2*time.Hour)))
	require.NoError(t, err)

	latest := c.Now().Add(3 * time.Hour)
	job := reminder(latest)
	ok, err := q.Upsert(ctx, job)
	require.NoError(t, err)
	assert.True(t, ok)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Delayed: 1}, stats)

	got, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, got.FireAt.Equal(latest))
}

func TestUpsert_RejectsJobWithoutRecipient(t *testing.T) {
	t.Parallel()

	q, c, _ := newTestQueue(t)

	job := reminder(c.Now())
	job.Recipient = models.Recipient{}

	_, err := q.Upsert(context.Background(), job)
	require.ErrorIs(t, err, models.ErrJobNoRecipient)
}

func TestClaimComplete(t *testing.T) {
	t.Parallel()

	q, c, _ := newTestQueue(t)
	ctx := context.Background()

	job := reminder(c.Now().Add(time.Hour))
	_, err := q.Upsert(ctx, job)
	require.NoError(t, err)

	jobs, err := q.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	c.Advance(time.Hour)
	jobs, err = q.Claim(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Active: 1}, stats)

	require.NoError(t, q.Complete(ctx, jobs[0]))

	_, err = q.Get(ctx, job.ID)
	require.ErrorIs(t, err, ErrJobNotFound)

	// The same delivery is not scheduled again.
	ok, err := q.Upsert(ctx, reminder(job.FireAt))
	require.NoError(t, err)
	assert.False(t, ok)

	// A new fire time is a new delivery.
	ok, err = q.Upsert(ctx, reminder(job.FireAt.Add(24*time.Hour)))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpsert_PastFireTimeIsDueNow(t *testing.T) {
	t.Parallel()

	q, c, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Upsert(ctx, reminder(c.Now().Add(-time.Hour)))
	require.NoError(t, err)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pending)
}

func TestFail_RetriesThenParks(t *testing.T) {
	t.Parallel()

	q, c, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Upsert(ctx, reminder(c.Now()))
	require.NoError(t, err)

	for attempt := 1; attempt <= 3; attempt++ {
		jobs, err := q.Claim(ctx, 10)
		require.NoError(t, err)
		require.Len(t, jobs, 1, "attempt %d", attempt)

		dead, err := q.Fail(ctx, jobs[0], errors.New("smtp down"), 3, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, attempt == 3, dead)

		c.Advance(time.Minute)
	}

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Failed: 1}, stats)

	jobs, err := q.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestFail_RemovedJobIsNotRetried(t *testing.T) {
	t.Parallel()

	q, c, _ := newTestQueue(t)
	ctx := context.Background()

	job := reminder(c.Now())
	_, err := q.Upsert(ctx, job)
	require.NoError(t, err)

	jobs, err := q.Claim(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	require.NoError(t, q.Remove(ctx, job.ID))

	dead, err := q.Fail(ctx, jobs[0], errors.New("boom"), 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, dead)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestClaim_RequeuesAbandonedJobs(t *testing.T) {
	t.Parallel()

	q, c, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Upsert(ctx, reminder(c.Now()))
	require.NoError(t, err)

	jobs, err := q.Claim(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	c.Advance(2 * time.Minute)

	jobs, err = q.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestMarkSent(t *testing.T) {
	t.Parallel()

	q, _, _ := newTestQueue(t)
	ctx := context.Background()

	ok, err := q.MarkSent(ctx, "forward-1", "v1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = q.MarkSent(ctx, "forward-1", "v1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, q.UnmarkSent(ctx, "forward-1", "v1"))

	ok, err = q.MarkSent(ctx, "forward-1", "v1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquireLock(t *testing.T) {
	t.Parallel()

	q, _, _ := newTestQueue(t)
	ctx := context.Background()

	lock, err := q.AcquireLock(ctx, "scan", time.Minute)
	require.NoError(t, err)

	_, err = q.AcquireLock(ctx, "scan", time.Minute)
	require.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, lock.Release(ctx))

	_, err = q.AcquireLock(ctx, "scan", time.Minute)
	require.NoError(t, err)
}

func TestGet_RedisErrors(t *testing.T) {
	t.Parallel()

	db, mock := redismock.NewClientMock()
	q := New(db)
	ctx := context.Background()

	mock.ExpectHGet(DefaultPrefix+keyJob+"missing", "data").RedisNil()
	_, err := q.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrJobNotFound)

	mock.ExpectHGet(DefaultPrefix+keyJob+"broken", "data").SetErr(errors.New("connection refused"))
	_, err = q.Get(ctx, "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrJobNotFound)
	assert.Contains(t, err.Error(), "connection refused")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing_Failure(t *testing.T) {
	t.Parallel()

	db, mock := redismock.NewClientMock()
	mock.ExpectPing().SetErr(errors.New("connection failed"))

	err := New(db).Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}
