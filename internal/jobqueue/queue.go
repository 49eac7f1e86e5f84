// Package jobqueue is a persistent delayed job queue on Redis.
//
// A job lives in exactly one of three sorted sets: delayed (scored by the time
// it becomes due), active (scored by the time it was claimed) or failed.
// Jobs are addressed by their deterministic id, so scheduling the same job
// again overwrites it. Every delivered job leaves a sent marker holding the
// version that was delivered; scheduling that version again is a no-op.
package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"eventTicketing/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrLockHeld    = errors.New("lock is held by another process")
)

const (
	DefaultPrefix     = "tickets:"
	DefaultVisibility = 5 * time.Minute
	DefaultSentTTL    = 30 * 24 * time.Hour
)

type Queue struct {
	rdb        redis.UniversalClient
	prefix     string
	visibility time.Duration
	sentTTL    time.Duration
	now        func() time.Time
}

type Option func(*Queue)

func WithPrefix(prefix string) Option {
	return func(q *Queue) {
		if prefix != "" {
			q.prefix = prefix
		}
	}
}

// WithVisibility sets how long a claimed job may run before another worker
// may claim it again.
func WithVisibility(d time.Duration) Option {
	return func(q *Queue) { q.visibility = d }
}

func WithSentTTL(d time.Duration) Option {
	return func(q *Queue) { q.sentTTL = d }
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

func New(rdb redis.UniversalClient, opts ...Option) *Queue {
	q := &Queue{
		rdb:        rdb,
		prefix:     DefaultPrefix,
		visibility: DefaultVisibility,
		sentTTL:    DefaultSentTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func score(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func (q *Queue) Ping(ctx context.Context) error {
	if err := q.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("jobqueue: ping: %w", err)
	}
	return nil
}

// Upsert validates and schedules a job. A job whose fire time has passed
// becomes due immediately. It reports false when this exact delivery was
// already sent.
func (q *Queue) Upsert(ctx context.Context, job *models.Job) (bool, error) {
	if err := job.Validate(); err != nil {
		return false, err
	}

	now := q.now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}

	raw, err := json.Marshal(job)
	if err != nil {
		return false, fmt.Errorf("jobqueue: marshal job: %w", err)
	}

	due := job.FireAt
	if due.Before(now) {
		due = now
	}

	keys := []string{
		q.key(keyJob, job.ID),
		q.key(keyDelayed),
		q.key(keyFailed),
		q.key(keySent, job.ID),
	}
	n, err := upsertScript.Run(ctx, q.rdb, keys, job.ID, raw, score(due), job.Version()).Int()
	if err != nil {
		return false, fmt.Errorf("jobqueue: upsert job: %w", err)
	}

	return n == 1, nil
}

func (q *Queue) Get(ctx context.Context, id string) (*models.Job, error) {
	raw, err := q.rdb.HGet(ctx, q.key(keyJob, id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("jobqueue: get job: %w", err)
	}

	var job models.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("jobqueue: decode job %s: %w", id, err)
	}
	return &job, nil
}

// Remove deletes a job wherever it is, together with its sent marker.
func (q *Queue) Remove(ctx context.Context, id string) error {
	pipe := q.rdb.TxPipeline()
	pipe.Del(ctx, q.key(keyJob, id), q.key(keySent, id))
	pipe.ZRem(ctx, q.key(keyDelayed), id)
	pipe.ZRem(ctx, q.key(keyActive), id)
	pipe.ZRem(ctx, q.key(keyFailed), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("jobqueue: remove job: %w", err)
	}
	return nil
}

// Claim moves up to limit due jobs to the active set and returns them.
func (q *Queue) Claim(ctx context.Context, limit int) ([]models.Job, error) {
	now := q.now()
	keys := []string{q.key(keyDelayed), q.key(keyActive)}

	ids, err := claimScript.Run(ctx, q.rdb, keys, score(now), score(now.Add(-q.visibility)), limit).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("jobqueue: claim jobs: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := q.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGet(ctx, q.key(keyJob, id), "data")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("jobqueue: load claimed jobs: %w", err)
	}

	jobs := make([]models.Job, 0, len(ids))
	for i, cmd := range cmds {
		raw, err := cmd.Bytes()
		if err != nil {
			// The job was removed after it became due.
			q.rdb.ZRem(ctx, q.key(keyActive), ids[i])
			continue
		}

		var job models.Job
		if err := json.Unmarshal(raw, &job); err != nil {
			return nil, fmt.Errorf("jobqueue: decode job %s: %w", ids[i], err)
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// Complete records the delivery of a claimed job.
func (q *Queue) Complete(ctx context.Context, job models.Job) error {
	keys := []string{
		q.key(keyJob, job.ID),
		q.key(keyActive),
		q.key(keyDelayed),
		q.key(keySent, job.ID),
	}
	err := completeScript.Run(ctx, q.rdb, keys, job.ID, job.Version(), q.sentTTL.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("jobqueue: complete job: %w", err)
	}
	return nil
}

// Fail records a failed attempt of a claimed job. The job is retried after
// backoff until it has been attempted maxAttempts times, then parked in the
// failed set. It reports whether the job was parked.
func (q *Queue) Fail(ctx context.Context, job models.Job, cause error, maxAttempts int, backoff time.Duration) (bool, error) {
	job.Attempts++
	if cause != nil {
		job.LastError = cause.Error()
	}

	raw, err := json.Marshal(job)
	if err != nil {
		return false, fmt.Errorf("jobqueue: marshal job: %w", err)
	}

	now := q.now()
	dead := job.Attempts >= maxAttempts
	next, deadArg := now.Add(backoff), "0"
	if dead {
		next, deadArg = now, "1"
	}

	keys := []string{
		q.key(keyJob, job.ID),
		q.key(keyActive),
		q.key(keyDelayed),
		q.key(keyFailed),
	}
	n, err := failScript.Run(ctx, q.rdb, keys, job.ID, raw, job.Version(), deadArg, score(next)).Int()
	if err != nil {
		return false, fmt.Errorf("jobqueue: fail job: %w", err)
	}

	return dead && n == 1, nil
}

// MarkSent claims a one-off delivery identified by id and version. It
// reports false when the delivery was already claimed.
func (q *Queue) MarkSent(ctx context.Context, id, version string) (bool, error) {
	n, err := markSentScript.Run(ctx, q.rdb, []string{q.key(keySent, id)}, version, q.sentTTL.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("jobqueue: mark sent: %w", err)
	}
	return n == 1, nil
}

// UnmarkSent releases a claim taken by MarkSent so the delivery can be
// attempted again.
func (q *Queue) UnmarkSent(ctx context.Context, id, version string) error {
	if err := compareAndDeleteScript.Run(ctx, q.rdb, []string{q.key(keySent, id)}, version).Err(); err != nil {
		return fmt.Errorf("jobqueue: unmark sent: %w", err)
	}
	return nil
}

type Stats struct {
	Pending int64 `json:"pending"`
	Delayed int64 `json:"delayed"`
	Active  int64 `json:"active"`
	Failed  int64 `json:"failed"`
}

// Stats counts jobs by state. Pending jobs are due but not yet claimed.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	now := score(q.now())

	pipe := q.rdb.Pipeline()
	pending := pipe.ZCount(ctx, q.key(keyDelayed), "-inf", now)
	delayed := pipe.ZCount(ctx, q.key(keyDelayed), "("+now, "+inf")
	active := pipe.ZCard(ctx, q.key(keyActive))
	failed := pipe.ZCard(ctx, q.key(keyFailed))
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("jobqueue: stats: %w", err)
	}

	return Stats{
		Pending: pending.Val(),
		Delayed: delayed.Val(),
		Active:  active.Val(),
		Failed:  failed.Val(),
	}, nil
}

type Lock struct {
	rdb   redis.UniversalClient
	key   string
	token string
}

// AcquireLock takes a named lock for ttl. It returns ErrLockHeld when another
// holder has it.
func (q *Queue) AcquireLock(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	l := &Lock{rdb: q.rdb, key: q.key(keyLock, name), token: uuid.NewString()}

	ok, err := q.rdb.SetNX(ctx, l.key, l.token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("jobqueue: acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return l, nil
}

// Release drops the lock if it is still ours.
func (l *Lock) Release(ctx context.Context) error {
	if err := compareAndDeleteScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("jobqueue: release lock: %w", err)
	}
	return nil
}
