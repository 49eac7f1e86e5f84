// Package scheduler schedules and delivers time-delayed notifications:
// attendee reminders, organiser summaries and attendee lists forwarded to an
// external address.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"eventTicketing/internal/config"
	"eventTicketing/internal/jobqueue"
	"eventTicketing/internal/lib/logger/sl"
	"eventTicketing/internal/lib/retry"
	"eventTicketing/internal/models"
	"eventTicketing/internal/notify"
)

var ErrScanInProgress = errors.New("horizon scan already in progress")

const scanLockName = "horizon-scan"

type Store interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	EventsStartingBetween(ctx context.Context, from, to time.Time) ([]models.Event, error)
	ActiveRegistrations(ctx context.Context, eventID string) ([]models.Registration, error)
	FindActiveRegistrationFor(ctx context.Context, eventID string, recipient models.Recipient) (*models.Registration, error)
	OrganiserContact(ctx context.Context, eventID string) (models.OrganiserContact, error)
}

type Queue interface {
	Upsert(ctx context.Context, job *models.Job) (bool, error)
	Remove(ctx context.Context, id string) error
	Claim(ctx context.Context, limit int) ([]models.Job, error)
	Complete(ctx context.Context, job models.Job) error
	Fail(ctx context.Context, job models.Job, cause error, maxAttempts int, backoff time.Duration) (bool, error)
	MarkSent(ctx context.Context, id, version string) (bool, error)
	UnmarkSent(ctx context.Context, id, version string) error
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (*jobqueue.Lock, error)
	Stats(ctx context.Context) (jobqueue.Stats, error)
}

type Scheduler struct {
	log      *slog.Logger
	store    Store
	queue    Queue
	sender   notify.Sender
	renderer *notify.Renderer
	cfg      config.Scheduler
	policy   retry.Policy
	now      func() time.Time

	scanning atomic.Bool
}

func New(
	log *slog.Logger,
	store Store,
	queue Queue,
	sender notify.Sender,
	renderer *notify.Renderer,
	cfg config.Scheduler,
	policy retry.Policy,
) *Scheduler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.WorkerBatch < 1 {
		cfg.WorkerBatch = 50
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}

	return &Scheduler{
		log:      log,
		store:    store,
		queue:    queue,
		sender:   sender,
		renderer: renderer,
		cfg:      cfg,
		policy:   policy,
		now:      time.Now,
	}
}

// Schedule enqueues a job, replacing any job with the same type, event and
// recipient. It reports false when this delivery was already made.
func (s *Scheduler) Schedule(ctx context.Context, jobType models.JobType, eventID string, recipient models.Recipient, fireAt time.Time) (bool, error) {
	const op = "scheduler.Scheduler.Schedule"

	job := &models.Job{
		Type:      jobType,
		EventID:   eventID,
		Recipient: recipient,
		FireAt:    fireAt.UTC(),
	}

	ok, err := s.queue.Upsert(ctx, job)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if ok {
		s.log.Debug("job scheduled",
			slog.String("op", op),
			slog.String("job_id", job.ID),
			slog.String("type", string(jobType)),
			slog.String("event_id", eventID),
			slog.Time("fire_at", job.FireAt),
		)
	}

	return ok, nil
}

// reminderTime is when the reminder for an event starting at start is due.
// It may be in the past, in which case the queue runs it immediately.
func (s *Scheduler) reminderTime(start time.Time) time.Time {
	return start.Add(-s.cfg.ReminderLead)
}

// ScheduleAttendeeReminder schedules the reminder of one registration.
// Events without a known start, or that have already started, get none.
func (s *Scheduler) ScheduleAttendeeReminder(ctx context.Context, event *models.Event, reg *models.Registration) error {
	_, err := s.scheduleReminder(ctx, event, reg)
	return err
}

func (s *Scheduler) scheduleReminder(ctx context.Context, event *models.Event, reg *models.Registration) (bool, error) {
	start, ok := event.Start()
	if !ok || !start.After(s.now()) {
		return false, nil
	}
	return s.Schedule(ctx, models.JobAttendeeReminder, event.ID, reg.Recipient(), s.reminderTime(start))
}

// CancelReminders removes the reminder of a recipient for an event.
func (s *Scheduler) CancelReminders(ctx context.Context, eventID string, recipient models.Recipient) error {
	const op = "scheduler.Scheduler.CancelReminders"

	if err := s.queue.Remove(ctx, models.JobID(models.JobAttendeeReminder, eventID, recipient)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RescheduleEvent reschedules the reminder of every active registration of
// an event after its times changed. It returns how many were scheduled.
func (s *Scheduler) RescheduleEvent(ctx context.Context, eventID string) (int, error) {
	const op = "scheduler.Scheduler.RescheduleEvent"

	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	regs, err := s.store.ActiveRegistrations(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	scheduled := 0
	var errs []error
	for i := range regs {
		ok, err := s.scheduleReminder(ctx, event, &regs[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			scheduled++
		}
	}

	if err := errors.Join(errs...); err != nil {
		return scheduled, fmt.Errorf("%s: %w", op, err)
	}

	return scheduled, nil
}

func (s *Scheduler) Stats(ctx context.Context) (jobqueue.Stats, error) {
	return s.queue.Stats(ctx)
}

// Run scans and processes due jobs until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	const op = "scheduler.Scheduler.Run"

	log := s.log.With(slog.String("op", op))

	scan := time.NewTicker(s.cfg.ScanInterval)
	defer scan.Stop()
	work := time.NewTicker(s.cfg.WorkerInterval)
	defer work.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return

		case <-scan.C:
			scanCtx, cancel := context.WithTimeout(ctx, s.cfg.ScanTimeout)
			summary, err := s.HorizonScan(scanCtx)
			cancel()
			switch {
			case errors.Is(err, ErrScanInProgress):
				log.Info("skipping scan, another one is running")
			case err != nil:
				log.Error("horizon scan failed", sl.Err(err))
			default:
				log.Info("horizon scan finished",
					slog.Int("events", summary.EventsFound),
					slog.Int("reminders", summary.RemindersScheduled),
					slog.Int("errors", len(summary.Errors)),
				)
			}

		case <-work.C:
			res, err := s.ProcessDue(ctx)
			if err != nil {
				log.Error("failed to process due jobs", sl.Err(err))
				continue
			}
			if res.Claimed > 0 {
				log.Info("processed due jobs",
					slog.Int("claimed", res.Claimed),
					slog.Int("sent", res.Sent),
					slog.Int("skipped", res.Skipped),
					slog.Int("failed", res.Failed),
				)
			}
		}
	}
}
