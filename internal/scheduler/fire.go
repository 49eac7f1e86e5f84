package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eventTicketing/internal/lib/logger/sl"
	"eventTicketing/internal/lib/retry"
	"eventTicketing/internal/metrics"
	"eventTicketing/internal/models"
	"eventTicketing/internal/notify"
	"eventTicketing/internal/storage"
)

// errSkip means the job no longer applies and completes without a send.
var errSkip = errors.New("job no longer applies")

type ProcessResult struct {
	Claimed int `json:"claimed"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ProcessDue claims due jobs and delivers them. Failed deliveries are
// retried with backoff until the attempt budget is spent.
func (s *Scheduler) ProcessDue(ctx context.Context) (ProcessResult, error) {
	const op = "scheduler.Scheduler.ProcessDue"

	log := s.log.With(slog.String("op", op))

	jobs, err := s.queue.Claim(ctx, s.cfg.WorkerBatch)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("%s: %w", op, err)
	}

	res := ProcessResult{Claimed: len(jobs)}
	for _, job := range jobs {
		jlog := log.With(
			slog.String("job_id", job.ID),
			slog.String("type", string(job.Type)),
			slog.String("event_id", job.EventID),
		)

		err := s.Fire(ctx, job)
		if err != nil && !errors.Is(err, errSkip) {
			res.Failed++
			metrics.JobProcessed(string(job.Type), "failed")

			dead, ferr := s.queue.Fail(ctx, job, err, s.cfg.MaxAttempts, s.cfg.RetryBackoff)
			if ferr != nil {
				jlog.Error("failed to record job failure", sl.Err(ferr))
			}
			if dead {
				jlog.Error("job failed permanently", sl.Err(err))
			} else {
				jlog.Warn("job failed, will retry", sl.Err(err))
			}
			continue
		}

		if err != nil {
			jlog.Info("skipping job", sl.Err(err))
			res.Skipped++
			metrics.JobProcessed(string(job.Type), "skipped")
		} else {
			res.Sent++
			metrics.JobProcessed(string(job.Type), "sent")
		}

		if err := s.queue.Complete(ctx, job); err != nil {
			jlog.Error("failed to complete job", sl.Err(err))
		}
	}

	return res, nil
}

// Fire delivers one job. The event and registration are read at fire time,
// so a job whose registration was cancelled sends nothing.
func (s *Scheduler) Fire(ctx context.Context, job models.Job) error {
	event, err := s.store.GetEvent(ctx, job.EventID)
	if err != nil {
		if errors.Is(err, storage.ErrEventNotFound) {
			return fmt.Errorf("%w: %w", errSkip, err)
		}
		return err
	}

	start, ok := event.Start()
	if !ok || !start.After(s.now()) {
		return fmt.Errorf("%w: event has started or has no start", errSkip)
	}

	switch job.Type {
	case models.JobAttendeeReminder:
		reg, err := s.store.FindActiveRegistrationFor(ctx, job.EventID, job.Recipient)
		if err != nil {
			if errors.Is(err, storage.ErrRegistrationNotFound) {
				return fmt.Errorf("%w: registration cancelled", errSkip)
			}
			return err
		}

		msg, err := s.renderer.Reminder(reg.Email, notify.ReminderData{
			Event: notify.ViewEvent(event),
			Name:  reg.Name,
		})
		if err != nil {
			return err
		}
		err = s.send(ctx, msg)
		metrics.Notification(string(job.Type), err)
		return err

	case models.JobOrganiserSummary, models.JobExternalForward:
		regs, err := s.store.ActiveRegistrations(ctx, job.EventID)
		if err != nil {
			return err
		}
		msg, err := s.attendeeList(event, job.Type, job.Recipient, regs)
		if err != nil {
			return err
		}
		err = s.send(ctx, msg)
		metrics.Notification(string(job.Type), err)
		return err
	}

	return fmt.Errorf("%w: %w", errSkip, models.ErrJobInvalidType)
}

func (s *Scheduler) send(ctx context.Context, msg notify.Message) error {
	return retry.Do(ctx, s.policy, func(ctx context.Context) error {
		err := s.sender.Send(ctx, msg)
		if errors.Is(err, notify.ErrNoRecipient) {
			return retry.Permanent(err)
		}
		return err
	})
}
