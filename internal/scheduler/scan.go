package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventTicketing/internal/jobqueue"
	"eventTicketing/internal/lib/logger/sl"
	"eventTicketing/internal/metrics"
	"eventTicketing/internal/models"
	"eventTicketing/internal/notify"
	"eventTicketing/internal/storage"

	"golang.org/x/sync/errgroup"
)

// EventReport is what a scan did for one event.
type EventReport struct {
	EventID            string   `json:"event_id"`
	Title              string   `json:"title"`
	RemindersScheduled int      `json:"reminders_scheduled"`
	ForwardSent        bool     `json:"forward_sent"`
	SummarySent        bool     `json:"summary_sent"`
	Errors             []string `json:"errors,omitempty"`
}

type ScanSummary struct {
	WindowStart        time.Time     `json:"window_start"`
	WindowEnd          time.Time     `json:"window_end"`
	EventsFound        int           `json:"events_found"`
	EventsSucceeded    int           `json:"events_succeeded"`
	RemindersScheduled int           `json:"reminders_scheduled"`
	ForwardsSent       int           `json:"forwards_sent"`
	SummariesSent      int           `json:"summaries_sent"`
	Errors             []string      `json:"errors,omitempty"`
	Events             []EventReport `json:"events"`
}

// HorizonScan finds events starting inside the scan window and, for each,
// schedules every attendee reminder, forwards the attendee list and sends
// the organiser summary. Events are independent: a failure in one is
// reported and the others still run. Scans never overlap.
func (s *Scheduler) HorizonScan(ctx context.Context) (ScanSummary, error) {
	const op = "scheduler.Scheduler.HorizonScan"

	if !s.scanning.CompareAndSwap(false, true) {
		return ScanSummary{}, ErrScanInProgress
	}
	defer s.scanning.Store(false)

	lock, err := s.queue.AcquireLock(ctx, scanLockName, s.cfg.ScanTimeout+time.Minute)
	if err != nil {
		if errors.Is(err, jobqueue.ErrLockHeld) {
			return ScanSummary{}, ErrScanInProgress
		}
		return ScanSummary{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("failed to release scan lock", slog.String("op", op), sl.Err(err))
		}
	}()

	started := time.Now()
	now := s.now()
	summary := ScanSummary{
		WindowStart: now.Add(s.cfg.WindowStart).UTC(),
		WindowEnd:   now.Add(s.cfg.WindowEnd).UTC(),
	}

	log := s.log.With(
		slog.String("op", op),
		slog.Time("window_start", summary.WindowStart),
		slog.Time("window_end", summary.WindowEnd),
	)

	events, err := s.store.EventsStartingBetween(ctx, summary.WindowStart, summary.WindowEnd)
	if err != nil {
		return summary, fmt.Errorf("%s: %w", op, err)
	}
	summary.EventsFound = len(events)

	reports := make([]EventReport, len(events))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i := range events {
		event := &events[i]
		g.Go(func() error {
			eventCtx := ctx
			if s.cfg.EventTimeout > 0 {
				var cancel context.CancelFunc
				eventCtx, cancel = context.WithTimeout(ctx, s.cfg.EventTimeout)
				defer cancel()
			}
			reports[i] = s.processEvent(eventCtx, event)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range reports {
		summary.RemindersScheduled += r.RemindersScheduled
		if r.ForwardSent {
			summary.ForwardsSent++
		}
		if r.SummarySent {
			summary.SummariesSent++
		}
		if len(r.Errors) == 0 {
			summary.EventsSucceeded++
		}
		for _, e := range r.Errors {
			summary.Errors = append(summary.Errors, r.EventID+": "+e)
		}
	}
	summary.Events = reports

	metrics.ScanFinished(time.Since(started), len(summary.Errors))
	log.Info("scan complete",
		slog.Int("events_found", summary.EventsFound),
		slog.Int("events_succeeded", summary.EventsSucceeded),
		slog.Int("reminders_scheduled", summary.RemindersScheduled),
		slog.Int("errors", len(summary.Errors)),
	)

	return summary, nil
}

// processEvent runs the three steps of one event. Each step records its own
// error and never stops the others.
func (s *Scheduler) processEvent(ctx context.Context, event *models.Event) EventReport {
	report := EventReport{EventID: event.ID, Title: event.Title}

	fail := func(step string, err error) {
		report.Errors = append(report.Errors, step+": "+err.Error())
	}

	regs, err := s.store.ActiveRegistrations(ctx, event.ID)
	if err != nil {
		fail("registrations", err)
		return report
	}

	for i := range regs {
		ok, err := s.scheduleReminder(ctx, event, &regs[i])
		if err != nil {
			fail("reminder "+regs[i].ID, err)
			continue
		}
		if ok {
			report.RemindersScheduled++
		}
	}

	if event.ForwardEmail != "" {
		recipient := models.Recipient{GuestEmail: event.ForwardEmail}
		sent, err := s.sendOnce(ctx, event, models.JobExternalForward, recipient, func() (notify.Message, error) {
			return s.attendeeList(event, models.JobExternalForward, recipient, regs)
		})
		if err != nil {
			fail("forward", err)
		}
		report.ForwardSent = sent
	}

	if event.NotifyOrganiser {
		sent, err := s.sendOrganiserSummary(ctx, event, regs)
		if err != nil {
			fail("organiser summary", err)
		}
		report.SummarySent = sent
	}

	return report
}

func (s *Scheduler) sendOrganiserSummary(ctx context.Context, event *models.Event, regs []models.Registration) (bool, error) {
	contact, err := s.store.OrganiserContact(ctx, event.ID)
	if err != nil {
		if errors.Is(err, storage.ErrOrganiserNotFound) {
			return false, nil
		}
		return false, err
	}

	recipient := models.Recipient{UserID: contact.UserID, Email: contact.Email, Name: contact.Name}
	return s.sendOnce(ctx, event, models.JobOrganiserSummary, recipient, func() (notify.Message, error) {
		return s.attendeeList(event, models.JobOrganiserSummary, recipient, regs)
	})
}

// sendOnce sends a one-off notification for the event's current start time.
// Overlapping scans see the sent marker and skip it; a failed send clears
// the marker so the next scan tries again.
func (s *Scheduler) sendOnce(
	ctx context.Context,
	event *models.Event,
	jobType models.JobType,
	recipient models.Recipient,
	render func() (notify.Message, error),
) (bool, error) {
	start, ok := event.Start()
	if !ok {
		return false, nil
	}

	job := models.Job{Type: jobType, EventID: event.ID, Recipient: recipient, FireAt: s.reminderTime(start)}
	if err := job.Validate(); err != nil {
		return false, err
	}

	claimed, err := s.queue.MarkSent(ctx, job.ID, job.Version())
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	msg, err := render()
	if err == nil {
		err = s.send(ctx, msg)
	}
	metrics.Notification(string(jobType), err)
	if err != nil {
		if uerr := s.queue.UnmarkSent(context.WithoutCancel(ctx), job.ID, job.Version()); uerr != nil {
			err = errors.Join(err, uerr)
		}
		return false, err
	}

	return true, nil
}

func (s *Scheduler) attendeeList(event *models.Event, jobType models.JobType, recipient models.Recipient, regs []models.Registration) (notify.Message, error) {
	attendees, total := notify.Attendees(regs)
	data := notify.AttendeeListData{
		Event:     notify.ViewEvent(event),
		Name:      recipient.DisplayName(),
		Attendees: attendees,
		Total:     total,
	}

	if jobType == models.JobExternalForward {
		return s.renderer.ForwardList(recipient.Address(), data)
	}
	return s.renderer.OrganiserSummary(recipient.Address(), data)
}
