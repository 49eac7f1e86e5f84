// Package registration persists registrations idempotently. A second
// registration for the same event and email returns the existing one.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eventTicketing/internal/lib/logger/sl"
	"eventTicketing/internal/metrics"
	"eventTicketing/internal/models"
	"eventTicketing/internal/storage"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidRequest   = errors.New("invalid registration request")
	ErrAccessDenied     = errors.New("registration is not open to this caller")
	ErrTicketsNotOnSale = errors.New("tickets are not on sale")
	ErrPaymentRequired  = errors.New("ticket requires payment")
)

type Store interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	FindActiveRegistration(ctx context.Context, eventID, email string) (*models.Registration, error)
	FindRegistrationBySession(ctx context.Context, sessionID string) (*models.Registration, error)
	CreateRegistration(ctx context.Context, in storage.NewRegistration) (*models.Registration, error)
}

type Ledger interface {
	Availability(ctx context.Context, tierID string) (models.Availability, error)
}

type ReminderScheduler interface {
	ScheduleAttendeeReminder(ctx context.Context, event *models.Event, reg *models.Registration) error
}

type Request struct {
	EventID  string
	TierID   string
	Identity models.Identity
	Quantity int
	External bool

	// Access is the caller's access level. It is ignored for paid
	// registrations, which were authorised when the checkout was created.
	Access  models.AccessLevel
	Payment *storage.NewPayment
}

type Result struct {
	Registration      *models.Registration
	AlreadyRegistered bool
}

type Writer struct {
	log       *slog.Logger
	store     Store
	ledger    Ledger
	reminders ReminderScheduler
	validate  *validator.Validate
}

// New builds a Writer. reminders may be nil.
func New(log *slog.Logger, store Store, ledger Ledger, reminders ReminderScheduler) *Writer {
	return &Writer{
		log:       log,
		store:     store,
		ledger:    ledger,
		reminders: reminders,
		validate:  validator.New(),
	}
}

func (w *Writer) Register(ctx context.Context, req Request) (Result, error) {
	const op = "registration.Writer.Register"

	log := w.log.With(
		slog.String("op", op),
		slog.String("event_id", req.EventID),
	)

	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 || req.EventID == "" {
		return Result{}, ErrInvalidRequest
	}
	if err := w.validate.Struct(req.Identity); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	// A checkout session pays for exactly one registration, even one that
	// was cancelled after a refund.
	if req.Payment != nil {
		paid, err := w.store.FindRegistrationBySession(ctx, req.Payment.SessionID)
		switch {
		case err == nil:
			log.Info("checkout already recorded", slog.String("registration_id", paid.ID))
			metrics.Registration("already_registered")
			return Result{Registration: paid, AlreadyRegistered: true}, nil
		case !errors.Is(err, storage.ErrRegistrationNotFound):
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	event, err := w.store.GetEvent(ctx, req.EventID)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	if !permitted(event, req) {
		metrics.Registration("access_denied")
		return Result{}, ErrAccessDenied
	}

	existing, err := w.store.FindActiveRegistration(ctx, req.EventID, req.Identity.Email)
	switch {
	case err == nil:
		log.Info("already registered", slog.String("registration_id", existing.ID))
		metrics.Registration("already_registered")
		return Result{Registration: existing, AlreadyRegistered: true}, nil
	case !errors.Is(err, storage.ErrRegistrationNotFound):
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	if req.TierID != "" {
		a, err := w.ledger.Availability(ctx, req.TierID)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		if a.Price > 0 && req.Payment == nil {
			metrics.Registration("payment_required")
			return Result{}, ErrPaymentRequired
		}
		switch a.Status {
		case models.TicketUpcoming, models.TicketEnded:
			return Result{}, ErrTicketsNotOnSale
		case models.TicketSoldOut:
			metrics.Registration("sold_out")
			return Result{}, storage.ErrSoldOut
		}
	}

	reg, err := w.store.CreateRegistration(ctx, storage.NewRegistration{
		EventID:  req.EventID,
		TierID:   req.TierID,
		Identity: req.Identity,
		Quantity: req.Quantity,
		External: req.External,
		Payment:  req.Payment,
	})
	if errors.Is(err, storage.ErrAlreadyRegistered) {
		if reg == nil {
			// Lost a race on a unique index; the winner is committed.
			reg, err = w.resolveConflict(ctx, req)
			if err != nil {
				return Result{}, fmt.Errorf("%s: %w", op, err)
			}
		}
		metrics.Registration("already_registered")
		return Result{Registration: reg, AlreadyRegistered: true}, nil
	}
	if err != nil {
		if errors.Is(err, storage.ErrSoldOut) {
			metrics.Registration("sold_out")
			return Result{}, err
		}
		metrics.Registration("error")
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("registration created", slog.String("registration_id", reg.ID))
	metrics.Registration("created")

	if w.reminders != nil {
		if err := w.reminders.ScheduleAttendeeReminder(ctx, event, reg); err != nil {
			log.Warn("failed to schedule reminder", slog.String("registration_id", reg.ID), sl.Err(err))
		}
	}

	return Result{Registration: reg}, nil
}

func (w *Writer) resolveConflict(ctx context.Context, req Request) (*models.Registration, error) {
	if req.Payment != nil {
		reg, err := w.store.FindRegistrationBySession(ctx, req.Payment.SessionID)
		if !errors.Is(err, storage.ErrRegistrationNotFound) {
			return reg, err
		}
	}
	return w.store.FindActiveRegistration(ctx, req.EventID, req.Identity.Email)
}

// permitted reports whether the caller may register. Guests may only
// register for public events.
func permitted(event *models.Event, req Request) bool {
	if req.Identity.Guest() {
		return event.RegistrationAccess == models.AccessPublic
	}
	if req.Payment != nil {
		return true
	}
	return req.Access.Permits(event.RegistrationAccess)
}
