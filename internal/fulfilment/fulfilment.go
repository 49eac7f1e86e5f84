// Package fulfilment runs the side effects of a completed checkout:
// registration, payer confirmation and organiser notification, in that
// order. Every run ends in one of a small set of outcomes that the caller
// turns into a response or a redirect.
package fulfilment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"eventTicketing/internal/lib/logger/sl"
	"eventTicketing/internal/lib/retry"
	"eventTicketing/internal/metrics"
	"eventTicketing/internal/models"
	"eventTicketing/internal/notify"
	"eventTicketing/internal/provider"
	"eventTicketing/internal/registration"
	"eventTicketing/internal/storage"

	"github.com/go-playground/validator/v10"
)

type Outcome int

const (
	// OutcomeSuccess means the payer is registered and was told so.
	OutcomeSuccess Outcome = iota
	// OutcomeServerError means the payer is not registered.
	OutcomeServerError
	// OutcomeEmailError means the payer is registered but the confirmation
	// could not be sent.
	OutcomeEmailError
	// OutcomeSoldOut means the payment arrived after the last ticket was
	// taken.
	OutcomeSoldOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeServerError:
		return "server-error"
	case OutcomeEmailError:
		return "email-error"
	case OutcomeSoldOut:
		return "sold-out"
	}
	return "unknown"
}

var ErrInvalidMetadata = errors.New("checkout metadata is incomplete")

// Checkout is a completed checkout session as the provider reports it.
type Checkout struct {
	SessionID            string
	PaymentIntentID      string
	AmountTotal          int64
	Currency             string
	Metadata             map[string]string
	CustomerEmail        string
	CustomerDetailsEmail string
	CustomerDetailsName  string
}

func FromSession(s *provider.CheckoutSession) Checkout {
	c := Checkout{
		SessionID:       s.ID,
		PaymentIntentID: s.PaymentIntent,
		AmountTotal:     s.AmountTotal,
		Currency:        s.Currency,
		Metadata:        s.Metadata,
		CustomerEmail:   s.CustomerEmail,
	}
	if s.CustomerDetails != nil {
		c.CustomerDetailsEmail = s.CustomerDetails.Email
		c.CustomerDetailsName = s.CustomerDetails.Name
	}
	return c
}

// Metadata is what the checkout session carried from its creation.
type Metadata struct {
	UserID   string `validate:"required"`
	EventID  string `validate:"required"`
	Email    string `validate:"required,email"`
	Name     string
	TierID   string
	Quantity int `validate:"gte=1"`
}

// Resolve reads the checkout metadata. The email falls back to the
// customer details and then to the customer email, since not every payment
// method fills in the latter.
func (c Checkout) Resolve() Metadata {
	m := Metadata{
		UserID:   strings.TrimSpace(c.Metadata["userId"]),
		EventID:  strings.TrimSpace(c.Metadata["eventId"]),
		Email:    firstNonEmpty(c.Metadata["userEmail"], c.CustomerDetailsEmail, c.CustomerEmail),
		Name:     firstNonEmpty(c.Metadata["userName"], c.CustomerDetailsName),
		TierID:   strings.TrimSpace(c.Metadata["ticketId"]),
		Quantity: 1,
	}

	if q := strings.TrimSpace(c.Metadata["quantity"]); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			n = 0
		}
		m.Quantity = n
	}

	if m.Name == "" {
		m.Name, _, _ = strings.Cut(m.Email, "@")
	}

	return m
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

type Result struct {
	Outcome           Outcome
	Registration      *models.Registration
	AlreadyRegistered bool
	Err               error
}

type Registrar interface {
	Register(ctx context.Context, req registration.Request) (registration.Result, error)
}

type EventStore interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	OrganiserContact(ctx context.Context, eventID string) (models.OrganiserContact, error)
}

type Orchestrator struct {
	log       *slog.Logger
	registrar Registrar
	events    EventStore
	sender    notify.Sender
	renderer  *notify.Renderer
	policy    retry.Policy
	validate  *validator.Validate
}

func New(
	log *slog.Logger,
	registrar Registrar,
	events EventStore,
	sender notify.Sender,
	renderer *notify.Renderer,
	policy retry.Policy,
) *Orchestrator {
	return &Orchestrator{
		log:       log,
		registrar: registrar,
		events:    events,
		sender:    sender,
		renderer:  renderer,
		policy:    policy,
		validate:  validator.New(),
	}
}

// Fulfil is safe to call again for the same checkout: the second run finds
// the registration and sends nothing.
func (o *Orchestrator) Fulfil(ctx context.Context, c Checkout) Result {
	res := o.fulfil(ctx, c)
	metrics.FulfilmentOutcome(res.Outcome.String())
	return res
}

func (o *Orchestrator) fulfil(ctx context.Context, c Checkout) Result {
	const op = "fulfilment.Orchestrator.Fulfil"

	log := o.log.With(
		slog.String("op", op),
		slog.String("session_id", c.SessionID),
	)

	meta := c.Resolve()
	if err := o.validate.Struct(meta); err != nil {
		log.Error("invalid checkout metadata", sl.Err(err))
		return Result{Outcome: OutcomeServerError, Err: fmt.Errorf("%w: %w", ErrInvalidMetadata, err)}
	}

	log = log.With(slog.String("event_id", meta.EventID), slog.String("user_id", meta.UserID))

	reg, err := retry.DoValue(ctx, o.policy, func(ctx context.Context) (registration.Result, error) {
		res, err := o.registrar.Register(ctx, registration.Request{
			EventID:  meta.EventID,
			TierID:   meta.TierID,
			Identity: models.Identity{UserID: meta.UserID, Email: meta.Email, Name: meta.Name},
			Quantity: meta.Quantity,
			Payment: &storage.NewPayment{
				SessionID:       c.SessionID,
				PaymentIntentID: c.PaymentIntentID,
				AmountTotal:     c.AmountTotal,
				Currency:        c.Currency,
			},
		})
		if err != nil && !retryable(err) {
			return res, retry.Permanent(err)
		}
		return res, err
	})
	if err != nil {
		if errors.Is(err, storage.ErrSoldOut) {
			log.Error("paid checkout arrived after sell-out, refund required", sl.Err(err))
			return Result{Outcome: OutcomeSoldOut, Err: err}
		}
		log.Error("failed to register", sl.Err(err))
		return Result{Outcome: OutcomeServerError, Err: err}
	}

	if reg.AlreadyRegistered {
		log.Info("checkout already fulfilled", slog.String("registration_id", reg.Registration.ID))
		return Result{Outcome: OutcomeSuccess, Registration: reg.Registration, AlreadyRegistered: true}
	}

	res := Result{Outcome: OutcomeSuccess, Registration: reg.Registration}
	log = log.With(slog.String("registration_id", reg.Registration.ID))

	event, err := retry.DoValue(ctx, o.policy, func(ctx context.Context) (*models.Event, error) {
		return o.events.GetEvent(ctx, meta.EventID)
	})
	if err != nil {
		log.Error("failed to load event for confirmation", sl.Err(err))
		res.Outcome, res.Err = OutcomeEmailError, err
		return res
	}

	amount := notify.Amount(c.AmountTotal, c.Currency)

	msg, err := o.renderer.Confirmation(meta.Email, notify.ConfirmationData{
		Event:    notify.ViewEvent(event),
		Name:     meta.Name,
		Quantity: reg.Registration.Quantity,
		Amount:   amount,
	})
	if err == nil {
		err = o.send(ctx, msg)
	}
	metrics.Notification("confirmation", err)
	if err != nil {
		log.Error("failed to send confirmation", sl.Err(err))
		res.Outcome, res.Err = OutcomeEmailError, err
		return res
	}

	if event.NotifyOrganiser {
		if err := o.notifyOrganiser(ctx, event, reg.Registration, amount); err != nil {
			log.Warn("failed to notify organiser", sl.Err(err))
		}
	}

	log.Info("checkout fulfilled")

	return res
}

func (o *Orchestrator) notifyOrganiser(ctx context.Context, event *models.Event, reg *models.Registration, amount string) (err error) {
	defer func() { metrics.Notification("organiser_registration", err) }()

	contact, err := retry.DoValue(ctx, o.policy, func(ctx context.Context) (models.OrganiserContact, error) {
		c, err := o.events.OrganiserContact(ctx, event.ID)
		if errors.Is(err, storage.ErrOrganiserNotFound) {
			return c, retry.Permanent(err)
		}
		return c, err
	})
	if err != nil {
		return err
	}

	msg, err := o.renderer.OrganiserRegistration(contact.Email, notify.OrganiserRegistrationData{
		Event:         notify.ViewEvent(event),
		OrganiserName: contact.Name,
		AttendeeName:  reg.Name,
		AttendeeEmail: reg.Email,
		Quantity:      reg.Quantity,
		Amount:        amount,
	})
	if err != nil {
		return err
	}

	return o.send(ctx, msg)
}

func (o *Orchestrator) send(ctx context.Context, msg notify.Message) error {
	return retry.Do(ctx, o.policy, func(ctx context.Context) error {
		err := o.sender.Send(ctx, msg)
		if errors.Is(err, notify.ErrNoRecipient) {
			return retry.Permanent(err)
		}
		return err
	})
}

// retryable reports whether a registration error may clear on its own.
func retryable(err error) bool {
	switch {
	case errors.Is(err, storage.ErrSoldOut),
		errors.Is(err, storage.ErrEventNotFound),
		errors.Is(err, storage.ErrTierNotFound),
		errors.Is(err, registration.ErrInvalidRequest),
		errors.Is(err, registration.ErrAccessDenied),
		errors.Is(err, registration.ErrPaymentRequired),
		errors.Is(err, registration.ErrTicketsNotOnSale):
		return false
	}
	return true
}
