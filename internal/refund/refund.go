// Package refund returns money for a registration through the payment
// provider and then brings local state in line. The provider call is the
// only irreversible step; everything after it is best effort and reported
// as warnings.
package refund

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"eventTicketing/internal/lib/logger/sl"
	"eventTicketing/internal/lib/retry"
	"eventTicketing/internal/metrics"
	"eventTicketing/internal/models"
	"eventTicketing/internal/notify"
	"eventTicketing/internal/provider"
	"eventTicketing/internal/storage"
)

var (
	ErrInvalidAmount          = errors.New("refund amount must be positive")
	ErrAlreadyRefunded        = errors.New("payment is already fully refunded")
	ErrAmountExceedsRemaining = errors.New("refund amount exceeds the remaining refundable balance")
	ErrNotRefundable          = errors.New("payment is not in a refundable status")
	ErrProvider               = errors.New("payment provider refused the refund")
)

type Store interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	GetRegistration(ctx context.Context, id string) (*models.Registration, error)
	GetPaymentByRegistration(ctx context.Context, registrationID string) (*models.Payment, error)
	ApplyRefund(ctx context.Context, paymentID string, amount int64) (*models.Payment, error)
	CancelRegistration(ctx context.Context, id string, at time.Time) error
}

type Provider interface {
	CreateRefund(ctx context.Context, p provider.RefundParams) (*provider.Refund, error)
}

type ReminderCanceller interface {
	CancelReminders(ctx context.Context, eventID string, recipient models.Recipient) error
}

type Request struct {
	EventID        string
	RegistrationID string
	// Amount in minor units. Nil refunds everything that remains.
	Amount *int64
	Reason string
}

type Outcome struct {
	RefundID              string          `json:"refund_id"`
	Amount                int64           `json:"amount"`
	Full                  bool            `json:"full"`
	RegistrationCancelled bool            `json:"registration_cancelled"`
	Payment               *models.Payment `json:"payment,omitempty"`
	Warnings              []string        `json:"warnings,omitempty"`
}

type Processor struct {
	log       *slog.Logger
	store     Store
	provider  Provider
	reminders ReminderCanceller
	sender    notify.Sender
	renderer  *notify.Renderer
	policy    retry.Policy
	now       func() time.Time
}

func New(
	log *slog.Logger,
	store Store,
	gateway Provider,
	reminders ReminderCanceller,
	sender notify.Sender,
	renderer *notify.Renderer,
	policy retry.Policy,
) *Processor {
	return &Processor{
		log:       log,
		store:     store,
		provider:  gateway,
		reminders: reminders,
		sender:    sender,
		renderer:  renderer,
		policy:    policy,
		now:       time.Now,
	}
}

// IdempotencyKey identifies one refund of one payment. Two requests for the
// same amount against the same refunded total are the same refund.
func IdempotencyKey(paymentID string, alreadyRefunded, amount int64) string {
	return "refund:" + paymentID + ":" + strconv.FormatInt(alreadyRefunded, 10) + ":" + strconv.FormatInt(amount, 10)
}

// FinalAmount is what a request may refund from a payment: the requested
// amount, or everything remaining, capped at the remaining balance.
func FinalAmount(requested *int64, p *models.Payment) (int64, error) {
	remaining := p.Remaining()
	if remaining <= 0 {
		return 0, ErrAlreadyRefunded
	}

	if requested == nil {
		return remaining, nil
	}
	if *requested <= 0 {
		return 0, ErrInvalidAmount
	}

	return min(*requested, remaining), nil
}

func (p *Processor) Refund(ctx context.Context, req Request) (Outcome, error) {
	out, err := p.refund(ctx, req)

	switch {
	case err == nil && out.Full:
		metrics.Refund("full")
	case err == nil:
		metrics.Refund("partial")
	case errors.Is(err, ErrProvider):
		metrics.Refund("provider_error")
	default:
		metrics.Refund("rejected")
	}

	return out, err
}

func (p *Processor) refund(ctx context.Context, req Request) (Outcome, error) {
	const op = "refund.Processor.Refund"

	log := p.log.With(
		slog.String("op", op),
		slog.String("event_id", req.EventID),
		slog.String("registration_id", req.RegistrationID),
	)

	reg, err := p.store.GetRegistration(ctx, req.RegistrationID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}
	if reg.EventID != req.EventID {
		return Outcome{}, fmt.Errorf("%s: %w", op, storage.ErrRegistrationNotFound)
	}

	payment, err := p.store.GetPaymentByRegistration(ctx, reg.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	if payment.Status == models.PaymentRefunded {
		return Outcome{}, ErrAlreadyRefunded
	}
	if !payment.Status.Refundable() {
		return Outcome{}, ErrNotRefundable
	}

	amount, err := FinalAmount(req.Amount, payment)
	if err != nil {
		return Outcome{}, err
	}

	refund, err := p.provider.CreateRefund(ctx, provider.RefundParams{
		PaymentIntent:  payment.PaymentIntentID,
		Amount:         amount,
		Reason:         req.Reason,
		IdempotencyKey: IdempotencyKey(payment.ID, payment.RefundedAmount, amount),
		Metadata: map[string]string{
			"registration_id": reg.ID,
			"event_id":        reg.EventID,
		},
	})
	if err != nil {
		log.Error("provider refund failed", sl.Err(err))
		switch {
		case provider.HasCode(err, provider.CodeChargeAlreadyRefunded):
			return Outcome{}, ErrAlreadyRefunded
		case provider.HasCode(err, provider.CodeAmountTooLarge):
			return Outcome{}, ErrAmountExceedsRemaining
		}
		return Outcome{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	log.Info("refund issued", slog.String("refund_id", refund.ID), slog.Int64("amount", amount))

	out := Outcome{
		RefundID: refund.ID,
		Amount:   amount,
		Full:     payment.RefundedAmount+amount >= payment.AmountTotal,
	}
	warn := func(msg string, err error) {
		log.Warn(msg, sl.Err(err))
		out.Warnings = append(out.Warnings, msg+": "+err.Error())
	}

	updated, err := p.store.ApplyRefund(ctx, payment.ID, amount)
	if err != nil {
		warn("failed to record refund", err)
	} else {
		out.Payment = updated
		out.Full = updated.Status == models.PaymentRefunded
	}

	if out.Full {
		if err := p.store.CancelRegistration(ctx, reg.ID, p.now()); err != nil {
			warn("failed to cancel registration", err)
		} else {
			out.RegistrationCancelled = true
		}

		if p.reminders != nil {
			if err := p.reminders.CancelReminders(ctx, reg.EventID, reg.Recipient()); err != nil {
				warn("failed to cancel reminder", err)
			}
		}
	}

	if err := p.notifyPayer(ctx, reg, amount, payment.Currency, out.Full); err != nil {
		warn("failed to notify payer", err)
	}

	return out, nil
}

func (p *Processor) notifyPayer(ctx context.Context, reg *models.Registration, amount int64, currency string, full bool) (err error) {
	defer func() { metrics.Notification("refund", err) }()

	event, err := p.store.GetEvent(ctx, reg.EventID)
	if err != nil {
		return err
	}

	msg, err := p.renderer.Refund(reg.Email, notify.RefundData{
		Event:  notify.ViewEvent(event),
		Name:   reg.Name,
		Amount: notify.Amount(amount, currency),
		Full:   full,
	})
	if err != nil {
		return err
	}

	return retry.Do(ctx, p.policy, func(ctx context.Context) error {
		err := p.sender.Send(ctx, msg)
		if errors.Is(err, notify.ErrNoRecipient) {
			return retry.Permanent(err)
		}
		return err
	})
}
