// Package webhook verifies, decodes and dispatches payment provider events.
// Events are delivered at least once; a fully processed event is recorded so
// a redelivery is acknowledged without running it again.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventTicketing/internal/fulfilment"
	"eventTicketing/internal/lib/logger/sl"
	"eventTicketing/internal/lib/signature"
	"eventTicketing/internal/metrics"
	"eventTicketing/internal/provider"
)

const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventAsyncPaymentSucceeded  = "checkout.session.async_payment_succeeded"
	EventAsyncPaymentFailed     = "checkout.session.async_payment_failed"
	EventCheckoutSessionExpired = "checkout.session.expired"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")
	ErrProcessingFailed = errors.New("webhook processing failed")
)

// Envelope is the provider's event wrapper. Object is decoded according to
// Type.
type Envelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Ack is what was done with an acknowledged event.
type Ack struct {
	EventID   string
	Type      string
	Outcome   string
	Duplicate bool
}

type Fulfiller interface {
	Fulfil(ctx context.Context, c fulfilment.Checkout) fulfilment.Result
}

type EventLog interface {
	WebhookProcessed(ctx context.Context, eventID string) (bool, error)
	MarkWebhookProcessed(ctx context.Context, eventID, eventType string) error
}

type Receiver struct {
	log       *slog.Logger
	secret    string
	tolerance time.Duration
	fulfiller Fulfiller
	events    EventLog
	now       func() time.Time
}

func New(log *slog.Logger, secret string, tolerance time.Duration, fulfiller Fulfiller, events EventLog) *Receiver {
	return &Receiver{
		log:       log,
		secret:    secret,
		tolerance: tolerance,
		fulfiller: fulfiller,
		events:    events,
		now:       time.Now,
	}
}

// Handle processes one delivery. Any error other than ErrProcessingFailed
// means the delivery is bad and will never succeed; ErrProcessingFailed asks
// the provider to deliver again.
func (r *Receiver) Handle(ctx context.Context, body []byte, signatureHeader string) (Ack, error) {
	const op = "webhook.Receiver.Handle"

	log := r.log.With(slog.String("op", op))

	if err := signature.Verify(body, signatureHeader, r.secret, r.tolerance, r.now()); err != nil {
		log.Warn("rejected webhook signature", sl.Err(err))
		metrics.WebhookEvent("unknown", "bad_signature")
		return Ack{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Type == "" {
		if err == nil {
			err = errors.New("event type is missing")
		}
		metrics.WebhookEvent("unknown", "malformed")
		return Ack{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	ack := Ack{EventID: env.ID, Type: env.Type}
	log = log.With(slog.String("event_id", env.ID), slog.String("type", env.Type))

	if env.ID != "" {
		done, err := r.events.WebhookProcessed(ctx, env.ID)
		if err != nil {
			log.Warn("failed to check webhook ledger", sl.Err(err))
		}
		if done {
			log.Info("webhook already processed")
			metrics.WebhookEvent(env.Type, "duplicate")
			ack.Duplicate = true
			return ack, nil
		}
	}

	outcome, err := r.dispatch(ctx, log, env)
	if err != nil {
		metrics.WebhookEvent(env.Type, "error")
		return ack, err
	}
	ack.Outcome = outcome
	metrics.WebhookEvent(env.Type, "ok")

	if env.ID != "" {
		if err := r.events.MarkWebhookProcessed(ctx, env.ID, env.Type); err != nil {
			log.Warn("failed to record processed webhook", sl.Err(err))
		}
	}

	return ack, nil
}

func (r *Receiver) dispatch(ctx context.Context, log *slog.Logger, env Envelope) (string, error) {
	switch env.Type {
	case EventCheckoutCompleted, EventAsyncPaymentSucceeded:
		var session provider.CheckoutSession
		if err := json.Unmarshal(env.Data.Object, &session); err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}

		if !session.Paid() {
			// Delayed payment methods complete the session before the money
			// arrives; the async success event follows.
			log.Info("checkout completed without payment yet",
				slog.String("session_id", session.ID),
				slog.String("payment_status", session.PaymentStatus),
			)
			return "awaiting_payment", nil
		}

		res := r.fulfiller.Fulfil(ctx, fulfilment.FromSession(&session))
		if res.Outcome == fulfilment.OutcomeServerError {
			return "", fmt.Errorf("%w: %w", ErrProcessingFailed, res.Err)
		}
		return res.Outcome.String(), nil

	case EventAsyncPaymentFailed, EventCheckoutSessionExpired:
		var session provider.CheckoutSession
		_ = json.Unmarshal(env.Data.Object, &session)
		log.Info("checkout session closed without payment", slog.String("session_id", session.ID))
		return "ignored", nil

	default:
		log.Info("unhandled webhook event type")
		return "ignored", nil
	}
}
