package refund

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"eventTicketing/internal/lib/api/response"
	"eventTicketing/internal/lib/logger/sl"
	"eventTicketing/internal/lib/money"
	"eventTicketing/internal/models"
	"eventTicketing/internal/refund"
	"eventTicketing/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const HeaderUserID = "X-User-ID"

// Request amounts are in major units, e.g. "5.50". An empty amount refunds
// everything that remains.
type Request struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

type Response struct {
	response.Response
	Refund refund.Outcome `json:"refund"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=EventGetter
type EventGetter interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=Refunder
type Refunder interface {
	Refund(ctx context.Context, req refund.Request) (refund.Outcome, error)
}

func New(log *slog.Logger, events EventGetter, refunds Refunder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.event.refund.New"

		log := log.With(slog.String("op", op))

		eventID := chi.URLParam(r, "id")
		registrationID := chi.URLParam(r, "registrationID")
		if eventID == "" || registrationID == "" {
			log.Error("event and registration ids are required")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("event and registration ids are required"))
			return
		}

		userID := r.Header.Get(HeaderUserID)
		if userID == "" {
			log.Warn("missing caller identity")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("unauthorized"))
			return
		}

		log = log.With(
			slog.String("event_id", eventID),
			slog.String("registration_id", registrationID),
			slog.String("user_id", userID),
		)

		var req Request

		// An empty body is a full refund.
		if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
			log.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to decode request"))
			return
		}

		var amount *int64
		if req.Amount != "" {
			minor, err := money.ToMinor(req.Amount)
			if err != nil || minor <= 0 {
				log.Error("invalid amount", slog.String("amount", req.Amount))
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error("amount must be a positive value with at most two decimal places"))
				return
			}
			amount = &minor
		}

		event, err := events.GetEvent(r.Context(), eventID)
		if err != nil {
			if errors.Is(err, storage.ErrEventNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("event not found"))
				return
			}
			log.Error("failed to get event", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to refund"))
			return
		}

		if event.OrganiserID != userID {
			log.Warn("caller is not the organiser")
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("only the organiser can refund this event"))
			return
		}

		out, err := refunds.Refund(r.Context(), refund.Request{
			EventID:        eventID,
			RegistrationID: registrationID,
			Amount:         amount,
			Reason:         req.Reason,
		})
		if err != nil {
			log.Error("refund failed", sl.Err(err))

			status, msg := statusFor(err)
			render.Status(r, status)
			render.JSON(w, r, response.Error(msg))
			return
		}

		log.Info("refund issued",
			slog.String("refund_id", out.RefundID),
			slog.Int64("amount", out.Amount),
			slog.Bool("full", out.Full),
			slog.Int("warnings", len(out.Warnings)),
		)

		render.JSON(w, r, Response{
			Response: response.OK(),
			Refund:   out,
		})
	}
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrRegistrationNotFound):
		return http.StatusNotFound, "registration not found"
	case errors.Is(err, storage.ErrPaymentNotFound):
		return http.StatusNotFound, "no payment for this registration"
	case errors.Is(err, refund.ErrInvalidAmount):
		return http.StatusBadRequest, refund.ErrInvalidAmount.Error()
	case errors.Is(err, refund.ErrAmountExceedsRemaining):
		return http.StatusBadRequest, refund.ErrAmountExceedsRemaining.Error()
	case errors.Is(err, refund.ErrAlreadyRefunded):
		return http.StatusConflict, refund.ErrAlreadyRefunded.Error()
	case errors.Is(err, refund.ErrNotRefundable):
		return http.StatusConflict, refund.ErrNotRefundable.Error()
	case errors.Is(err, refund.ErrProvider):
		return http.StatusBadGateway, "payment provider refused the refund"
	default:
		return http.StatusInternalServerError, "failed to refund"
	}
}
