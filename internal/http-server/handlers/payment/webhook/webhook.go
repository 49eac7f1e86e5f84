package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"eventTicketing/internal/lib/api/response"
	"eventTicketing/internal/lib/logger/sl"
	receiver "eventTicketing/internal/webhook"

	"github.com/go-chi/render"
)

// MaxBodyBytes bounds the webhook payload read into memory.
const MaxBodyBytes = 1 << 20

type Response struct {
	Received bool `json:"received"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=Receiver
type Receiver interface {
	Handle(ctx context.Context, body []byte, signatureHeader string) (receiver.Ack, error)
}

// New reads the raw body, since the signature covers the exact bytes sent.
func New(log *slog.Logger, signatureHeader string, events Receiver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.payment.webhook.New"

		log := log.With(slog.String("op", op))

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err != nil {
			log.Error("failed to read request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to read request body"))
			return
		}

		ack, err := events.Handle(r.Context(), body, r.Header.Get(signatureHeader))
		if err != nil {
			switch {
			case errors.Is(err, receiver.ErrInvalidSignature):
				log.Warn("rejected webhook", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid signature"))
			case errors.Is(err, receiver.ErrMalformedPayload):
				log.Error("malformed webhook", sl.Err(err))
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error("malformed payload"))
			default:
				log.Error("failed to process webhook", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("failed to process webhook"))
			}
			return
		}

		log.Info("webhook acknowledged",
			slog.String("event_id", ack.EventID),
			slog.String("type", ack.Type),
			slog.String("outcome", ack.Outcome),
			slog.Bool("duplicate", ack.Duplicate),
		)

		render.JSON(w, r, Response{Received: true})
	}
}
