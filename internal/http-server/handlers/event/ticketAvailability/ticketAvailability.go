package ticketAvailability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"eventTicketing/internal/lib/api/response"
	"eventTicketing/internal/lib/logger/sl"
	"eventTicketing/internal/models"
	"eventTicketing/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type Response struct {
	response.Response
	EventID string                `json:"event_id"`
	Tickets []models.Availability `json:"tickets"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=EventGetter
type EventGetter interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=Ledger
type Ledger interface {
	EventAvailability(ctx context.Context, eventID string) ([]models.Availability, error)
}

func New(log *slog.Logger, events EventGetter, ledger Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.event.ticketAvailability.New"

		log := log.With(slog.String("op", op))

		eventID := chi.URLParam(r, "id")
		if eventID == "" {
			log.Error("event id is required")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("event id is required"))
			return
		}

		log = log.With(slog.String("event_id", eventID))

		if _, err := events.GetEvent(r.Context(), eventID); err != nil {
			if errors.Is(err, storage.ErrEventNotFound) {
				log.Info("event not found")
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("event not found"))
				return
			}

			log.Error("failed to get event", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to get ticket availability"))
			return
		}

		tickets, err := ledger.EventAvailability(r.Context(), eventID)
		if err != nil {
			log.Error("failed to get ticket availability", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to get ticket availability"))
			return
		}

		if tickets == nil {
			tickets = []models.Availability{}
		}

		render.JSON(w, r, Response{
			Response: response.OK(),
			EventID:  eventID,
			Tickets:  tickets,
		})
	}
}
