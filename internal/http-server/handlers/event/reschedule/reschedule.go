package reschedule

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"eventTicketing/internal/lib/api/response"
	"eventTicketing/internal/lib/logger/sl"
	"eventTicketing/internal/models"
	"eventTicketing/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

const HeaderUserID = "X-User-ID"

type Request struct {
	StartsAt *time.Time `json:"starts_at" validate:"required"`
	EndsAt   *time.Time `json:"ends_at"`
}

type Response struct {
	response.Response
	Event              *models.Event `json:"event"`
	RemindersScheduled int           `json:"reminders_scheduled"`
	Warning            string        `json:"warning,omitempty"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=EventUpdater
type EventUpdater interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	UpdateEventTimes(ctx context.Context, id string, startsAt, endsAt *time.Time) (*models.Event, error)
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=Rescheduler
type Rescheduler interface {
	RescheduleEvent(ctx context.Context, eventID string) (int, error)
}

// New moves an event and re-times every attendee reminder. The event update
// stands even if the reminders cannot be re-timed; the next horizon scan
// picks them up.
func New(log *slog.Logger, events EventUpdater, reminders Rescheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.event.reschedule.New"

		log := log.With(slog.String("op", op))

		eventID := chi.URLParam(r, "id")
		if eventID == "" {
			log.Error("event id is required")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("event id is required"))
			return
		}

		userID := r.Header.Get(HeaderUserID)
		if userID == "" {
			log.Warn("missing caller identity")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("unauthorized"))
			return
		}

		log = log.With(slog.String("event_id", eventID), slog.String("user_id", userID))

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to decode request"))
			return
		}

		if err := validator.New().Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			if errors.As(err, &validateErr) {
				log.Error("invalid request", sl.Err(err))
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.ValidationError(validateErr))
				return
			}
		}

		if req.EndsAt != nil && req.EndsAt.Before(*req.StartsAt) {
			log.Error("event ends before it starts")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("ends_at is before starts_at"))
			return
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
			render.JSON(w, r, response.Error("failed to reschedule event"))
			return
		}

		if event.OrganiserID != userID {
			log.Warn("caller is not the organiser")
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("only the organiser can reschedule this event"))
			return
		}

		event, err = events.UpdateEventTimes(r.Context(), eventID, req.StartsAt, req.EndsAt)
		if err != nil {
			log.Error("failed to update event times", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to reschedule event"))
			return
		}

		resp := Response{Response: response.OK(), Event: event}

		n, err := reminders.RescheduleEvent(r.Context(), eventID)
		resp.RemindersScheduled = n
		if err != nil {
			log.Error("failed to reschedule reminders", sl.Err(err))
			resp.Warning = "event updated but some reminders could not be rescheduled"
		}

		log.Info("event rescheduled", slog.Int("reminders_scheduled", n))

		render.JSON(w, r, resp)
	}
}
