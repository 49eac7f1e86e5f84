package register

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"eventTicketing/internal/lib/api/response"
	"eventTicketing/internal/lib/logger/sl"
	"eventTicketing/internal/models"
	"eventTicketing/internal/registration"
	"eventTicketing/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// Headers set by the upstream auth layer. Both are absent for guests.
const (
	HeaderUserID      = "X-User-ID"
	HeaderAccessLevel = "X-Access-Level"
)

type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name"`
	TierID   string `json:"tier_id"`
	Quantity int    `json:"quantity" validate:"gte=0,lte=10"`
	External bool   `json:"external"`
}

type Response struct {
	response.Response
	Registration      *models.Registration `json:"registration,omitempty"`
	AlreadyRegistered bool                 `json:"already_registered"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=Registrar
type Registrar interface {
	Register(ctx context.Context, req registration.Request) (registration.Result, error)
}

func New(log *slog.Logger, registrar Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.event.register.New"

		log := log.With(slog.String("op", op))

		eventID := chi.URLParam(r, "id")
		if eventID == "" {
			log.Error("event id is required")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("event id is required"))
			return
		}

		log = log.With(slog.String("event_id", eventID))

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

		access := models.AccessPublic
		if v := r.Header.Get(HeaderAccessLevel); v != "" {
			level, err := models.ParseAccessLevel(v)
			if err != nil {
				log.Error("invalid access level", sl.Err(err))
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error("invalid access level"))
				return
			}
			access = level
		}

		res, err := registrar.Register(r.Context(), registration.Request{
			EventID: eventID,
			TierID:  req.TierID,
			Identity: models.Identity{
				UserID: r.Header.Get(HeaderUserID),
				Email:  req.Email,
				Name:   req.Name,
			},
			Quantity: req.Quantity,
			External: req.External,
			Access:   access,
		})
		if err != nil {
			log.Error("failed to register", sl.Err(err))

			status, msg := statusFor(err)
			render.Status(r, status)
			render.JSON(w, r, response.Error(msg))
			return
		}

		if res.AlreadyRegistered {
			log.Info("already registered", slog.String("registration_id", res.Registration.ID))
			render.JSON(w, r, Response{
				Response:          response.OK(),
				Registration:      res.Registration,
				AlreadyRegistered: true,
			})
			return
		}

		log.Info("registered", slog.String("registration_id", res.Registration.ID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response:     response.OK(),
			Registration: res.Registration,
		})
	}
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrEventNotFound):
		return http.StatusNotFound, "event not found"
	case errors.Is(err, storage.ErrTierNotFound):
		return http.StatusNotFound, "ticket not found"
	case errors.Is(err, registration.ErrAccessDenied):
		return http.StatusForbidden, "registration is not open to you"
	case errors.Is(err, registration.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid registration request"
	case errors.Is(err, registration.ErrPaymentRequired):
		return http.StatusPaymentRequired, "ticket requires payment"
	case errors.Is(err, registration.ErrTicketsNotOnSale):
		return http.StatusConflict, "tickets are not on sale"
	case errors.Is(err, storage.ErrSoldOut):
		return http.StatusConflict, "sold out"
	default:
		return http.StatusInternalServerError, "failed to register"
	}
}
