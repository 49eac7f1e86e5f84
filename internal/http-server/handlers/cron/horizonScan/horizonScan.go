package horizonScan

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"eventTicketing/internal/lib/api/response"
	"eventTicketing/internal/lib/logger/sl"
	"eventTicketing/internal/scheduler"

	"github.com/go-chi/render"
)

type Response struct {
	response.Response
	Summary scheduler.ScanSummary `json:"summary"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=Scanner
type Scanner interface {
	HorizonScan(ctx context.Context) (scheduler.ScanSummary, error)
}

// New runs a horizon scan for the external cron. Per-event failures are
// part of a successful response; only a scan that could not run is an
// error.
func New(log *slog.Logger, scanner Scanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.cron.horizonScan.New"

		log := log.With(slog.String("op", op))

		summary, err := scanner.HorizonScan(r.Context())
		if err != nil {
			if errors.Is(err, scheduler.ErrScanInProgress) {
				log.Warn("scan already in progress")
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.Error("scan already in progress"))
				return
			}

			log.Error("horizon scan failed", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("horizon scan failed"))
			return
		}

		log.Info("horizon scan finished",
			slog.Int("events_found", summary.EventsFound),
			slog.Int("events_succeeded", summary.EventsSucceeded),
			slog.Int("errors", len(summary.Errors)),
		)

		render.JSON(w, r, Response{
			Response: response.OK(),
			Summary:  summary,
		})
	}
}
