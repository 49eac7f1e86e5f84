package queueStats

import (
	"context"
	"log/slog"
	"net/http"

	"eventTicketing/internal/jobqueue"
	"eventTicketing/internal/lib/api/response"
	"eventTicketing/internal/lib/logger/sl"

	"github.com/go-chi/render"
)

type Response struct {
	response.Response
	Queue jobqueue.Stats `json:"queue"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=StatsGetter
type StatsGetter interface {
	Stats(ctx context.Context) (jobqueue.Stats, error)
}

func New(log *slog.Logger, queue StatsGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.queueStats.New"

		log := log.With(slog.String("op", op))

		stats, err := queue.Stats(r.Context())
		if err != nil {
			log.Error("failed to get queue stats", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to get queue stats"))
			return
		}

		render.JSON(w, r, Response{
			Response: response.OK(),
			Queue:    stats,
		})
	}
}
