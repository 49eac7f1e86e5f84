package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventTicketing/internal/config"
	"eventTicketing/internal/fulfilment"
	"eventTicketing/internal/http-server/handlers/admin/queueStats"
	"eventTicketing/internal/http-server/handlers/cron/horizonScan"
	"eventTicketing/internal/http-server/handlers/event/refund"
	"eventTicketing/internal/http-server/handlers/event/register"
	"eventTicketing/internal/http-server/handlers/event/reschedule"
	"eventTicketing/internal/http-server/handlers/event/ticketAvailability"
	"eventTicketing/internal/http-server/handlers/payment/checkoutReturn"
	"eventTicketing/internal/http-server/handlers/payment/webhook"
	"eventTicketing/internal/http-server/middleware/bearer"
	"eventTicketing/internal/http-server/middleware/mwlogger"
	"eventTicketing/internal/jobqueue"
	"eventTicketing/internal/ledger"
	"eventTicketing/internal/lib/api/response"
	"eventTicketing/internal/lib/logger/handlers/slogpretty"
	"eventTicketing/internal/lib/logger/sl"
	"eventTicketing/internal/lib/retry"
	"eventTicketing/internal/metrics"
	"eventTicketing/internal/notify"
	"eventTicketing/internal/provider"
	refunds "eventTicketing/internal/refund"
	"eventTicketing/internal/registration"
	"eventTicketing/internal/scheduler"
	"eventTicketing/internal/storage/postgres"
	receiver "eventTicketing/internal/webhook"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const (
	shutdownTimeout = 10 * time.Second
	metricsInterval = 30 * time.Second
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting event ticketing", slog.String("env", cfg.Env))
	log.Debug("debug messages are enabled")

	storage, err := postgres.InitDB(&cfg.Database)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	if cfg.Database.Migrate {
		if err = storage.Migrate(context.Background()); err != nil {
			log.Error("failed to migrate storage", sl.Err(err))
			os.Exit(1)
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	queue := jobqueue.New(rdb, jobqueue.WithPrefix(cfg.Redis.KeyPrefix))
	if err = queue.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", sl.Err(err))
		os.Exit(1)
	}

	policy := retry.Policy{Attempts: cfg.Retry.Attempts, Delay: cfg.Retry.Delay}

	sender := setupSender(cfg.Mail, log)
	renderer := notify.NewRenderer()
	payments := provider.New(cfg.Payment, policy)

	reminders := scheduler.New(log, storage, queue, sender, renderer, cfg.Scheduler, policy)
	tickets := ledger.New(storage)
	writer := registration.New(log, storage, tickets, reminders)
	orchestrator := fulfilment.New(log, writer, storage, sender, renderer, policy)
	receiverSvc := receiver.New(log, cfg.Payment.WebhookSecret, cfg.Payment.SignatureTolerance, orchestrator, storage)
	refunder := refunds.New(log, storage, payments, reminders, sender, renderer, policy)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwlogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	router.Get("/health", health(log, storage, queue))
	router.Handle("/metrics", promhttp.Handler())

	router.Post("/webhooks/payment", webhook.New(log, cfg.Payment.SignatureHeader, receiverSvc))
	router.Get("/checkout/return", checkoutReturn.New(log, cfg.Payment, payments, orchestrator))

	router.Route("/events/{id}", func(r chi.Router) {
		r.Post("/register", register.New(log, writer))
		r.Get("/tickets", ticketAvailability.New(log, storage, tickets))
		r.Put("/schedule", reschedule.New(log, storage, reminders))
		r.Post("/registrations/{registrationID}/refund", refund.New(log, storage, refunder))
	})

	router.Group(func(r chi.Router) {
		r.Use(bearer.New(log, cfg.Scheduler.CronSecret))

		r.Post("/cron/reminders", horizonScan.New(log, reminders))
		r.Get("/admin/queue/stats", queueStats.New(log, reminders))
	})

	log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT, os.Interrupt)

	go reminders.Run(ctx)
	go metrics.CollectQueue(ctx, log, queue, metricsInterval)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", sl.Err(err))
			stop <- syscall.SIGTERM
		}
	}()

	sign := <-stop

	log.Info("application stopping", slog.String("signal", sign.String()))

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server", sl.Err(err))
	}

	log.Info("application stopped")

	if err = rdb.Close(); err != nil {
		log.Error("failed to close redis connection", sl.Err(err))
	}

	if err = storage.Close(); err != nil {
		log.Error("failed to close postgres connection", sl.Err(err))
	}

	log.Info("postgres connection closed")
}

type pinger interface {
	Ping(ctx context.Context) error
}

func health(log *slog.Logger, db, queue pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			log.Error("health check: postgres", sl.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("postgres unavailable"))
			return
		}
		if err := queue.Ping(ctx); err != nil {
			log.Error("health check: redis", sl.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("redis unavailable"))
			return
		}

		render.JSON(w, r, response.OK())
	}
}

func setupSender(cfg config.Mail, log *slog.Logger) notify.Sender {
	if cfg.Driver == "log" {
		log.Info("mail driver is log, messages will not be delivered")
		return notify.NewLogSender(log)
	}
	return notify.NewSMTPSender(cfg)
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	h := opts.NewPrettyHandler(os.Stdout)

	return slog.New(h)
}
