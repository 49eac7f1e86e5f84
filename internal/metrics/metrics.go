package metrics

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"eventTicketing/internal/jobqueue"
	"eventTicketing/internal/lib/logger/sl"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Payment provider events received, by type and result",
		},
		[]string{"type", "result"},
	)

	fulfilmentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfilment_outcomes_total",
			Help: "Fulfilment runs by terminal outcome",
		},
		[]string{"outcome"},
	)

	registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "Registration attempts by result",
		},
		[]string{"result"},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification sends by kind and status",
		},
		[]string{"kind", "status"},
	)

	refunds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refunds_total",
			Help: "Refund requests by result",
		},
		[]string{"result"},
	)

	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_scan_duration_seconds",
			Help:    "Duration of horizon scans",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	scanErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_scan_errors_total",
			Help: "Per-event errors collected by horizon scans",
		},
	)

	jobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduled_jobs_processed_total",
			Help: "Scheduled jobs processed by type and result",
		},
		[]string{"type", "result"},
	)

	httpRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration by route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	queueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "job_queue_length",
			Help: "Current job queue length by state",
		},
		[]string{"state"},
	)
)

func HTTPRequest(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func WebhookEvent(eventType, result string) {
	webhookEvents.WithLabelValues(eventType, result).Inc()
}

func FulfilmentOutcome(outcome string) {
	fulfilmentOutcomes.WithLabelValues(outcome).Inc()
}

func Registration(result string) {
	registrations.WithLabelValues(result).Inc()
}

func Notification(kind string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	notifications.WithLabelValues(kind, status).Inc()
}

func Refund(result string) {
	refunds.WithLabelValues(result).Inc()
}

func ScanFinished(d time.Duration, errs int) {
	scanDuration.Observe(d.Seconds())
	scanErrors.Add(float64(errs))
}

func JobProcessed(jobType, result string) {
	jobsProcessed.WithLabelValues(jobType, result).Inc()
}

type QueueStatter interface {
	Stats(ctx context.Context) (jobqueue.Stats, error)
}

// CollectQueue refreshes the queue length gauges every interval until ctx
// is done.
func CollectQueue(ctx context.Context, log *slog.Logger, q QueueStatter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		stats, err := q.Stats(ctx)
		if err != nil {
			log.Warn("failed to collect queue metrics", sl.Err(err))
		} else {
			queueLength.WithLabelValues("pending").Set(float64(stats.Pending))
			queueLength.WithLabelValues("delayed").Set(float64(stats.Delayed))
			queueLength.WithLabelValues("active").Set(float64(stats.Active))
			queueLength.WithLabelValues("failed").Set(float64(stats.Failed))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
