package observability

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Счётчик вызовов методов репозитория
	RepositoryCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repository_calls_total",
			Help: "Total number of repository method calls",
		},
		[]string{"method", "status"},
	)

	// Гистограмма времени выполнения запросов
	RepositoryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repository_duration_seconds",
			Help:    "Duration of repository method calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	Matches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matches_total",
			Help: "Parcel to trip match attempts by result",
		},
		[]string{"result"},
	)

	StatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_transitions_total",
			Help: "Parcel status update attempts by target status and result",
		},
		[]string{"to", "result"},
	)

	FlaggedMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flagged_messages_total",
			Help: "Chat messages held back by content moderation",
		},
	)

	AuditWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Audit log entries that could not be written",
		},
	)

	NotificationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Status change notifications that could not be published",
		},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		RepositoryCalls,
		RepositoryDuration,
		Matches,
		StatusTransitions,
		FlaggedMessages,
		AuditWriteFailures,
		NotificationFailures,
	}
}

// RegisterMetrics adds the service collectors to reg. Collectors that are
// already registered are skipped.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ServeMetrics exposes the default registry on addr in the background.
func ServeMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	return srv
}
