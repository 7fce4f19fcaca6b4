package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/honeynil/ParcelMatchService/internal/handler"
	"github.com/honeynil/ParcelMatchService/internal/infrastructure/auth"
	"github.com/honeynil/ParcelMatchService/internal/infrastructure/observability"
	"github.com/honeynil/ParcelMatchService/internal/infrastructure/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func init() {
	prometheus.MustRegister(RequestCounter, RequestDuration)
}

// SetupRouter wires the public and protected routes. Idempotency-Key
// handling is skipped when redisClient is nil.
func SetupRouter(h *handler.Handler, redisClient redis.RedisClient, jwtSecret string) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger, metricsMiddleware)

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	public := r.NewRoute().Subrouter()
	h.RegisterPublicRoutes(public)

	protected := r.NewRoute().Subrouter()
	protected.Use(auth.AuthMiddleware(jwtSecret))
	if redisClient != nil {
		protected.Use(redis.IdempotencyMiddleware(redisClient))
	}
	h.RegisterProtectedRoutes(protected)

	return r
}

// endpoint is the matched route template, so path ids stay out of labels.
func endpoint(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)

		if recorder.status == 0 {
			recorder.status = http.StatusOK
		}
		ep := endpoint(r)
		RequestCounter.WithLabelValues(r.Method, ep, strconv.Itoa(recorder.status)).Inc()
		RequestDuration.WithLabelValues(r.Method, ep).Observe(time.Since(start).Seconds())
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := observability.WithContext(r.Context(), "http_method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(observability.WithLogger(r.Context(), logger)))
	})
}

// statusRecorder captures the response status.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
