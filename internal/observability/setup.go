package observability

import (
	"context"

	"github.com/honeynil/ParcelMatchService/internal/config"
	"github.com/honeynil/ParcelMatchService/internal/infrastructure/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Setup initialises logs, metrics and traces and returns the tracer shutdown.
func Setup(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	observability.InitLogger(cfg.LogLevel)
	if err := observability.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		return nil, err
	}
	return observability.InitTracing(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
}
