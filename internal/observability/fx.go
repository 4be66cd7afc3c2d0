package observability

import (
	"github.com/bell24h/bell24h/internal/observability/logger"
	"github.com/bell24h/bell24h/internal/observability/metrics"
	"github.com/bell24h/bell24h/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.LoggerConfig,
		Config.TracingConfig,
		Config.MetricsConfig,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.Resolver,
		metrics.HTTP,
	),
	// The tracer provider has no consumers by type; forcing it installs the
	// global propagator and exporter.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
