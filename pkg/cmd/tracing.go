package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/syncline/syncline/pkg/otelhelper"
)

// SetupTracing installs the OTLP trace exporter as the global tracer
// provider when OTEL_EXPORTER_OTLP_ENDPOINT is set. Without it spans stay
// on the default noop provider.
func SetupTracing(ctx context.Context, serviceName string, logger *slog.Logger) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return
	}

	if _, err := otelhelper.NewTracer(ctx, serviceName); err != nil {
		logger.ErrorContext(ctx, "Failed to set up tracing", "error", err)

		return
	}

	logger.InfoContext(ctx, "Tracing enabled", "service_name", serviceName)
}
