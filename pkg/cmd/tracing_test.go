package cmd_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/syncline/syncline/pkg/cmd"
)

func TestSetupTracing_DisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	before := otel.GetTracerProvider()

	cmd.SetupTracing(context.Background(), "test", slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Same(t, before, otel.GetTracerProvider())
}

func TestSetupTracing_InstallsProvider(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318")

	before := otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(before)
	})

	cmd.SetupTracing(context.Background(), "test", slog.New(slog.NewTextHandler(io.Discard, nil)))

	provider, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)
	assert.NoError(t, provider.Shutdown(context.Background()))
}
