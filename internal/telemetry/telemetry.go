// Package telemetry bootstraps OpenTelemetry trace export. Dispatch spans
// are always created; they only leave the process when an OTLP endpoint is
// configured, otherwise the default no-op provider swallows them.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Setup installs a tracer provider when OTEL_EXPORTER_OTLP_ENDPOINT is
// set. The returned shutdown func flushes pending spans; it is non-nil
// even when tracing is disabled.
func Setup(ctx context.Context, logger *slog.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
	)
	otel.SetTracerProvider(tp)

	logger.Info("trace export enabled")
	return tp.Shutdown, nil
}
