// Package telemetry installs the OpenTelemetry tracer provider that records
// pipeline stage spans.
package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"mediasolver/internal/config"
	"mediasolver/internal/logging"
	"mediasolver/internal/services"
)

// ShutdownFunc flushes pending spans and releases the exporter.
type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// InitTracer installs a global tracer provider exporting spans as JSON to
// the configured file or stdout. When tracing is disabled the global no-op
// provider stays in place.
func InitTracer(ctx context.Context, cfg config.Telemetry, serviceName string, logger *slog.Logger) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return noop, nil
	}
	var (
		out     io.Writer = os.Stdout
		outFile *os.File
	)
	if cfg.Output != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
			return noop, services.Wrap(services.ErrConfiguration, "telemetry", "open output", cfg.Output, err)
		}
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return noop, services.Wrap(services.ErrConfiguration, "telemetry", "open output", cfg.Output, err)
		}
		out, outFile = f, f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
	if err != nil {
		if outFile != nil {
			outFile.Close()
		}
		return noop, services.Wrap(services.ErrConfiguration, "telemetry", "init exporter", "trace exporter unavailable", err)
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		)),
	)
	otel.SetTracerProvider(provider)

	if logger != nil {
		dest := cfg.Output
		if dest == "" {
			dest = "stdout"
		}
		logger.Info("tracing enabled", logging.String("output", dest), logging.String("service", serviceName))
	}

	return func(ctx context.Context) error {
		err := provider.Shutdown(ctx)
		if outFile != nil {
			err = errors.Join(err, outFile.Close())
		}
		return err
	}, nil
}
