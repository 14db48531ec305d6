package telemetry_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"

	"mediasolver/internal/config"
	"mediasolver/internal/telemetry"
)

func TestInitTracerDisabledIsNoop(t *testing.T) {
	shutdown, err := telemetry.InitTracer(context.Background(), config.Telemetry{}, "mediasolver-test", nil)
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracerWritesSpansToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "traces", "spans.json")
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := telemetry.InitTracer(context.Background(), config.Telemetry{Enabled: true, Output: out}, "mediasolver-test", nil)
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	_, span := otel.Tracer("mediasolver/test").Start(context.Background(), "pipeline.import")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read spans: %v", err)
	}
	if !strings.Contains(string(data), "pipeline.import") {
		t.Fatalf("span name missing from output: %s", data)
	}
	if !strings.Contains(string(data), "mediasolver-test") {
		t.Fatalf("service name missing from output: %s", data)
	}
}
