package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/onnwee/redpull/internal/config"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(&config.Config{}, "redpull-test", "dev")
	if err != nil {
		t.Fatalf("Init should not error when disabled: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown should not error: %v", err)
	}
	if otel.GetTextMapPropagator() == nil {
		t.Fatal("expected a propagator to be installed")
	}
}

func TestInit_Enabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := Init(&config.Config{
		OTELEnabled:    true,
		OTELEndpoint:   "localhost:14318",
		OTELSampleRate: 1,
	}, "redpull-test", "1.2.3")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Logf("Shutdown error (no collector running): %v", err)
	}
}

func TestStartSpanAndRecordError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := StartSpan(context.Background(), "listing.fetch")
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	if ended[0].Name() != "listing.fetch" {
		t.Errorf("span name = %q", ended[0].Name())
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", ended[0].Status().Code)
	}
}
