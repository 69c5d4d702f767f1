// Package agiobserve wires structured logging, OpenTelemetry tracing,
// and Prometheus metrics — the ambient stack a production agent runtime
// carries regardless of the spec's feature Non-goals, grounded on
// pkg/observability and v2/observability and the otel/prometheus block
// in the teacher's go.mod.
package agiobserve

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// NewLogger builds the process-wide slog.Logger, the teacher's own
// logging idiom (used directly throughout pkg/*, not a stdlib
// fallback). JSON output is used outside tests so log lines are
// machine-parseable by the same tooling that consumes a production
// agent's logs.
func NewLogger(json bool) *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if json {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// TracerProvider builds an OpenTelemetry TracerProvider for serviceName.
// Callers register an exporter (otlp, stdout) as a sdktrace.SpanProcessor
// before the runtime starts emitting spans.
func TracerProvider(ctx context.Context, serviceName string, processors ...sdktrace.SpanProcessor) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	for _, p := range processors {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Tracer returns the named tracer from the global TracerProvider,
// convenient for package-level tracer variables.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Meter returns the named meter from the global MeterProvider, the
// OTel-instrument counterpart to Tracer for callers that want
// histograms/counters recorded through OTel rather than directly
// against a prometheus.Registerer.
func Meter(name string) otelmetric.Meter {
	return otel.Meter(name)
}
