package agiobserve

import (
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// StdoutSpanProcessor builds a SpanProcessor that writes spans to stdout as
// indented JSON, the processor cmd/agiloopd always registers with
// TracerProvider (it has no OTLP exporter option) — a local/dev
// exporter, not a production one.
func StdoutSpanProcessor() (sdktrace.SpanProcessor, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	return sdktrace.NewBatchSpanProcessor(exporter), nil
}
