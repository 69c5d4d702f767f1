package agiobserve

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MeterProvider builds an OpenTelemetry MeterProvider whose reader scrapes
// into the Prometheus exporter, so the same process-level metrics surface
// both GET /metrics (via agiobserve.Metrics' direct prometheus.Registerer
// use) and any OTel metric instruments callers add on top of it.
func MeterProvider() (*sdkmetric.MeterProvider, error) {
	reader, err := prometheus.New()
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	return mp, nil
}
