package agiobserve

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the Prometheus counters/histograms registered for the
// runtime, grounded on the teacher's go.mod prometheus/client_golang
// dependency. Nothing in this module increments or observes them; they
// are exposed on /metrics at their initial values.
type Metrics struct {
	RunsStarted   prometheus.Counter
	RunsFinished  prometheus.Counter
	RunsErrored   prometheus.Counter
	StepDuration  prometheus.Histogram
	ToolCallTotal *prometheus.CounterVec
}

// NewMetrics registers and returns a Metrics bundle against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsStarted:  factory.NewCounter(prometheus.CounterOpts{Name: "agiloop_runs_started_total"}),
		RunsFinished: factory.NewCounter(prometheus.CounterOpts{Name: "agiloop_runs_finished_total"}),
		RunsErrored:  factory.NewCounter(prometheus.CounterOpts{Name: "agiloop_runs_errored_total"}),
		StepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "agiloop_step_duration_seconds",
			Buckets: prometheus.DefBuckets,
		}),
		ToolCallTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agiloop_tool_calls_total",
		}, []string{"tool_name", "outcome"}),
	}
}
