package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instrumentation shared by the hook engine and
// telemetry pipeline. Scraping is additive: nothing in either subsystem
// depends on these being read.
type Metrics struct {
	// HookDispatchTotal counts hook dispatches by event kind, hook type
	// (script|callback), and outcome (allow|deny|ask|block|error).
	HookDispatchTotal *prometheus.CounterVec

	// HookDispatchDuration measures hook dispatch latency in seconds.
	HookDispatchDuration *prometheus.HistogramVec

	// HookTimeoutTotal counts hooks that hit their timeout.
	HookTimeoutTotal *prometheus.CounterVec

	// TelemetryFlushTotal counts data-store flush attempts by outcome.
	TelemetryFlushTotal *prometheus.CounterVec

	// TelemetryFlushDuration measures flush latency in seconds.
	TelemetryFlushDuration prometheus.Histogram
}

// NewMetrics registers and returns a fresh Metrics set against the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		HookDispatchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracehook_hook_dispatch_total",
				Help: "Total hook dispatches by event kind, hook type, and outcome",
			},
			[]string{"event", "hook_type", "outcome"},
		),
		HookDispatchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracehook_hook_dispatch_duration_seconds",
				Help:    "Duration of a single hook dispatch in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"event", "hook_type"},
		),
		HookTimeoutTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracehook_hook_timeout_total",
				Help: "Total hooks that exceeded their configured timeout",
			},
			[]string{"event", "hook_type"},
		),
		TelemetryFlushTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracehook_telemetry_flush_total",
				Help: "Total telemetry data-store flush attempts by outcome",
			},
			[]string{"outcome"},
		),
		TelemetryFlushDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tracehook_telemetry_flush_duration_seconds",
				Help:    "Duration of a telemetry session flush to disk in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
	}
}
