// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Capture outcomes used as the "outcome" label.
const (
	OutcomeSuccess    = "success"
	OutcomeFailed     = "failed"
	OutcomeTimeout    = "timeout"
	OutcomeSuppressed = "suppressed"
)

var (
	// TicksTotal counts steady-state sampling ticks
	TicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netmon_ticks_total",
			Help: "Total number of sampling ticks that were classified",
		},
	)

	// ReadFailuresTotal counts failed counter source reads
	ReadFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netmon_read_failures_total",
			Help: "Total number of counter source reads that failed",
		},
	)

	// MissingBaselinesTotal counts interfaces seen without a previous reading
	MissingBaselinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netmon_missing_baselines_total",
			Help: "Total number of interfaces skipped for lack of a previous reading",
		},
		[]string{"interface"},
	)

	// CounterResetsTotal counts counters that went backwards
	CounterResetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netmon_counter_resets_total",
			Help: "Total number of interface counters that decreased between readings",
		},
		[]string{"interface", "field"},
	)

	// AnomaliesTotal counts anomalous intervals per interface and direction
	AnomaliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netmon_anomalies_total",
			Help: "Total number of intervals in which an interface crossed the threshold",
		},
		[]string{"interface", "direction"},
	)

	// IntervalDelta is the last reported per-interval delta of a counter
	IntervalDelta = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "netmon_interval_delta",
			Help: "Change of an interface counter over the last sampling interval",
		},
		[]string{"interface", "field"},
	)

	// CapturesTotal counts capture requests by outcome
	CapturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netmon_captures_total",
			Help: "Total number of capture requests by outcome",
		},
		[]string{"interface", "outcome"},
	)

	// CapturesInFlight tracks running capture sessions
	CapturesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netmon_captures_in_flight",
			Help: "Number of capture sessions currently running",
		},
	)

	// CaptureDurationSeconds measures capture wall time including the summary
	CaptureDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netmon_capture_duration_seconds",
			Help:    "Wall time of capture sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to 64s
		},
	)
)
