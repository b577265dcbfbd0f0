package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"delivery-metrics/internal/pkg/config"
)

// Profile reload results.
const (
	ReloadSuccess = "success"
	ReloadFailure = "failure"
)

// SamplerMetrics provides Prometheus metrics for the sampler process.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// sampler-specific metrics for cycle tracking.
//
// Embedded metrics (from ConfigMetrics):
//   - sampler_config_load_timestamp: Unix timestamp of last configuration load
//   - sampler_config_validation_errors_total: Total validation errors by field
//   - sampler_config_fallbacks_total: Total fallback operations by field
//   - sampler_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Sampler-specific metrics:
//   - sampler_cycles_total: Total sampling cycles run
//   - sampler_cycle_duration_seconds: Duration histogram of one cycle
//   - sampler_last_cycle_timestamp_seconds: Unix timestamp of the last cycle
//   - sampler_profile_reloads_total: Profile reloads by result (success/failure)
//   - sampler_high_pending_mode: 1 while pending counts use the high range
//
// Example usage:
//
//	metrics := NewSamplerMetrics(reg)
//	start := time.Now()
//	svc.Cycle(ctx)
//	metrics.RecordCycle(time.Since(start))
type SamplerMetrics struct {
	*config.ConfigMetrics

	// CyclesTotal counts completed sampling cycles.
	CyclesTotal prometheus.Counter

	// CycleDurationSeconds measures how long one cycle takes.
	// Buckets: 100µs to 1s
	CycleDurationSeconds prometheus.Histogram

	// LastCycleTimestamp records the Unix timestamp of the last cycle.
	LastCycleTimestamp prometheus.Gauge

	// ProfileReloadsTotal counts profile file reloads.
	// Labels: result (success, failure)
	ProfileReloadsTotal *prometheus.CounterVec

	// HighPendingMode is 1 while high-pending mode is active, 0 otherwise.
	HighPendingMode prometheus.Gauge
}

// NewSamplerMetrics creates the sampler metrics and registers them with reg.
func NewSamplerMetrics(reg prometheus.Registerer) *SamplerMetrics {
	factory := promauto.With(reg)

	m := &SamplerMetrics{
		ConfigMetrics: config.NewConfigMetrics(reg, "sampler"),

		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sampler_cycles_total",
			Help: "Total number of sampling cycles run",
		}),

		CycleDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sampler_cycle_duration_seconds",
			Help:    "Duration of one sampling cycle in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),

		LastCycleTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sampler_last_cycle_timestamp_seconds",
			Help: "Unix timestamp of the last sampling cycle",
		}),

		ProfileReloadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sampler_profile_reloads_total",
			Help: "Total number of profile file reloads by result (success/failure)",
		}, []string{"result"}),

		HighPendingMode: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sampler_high_pending_mode",
			Help: "1 if pending counts are drawn from the high-pending range, 0 otherwise",
		}),
	}

	// Expose both series from the start.
	m.ProfileReloadsTotal.WithLabelValues(ReloadSuccess)
	m.ProfileReloadsTotal.WithLabelValues(ReloadFailure)

	return m
}

// RecordCycle records one completed cycle that took d.
func (m *SamplerMetrics) RecordCycle(d time.Duration) {
	m.CyclesTotal.Inc()
	m.CycleDurationSeconds.Observe(d.Seconds())
	m.LastCycleTimestamp.SetToCurrentTime()
}

// RecordProfileReload counts one profile reload; a nil err counts as
// ReloadSuccess, anything else as ReloadFailure.
func (m *SamplerMetrics) RecordProfileReload(err error) {
	result := ReloadSuccess
	if err != nil {
		result = ReloadFailure
	}
	m.ProfileReloadsTotal.WithLabelValues(result).Inc()
}

// SetHighPendingMode sets HighPendingMode to 1 or 0.
func (m *SamplerMetrics) SetHighPendingMode(on bool) {
	if on {
		m.HighPendingMode.Set(1)
	} else {
		m.HighPendingMode.Set(0)
	}
}
