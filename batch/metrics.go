// Package batch runs portfolio-sized analytics jobs over a bounded worker
// pool with per-security failure isolation.
package batch

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the diagnostics context handed to an Engine. It is an explicit
// object rather than process-wide state: pricing code never touches it, and
// two engines can report into separate registries.
type Metrics struct {
	// Calculations counts completed security calculations by outcome.
	Calculations *prometheus.CounterVec
	// NonConvergence counts calculations that failed because a root finder
	// could not converge.
	NonConvergence prometheus.Counter
	// Duration tracks per-security wall time by measure.
	Duration *prometheus.HistogramVec
}

// NewMetrics builds the metric set and registers it with reg.
// Pass prometheus.DefaultRegisterer for the usual process-wide exposition.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bondlib_calculations_total",
			Help: "Total number of security calculations",
		}, []string{"status"}),
		NonConvergence: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bondlib_nonconvergence_total",
			Help: "Calculations failed by solver non-convergence",
		}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bondlib_calculation_duration_seconds",
			Help:    "Per-security calculation duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}, []string{"measure"}),
	}
	if reg != nil {
		reg.MustRegister(m.Calculations, m.NonConvergence, m.Duration)
	}
	return m
}

func (m *Metrics) countOutcome(status string) {
	if m == nil {
		return
	}
	m.Calculations.WithLabelValues(status).Inc()
}

func (m *Metrics) countNonConvergence() {
	if m == nil {
		return
	}
	m.NonConvergence.Inc()
}

func (m *Metrics) observe(measure string, seconds float64) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(measure).Observe(seconds)
}
