// Package metrics bundles the Prometheus collectors for the scan pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scan pipeline. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Registry            *prometheus.Registry
	CollectorOutcomes   *prometheus.CounterVec
	PhaseDuration       *prometheus.HistogramVec
	UnreliableCrawls    prometheus.Counter
	VerificationScore   prometheus.Histogram
	ValidationChecks    *prometheus.CounterVec
	TaskTransitions     *prometheus.CounterVec
	PersistenceFailures *prometheus.CounterVec
	ScansTotal          *prometheus.CounterVec
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	collectorOutcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitescope_collector_outcomes_total",
			Help: "Collector results by collector and outcome.",
		},
		[]string{"collector", "outcome"},
	)
	phaseDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitescope_phase_duration_seconds",
			Help:    "Wall-clock duration of pipeline phases.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)
	unreliable := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sitescope_unreliable_crawls_total",
			Help: "Scans whose primary markup failed the reliability gate.",
		},
	)
	verification := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitescope_verification_score",
			Help:    "Verification score of reconciled scans.",
			Buckets: []float64{10, 25, 50, 60, 70, 80, 90, 100},
		},
	)
	checks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitescope_validation_checks_total",
			Help: "Validation checks by outcome.",
		},
		[]string{"outcome"},
	)
	transitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitescope_task_transitions_total",
			Help: "Task lifecycle transitions applied by the synchronizer.",
		},
		[]string{"transition"},
	)
	persistence := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitescope_persistence_failures_total",
			Help: "Writes that failed after the per-row retry.",
		},
		[]string{"op"},
	)
	scans := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitescope_scans_total",
			Help: "Processed scans by result.",
		},
		[]string{"result"},
	)

	registry.MustRegister(collectorOutcomes, phaseDuration, unreliable, verification, checks, transitions, persistence, scans)

	return &Metrics{
		Registry:            registry,
		CollectorOutcomes:   collectorOutcomes,
		PhaseDuration:       phaseDuration,
		UnreliableCrawls:    unreliable,
		VerificationScore:   verification,
		ValidationChecks:    checks,
		TaskTransitions:     transitions,
		PersistenceFailures: persistence,
		ScansTotal:          scans,
	}
}

func (m *Metrics) ObserveCollector(name string, failed bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if failed {
		outcome = "failed"
	}
	m.CollectorOutcomes.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (m *Metrics) IncUnreliableCrawl() {
	if m == nil {
		return
	}
	m.UnreliableCrawls.Inc()
}

func (m *Metrics) ObserveVerification(score int) {
	if m == nil {
		return
	}
	m.VerificationScore.Observe(float64(score))
}

func (m *Metrics) IncCheck(outcome string) {
	if m == nil {
		return
	}
	m.ValidationChecks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddTransitions(transition string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.TaskTransitions.WithLabelValues(transition).Add(float64(n))
}

func (m *Metrics) IncPersistenceFailure(op string) {
	if m == nil {
		return
	}
	m.PersistenceFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) IncScan(result string) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(result).Inc()
}
