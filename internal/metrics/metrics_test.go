package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCollector("dns", true)
	m.ObservePhase("collect", time.Second)
	m.IncUnreliableCrawl()
	m.ObserveVerification(80)
	m.IncCheck("verified")
	m.AddTransitions("created", 2)
	m.IncPersistenceFailure("insert")
	m.IncScan("completed")
}

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveCollector("dns", true)
	m.ObserveCollector("dns", true)
	m.ObserveCollector("dns", false)
	m.AddTransitions("regressed", 3)
	m.AddTransitions("regressed", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CollectorOutcomes.WithLabelValues("dns", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CollectorOutcomes.WithLabelValues("dns", "success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TaskTransitions.WithLabelValues("regressed")))
}
