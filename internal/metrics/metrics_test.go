package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveResolve(3, 2*time.Millisecond)
	m.ResolveFailed("E104")
	m.ResolveFailed("E104")
	m.Tick("main", 1.5)
	m.Tick("main", 1.6)
	m.Transition("scene-start")
	m.Reflected()
	m.HookFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.resolveFailures.WithLabelValues("E104")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticks.WithLabelValues("main")))
	assert.Equal(t, 1.6, testutil.ToFloat64(m.playbackTime.WithLabelValues("main")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("scene-start")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reflections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hookFailures))
	assert.Equal(t, 1, testutil.CollectAndCount(m.resolvePasses))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveResolve(1, time.Second)
		m.ResolveFailed("x")
		m.Tick("g", 0)
		m.Transition("tick")
		m.Reflected()
		m.HookFailed()
	})
}
