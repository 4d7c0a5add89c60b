// Package metrics holds the Prometheus collectors for the resolver and the
// playback scheduler.
//
// A nil *Metrics is valid and records nothing, so library code can take an
// optional *Metrics without guarding every call.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scenecast"

// Metrics groups every collector the module exports.
type Metrics struct {
	resolvePasses   prometheus.Histogram
	resolveDuration prometheus.Histogram
	resolveFailures *prometheus.CounterVec
	ticks           *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	playbackTime    *prometheus.GaugeVec
	reflections     prometheus.Counter
	hookFailures    prometheus.Counter
}

// New creates the collectors and registers them with reg. Pass
// prometheus.NewRegistry() in tests to keep registrations isolated.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		resolvePasses: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "passes",
			Help:      "Fixed-point passes needed to resolve a composition.",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 12, 16},
		}),
		resolveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "duration_seconds",
			Help:      "Time spent resolving a composition.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~200ms
		}),
		resolveFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "failures_total",
			Help:      "Failed resolutions by error code.",
		}, []string{"code"}),
		ticks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Clock ticks delivered, by synchronization group.",
		}, []string{"group"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "transitions_total",
			Help:      "Transition events emitted, by event kind.",
		}, []string{"kind"}), // kind: scene-start|scene-end|cue-start|cue-end|component-show|component-hide
		playbackTime: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "playback_time_seconds",
			Help:      "Current clock time, by synchronization group.",
		}, []string{"group"}),
		reflections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mount",
			Name:      "reflections_total",
			Help:      "Re-resolve and rebind passes triggered by document edits.",
		}),
		hookFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "hook_failures_total",
			Help:      "Handler hook invocations that returned an error.",
		}),
	}
}

// ObserveResolve records a successful resolution.
func (m *Metrics) ObserveResolve(passes int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.resolvePasses.Observe(float64(passes))
	m.resolveDuration.Observe(elapsed.Seconds())
}

// ResolveFailed counts a failed resolution.
func (m *Metrics) ResolveFailed(code string) {
	if m == nil {
		return
	}
	m.resolveFailures.WithLabelValues(code).Inc()
}

// Tick records one delivered tick.
func (m *Metrics) Tick(group string, seconds float64) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(group).Inc()
	m.playbackTime.WithLabelValues(group).Set(seconds)
}

// Transition counts one emitted transition event.
func (m *Metrics) Transition(kind string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind).Inc()
}

// Reflected counts one change-reflection pass.
func (m *Metrics) Reflected() {
	if m == nil {
		return
	}
	m.reflections.Inc()
}

// HookFailed counts one failed handler hook.
func (m *Metrics) HookFailed() {
	if m == nil {
		return
	}
	m.hookFailures.Inc()
}
