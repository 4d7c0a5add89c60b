package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenecast/internal/engine"
)

func ev(seq int64, kind engine.EventKind, id string) TraceEvent {
	return TraceEvent{Type: "event", Seq: seq, Kind: kind, ID: id}
}

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		ev(1, engine.EventTick, "c"),
		ev(2, engine.EventSceneStart, "a"),
		{Type: "hook", Seq: 2, Kind: engine.EventSceneStart, ID: "a", Handler: "start", Source: "go()"},
		ev(3, engine.EventCueStart, "q"),
		ev(4, engine.EventTick, "c"),
		ev(5, engine.EventCueEnd, "q"),
		ev(6, engine.EventTick, "c"),
		ev(7, engine.EventSceneEnd, "a"),
	}
}

func TestAssertEventContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertEventContains(trace, Assertion{Kind: engine.EventCueStart}))
	assert.NoError(t, assertEventContains(trace, Assertion{Kind: engine.EventCueStart, ID: "q"}))

	err := assertEventContains(trace, Assertion{Kind: engine.EventCueStart, ID: "other"})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertEventContains, ae.Type)
	assert.Equal(t, "cue-start:other", ae.Expected)
}

func TestAssertEventContains_IgnoresHookEntries(t *testing.T) {
	trace := []TraceEvent{{Type: "hook", Kind: engine.EventSceneStart, ID: "a"}}
	assert.Error(t, assertEventContains(trace, Assertion{Kind: engine.EventSceneStart}))
}

func TestAssertEventOrder(t *testing.T) {
	trace := sampleTrace()

	tests := []struct {
		name   string
		events []string
		ok     bool
	}{
		{"in order", []string{"scene-start:a", "cue-end:q", "scene-end:a"}, true},
		{"adjacent", []string{"scene-start:a", "cue-start:q"}, true},
		{"repeated label", []string{"tick:c", "tick:c", "tick:c"}, true},
		{"too many repeats", []string{"tick:c", "tick:c", "tick:c", "tick:c"}, false},
		{"reversed", []string{"scene-end:a", "scene-start:a"}, false},
		{"missing", []string{"scene-start:b"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertEventOrder(trace, Assertion{Events: tt.events})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAssertEventCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertEventCount(trace, Assertion{Kind: engine.EventTick, Count: 3}))
	assert.NoError(t, assertEventCount(trace, Assertion{Kind: engine.EventSceneStart, ID: "a", Count: 1}))
	assert.NoError(t, assertEventCount(trace, Assertion{Kind: engine.EventComponentShow, Count: 0}))

	err := assertEventCount(trace, Assertion{Kind: engine.EventTick, Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 2 occurrences of tick")
	assert.Contains(t, err.Error(), "Actual: 3 occurrences")
}

func TestAssertHookCalled(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertHookCalled(trace, Assertion{Source: "go()"}))
	assert.NoError(t, assertHookCalled(trace, Assertion{Source: "go()", ID: "a"}))
	assert.Error(t, assertHookCalled(trace, Assertion{Source: "go()", ID: "b"}))
	assert.Error(t, assertHookCalled(trace, Assertion{Source: "stop()"}))
}

func TestAssertFinalState(t *testing.T) {
	state := FinalState{Scene: "a", Cues: []string{"q"}, Visible: []string{}, Time: 0.30000000000000004, Running: true}

	assert.NoError(t, assertFinalState(state, Assertion{}))
	assert.NoError(t, assertFinalState(state, Assertion{
		Scene:   ptr("a"),
		Cues:    []string{"q"},
		Visible: []string{},
		Time:    ptr(0.3),
		Running: ptr(true),
	}))

	tests := []struct {
		name string
		a    Assertion
		want string
	}{
		{"scene", Assertion{Scene: ptr("")}, `scene = (none)`},
		{"cues", Assertion{Cues: []string{}}, "cues = []"},
		{"visible", Assertion{Visible: []string{"x"}}, "visible = [x]"},
		{"time", Assertion{Time: ptr(1.0)}, "time = 1"},
		{"running", Assertion{Running: ptr(false)}, "running = false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertFinalState(state, tt.a)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "Expected: "+tt.want)
		})
	}
}

func TestAssertionError_ListsTransitions(t *testing.T) {
	err := &AssertionError{
		Type:     AssertEventOrder,
		Expected: "x",
		Actual:   "y",
		Trace:    sampleTrace(),
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: event_order")
	assert.Contains(t, msg, "[2] t=0 scene-start:a")
	assert.NotContains(t, msg, "tick:c")
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertEventContains, Kind: engine.EventTick},
		{Type: AssertEventCount, Kind: engine.EventTick, Count: 9},
		{Type: AssertFinalState, Scene: ptr("a")},
		{Type: AssertDeterministic},
		{Type: "bogus"},
	}, nil)

	require.Len(t, errs, 4)
	assert.Contains(t, errs[0], "event_count")
	assert.Contains(t, errs[1], "final_state requires an assertion context")
	assert.Contains(t, errs[2], "deterministic requires database context")
	assert.Contains(t, errs[3], `unknown assertion type "bogus"`)
}
