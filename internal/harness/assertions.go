package harness

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/scenecast/internal/store"
)

// timeTolerance absorbs float drift from summing frame deltas.
const timeTolerance = 1e-9

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTransitions:\n")
		for _, event := range e.Trace {
			if event.Type == "event" && event.Kind != "tick" {
				fmt.Fprintf(&buf, "  [%d] t=%g %s\n", event.Seq, event.Time, event.Label())
			}
		}
	}

	return buf.String()
}

// matches reports whether ev is an event of the assertion's kind and, when
// the assertion names one, id.
func matches(ev TraceEvent, a Assertion) bool {
	return ev.Type == "event" && ev.Kind == a.Kind && (a.ID == "" || ev.ID == a.ID)
}

func describe(a Assertion) string {
	if a.ID == "" {
		return string(a.Kind)
	}
	return fmt.Sprintf("%s:%s", a.Kind, a.ID)
}

// assertEventContains checks that at least one event matches.
func assertEventContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if matches(ev, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertEventContains,
		Expected: describe(a),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertEventOrder checks that the labelled events appear in order.
// They don't need to be consecutive; each is searched for after the
// previous match.
func assertEventOrder(trace []TraceEvent, a Assertion) error {
	pos := 0
	for _, want := range a.Events {
		found := false
		for pos < len(trace) {
			ev := trace[pos]
			pos++
			if ev.Type == "event" && ev.Label() == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual:   fmt.Sprintf("%s missing or out of order", want),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertEventCount checks the exact number of matching events.
func assertEventCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if matches(ev, a) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, describe(a)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertHookCalled checks that a handler with the given source ran, for
// the given target if one is named.
func assertHookCalled(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Type == "hook" && ev.Source == a.Source && (a.ID == "" || ev.ID == a.ID) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertHookCalled,
		Expected: fmt.Sprintf("handler %q", a.Source),
		Actual:   "never called",
		Trace:    trace,
	}
}

// assertFinalState compares the fields the assertion sets with the final
// player state.
func assertFinalState(state FinalState, a Assertion) error {
	fail := func(field string, want, got any) error {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %v", field, want),
			Actual:   fmt.Sprintf("%s = %v", field, got),
		}
	}

	if a.Scene != nil && *a.Scene != state.Scene {
		return fail("scene", quoted(*a.Scene), quoted(state.Scene))
	}
	if a.Cues != nil && !slices.Equal(a.Cues, state.Cues) {
		return fail("cues", a.Cues, state.Cues)
	}
	if a.Visible != nil && !slices.Equal(a.Visible, state.Visible) {
		return fail("visible", a.Visible, state.Visible)
	}
	if a.Time != nil && math.Abs(*a.Time-state.Time) > timeTolerance {
		return fail("time", *a.Time, state.Time)
	}
	if a.Running != nil && *a.Running != state.Running {
		return fail("running", *a.Running, state.Running)
	}
	return nil
}

func quoted(s string) string {
	if s == "" {
		return "(none)"
	}
	return fmt.Sprintf("%q", s)
}

// assertDeterministic replays the recorded session and requires the same
// events.
func assertDeterministic(ctx context.Context, st *store.Store, sessionID string) error {
	res, err := st.Replay(ctx, sessionID)
	if err != nil {
		return err
	}
	if res.Deterministic() {
		return nil
	}
	first := res.Mismatches[0]
	return &AssertionError{
		Type:     AssertDeterministic,
		Expected: fmt.Sprintf("replay of %d ticks reproduces %d events", res.Ticks, res.Events),
		Actual:   fmt.Sprintf("%d mismatches, first at index %d", len(res.Mismatches), first.Index),
	}
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store     *store.Store
	Ctx       context.Context
	SessionID string
	State     FinalState
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides the recorded store for deterministic
// assertions and the final state.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertEventContains:
			err = assertEventContains(result.Trace, assertion)
		case AssertEventOrder:
			err = assertEventOrder(result.Trace, assertion)
		case AssertEventCount:
			err = assertEventCount(result.Trace, assertion)
		case AssertHookCalled:
			err = assertHookCalled(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires an assertion context", i)
			} else {
				err = assertFinalState(actx.State, assertion)
			}
		case AssertDeterministic:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: deterministic requires database context", i)
			} else {
				err = assertDeterministic(actx.Ctx, actx.Store, actx.SessionID)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
