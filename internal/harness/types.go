package harness

import (
	"fmt"

	"github.com/roach88/scenecast/internal/engine"
)

// TraceEvent is one entry of a scenario trace: a player event or a handler
// call. Hook calls share the sequence of the transition that fired them.
type TraceEvent struct {
	Type  string           `json:"type"` // "event" or "hook"
	Seq   int64            `json:"seq"`
	Kind  engine.EventKind `json:"kind"`
	ID    string           `json:"id"`
	Time  float64          `json:"time"`
	Frame int64            `json:"frame"`

	// Handler and Source are set for hook entries.
	Handler string `json:"handler,omitempty"`
	Source  string `json:"source,omitempty"`
}

// Label renders the entry as "kind:id", the form used by event_order.
func (e TraceEvent) Label() string {
	return fmt.Sprintf("%s:%s", e.Kind, e.ID)
}

// FinalState is the player and timeline state after the last step.
type FinalState struct {
	Scene   string   `json:"scene,omitempty"`
	Cues    []string `json:"cues"`
	Visible []string `json:"visible"`
	Time    float64  `json:"time"`
	Frame   int64    `json:"frame"`
	Running bool     `json:"running"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// SessionID identifies the recorded trace in the scenario's store.
	SessionID string `json:"session_id"`

	// Trace contains all events and hook calls in order.
	Trace []TraceEvent `json:"trace"`

	// State is the final player state.
	State FinalState `json:"state"`

	// Errors contains assertion and step failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// OnEvent implements engine.Listener.
func (r *Result) OnEvent(ev engine.Event) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:  "event",
		Seq:   ev.Seq,
		Kind:  ev.Kind,
		ID:    ev.ID,
		Time:  ev.Time,
		Frame: ev.Frame,
	})
}

// addHookTrace records a handler call.
func (r *Result) addHookTrace(call engine.HookCall) {
	var seq int64
	if n := len(r.Trace); n > 0 {
		seq = r.Trace[n-1].Seq
	}
	r.Trace = append(r.Trace, TraceEvent{
		Type:    "hook",
		Seq:     seq,
		Kind:    call.Event,
		ID:      call.Target,
		Time:    call.Time,
		Frame:   call.Frame,
		Handler: call.Handler,
		Source:  call.Source,
	})
}

// Events returns the trace without hook entries.
func (r *Result) Events() []TraceEvent {
	out := make([]TraceEvent, 0, len(r.Trace))
	for _, e := range r.Trace {
		if e.Type == "event" {
			out = append(out, e)
		}
	}
	return out
}
