package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/scenecast/internal/metrics"
)

// HookCall describes an on:<event> handler the player found for a
// transition.
type HookCall struct {
	Event   EventKind // Transition that triggered the call
	Handler string    // Handler name: start, end, show or hide
	Source  string    // Handler text as authored
	Target  string    // Scene, cue or component id
	Scene   string    // Owning scene id
	Time    float64
	Frame   int64
}

// Hook executes authored handlers. The core never interprets handler text;
// a host that supports scripting plugs an interpreter in here.
type Hook func(HookCall) error

// handlerFor maps a transition to the on:<name> attribute that handles it.
func handlerFor(kind EventKind) string {
	switch kind {
	case EventSceneStart, EventCueStart:
		return "start"
	case EventSceneEnd, EventCueEnd:
		return "end"
	case EventComponentShow:
		return "show"
	case EventComponentHide:
		return "hide"
	}
	return ""
}

// runHook invokes hook and logs any failure. Handler failures never reach the
// scheduler.
func runHook(hook Hook, call HookCall, logger *slog.Logger, m *metrics.Metrics) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panicked: %v", r)
			}
		}()
		return hook(call)
	}()
	if err == nil {
		return
	}

	m.HookFailed()
	logger.Warn("handler failed",
		"event", call.Event,
		"target", call.Target,
		"scene", call.Scene,
		"error", err)
}
