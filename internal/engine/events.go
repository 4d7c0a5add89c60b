package engine

// EventKind names a playback event.
type EventKind string

const (
	EventTick          EventKind = "tick"
	EventSceneStart    EventKind = "scene-start"
	EventSceneEnd      EventKind = "scene-end"
	EventCueStart      EventKind = "cue-start"
	EventCueEnd        EventKind = "cue-end"
	EventComponentShow EventKind = "component-show"
	EventComponentHide EventKind = "component-hide"
)

// Event is one edge-triggered playback notification.
//
// Seq orders events across every player that shares a Sequencer. ID is the
// scene, cue or component id; for ticks it is the composition id.
type Event struct {
	Seq   int64     `json:"seq"`
	Kind  EventKind `json:"kind"`
	Group string    `json:"group"`
	ID    string    `json:"id"`
	Time  float64   `json:"time"`
	Frame int64     `json:"frame"`
	FPS   float64   `json:"fps"`
}

// Listener receives playback events on the driver goroutine. Implementations
// must not block.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

// OnEvent calls f(ev).
func (f ListenerFunc) OnEvent(ev Event) { f(ev) }

// EventLog is a Listener that keeps every event in memory.
type EventLog struct {
	Events []Event
}

// OnEvent appends ev.
func (l *EventLog) OnEvent(ev Event) { l.Events = append(l.Events, ev) }

// Kinds returns "kind:id" for each non-tick event, in order.
func (l *EventLog) Kinds() []string {
	var out []string
	for _, ev := range l.Events {
		if ev.Kind == EventTick {
			continue
		}
		out = append(out, string(ev.Kind)+":"+ev.ID)
	}
	return out
}
