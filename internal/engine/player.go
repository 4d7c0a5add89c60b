package engine

import (
	"log/slog"
	"math"

	"github.com/roach88/scenecast/internal/ir"
	"github.com/roach88/scenecast/internal/metrics"
)

// Player classifies the scenes, cues and components of a resolved
// composition against a timeline's ticks and emits transition events.
//
// A Player is a Subscriber: attach it to a group with Registry.Attach.
//
// Thread-safety: Player is NOT safe for concurrent use. OnTick, Rebind and
// the accessors must all run on the driver goroutine.
type Player struct {
	comp *ir.Composition

	listeners []Listener
	hook      Hook
	seq       *Sequencer
	logger    *slog.Logger
	metrics   *metrics.Metrics

	// Active state, each entry holding the handlers captured when it became
	// active so end/hide hooks still fire after a rebind removes the element
	scene      *activeEntry
	cues       []activeEntry
	components []activeEntry

	last   TickInfo
	ticked bool
}

type activeEntry struct {
	id       string
	scene    string
	handlers map[string]string
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithListener adds a listener. Listeners are notified in the order added.
func WithListener(l Listener) PlayerOption {
	return func(p *Player) { p.listeners = append(p.listeners, l) }
}

// WithHook installs the handler hook.
func WithHook(h Hook) PlayerOption {
	return func(p *Player) { p.hook = h }
}

// WithSequencer shares a sequencer between players so their events form one
// total order.
func WithSequencer(s *Sequencer) PlayerOption {
	return func(p *Player) { p.seq = s }
}

// WithLogger sets the logger used for handler failures.
func WithLogger(l *slog.Logger) PlayerOption {
	return func(p *Player) { p.logger = l }
}

// WithMetrics records ticks, transitions and handler failures.
func WithMetrics(m *metrics.Metrics) PlayerOption {
	return func(p *Player) { p.metrics = m }
}

// NewPlayer creates a player for comp.
func NewPlayer(comp *ir.Composition, opts ...PlayerOption) *Player {
	p := &Player{comp: comp}
	for _, opt := range opts {
		opt(p)
	}
	if p.seq == nil {
		p.seq = NewSequencer()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Composition returns the composition currently bound.
func (p *Player) Composition() *ir.Composition { return p.comp }

// OnTick emits a tick event followed by every transition at info.Time:
// scene-end before scene-start, cue-end before cue-start, component-hide
// before component-show.
func (p *Player) OnTick(info TickInfo) {
	p.last = info
	p.ticked = true
	p.metrics.Tick(info.Group, info.Time)
	p.emit(EventTick, p.comp.ID, info)
	p.evaluate(info)
}

// Rebind swaps in a newly resolved composition. If the player has ticked,
// the new composition is evaluated at the last tick's time straight away, so
// removed elements end and new ones start without waiting for a frame.
func (p *Player) Rebind(comp *ir.Composition) {
	p.comp = comp
	if p.ticked {
		p.evaluate(p.last)
	}
}

// ActiveScene returns the id of the active scene.
func (p *Player) ActiveScene() (string, bool) {
	if p.scene == nil {
		return "", false
	}
	return p.scene.id, true
}

// ActiveCues returns active cue ids in document order.
func (p *Player) ActiveCues() []string {
	return ids(p.cues)
}

// VisibleComponents returns visible component ids in document order.
func (p *Player) VisibleComponents() []string {
	return ids(p.components)
}

// Visible reports whether the component with id is shown.
func (p *Player) Visible(id string) bool {
	return indexOf(p.components, id) >= 0
}

func (p *Player) evaluate(info TickInfo) {
	t := info.Time

	// Scenes: last match wins
	var scene *activeEntry
	sceneIdx := -1
	for i := range p.comp.Scenes {
		s := &p.comp.Scenes[i]
		if t >= s.Start && t < p.upper(i) {
			scene = &activeEntry{id: s.ID, scene: s.ID, handlers: s.Handlers}
			sceneIdx = i
		}
	}
	if !sameEntry(p.scene, scene) {
		if p.scene != nil {
			p.transition(EventSceneEnd, *p.scene, info)
		}
		p.scene = scene
		if scene != nil {
			p.transition(EventSceneStart, *scene, info)
		}
	}

	// Cues: half-open, independent of scene activation
	var cues []activeEntry
	for i := range p.comp.Scenes {
		s := &p.comp.Scenes[i]
		upper := p.upper(i)
		for _, c := range s.Cues {
			if within(t, c.Start, c.End, upper) {
				cues = append(cues, activeEntry{id: c.ID, scene: s.ID, handlers: c.Handlers})
			}
		}
	}
	p.cues = p.diff(p.cues, cues, EventCueEnd, EventCueStart, info)

	// Components: only inside the active scene
	var comps []activeEntry
	if sceneIdx >= 0 {
		comps = p.visibleComponents(sceneIdx, t)
	}
	p.components = p.diff(p.components, comps, EventComponentHide, EventComponentShow, info)
}

// upper is the exclusive activation bound of scene i.
func (p *Player) upper(i int) float64 {
	if bound, ok := p.comp.SceneBound(i); ok {
		return bound
	}
	return math.Inf(1)
}

func (p *Player) visibleComponents(i int, t float64) []activeEntry {
	s := &p.comp.Scenes[i]
	upper := p.upper(i)

	var out []activeEntry
	var visit func(cs []ir.Component)
	visit = func(cs []ir.Component) {
		for _, c := range cs {
			if !c.Visible || !within(t, c.Start, c.End, upper) {
				continue
			}
			out = append(out, activeEntry{id: c.ID, scene: s.ID, handlers: c.Handlers})
			visit(c.Children)
		}
	}
	for _, l := range s.Layers {
		if l.Visible && within(t, l.Start, l.End, upper) {
			visit(l.Components)
		}
	}
	visit(s.Components)
	return out
}

// diff fires off for entries leaving and on for entries entering, in that
// order, and returns next.
func (p *Player) diff(prev, next []activeEntry, off, on EventKind, info TickInfo) []activeEntry {
	for _, e := range prev {
		if indexOf(next, e.id) < 0 {
			p.transition(off, e, info)
		}
	}
	for _, e := range next {
		if indexOf(prev, e.id) < 0 {
			p.transition(on, e, info)
		}
	}
	return next
}

func (p *Player) transition(kind EventKind, e activeEntry, info TickInfo) {
	p.metrics.Transition(string(kind))
	p.emit(kind, e.id, info)

	if p.hook == nil {
		return
	}
	name := handlerFor(kind)
	src, ok := e.handlers[name]
	if !ok {
		return
	}
	runHook(p.hook, HookCall{
		Event:   kind,
		Handler: name,
		Source:  src,
		Target:  e.id,
		Scene:   e.scene,
		Time:    info.Time,
		Frame:   info.Frame,
	}, p.logger, p.metrics)
}

func (p *Player) emit(kind EventKind, id string, info TickInfo) {
	ev := Event{
		Seq:   p.seq.Next(),
		Kind:  kind,
		Group: info.Group,
		ID:    id,
		Time:  info.Time,
		Frame: info.Frame,
		FPS:   info.FPS,
	}
	for _, l := range p.listeners {
		l.OnEvent(ev)
	}
}

// within is the half-open [start, end) test; an open end is bounded by upper.
func within(t, start float64, end *float64, upper float64) bool {
	hi := upper
	if end != nil {
		hi = *end
	}
	return t >= start && t < hi
}

func sameEntry(a, b *activeEntry) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.id == b.id
}

func indexOf(entries []activeEntry, id string) int {
	for i, e := range entries {
		if e.id == id {
			return i
		}
	}
	return -1
}

func ids(entries []activeEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.id
	}
	return out
}
