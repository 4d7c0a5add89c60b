package timeexpr

// RefKind identifies what a reference points at.
type RefKind int

const (
	RefScene RefKind = iota + 1
	RefCue
	RefPrev
	RefNext
)

func (k RefKind) String() string {
	switch k {
	case RefScene:
		return "scene"
	case RefCue:
		return "cue"
	case RefPrev:
		return "prev"
	case RefNext:
		return "next"
	default:
		return "unknown"
	}
}

// Edge selects the start or end of a referenced window.
type Edge int

const (
	EdgeStart Edge = iota
	EdgeEnd
)

func (e Edge) String() string {
	if e == EdgeEnd {
		return "end"
	}
	return "start"
}

// Context exposes the times visible while evaluating one expression.
// Every lookup returns ok=false when the referent is not resolved yet.
type Context interface {
	FPS() float64
	Scene(id string, edge Edge) (float64, bool)
	Cue(id string, edge Edge) (float64, bool)
	Sibling(dir RefKind, edge Edge) (float64, bool)
}

// Window is a resolved start with an optional end.
type Window struct {
	Start float64
	End   *float64
}

func (w Window) edge(e Edge) (float64, bool) {
	if e == EdgeEnd {
		if w.End == nil {
			return 0, false
		}
		return *w.End, true
	}
	return w.Start, true
}

// Fixed is a Context backed by plain maps. The zero value with only Rate set
// is the empty context used for composition-level attributes.
type Fixed struct {
	Rate   float64
	Scenes map[string]Window
	Cues   map[string]Window
	Prev   *Window
	Next   *Window
}

func (f Fixed) FPS() float64 { return f.Rate }

func (f Fixed) Scene(id string, edge Edge) (float64, bool) {
	w, ok := f.Scenes[id]
	if !ok {
		return 0, false
	}
	return w.edge(edge)
}

func (f Fixed) Cue(id string, edge Edge) (float64, bool) {
	w, ok := f.Cues[id]
	if !ok {
		return 0, false
	}
	return w.edge(edge)
}

func (f Fixed) Sibling(dir RefKind, edge Edge) (float64, bool) {
	w := f.Prev
	if dir == RefNext {
		w = f.Next
	}
	if w == nil {
		return 0, false
	}
	return w.edge(edge)
}
