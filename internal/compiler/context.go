package compiler

import "github.com/roach88/scenecast/internal/timeexpr"

// window is a resolved start and optional end, in absolute seconds.
type window = timeexpr.Window

// sceneContext is the timeexpr.Context for one scene attempt. It reads
// committed scenes and cues from the resolver and overlays what the attempt
// has produced so far; nothing reaches the resolver until the attempt
// succeeds.
type sceneContext struct {
	r     *resolver
	index int // scene position

	selfStart *float64
	selfEnd   *float64
	cues      map[string]window
}

var _ timeexpr.Context = (*sceneContext)(nil)

func newSceneContext(r *resolver, index int) *sceneContext {
	return &sceneContext{r: r, index: index, cues: make(map[string]window)}
}

func (c *sceneContext) FPS() float64 { return c.r.fps }

func (c *sceneContext) Scene(id string, edge timeexpr.Edge) (float64, bool) {
	if c.index >= 0 && id == c.r.scenes[c.index].ID() {
		if edge == timeexpr.EdgeStart && c.selfStart != nil {
			return *c.selfStart, true
		}
		if edge == timeexpr.EdgeEnd && c.selfEnd != nil {
			return *c.selfEnd, true
		}
	}
	w, ok := c.r.sceneTimes[id]
	if !ok {
		return 0, false
	}
	return edgeOf(w, edge)
}

func (c *sceneContext) Cue(id string, edge timeexpr.Edge) (float64, bool) {
	if w, ok := c.cues[id]; ok {
		return edgeOf(w, edge)
	}
	w, ok := c.r.cueTimes[id]
	if !ok {
		return 0, false
	}
	return edgeOf(w, edge)
}

func (c *sceneContext) Sibling(dir timeexpr.RefKind, edge timeexpr.Edge) (float64, bool) {
	i := c.index - 1
	if dir == timeexpr.RefNext {
		i = c.index + 1
	}
	if c.index < 0 || i < 0 || i >= len(c.r.scenes) {
		return 0, false
	}
	return c.Scene(c.r.scenes[i].ID(), edge)
}

func edgeOf(w window, edge timeexpr.Edge) (float64, bool) {
	if edge == timeexpr.EdgeEnd {
		if w.End == nil {
			return 0, false
		}
		return *w.End, true
	}
	return w.Start, true
}
