package compiler

import (
	"fmt"
	"hash/fnv"
	"maps"
	"math/rand/v2"

	"github.com/roach88/scenecast/internal/ir"
	"github.com/roach88/scenecast/internal/markup"
	"github.com/roach88/scenecast/internal/timeexpr"
)

// sceneResult is one successful scene attempt, committed by the caller.
type sceneResult struct {
	scene ir.Scene
	cues  map[string]window
}

// sceneBuilder holds the state of a single scene attempt. A failed attempt
// is dropped whole, so nothing here outlives it.
type sceneBuilder struct {
	r       *resolver
	ctx     *sceneContext
	sceneID string
	start   float64
	counts  map[string]int // derived component ids per type
}

func (r *resolver) scenePath(i int) string {
	for k, child := range r.root.Children {
		if child == r.scenes[i] {
			return joinPath(r.rootPath, segment(child, k))
		}
	}
	return r.rootPath
}

// attemptScene resolves scene i and all of its descendants against the
// committed indices. Children are swept until the scene's own cue windows
// settle, so cues may reference later cues of the same scene and the scene's
// end may reference its own cues.
func (r *resolver) attemptScene(i int) (*sceneResult, error) {
	el := r.scenes[i]
	path := r.scenePath(i)
	ctx := newSceneContext(r, i)
	c := r.base.child(el)

	start, ok, err := r.eval(el, path, "start", ctx)
	if err != nil {
		return nil, err
	}
	if !ok && i > 0 {
		prev := r.scenes[i-1].ID()
		w, done := r.sceneTimes[prev]
		if !done {
			return nil, fmt.Errorf("%s: %w", attrPath(path, "start"), &timeexpr.UnresolvedError{Kind: timeexpr.RefPrev, Edge: timeexpr.EdgeEnd})
		}
		if w.End == nil {
			return nil, &CompileError{
				Code:    ErrOpenPredecessor,
				Field:   attrPath(path, "start"),
				Message: fmt.Sprintf("no start given and previous scene %q has no end", prev),
			}
		}
		start = *w.End
	}
	ctx.selfStart = &start

	// An end that reads cues of this scene is retried after each sweep.
	end, endErr := r.sceneEnd(el, path, ctx, start)
	if endErr != nil && !timeexpr.IsUnresolved(endErr) {
		return nil, endErr
	}
	ctx.selfEnd = end

	var body *sceneBody
	limit := len(el.Children) + 2
	for n := 0; ; n++ {
		before := maps.Clone(ctx.cues)
		sb := &sceneBuilder{r: r, ctx: ctx, sceneID: el.ID(), start: start, counts: make(map[string]int)}
		var err error
		body, err = sb.sweep(el, path, c)

		if endErr != nil {
			v, e := r.sceneEnd(el, path, ctx, start)
			switch {
			case e == nil:
				end, endErr = v, nil
				ctx.selfEnd = end
				if err != nil {
					continue
				}
			case !timeexpr.IsUnresolved(e):
				return nil, e
			default:
				endErr = e
			}
		}

		settled := sameWindows(before, ctx.cues)
		if err == nil && (n == 0 || settled) {
			break
		}
		if err != nil && settled {
			return nil, err
		}
		if n >= limit {
			return nil, unsettled(path, el, before, ctx.cues)
		}
	}
	if endErr != nil {
		return nil, endErr
	}

	if end == nil && body.latest != nil {
		v := *body.latest
		end = &v
	}
	if end != nil && *end < start {
		return nil, negativeWindow(path, start, *end)
	}

	scene := ir.Scene{
		ID:         el.ID(),
		Start:      start,
		End:        end,
		Items:      body.items,
		Cues:       body.cues,
		Layers:     body.layers,
		Components: body.components,
		Handlers:   handlers(el),
	}
	return &sceneResult{scene: scene, cues: ctx.cues}, nil
}

// sceneEnd evaluates the scene's end, else start plus duration. It returns
// nil when neither is authored.
func (r *resolver) sceneEnd(el *markup.Element, path string, ctx *sceneContext, start float64) (*float64, error) {
	if v, ok, err := r.eval(el, path, "end", ctx); err != nil {
		return nil, err
	} else if ok {
		return &v, nil
	}
	if d, ok, err := r.eval(el, path, "duration", ctx); err != nil {
		return nil, err
	} else if ok {
		v := start + d
		return &v, nil
	}
	return nil, nil
}

// sceneBody is the content of a scene produced by one sweep.
type sceneBody struct {
	items      []ir.Item
	cues       []ir.Cue
	layers     []ir.Layer
	components []ir.Component
	latest     *float64
}

// sweep resolves every child of the scene once. A child blocked on an
// unresolved reference does not stop the sweep, so later cues still publish
// their windows for the next one; the first such error is returned.
func (sb *sceneBuilder) sweep(el *markup.Element, path string, c cascade) (*sceneBody, error) {
	body := &sceneBody{}
	var blocked error
	cursor := sb.start
	for k, child := range el.Children {
		cpath := joinPath(path, segment(child, k))
		var err error
		switch child.Tag {
		case tagCue:
			var cue ir.Cue
			if cue, err = sb.cue(child, cpath, c, cursor); err == nil {
				body.cues = append(body.cues, cue)
				body.items = append(body.items, ir.Item{Kind: ir.ItemCue, CueID: cue.ID, Start: cue.Start, End: *cue.End})
				cursor = *cue.End
				body.latest = maxEnd(body.latest, cue.End)
			}

		case tagPause:
			var p *ir.Pause
			if p, err = sb.pause(child, cpath, c.child(child)); err == nil {
				item := ir.Item{Kind: ir.ItemPause, Pause: p, Start: cursor, End: cursor + p.Seconds}
				body.items = append(body.items, item)
				cursor = item.End
				body.latest = maxEnd(body.latest, &item.End)
			}

		case tagLayer:
			var layer ir.Layer
			if layer, err = sb.layer(child, cpath, c); err == nil {
				body.layers = append(body.layers, layer)
				body.latest = maxEnd(body.latest, layer.End)
			}

		default:
			var comp ir.Component
			if comp, err = sb.component(child, cpath, c, sb.start, sb.start, ir.FlowStack); err == nil {
				body.components = append(body.components, comp)
				body.latest = maxEnd(body.latest, comp.End)
			}
		}
		if err != nil {
			if !timeexpr.IsUnresolved(err) {
				return nil, err
			}
			if blocked == nil {
				blocked = err
			}
		}
	}
	if blocked != nil {
		return nil, blocked
	}
	return body, nil
}

func sameWindows(a, b map[string]window) bool {
	return maps.EqualFunc(a, b, sameWindow)
}

func sameWindow(a, b window) bool {
	if a.Start != b.Start || (a.End == nil) != (b.End == nil) {
		return false
	}
	return a.End == nil || *a.End == *b.End
}

// unsettled reports the first cue, in document order, whose window was still
// moving when the sweep limit ran out.
func unsettled(path string, el *markup.Element, before, after map[string]window) error {
	for _, child := range el.Children {
		if child.Tag != tagCue {
			continue
		}
		id := child.ID()
		if w, ok := before[id]; !ok || !sameWindow(w, after[id]) {
			return fmt.Errorf("%s: cue times do not settle: %w", path,
				&timeexpr.UnresolvedError{Kind: timeexpr.RefCue, ID: id, Edge: timeexpr.EdgeStart})
		}
	}
	return fmt.Errorf("%s: cue times do not settle: %w", path, timeexpr.ErrUnresolved)
}

// cue resolves a cue. Offsets are relative to the scene start; without a
// start the cue follows the previous scene item.
func (sb *sceneBuilder) cue(el *markup.Element, path string, parent cascade, cursor float64) (ir.Cue, error) {
	c := parent.child(el)
	id := el.ID()

	start := cursor
	if v, ok, err := sb.r.eval(el, path, "start", sb.ctx); err != nil {
		return ir.Cue{}, err
	} else if ok {
		start = sb.start + c.scale*v
	}
	// The cue's own start is visible to its end expression.
	sb.ctx.cues[id] = window{Start: start}

	cue := ir.Cue{
		ID:       id,
		Label:    el.AttrOr("label", ""),
		Start:    start,
		Handlers: handlers(el),
	}

	var content float64
	known := false
	for k, child := range el.Children {
		cpath := joinPath(path, segment(child, k))
		switch child.Tag {
		case tagVoice:
			seg := ir.Segment{Kind: ir.SegmentVoice, Text: child.Text}
			if d, ok, err := sb.r.eval(child, cpath, "duration", sb.ctx); err != nil {
				return ir.Cue{}, err
			} else if ok {
				seg.Duration = &d
			}
			trim, _, err := sb.r.evalAny(child, cpath, sb.ctx, "trimEnd", "trim-end")
			if err != nil {
				return ir.Cue{}, err
			}
			seg.TrimEnd = trim
			if seg.Duration != nil {
				content += max(0, *seg.Duration-trim) * c.scale
				known = true
			}
			cue.Segments = append(cue.Segments, seg)

		case tagPause:
			p, err := sb.pause(child, cpath, c.child(child))
			if err != nil {
				return ir.Cue{}, err
			}
			cue.Segments = append(cue.Segments, ir.Segment{Kind: ir.SegmentPause, Pause: p})
			content += p.Seconds
			known = true

		case tagBullet:
			cue.Bullets = append(cue.Bullets, child.Text)
		}
	}

	var end float64
	if v, ok, err := sb.r.eval(el, path, "end", sb.ctx); err != nil {
		return ir.Cue{}, err
	} else if ok {
		end = sb.start + c.scale*v
	} else if d, ok, err := sb.r.eval(el, path, "duration", sb.ctx); err != nil {
		return ir.Cue{}, err
	} else if ok {
		end = start + c.scale*d
	} else if known {
		end = start + content
	} else {
		end = start + fallbackDuration
	}
	if end < start {
		return ir.Cue{}, negativeWindow(path, start, end)
	}

	cue.End = &end
	sb.ctx.cues[id] = window{Start: start, End: &end}
	return cue, nil
}

// pause resolves a fixed or gaussian pause. Gaussian samples come from a
// generator seeded by the voiceover seed and the pause's path, so the same
// document always yields the same lengths.
func (sb *sceneBuilder) pause(el *markup.Element, path string, c cascade) (*ir.Pause, error) {
	if v, ok, err := sb.r.eval(el, path, "seconds", sb.ctx); err != nil {
		return nil, err
	} else if ok {
		return &ir.Pause{Seconds: max(0, v) * c.scale}, nil
	}

	opt := func(name string) (*float64, error) {
		v, ok, err := sb.r.eval(el, path, name, sb.ctx)
		if err != nil || !ok {
			return nil, err
		}
		return &v, nil
	}
	p := &ir.Pause{}
	var err error
	for _, f := range []struct {
		dst  **float64
		name string
	}{{&p.Mean, "mean"}, {&p.Std, "std"}, {&p.Min, "min"}, {&p.Max, "max"}} {
		if *f.dst, err = opt(f.name); err != nil {
			return nil, err
		}
	}

	sample := *p.Mean + *p.Std*sampleNormal(sb.r.seed, path)
	if p.Min != nil {
		sample = max(sample, *p.Min)
	}
	if p.Max != nil {
		sample = min(sample, *p.Max)
	}
	p.Seconds = max(0, sample) * c.scale
	return p, nil
}

func sampleNormal(seed int64, path string) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	rng := rand.New(rand.NewPCG(uint64(seed), h.Sum64()))
	return rng.NormFloat64()
}

// layer resolves a layer: a stack container starting at the scene start
// unless timed otherwise.
func (sb *sceneBuilder) layer(el *markup.Element, path string, parent cascade) (ir.Layer, error) {
	c := parent.child(el)
	start, end, err := sb.timing(el, path, c, sb.start, sb.start)
	if err != nil {
		return ir.Layer{}, err
	}
	comps, kidsEnd, err := sb.children(el, path, c, start, ir.FlowStack)
	if err != nil {
		return ir.Layer{}, err
	}
	if end == nil {
		end = kidsEnd
	}
	if end != nil && *end < start {
		return ir.Layer{}, negativeWindow(path, start, *end)
	}
	return ir.Layer{
		ID:         el.ID(),
		Visible:    visible(el),
		Z:          zIndex(el),
		Styles:     c.styles,
		Markup:     c.markup,
		Start:      start,
		End:        end,
		Components: comps,
	}, nil
}

// component resolves a component or container. origin is the start of the
// enclosing container, implicit the start to use when none is authored.
func (sb *sceneBuilder) component(el *markup.Element, path string, parent cascade, origin, implicit float64, parentFlow ir.Flow) (ir.Component, error) {
	c := parent.child(el)
	start, end, err := sb.timing(el, path, c, origin, implicit)
	if err != nil {
		return ir.Component{}, err
	}

	flow := ir.FlowNone
	switch el.Tag {
	case tagSequence:
		flow = ir.FlowSequence
	case tagStack:
		flow = ir.FlowStack
	}
	childFlow := flow
	if childFlow == ir.FlowNone {
		childFlow = ir.FlowStack
	}

	kids, kidsEnd, err := sb.children(el, path, c, start, childFlow)
	if err != nil {
		return ir.Component{}, err
	}
	if end == nil {
		end = kidsEnd
	}
	if end == nil && parentFlow == ir.FlowSequence {
		v := start + fallbackDuration
		end = &v
	}
	if end != nil && *end < start {
		return ir.Component{}, negativeWindow(path, start, *end)
	}

	typ := typeName(el.Tag)
	id := el.ID()
	if id == "" {
		sb.counts[typ]++
		id = fmt.Sprintf("%s/%s-%d", sb.sceneID, typ, sb.counts[typ])
	}

	comp := ir.Component{
		ID:       id,
		Type:     typ,
		Styles:   c.styles,
		Markup:   c.markup,
		Visible:  visible(el),
		Z:        zIndex(el),
		Start:    start,
		End:      end,
		Flow:     flow,
		Children: kids,
		Handlers: handlers(el),
	}
	if p := props(el); len(p) > 0 {
		comp.Props = p
	}
	return comp, nil
}

// children resolves the children of a container under the given flow and
// returns them with the container's implicit end: the cursor after the last
// child for a sequence, the latest child end for a stack, nil when nothing
// inside is timed.
func (sb *sceneBuilder) children(el *markup.Element, path string, c cascade, origin float64, flow ir.Flow) ([]ir.Component, *float64, error) {
	var (
		out    []ir.Component
		latest *float64
		cursor = origin
	)
	for k, child := range el.Children {
		implicit := origin
		if flow == ir.FlowSequence {
			implicit = cursor
		}
		comp, err := sb.component(child, joinPath(path, segment(child, k)), c, origin, implicit, flow)
		if err != nil {
			return nil, nil, err
		}
		if flow == ir.FlowSequence {
			cursor = *comp.End
		}
		latest = maxEnd(latest, comp.End)
		out = append(out, comp)
	}
	if flow == ir.FlowSequence && len(out) > 0 {
		return out, &cursor, nil
	}
	return out, latest, nil
}

// timing evaluates start, end and duration. Authored offsets are relative to
// origin and multiplied by the cascaded time scale.
func (sb *sceneBuilder) timing(el *markup.Element, path string, c cascade, origin, implicit float64) (float64, *float64, error) {
	start := implicit
	if v, ok, err := sb.r.eval(el, path, "start", sb.ctx); err != nil {
		return 0, nil, err
	} else if ok {
		start = origin + c.scale*v
	}

	if v, ok, err := sb.r.eval(el, path, "end", sb.ctx); err != nil {
		return 0, nil, err
	} else if ok {
		end := origin + c.scale*v
		return start, &end, nil
	}
	if d, ok, err := sb.r.eval(el, path, "duration", sb.ctx); err != nil {
		return 0, nil, err
	} else if ok {
		end := start + c.scale*d
		return start, &end, nil
	}
	return start, nil, nil
}

func maxEnd(cur, candidate *float64) *float64 {
	if candidate == nil {
		return cur
	}
	if cur == nil || *candidate > *cur {
		v := *candidate
		return &v
	}
	return cur
}

func negativeWindow(path string, start, end float64) *CompileError {
	return &CompileError{
		Code:    ErrNegativeWindow,
		Field:   path,
		Message: fmt.Sprintf("end %.3fs precedes start %.3fs", end, start),
	}
}
