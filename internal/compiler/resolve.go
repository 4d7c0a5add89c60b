package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/roach88/scenecast/internal/ir"
	"github.com/roach88/scenecast/internal/markup"
	"github.com/roach88/scenecast/internal/metrics"
	"github.com/roach88/scenecast/internal/timeexpr"
)

// Composition defaults.
const (
	DefaultFPS    = 30.0
	DefaultWidth  = 1280
	DefaultHeight = 720

	// fallbackDuration is the length given to sequence children that have
	// no other way to end.
	fallbackDuration = 1.0
)

// Option configures Resolve.
type Option func(*resolver)

// WithMetrics records pass counts, durations and failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *resolver) { r.metrics = m }
}

// WithLogger sets the logger used for per-scene debug output.
func WithLogger(l *slog.Logger) Option {
	return func(r *resolver) { r.logger = l }
}

// WithPassLimit overrides the pass bound (default: scene count + 2).
func WithPassLimit(n int) Option {
	return func(r *resolver) { r.passLimit = n }
}

type exprKey struct {
	el   *markup.Element
	name string
}

type resolver struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	passLimit int

	root     *markup.Element
	rootPath string
	fps      float64
	seed     int64
	base     cascade

	scenes   []*markup.Element
	cueOwner map[string]string // cue id -> scene id

	// Committed resolution indices.
	sceneTimes map[string]window
	cueTimes   map[string]window
	resolved   []*ir.Scene

	exprs map[exprKey]timeexpr.Expr
}

// Resolve compiles a markup tree into a fully time-resolved composition.
//
// Scenes are resolved by repeated passes: a scene whose expressions reference
// times that are not known yet stays pending and is retried on the next pass.
// Resolution fails when a pass makes no progress or the pass bound is
// exceeded. The tree is not modified.
func Resolve(root *markup.Element, opts ...Option) (*ir.Composition, error) {
	r := &resolver{
		logger:     slog.Default(),
		sceneTimes: make(map[string]window),
		cueTimes:   make(map[string]window),
		cueOwner:   make(map[string]string),
		exprs:      make(map[exprKey]timeexpr.Expr),
	}
	for _, opt := range opts {
		opt(r)
	}

	began := time.Now()
	comp, passes, err := r.resolve(root)
	if err != nil {
		r.metrics.ResolveFailed(errorCode(err))
		return nil, err
	}
	r.metrics.ObserveResolve(passes, time.Since(began))
	return comp, nil
}

func (r *resolver) resolve(root *markup.Element) (*ir.Composition, int, error) {
	if errs := Validate(root); len(errs) > 0 {
		first := errs[0]
		return nil, 0, &CompileError{Code: first.Code, Field: first.Field, Message: first.Message}
	}

	r.root = root
	r.rootPath = segment(root, 0)
	r.fps = DefaultFPS
	if raw, ok := root.Attr("fps"); ok {
		r.fps, _ = strconv.ParseFloat(raw, 64)
	}
	r.base = cascade{scale: 1}.child(root)

	comp := &ir.Composition{
		ID:     root.ID(),
		Title:  root.AttrOr("title", ""),
		FPS:    r.fps,
		Width:  intAttr(root, DefaultWidth, "width"),
		Height: intAttr(root, DefaultHeight, "height"),
	}

	// Composition-level times see no scenes or cues.
	empty := newSceneContext(r, -1)
	var err error
	if comp.Duration, err = r.literal(root, r.rootPath, "duration", empty); err != nil {
		return nil, 0, err
	}
	if comp.Poster, err = r.literal(root, r.rootPath, "poster", empty); err != nil {
		return nil, 0, err
	}

	for i, child := range root.Children {
		switch child.Tag {
		case tagScene:
			r.scenes = append(r.scenes, child)
			for _, c := range child.Children {
				if c.Tag == tagCue {
					r.cueOwner[c.ID()] = child.ID()
				}
			}
		case tagVoiceOver:
			vo, err := r.voiceOver(child, joinPath(r.rootPath, segment(child, i)), empty)
			if err != nil {
				return nil, 0, err
			}
			comp.VoiceOver = vo
			r.seed = vo.Seed
		}
	}

	passes, err := r.fixedPoint()
	if err != nil {
		return nil, passes, err
	}

	comp.Scenes = make([]ir.Scene, len(r.resolved))
	for i, s := range r.resolved {
		comp.Scenes[i] = *s
	}
	if comp.Hash, err = ir.CompositionHash(comp); err != nil {
		return nil, passes, err
	}
	return comp, passes, nil
}

// fixedPoint resolves pending scenes pass by pass until none remain.
func (r *resolver) fixedPoint() (int, error) {
	r.resolved = make([]*ir.Scene, len(r.scenes))
	pending := make([]int, len(r.scenes))
	for i := range pending {
		pending[i] = i
	}

	limit := r.passLimit
	if limit <= 0 {
		limit = len(r.scenes) + 2
	}

	blocked := make(map[string]string)
	pass := 0
	for len(pending) > 0 {
		pass++
		if pass > limit {
			return pass - 1, &ConvergenceError{Passes: limit, Pending: r.sceneIDs(pending)}
		}

		var still []int
		for _, i := range pending {
			id := r.scenes[i].ID()
			result, err := r.attemptScene(i)
			if err != nil {
				if timeexpr.IsUnresolved(err) {
					blocked[id] = err.Error()
					still = append(still, i)
					continue
				}
				return pass, err
			}
			r.commit(i, result)
			delete(blocked, id)
			r.logger.Debug("resolved scene", "scene", id, "pass", pass, "start", result.scene.Start)
		}

		if len(still) == len(pending) {
			ids := r.sceneIDs(still)
			refs := make(map[string]string, len(ids))
			for _, id := range ids {
				refs[id] = blocked[id]
			}
			return pass, &UnresolvedRefsError{
				Scenes: ids,
				Refs:   refs,
				Cycle:  findCycle(r.buildDependencyGraph(still), ids),
			}
		}
		pending = still
	}
	return pass, nil
}

func (r *resolver) commit(i int, res *sceneResult) {
	s := res.scene
	r.resolved[i] = &s
	r.sceneTimes[s.ID] = window{Start: s.Start, End: s.End}
	for id, w := range res.cues {
		r.cueTimes[id] = w
	}
}

func (r *resolver) sceneIDs(indices []int) []string {
	ids := make([]string, len(indices))
	for k, i := range indices {
		ids[k] = r.scenes[i].ID()
	}
	return ids
}

// eval evaluates the time expression held by attribute name of el.
// present is false when the attribute is absent. Unresolved references are
// returned wrapped with the attribute path; every other failure becomes a
// *CompileError.
func (r *resolver) eval(el *markup.Element, path, name string, ctx timeexpr.Context) (value float64, present bool, err error) {
	raw, ok := el.Attr(name)
	if !ok {
		return 0, false, nil
	}
	key := exprKey{el: el, name: name}
	expr, cached := r.exprs[key]
	if !cached {
		expr, err = timeexpr.Parse(raw)
		if err != nil {
			return 0, true, &CompileError{Code: ErrExpression, Field: attrPath(path, name), Message: "cannot parse time expression", Expr: raw, Err: err}
		}
		r.exprs[key] = expr
	}

	v, err := timeexpr.Eval(expr, ctx)
	if err != nil {
		if timeexpr.IsUnresolved(err) {
			return 0, true, fmt.Errorf("%s: %w", attrPath(path, name), err)
		}
		return 0, true, &CompileError{Code: ErrExpression, Field: attrPath(path, name), Message: err.Error(), Expr: raw, Err: err}
	}
	return v, true, nil
}

// evalAny evaluates the first present attribute among aliases.
func (r *resolver) evalAny(el *markup.Element, path string, ctx timeexpr.Context, names ...string) (float64, bool, error) {
	for _, n := range names {
		if _, ok := el.Attr(n); ok {
			return r.eval(el, path, n, ctx)
		}
	}
	return 0, false, nil
}

// literal evaluates an optional attribute that may not reference scenes or
// cues.
func (r *resolver) literal(el *markup.Element, path, name string, ctx timeexpr.Context) (*float64, error) {
	v, ok, err := r.eval(el, path, name, ctx)
	if err != nil {
		if timeexpr.IsUnresolved(err) {
			raw, _ := el.Attr(name)
			return nil, &CompileError{
				Code:    ErrExpression,
				Field:   attrPath(path, name),
				Message: "only literal and timeline expressions are allowed here",
				Expr:    raw,
				Err:     err,
			}
		}
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *resolver) voiceOver(el *markup.Element, path string, ctx timeexpr.Context) (*ir.VoiceOver, error) {
	vo := &ir.VoiceOver{
		Provider:   el.AttrOr("provider", ""),
		Voice:      el.AttrOr("voice", ""),
		Model:      el.AttrOr("model", ""),
		Format:     el.AttrOr("format", ""),
		SampleRate: intAttr(el, 0, "sampleRate", "sample-rate"),
	}
	if raw, ok := el.Attr("seed"); ok {
		vo.Seed, _ = strconv.ParseInt(raw, 10, 64)
	}
	for _, f := range []struct {
		dst     *float64
		aliases []string
	}{
		{&vo.LeadIn, []string{"leadIn", "lead-in"}},
		{&vo.TrimEnd, []string{"trimEnd", "trim-end"}},
	} {
		v, _, err := r.evalAny(el, path, ctx, f.aliases...)
		if err != nil {
			if timeexpr.IsUnresolved(err) {
				return nil, &CompileError{Code: ErrExpression, Field: path, Message: "voiceover times cannot reference scenes or cues", Err: err}
			}
			return nil, err
		}
		*f.dst = v
	}
	return vo, nil
}

func intAttr(el *markup.Element, def int, names ...string) int {
	raw, ok := attr(el, names...)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// IsCompileError returns true if err is or wraps *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}
