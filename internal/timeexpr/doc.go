// Package timeexpr implements the time expression language used by
// composition markup attributes such as start, end, duration and poster.
//
// An expression is parsed once into an AST and evaluated against a Context
// that exposes the times resolved so far:
//
//	2s + 500ms            literal arithmetic, seconds
//	24f                   frames, divided by the context frame rate
//	prev.end + 1          previous sibling scene
//	scene(intro).end      another scene's resolved end
//	max(cue(hook), 3)     functions: min, max, clamp, snap
//
// Evaluation is pure. A reference to a scene, cue or sibling whose time is
// not known yet yields an *UnresolvedError (errors.Is(err, ErrUnresolved)),
// which resolvers use as a retry signal rather than a failure.
package timeexpr
