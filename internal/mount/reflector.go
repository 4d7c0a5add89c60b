package mount

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/scenecast/internal/compiler"
	"github.com/roach88/scenecast/internal/engine"
	"github.com/roach88/scenecast/internal/ir"
	"github.com/roach88/scenecast/internal/markup"
	"github.com/roach88/scenecast/internal/metrics"
)

// Rebinder accepts a newly resolved composition. *engine.Player implements
// it.
type Rebinder interface {
	Rebind(*ir.Composition)
}

// Retimed forwards rebinds to Target and keeps a bounded timeline's
// duration in step with the composition. A composition that became open
// leaves the duration unchanged.
type Retimed struct {
	Target   Rebinder
	Timeline *engine.Timeline
}

// Rebind implements Rebinder.
func (r Retimed) Rebind(comp *ir.Composition) {
	if r.Timeline.Options().Mode == engine.ModeBounded {
		if total, ok := comp.TotalDuration(); ok {
			r.Timeline.SetDuration(total)
		}
	}
	r.Target.Rebind(comp)
}

// Reflector turns document edits into player rebinds.
//
// Every committed patch batch only marks the reflector dirty. Flush, run
// once per frame, does the actual work, so a burst of edits between two
// frames costs one serialize, one resolve and one rebind.
//
// Thread-safety: patches may be applied from any goroutine. Flush must run
// on the driver goroutine, since it calls Rebind.
type Reflector struct {
	doc     *markup.Document
	target  Rebinder
	opts    []compiler.Option
	metrics *metrics.Metrics
	logger  *slog.Logger

	onError      func(error)
	onSerialized func(string)

	dirty  atomic.Bool
	source string
	stop   func()
}

// ReflectorOption configures a Reflector.
type ReflectorOption func(*Reflector)

// WithResolveOptions passes options through to compiler.Resolve.
func WithResolveOptions(opts ...compiler.Option) ReflectorOption {
	return func(r *Reflector) { r.opts = append(r.opts, opts...) }
}

// WithMetrics counts completed reflections.
func WithMetrics(m *metrics.Metrics) ReflectorOption {
	return func(r *Reflector) { r.metrics = m }
}

// WithReflectorLogger sets the logger.
func WithReflectorLogger(l *slog.Logger) ReflectorOption {
	return func(r *Reflector) { r.logger = l }
}

// WithResolveErrorHandler receives resolution failures. The player keeps
// its previous composition when one occurs.
func WithResolveErrorHandler(fn func(error)) ReflectorOption {
	return func(r *Reflector) { r.onError = fn }
}

// WithSerialized receives the re-serialized markup after each successful
// reflection.
func WithSerialized(fn func(string)) ReflectorOption {
	return func(r *Reflector) { r.onSerialized = fn }
}

// NewReflector starts observing doc.
func NewReflector(doc *markup.Document, target Rebinder, opts ...ReflectorOption) *Reflector {
	r := &Reflector{doc: doc, target: target}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.stop = doc.Observe(func(markup.Change) {
		r.dirty.Store(true)
	})
	return r
}

// Dirty reports whether an edit is waiting for Flush.
func (r *Reflector) Dirty() bool { return r.dirty.Load() }

// Source returns the markup produced by the last successful reflection.
func (r *Reflector) Source() string { return r.source }

// Flush reflects pending edits. It reports whether a rebind happened.
// On a resolution failure the target keeps its composition and the error is
// both returned and passed to the error handler.
func (r *Reflector) Flush() (bool, error) {
	if !r.dirty.Swap(false) {
		return false, nil
	}

	text, err := r.doc.Serialize()
	if err != nil {
		return false, r.fail(err)
	}

	comp, err := compiler.Resolve(r.doc.Root(), r.opts...)
	if err != nil {
		return false, r.fail(err)
	}

	r.target.Rebind(comp)
	r.source = text
	r.metrics.Reflected()
	r.logger.Debug("reflected document edits", "composition", comp.ID, "hash", comp.Hash)

	if r.onSerialized != nil {
		r.onSerialized(text)
	}
	return true, nil
}

// FrameHook adapts Flush to engine.Driver.OnFrame.
func (r *Reflector) FrameHook() func(time.Time) {
	return func(time.Time) {
		// Failures already reach the error handler and the log
		_, _ = r.Flush()
	}
}

// Close stops observing the document.
func (r *Reflector) Close() {
	if r.stop != nil {
		r.stop()
		r.stop = nil
	}
}

func (r *Reflector) fail(err error) error {
	r.logger.Warn("reflection failed, keeping previous composition", "error", err)
	if r.onError != nil {
		r.onError(err)
	}
	return err
}
