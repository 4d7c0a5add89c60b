package mount

import (
	"context"
	"log/slog"
	"sync"
)

// Dispatch schedules fn on the driver goroutine. engine.Driver.Post has this
// signature.
type Dispatch func(fn func()) error

// Mounter fetches markup and hands the text to the driver goroutine.
//
// Only the most recent Mount can call back: starting a new one cancels the
// previous fetch, and a result that arrives after being superseded is
// dropped both before dispatch and again on the driver goroutine.
//
// Thread-safety: Mount, Cancel and Wait are safe for concurrent use. The
// load and error callbacks always run through Dispatch.
type Mounter struct {
	fetch    Fetcher
	dispatch Dispatch
	onLoad   func(source, text string)
	onError  func(error)
	logger   *slog.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// MounterOption configures a Mounter.
type MounterOption func(*Mounter)

// WithErrorHandler receives fetch failures, wrapped in *FetchError.
func WithErrorHandler(fn func(error)) MounterOption {
	return func(m *Mounter) { m.onError = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) MounterOption {
	return func(m *Mounter) { m.logger = l }
}

// NewMounter creates a mounter delivering fetched text to onLoad.
func NewMounter(fetch Fetcher, dispatch Dispatch, onLoad func(source, text string), opts ...MounterOption) *Mounter {
	m := &Mounter{
		fetch:    fetch,
		dispatch: dispatch,
		onLoad:   onLoad,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.onError == nil {
		m.onError = func(err error) {
			m.logger.Error("mount failed", "error", err)
		}
	}
	return m
}

// Mount starts fetching source, superseding any pending mount.
func (m *Mounter) Mount(ctx context.Context, source string) {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.gen++
	gen := m.gen
	fctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	m.logger.Debug("mount started", "source", source)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()

		text, err := m.fetch.Fetch(fctx, source)
		if !m.current(gen) {
			m.logger.Debug("discarding superseded mount", "source", source)
			return
		}

		deliver := func() {
			if !m.current(gen) {
				return
			}
			if err != nil {
				m.onError(&FetchError{Source: source, Err: err})
				return
			}
			m.onLoad(source, text)
		}
		if derr := m.dispatch(deliver); derr != nil {
			m.logger.Warn("mount result dropped", "source", source, "error", derr)
		}
	}()
}

// Cancel aborts any pending mount. Its result will not be delivered.
func (m *Mounter) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.gen++
}

// Wait blocks until every fetch goroutine has returned.
func (m *Mounter) Wait() {
	m.wg.Wait()
}

func (m *Mounter) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen
}
