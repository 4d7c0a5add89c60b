package store

import (
	"context"
	"sync"

	"github.com/roach88/scenecast/internal/engine"
)

// Recorder is an engine.Listener that buffers a session's events in memory
// until Flush writes them.
//
// OnEvent runs on the driver goroutine and never touches the database, so
// recording cannot stall a frame. Flush is typically called from a frame
// hook every few frames and once more at shutdown.
//
// Thread-safety: OnEvent and Flush may run on different goroutines.
type Recorder struct {
	store   *Store
	session string

	mu  sync.Mutex
	buf []engine.Event
}

// NewRecorder creates a recorder for an already written session.
func NewRecorder(s *Store, sessionID string) *Recorder {
	return &Recorder{store: s, session: sessionID}
}

// Session returns the session id events are recorded under.
func (r *Recorder) Session() string { return r.session }

// OnEvent buffers ev.
func (r *Recorder) OnEvent(ev engine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = append(r.buf, ev)
}

// Pending returns the number of buffered events.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// Flush writes buffered events in one transaction. On failure the events
// stay buffered for the next Flush.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	batch := r.buf
	r.buf = nil
	r.mu.Unlock()

	if err := r.store.WriteEvents(ctx, r.session, batch); err != nil {
		r.mu.Lock()
		r.buf = append(batch, r.buf...)
		r.mu.Unlock()
		return err
	}
	return nil
}
