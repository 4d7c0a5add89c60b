package testutil

import (
	"sync"
	"time"
)

// ManualFrames is a frame source driven by the test. It satisfies the
// engine's FrameSource interface.
//
// Send blocks until the driver has received the frame, so a test knows the
// driver is busy with that frame when Send returns.
type ManualFrames struct {
	ch chan time.Time

	mu      sync.Mutex
	stopped bool
	closed  bool
}

// NewManualFrames creates an idle frame source.
func NewManualFrames() *ManualFrames {
	return &ManualFrames{ch: make(chan time.Time)}
}

// Frames returns the channel the driver reads.
func (f *ManualFrames) Frames() <-chan time.Time { return f.ch }

// Send delivers one frame.
func (f *ManualFrames) Send(now time.Time) {
	f.ch <- now
}

// Close ends the frame stream, making the driver return.
func (f *ManualFrames) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}

// Stop is called by the driver when it returns.
func (f *ManualFrames) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

// Stopped reports whether the driver released the source.
func (f *ManualFrames) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}
