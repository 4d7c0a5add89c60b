package engine

import "sync/atomic"

// Sequencer is a monotonic logical clock for event ordering.
//
// Every emitted Event is stamped with a strictly increasing Seq from the
// sequencer its player uses. Players sharing a sequencer produce one total
// order across all of them, which is what the trace store records.
//
// Thread-safety: Sequencer is safe for concurrent use (atomic operations),
// though in practice only the driver goroutine calls Next().
type Sequencer struct {
	seq atomic.Int64
}

// NewSequencer creates a sequencer starting at 0.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// NewSequencerAt creates a sequencer starting at a specific number.
// Used to continue a recorded session.
func NewSequencerAt(start int64) *Sequencer {
	s := &Sequencer{}
	s.seq.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequencer) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last issued number without incrementing.
func (s *Sequencer) Current() int64 {
	return s.seq.Load()
}
