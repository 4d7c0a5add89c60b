package engine

import "sync"

// commandQueue is a thread-safe FIFO of functions to run on the driver
// goroutine.
//
// The queue is unbounded so Post never blocks the caller. A buffered signal
// channel of size 1 lets the driver wait for work alongside frame ticks and
// context cancellation.
type commandQueue struct {
	mu     sync.Mutex
	cmds   []func()
	closed bool
	signal chan struct{} // Signals availability (buffered, size 1)
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		cmds:   make([]func(), 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds fn to the back of the queue.
// Returns false if the queue is closed.
func (q *commandQueue) Enqueue(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.cmds = append(q.cmds, fn)

	// Non-blocking: the buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes and returns the front command without blocking.
func (q *commandQueue) TryDequeue() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.cmds) == 0 {
		return nil, false
	}
	fn := q.cmds[0]

	// Drop the reference so the closure can be collected
	q.cmds[0] = nil
	if len(q.cmds) == 1 {
		q.cmds = q.cmds[:0]
	} else {
		q.cmds = q.cmds[1:]
	}
	return fn, true
}

// Drain runs every queued command in order, including commands enqueued by
// the commands themselves. Returns the number run.
func (q *commandQueue) Drain() int {
	n := 0
	for {
		fn, ok := q.TryDequeue()
		if !ok {
			return n
		}
		fn()
		n++
	}
}

// Wait returns a channel that signals when commands may be available.
// It is closed by Close.
func (q *commandQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cmds)
}

// Closed reports whether Close has been called.
func (q *commandQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further commands and wakes any waiter.
func (q *commandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
