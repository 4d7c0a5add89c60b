package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandQueue_FIFO(t *testing.T) {
	q := newCommandQueue()
	var got []int
	for i := 1; i <= 3; i++ {
		require.True(t, q.Enqueue(func() { got = append(got, i) }))
	}
	assert.Equal(t, 3, q.Len())

	assert.Equal(t, 3, q.Drain())
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 0, q.Len())
}

func TestCommandQueue_DrainRunsNestedCommands(t *testing.T) {
	q := newCommandQueue()
	var got []string
	q.Enqueue(func() {
		got = append(got, "outer")
		q.Enqueue(func() { got = append(got, "inner") })
	})

	assert.Equal(t, 2, q.Drain())
	assert.Equal(t, []string{"outer", "inner"}, got)
}

func TestCommandQueue_TryDequeueEmpty(t *testing.T) {
	q := newCommandQueue()
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestCommandQueue_SignalsWaiter(t *testing.T) {
	q := newCommandQueue()
	done := make(chan struct{})
	go func() {
		<-q.Wait()
		close(done)
	}()

	q.Enqueue(func() {})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter was not signalled")
	}
}

func TestCommandQueue_Close(t *testing.T) {
	q := newCommandQueue()
	q.Close()
	q.Close() // idempotent

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(func() {}))

	select {
	case _, open := <-q.Wait():
		assert.False(t, open)
	default:
		t.Fatal("closed queue should wake waiters")
	}
}

func TestCommandQueue_ConcurrentEnqueue(t *testing.T) {
	q := newCommandQueue()
	const goroutines = 20
	const perGoroutine = 50

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perGoroutine {
				q.Enqueue(func() {})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*perGoroutine, q.Drain())
}
