package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest(target string) request {
	return request{cmd: Command{Op: OpOrder, Target: target}, reply: make(chan result, 1)}
}

func TestCommandQueue_FIFO(t *testing.T) {
	q := newCommandQueue()

	for _, id := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(testRequest(id)))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"A", "B", "C"} {
		r, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, r.cmd.Target)
	}
	assert.Equal(t, 0, q.Len())
}

func TestCommandQueue_TryDequeue_Empty(t *testing.T) {
	q := newCommandQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestCommandQueue_WaitSignals(t *testing.T) {
	q := newCommandQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(testRequest("late"))
	}()

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("Wait() did not signal after Enqueue")
	}

	r, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "late", r.cmd.Target)
}

func TestCommandQueue_SignalsCoalesce(t *testing.T) {
	q := newCommandQueue()
	q.Enqueue(testRequest("1"))
	q.Enqueue(testRequest("2"))

	// One buffered signal for two requests.
	<-q.Wait()
	select {
	case <-q.Wait():
		t.Fatal("expected a single coalesced signal")
	default:
	}
	assert.Equal(t, 2, q.Len())
}

func TestCommandQueue_Close(t *testing.T) {
	q := newCommandQueue()
	q.Close()
	q.Close() // idempotent

	assert.False(t, q.Enqueue(testRequest("x")), "enqueue after close should fail")

	select {
	case _, open := <-q.Wait():
		assert.False(t, open, "signal channel should be closed")
	default:
		t.Fatal("Wait() should not block after Close")
	}
}
