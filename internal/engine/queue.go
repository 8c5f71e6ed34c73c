package engine

import "sync"

// request is a submitted command and its reply channel. reply has a buffer
// of one.
type request struct {
	cmd   Command
	reply chan result
}

type result struct {
	outcome Outcome
	err     error
}

// commandQueue is a FIFO of pending requests, safe for concurrent use.
type commandQueue struct {
	mu       sync.Mutex
	requests []request
	closed   bool
	signal   chan struct{}
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		requests: make([]request, 0, 16),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue appends r. It returns false once the queue is closed.
func (q *commandQueue) Enqueue(r request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.requests = append(q.requests, r)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue pops the oldest request, or reports false if there is none.
func (q *commandQueue) TryDequeue() (request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return request{}, false
	}

	r := q.requests[0]
	q.requests[0] = request{}
	q.requests = q.requests[1:]

	return r, true
}

// Wait returns a channel that fires after Enqueue and is closed by Close.
func (q *commandQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending requests.
func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Close stops further enqueues and wakes the waiter.
func (q *commandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
