package persist

import "sync"

// write is one pending durable write.
type write struct {
	key     string
	payload []byte
}

// writeQueue is a thread-safe FIFO queue for pending writes.
//
// The queue is unbounded so the dispatching goroutine never blocks on storage.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the drain loop.
type writeQueue struct {
	mu     sync.Mutex
	writes []write
	closed bool
	signal chan struct{} // Signals write availability (buffered, size 1)
}

func newWriteQueue() *writeQueue {
	return &writeQueue{
		writes: make([]write, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a write to the back of the queue.
// Returns false if the queue is closed.
func (q *writeQueue) Enqueue(w write) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.writes = append(q.writes, w)

	// Non-blocking: the buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front write without blocking.
func (q *writeQueue) TryDequeue() (write, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.writes) == 0 {
		return write{}, false
	}

	w := q.writes[0]

	// Release the payload so the backing array doesn't pin it
	q.writes[0] = write{}

	if len(q.writes) == 1 {
		q.writes = q.writes[:0]
	} else {
		q.writes = q.writes[1:]
	}

	return w, true
}

// Wait returns a channel that signals when writes may be available.
// The channel is closed when the queue is closed.
func (q *writeQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *writeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.writes)
}

// Drained reports whether the queue is closed and empty.
func (q *writeQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.writes) == 0
}

// Close stops accepting writes and wakes the drain loop.
func (q *writeQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
