package ws

import "sync"

// Queue is the unbounded outbound buffer between frame producers
// (session handlers, the lobby broadcast, the orchestrator) and one
// connection's writePump. Send never blocks, so registries may enqueue
// while holding their locks.
type Queue struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	notify chan struct{}
}

func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Send appends a frame and wakes the consumer. It reports false once the
// queue has been closed.
func (q *Queue) Send(frame []byte) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.frames = append(q.frames, frame)
	q.mu.Unlock()

	q.wake()
	return true
}

// Next pops the oldest pending frame without blocking.
func (q *Queue) Next() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) == 0 {
		return nil, false
	}
	frame := q.frames[0]
	q.frames = q.frames[1:]
	return frame, true
}

// Wait returns the channel the consumer selects on. A single token covers
// any number of pending frames; the consumer drains with Next until empty.
func (q *Queue) Wait() <-chan struct{} {
	return q.notify
}

// Close rejects further sends and wakes the consumer so it can drain the
// remaining frames and exit. Closing twice is a no-op.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.wake()
}

// IsClosed reports whether Close has been called.
func (q *Queue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of pending frames.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
