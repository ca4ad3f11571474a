package events

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrQueueClosed = errors.New("event queue is closed")
)

// Queue is an unbounded FIFO of events. Publish never blocks and never
// drops; consumers call Next and acknowledge each event with Done.
type Queue struct {
	mu      sync.Mutex
	items   []Event
	pending int
	closed  bool
	ready   chan struct{}
	done    chan struct{}
	idle    chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Publish appends an event.
func (q *Queue) Publish(_ context.Context, event Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.pending == 0 {
		q.idle = make(chan struct{})
	}
	q.pending++
	q.items = append(q.items, event)
	q.signal()
	return nil
}

// Next blocks until an event is available. ok is false once the queue is
// closed and drained, or ctx is done.
func (q *Queue) Next(ctx context.Context) (Event, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			event := q.items[0]
			q.items[0] = Event{}
			q.items = q.items[1:]
			if len(q.items) > 0 {
				q.signal()
			}
			q.mu.Unlock()
			return event, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return Event{}, false
		}

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			return Event{}, false
		}
	}
}

// Done acknowledges that an event returned by Next has been handled.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending == 0 {
		return
	}
	q.pending--
	if q.pending == 0 {
		close(q.idle)
	}
}

// Flush waits until every published event has been acknowledged.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	if q.pending == 0 {
		q.mu.Unlock()
		return nil
	}
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of events waiting to be taken.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further publishes. Events already queued are still
// returned by Next.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
