package capture

import (
	"context"
	"sync"
)

// queue is the hand-off buffer between the capture loop and the consumer.
// The write side is safe for any number of producers and never blocks;
// capacity is unbounded, so an unconsumed queue grows without limit if the
// consumer stalls. The read side is owned by a single consumer.
type queue struct {
	mu     sync.Mutex
	items  []RawPacket
	closed bool
	err    error

	// wake has capacity 1 so producers can signal without blocking.
	wake chan struct{}
}

func newQueue() *queue {
	return &queue{wake: make(chan struct{}, 1)}
}

// Push appends one packet. Returns false when the queue has been
// finalized, in which case the packet is silently dropped.
func (q *queue) Push(pkt RawPacket) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, pkt)
	q.mu.Unlock()

	q.signal()
	return true
}

// PopAll blocks until at least one packet is buffered or the queue is
// finalized, then returns every currently buffered packet in push order.
// Once the queue is finalized and drained it returns the terminal error:
// ErrFinalized for a clean close, or the failure passed to Close.
func (q *queue) PopAll(ctx context.Context) ([]RawPacket, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			batch := q.items
			q.items = nil
			q.mu.Unlock()
			return batch, nil
		}
		if q.closed {
			err := q.err
			q.mu.Unlock()
			if err == nil {
				err = ErrFinalized
			}
			return nil, err
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.wake:
		}
	}
}

// Close finalizes the queue. Later pushes are dropped; a consumer blocked
// in PopAll drains what is buffered and then observes err (or ErrFinalized
// when err is nil). Closing twice keeps the first terminal error.
func (q *queue) Close(err error) {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.err = err
	}
	q.mu.Unlock()

	q.signal()
}

func (q *queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
