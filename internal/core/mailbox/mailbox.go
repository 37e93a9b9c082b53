// Package mailbox provides an unbounded multi-producer queue that a single
// consumer drains without blocking.
package mailbox

import "sync"

// Mailbox buffers values posted from any goroutine until Drain is called.
type Mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	notify chan struct{}
}

// New creates an empty mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{notify: make(chan struct{}, 1)}
}

// Send enqueues a value. It never blocks and silently drops the value once
// the mailbox has been closed.
func (box *Mailbox[T]) Send(value T) {
	box.mu.Lock()
	if box.closed {
		box.mu.Unlock()
		return
	}
	box.items = append(box.items, value)
	box.mu.Unlock()

	select {
	case box.notify <- struct{}{}:
	default:
	}
}

// Drain removes and returns every pending value in arrival order.
func (box *Mailbox[T]) Drain() []T {
	box.mu.Lock()
	defer box.mu.Unlock()
	items := box.items
	box.items = nil
	return items
}

// Ready is signalled after a Send. Consumers that sleep between drains can
// select on it to wake early.
func (box *Mailbox[T]) Ready() <-chan struct{} {
	return box.notify
}

// Close stops accepting values. Pending values can still be drained.
func (box *Mailbox[T]) Close() {
	box.mu.Lock()
	box.closed = true
	box.mu.Unlock()
}
