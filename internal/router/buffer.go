package router

import (
	"sync"
)

// growPercent is the fill level at which a buffer doubles.
const growPercent = 70

// GrowableBuffer is a thread-safe FIFO ring that doubles its capacity
// once it is 70% full, so producers never block or drop.
type GrowableBuffer[T any] struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond
	ring     []T
	head     int // next read
	count    int
	closed   bool

	pushed  int64
	popped  int64
	resizes int
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Count         int   `json:"count"`
	Capacity      int   `json:"capacity"`
	TotalReceived int64 `json:"total_received"` // Items accepted by Send
	TotalSent     int64 `json:"total_sent"`     // Items handed out to receivers
	ResizeCount   int   `json:"resize_count"`
}

// NewGrowableBuffer creates a buffer with the given initial capacity (minimum 1).
func NewGrowableBuffer[T any](initialCapacity int) *GrowableBuffer[T] {
	b := &GrowableBuffer[T]{ring: make([]T, max(initialCapacity, 1))}
	b.nonEmpty = sync.NewCond(&b.mu)
	return b
}

// Send appends an item, growing first if the buffer would reach 70% full.
// It returns false once the buffer is closed.
func (b *GrowableBuffer[T]) Send(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}
	if b.count+1 >= max(len(b.ring)*growPercent/100, 1) {
		b.grow()
	}

	b.ring[(b.head+b.count)%len(b.ring)] = item
	b.count++
	b.pushed++

	b.nonEmpty.Signal()
	return true
}

// Receive blocks until an item is available. It returns false once the
// buffer is closed and empty.
func (b *GrowableBuffer[T]) Receive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.nonEmpty.Wait()
	}
	return b.pop()
}

// TryReceive returns the oldest item without blocking.
func (b *GrowableBuffer[T]) TryReceive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pop()
}

// DrainTo removes up to max items (all of them if max <= 0), oldest first.
func (b *GrowableBuffer[T]) DrainTo(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.count
	if max > 0 && max < n {
		n = max
	}
	if n == 0 {
		return nil
	}

	out := make([]T, 0, n)
	for len(out) < n {
		item, _ := b.pop()
		out = append(out, item)
	}
	return out
}

// Close stops accepting items and wakes blocked receivers. Items already
// buffered can still be received.
func (b *GrowableBuffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.nonEmpty.Broadcast()
}

// Len returns the number of buffered items.
func (b *GrowableBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the current capacity.
func (b *GrowableBuffer[T]) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ring)
}

// Stats returns buffer statistics.
func (b *GrowableBuffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:         b.count,
		Capacity:      len(b.ring),
		TotalReceived: b.pushed,
		TotalSent:     b.popped,
		ResizeCount:   b.resizes,
	}
}

// pop removes the oldest item. Must be called with lock held.
func (b *GrowableBuffer[T]) pop() (T, bool) {
	var zero T
	if b.count == 0 {
		return zero, false
	}

	item := b.ring[b.head]
	b.ring[b.head] = zero
	b.head = (b.head + 1) % len(b.ring)
	b.count--
	b.popped++
	return item, true
}

// grow doubles the capacity and unwraps the ring. Must be called with lock held.
func (b *GrowableBuffer[T]) grow() {
	next := make([]T, len(b.ring)*2)
	n := copy(next, b.ring[b.head:])
	if n < b.count {
		copy(next[n:], b.ring[:b.count-n])
	}

	b.ring = next
	b.head = 0
	b.resizes++
}
