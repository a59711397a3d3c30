// Package ringbuf provides a fixed-capacity circular buffer used for
// bounded histories and metric sample logs.
package ringbuf

// Buffer is a fixed-capacity circular buffer. When full, Push overwrites
// the oldest element. Buffer is not safe for concurrent use; owners guard
// it with their own locks.
type Buffer[T any] struct {
	buf   []T
	size  int
	head  int // next write position
	count int // number of valid entries (0..size)
}

// New creates a buffer with the given capacity. Capacity must be positive.
func New[T any](size int) *Buffer[T] {
	if size <= 0 {
		panic("ringbuf: capacity must be positive")
	}
	return &Buffer[T]{
		buf:  make([]T, size),
		size: size,
	}
}

// Push adds an element, overwriting the oldest if the buffer is full.
func (b *Buffer[T]) Push(v T) {
	b.buf[b.head] = v
	b.head = (b.head + 1) % b.size
	if b.count < b.size {
		b.count++
	}
}

// Snapshot returns a copy of all elements in insertion order, oldest first.
func (b *Buffer[T]) Snapshot() []T {
	if b.count == 0 {
		return nil
	}

	result := make([]T, b.count)
	if b.count < b.size {
		copy(result, b.buf[:b.count])
	} else {
		n := copy(result, b.buf[b.head:])
		copy(result[n:], b.buf[:b.head])
	}
	return result
}

// Last returns the n most recent elements in insertion order.
// If n exceeds the current length, all elements are returned.
func (b *Buffer[T]) Last(n int) []T {
	if n <= 0 || b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	result := make([]T, n)
	start := (b.head - n + b.size) % b.size
	if start+n <= b.size {
		copy(result, b.buf[start:start+n])
	} else {
		first := b.size - start
		copy(result, b.buf[start:])
		copy(result[first:], b.buf[:n-first])
	}
	return result
}

// Len returns the number of elements currently buffered.
func (b *Buffer[T]) Len() int {
	return b.count
}

// Cap returns the buffer capacity.
func (b *Buffer[T]) Cap() int {
	return b.size
}

// Clear removes all elements, retaining capacity.
func (b *Buffer[T]) Clear() {
	var zero T
	for i := range b.buf {
		b.buf[i] = zero
	}
	b.head = 0
	b.count = 0
}
