package recovery

// boundedList keeps the most recent items up to a fixed capacity, evicting
// the oldest first. It is not safe for concurrent use.
type boundedList[T any] struct {
	items    []T
	capacity int
}

func newBoundedList[T any](capacity int) *boundedList[T] {
	capacity = max(capacity, 1)
	return &boundedList[T]{
		items:    make([]T, 0, min(capacity, 128)),
		capacity: capacity,
	}
}

// Push appends v, dropping index 0 when full.
func (b *boundedList[T]) Push(v T) {
	if len(b.items) >= b.capacity {
		n := copy(b.items, b.items[1:])
		var zero T
		b.items[n] = zero
		b.items = b.items[:n]
	}
	b.items = append(b.items, v)
}

// Pop removes and returns the newest item.
func (b *boundedList[T]) Pop() (T, bool) {
	var zero T
	if len(b.items) == 0 {
		return zero, false
	}
	last := len(b.items) - 1
	v := b.items[last]
	b.items[last] = zero
	b.items = b.items[:last]
	return v, true
}

// Last returns a copy of the newest n items, oldest first.
func (b *boundedList[T]) Last(n int) []T {
	if n <= 0 || n > len(b.items) {
		n = len(b.items)
	}
	out := make([]T, n)
	copy(out, b.items[len(b.items)-n:])
	return out
}

func (b *boundedList[T]) Len() int {
	return len(b.items)
}
