package pointer

import "sync"

// buffer is an append-only slice shared between the capture goroutines and
// the flush on stop.
type buffer[T any] struct {
	mu    sync.Mutex
	items []T
}

func (b *buffer[T]) append(v T) {
	b.mu.Lock()
	b.items = append(b.items, v)
	b.mu.Unlock()
}

func (b *buffer[T]) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// snapshot returns a copy; never nil so empty streams encode as [].
func (b *buffer[T]) snapshot() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}
