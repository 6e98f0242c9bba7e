package user

import "sync"

// Optimistic holds a value that is updated locally before the backing
// write completes, and restored if the write fails.
type Optimistic[T any] struct {
	mu    sync.Mutex
	value T
}

func NewOptimistic[T any](initial T) *Optimistic[T] {
	return &Optimistic[T]{value: initial}
}

// Get returns the current local value.
func (o *Optimistic[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

// Reset replaces the local value without persisting anything, used
// when fresh data arrives from the store.
func (o *Optimistic[T]) Reset(value T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.value = value
}

// Commit applies next locally, then runs persist. If persist fails the
// previous value is restored and the error returned. The lock is not
// held across persist, so concurrent readers see the optimistic value
// while the write is in flight.
func (o *Optimistic[T]) Commit(next T, persist func(T) error) error {
	o.mu.Lock()
	previous := o.value
	o.value = next
	o.mu.Unlock()

	if err := persist(next); err != nil {
		o.mu.Lock()
		o.value = previous
		o.mu.Unlock()
		return err
	}
	return nil
}
