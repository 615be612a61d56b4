// Package notify holds the callback registry shared by the observable
// services.
package notify

import "sync"

// Registry is a set of change callbacks. Callbacks run synchronously on the
// goroutine that calls Notify, outside the registry lock, so a callback may
// add or cancel subscriptions.
type Registry[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

// Add registers fn and returns its cancel func. Cancel is idempotent.
func (r *Registry[T]) Add(fn func(T)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fns == nil {
		r.fns = make(map[int]func(T))
	}
	id := r.next
	r.next++
	r.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.fns, id)
			r.mu.Unlock()
		})
	}
}

// Notify calls every registered callback with v.
func (r *Registry[T]) Notify(v T) {
	r.mu.Lock()
	fns := make([]func(T), 0, len(r.fns))
	for _, fn := range r.fns {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len reports the number of live subscriptions.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fns)
}
