// Package registry provides a concurrency-safe set used to track the live
// connections of the relay.
//
// Callers never iterate the live set. Broadcasts iterate over a Snapshot,
// which is an independent copy, so membership may change while a broadcast
// is in flight without any lock being held across it.
package registry

import "sync"

// Registry is a set of comparable handles guarded by a read/write mutex.
// The zero value is not usable; construct one with New.
type Registry[T comparable] struct {
	mu      sync.RWMutex
	members map[T]struct{}
}

// New returns an empty Registry.
func New[T comparable]() *Registry[T] {
	return &Registry[T]{
		members: make(map[T]struct{}),
	}
}

// Add inserts v and reports whether it was not already present.
func (r *Registry[T]) Add(v T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.members[v]; exists {
		return false
	}
	r.members[v] = struct{}{}
	return true
}

// Remove deletes v and reports whether it was present. Removing a value that
// is not registered is a no-op.
func (r *Registry[T]) Remove(v T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.members[v]; !exists {
		return false
	}
	delete(r.members, v)
	return true
}

// Contains reports whether v is currently registered.
func (r *Registry[T]) Contains(v T) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.members[v]
	return exists
}

// Len returns the current number of members.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.members)
}

// Snapshot returns a point-in-time copy of the membership. The order of the
// returned slice is unspecified.
func (r *Registry[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, 0, len(r.members))
	for v := range r.members {
		out = append(out, v)
	}
	return out
}
