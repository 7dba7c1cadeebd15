// Package registry provides the mutex-guarded keyed store used for provider
// registrations and in-flight transactions.
package registry

import "sync"

// KeyedRegistry is a thread-safe map. Every operation holds the single mutex
// for the whole call. Iteration is deliberately not exposed.
type KeyedRegistry[K comparable, V any] struct {
	mu     sync.Mutex
	values map[K]V
}

// New creates an empty KeyedRegistry.
func New[K comparable, V any]() *KeyedRegistry[K, V] {
	return &KeyedRegistry[K, V]{values: make(map[K]V)}
}

// Add inserts or overwrites the value stored under key.
func (r *KeyedRegistry[K, V]) Add(key K, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
}

// Remove deletes key if present.
func (r *KeyedRegistry[K, V]) Remove(key K) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.values, key)
}

// Get returns a copy of the value stored under key and whether it existed.
func (r *KeyedRegistry[K, V]) Get(key K) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	return v, ok
}

// Take returns and removes the value stored under key in one step, so that
// concurrent callers racing on the same key observe it at most once.
func (r *KeyedRegistry[K, V]) Take(key K) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	if ok {
		delete(r.values, key)
	}
	return v, ok
}

// Update applies fn to the current entry under the lock. fn receives the old
// value and its presence and returns the new value plus whether to keep it;
// keep=false removes the key. fn must not call back into the registry.
func (r *KeyedRegistry[K, V]) Update(key K, fn func(old V, ok bool) (V, bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.values[key]
	next, keep := fn(old, ok)
	if keep {
		r.values[key] = next
		return
	}
	delete(r.values, key)
}

// Len returns the number of stored keys.
func (r *KeyedRegistry[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}
