// Package registry maps opaque string ids to live object handles so that
// the application can refer back to objects it was given earlier.
package registry

import (
	"slices"

	"github.com/puzpuzpuz/xsync/v4"
)

// Registry is a concurrent id → object table owned by one bridge module.
// Put replaces any previous entry (last write wins). Get on an id that was
// ever issued returns the last registered object or nothing; there is no
// eviction.
type Registry[T any] struct {
	m *xsync.Map[string, T]
}

// New creates an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{m: xsync.NewMap[string, T]()}
}

// Put registers obj under id, replacing any previous entry.
func (r *Registry[T]) Put(id string, obj T) {
	r.m.Store(id, obj)
}

// Get returns the object registered under id.
func (r *Registry[T]) Get(id string) (T, bool) {
	return r.m.Load(id)
}

// Take removes and returns the object registered under id.
func (r *Registry[T]) Take(id string) (T, bool) {
	return r.m.LoadAndDelete(id)
}

// Remove deletes id. Missing ids are ignored.
func (r *Registry[T]) Remove(id string) {
	r.m.Delete(id)
}

// Clear removes every entry.
func (r *Registry[T]) Clear() {
	r.m.Clear()
}

// Len returns the number of entries.
func (r *Registry[T]) Len() int {
	return r.m.Size()
}

// Range calls fn for each entry until fn returns false. Entries added or
// removed during iteration may or may not be visited.
func (r *Registry[T]) Range(fn func(id string, obj T) bool) {
	r.m.Range(fn)
}

// IDs returns the registered ids in sorted order.
func (r *Registry[T]) IDs() []string {
	ids := make([]string, 0, r.m.Size())
	r.m.Range(func(id string, _ T) bool {
		ids = append(ids, id)
		return true
	})
	slices.Sort(ids)
	return ids
}

// Values returns the registered objects ordered by id.
func (r *Registry[T]) Values() []T {
	ids := r.IDs()
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if obj, ok := r.m.Load(id); ok {
			out = append(out, obj)
		}
	}
	return out
}
