// Package event provides typed listener registries.
package event

// Registry holds listeners of a single callback type. Listeners run in
// subscription order; a listener removed while an emission is in progress
// is skipped for the rest of that emission.
type Registry[F any] struct {
	entries []*entry[F]
}

type entry[F any] struct {
	fn      F
	removed bool
}

// Add registers fn and returns a function that removes it.
func (r *Registry[F]) Add(fn F) func() {
	e := &entry[F]{fn: fn}
	r.entries = append(r.entries, e)
	return func() {
		if e.removed {
			return
		}
		e.removed = true
		for i, other := range r.entries {
			if other == e {
				r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
				break
			}
		}
	}
}

// Each calls invoke for every listener registered when Each was called.
func (r *Registry[F]) Each(invoke func(F)) {
	snapshot := r.entries
	for _, e := range snapshot {
		if e.removed {
			continue
		}
		invoke(e.fn)
	}
}

// Len reports the number of registered listeners.
func (r *Registry[F]) Len() int {
	return len(r.entries)
}

// Clear removes every listener.
func (r *Registry[F]) Clear() {
	for _, e := range r.entries {
		e.removed = true
	}
	r.entries = nil
}
