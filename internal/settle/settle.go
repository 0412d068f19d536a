// Package settle provides a single-assignment result cell. The first call to
// Resolve wins; later calls are no-ops and report false.
package settle

import "sync"

// Cell holds a value that is settled at most once.
type Cell[T any] struct {
	mu        sync.Mutex
	value     T
	settled   bool
	callbacks []func(T)
	done      chan struct{}
}

// New returns an unsettled cell.
func New[T any]() *Cell[T] {
	return &Cell[T]{done: make(chan struct{})}
}

// Resolved returns a cell already settled with v.
func Resolved[T any](v T) *Cell[T] {
	c := New[T]()
	c.Resolve(v)
	return c
}

// Resolve settles the cell with v if it is still pending, then runs the
// registered callbacks in registration order on the calling goroutine.
func (c *Cell[T]) Resolve(v T) bool {
	c.mu.Lock()
	if c.settled {
		c.mu.Unlock()
		return false
	}
	c.value = v
	c.settled = true
	callbacks := c.callbacks
	c.callbacks = nil
	close(c.done)
	c.mu.Unlock()

	for _, cb := range callbacks {
		cb(v)
	}
	return true
}

// Then registers f to run with the settled value. If the cell is already
// settled f runs immediately.
func (c *Cell[T]) Then(f func(T)) {
	c.mu.Lock()
	if !c.settled {
		c.callbacks = append(c.callbacks, f)
		c.mu.Unlock()
		return
	}
	v := c.value
	c.mu.Unlock()
	f(v)
}

// Value returns the settled value and whether the cell is settled.
func (c *Cell[T]) Value() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.settled
}

func (c *Cell[T]) IsSettled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settled
}

// Done is closed once the cell settles.
func (c *Cell[T]) Done() <-chan struct{} {
	return c.done
}
