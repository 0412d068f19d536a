package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic clock for tests and offline replay. Time only
// moves when Advance or AdvanceTo is called; due callbacks run synchronously
// on the caller's goroutine, ordered by due time and then by scheduling order.
type Manual struct {
	mu      sync.Mutex
	now     float64
	seq     int
	pending []*manualTimer
}

// NewManual creates a manual clock reading startMs.
func NewManual(startMs float64) *Manual {
	return &Manual{now: startMs}
}

func (m *Manual) Now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{clock: m, due: m.now + ToMillis(d), seq: m.seq, fn: f}
	m.pending = append(m.pending, t)
	return t
}

// Advance moves the clock forward by d, firing every timer that comes due.
func (m *Manual) Advance(d time.Duration) {
	m.AdvanceTo(m.Now() + ToMillis(d))
}

// AdvanceTo moves the clock to target (ms). Timers scheduled by fired
// callbacks are honoured if they come due before target.
func (m *Manual) AdvanceTo(target float64) {
	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			if target > m.now {
				m.now = target
			}
			m.mu.Unlock()
			return
		}
		m.remove(next)
		if next.due > m.now {
			m.now = next.due
		}
		m.mu.Unlock()
		next.fn()
	}
}

// Pending returns the number of timers waiting to fire.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *Manual) nextDue(target float64) *manualTimer {
	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].due != m.pending[j].due {
			return m.pending[i].due < m.pending[j].due
		}
		return m.pending[i].seq < m.pending[j].seq
	})
	if len(m.pending) == 0 || m.pending[0].due > target {
		return nil
	}
	return m.pending[0]
}

func (m *Manual) remove(t *manualTimer) bool {
	for i, p := range m.pending {
		if p == t {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return true
		}
	}
	return false
}

type manualTimer struct {
	clock *Manual
	due   float64
	seq   int
	fn    func()
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.clock.remove(t)
}
