package clock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrLoopStopped is returned when work is posted to a stopped loop.
var ErrLoopStopped = errors.New("loop stopped")

// Loop runs posted callbacks one at a time on a single goroutine. Timers
// scheduled through AfterFunc are delivered through the same queue, so every
// callback observes a consistent view of the state it owns.
type Loop struct {
	start time.Time
	tasks chan func()
	done  chan struct{}
	once  sync.Once
}

// NewLoop creates a loop with the given queue capacity.
func NewLoop(capacity int) *Loop {
	if capacity <= 0 {
		capacity = 256
	}
	return &Loop{
		start: time.Now(),
		tasks: make(chan func(), capacity),
		done:  make(chan struct{}),
	}
}

// Run processes callbacks until the context is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.done:
			return nil
		case task := <-l.tasks:
			task()
		}
	}
}

// Stop ends Run. Pending callbacks are discarded.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.done) })
}

// Post queues f for execution on the loop goroutine.
func (l *Loop) Post(f func()) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}
	select {
	case l.tasks <- f:
		return nil
	case <-l.done:
		return ErrLoopStopped
	}
}

// Do runs f on the loop goroutine and waits for it to finish.
// It must not be called from the loop goroutine itself.
func (l *Loop) Do(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		f()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Now returns milliseconds elapsed since the loop was created.
func (l *Loop) Now() float64 {
	return ToMillis(time.Since(l.start))
}

// AfterFunc schedules f to run on the loop goroutine after d.
func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	lt := &loopTimer{}
	lt.timer = time.AfterFunc(d, func() {
		_ = l.Post(func() {
			if lt.stopped.CompareAndSwap(false, true) {
				f()
			}
		})
	})
	return lt
}

type loopTimer struct {
	timer   *time.Timer
	stopped atomic.Bool
}

func (t *loopTimer) Stop() bool {
	t.timer.Stop()
	return t.stopped.CompareAndSwap(false, true)
}
