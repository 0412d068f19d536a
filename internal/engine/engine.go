// Package engine turns raw pointer events into gesture sources and replays
// recorded input through the same path.
package engine

import (
	"github.com/ayusman/keytouch/internal/clock"
	"github.com/ayusman/keytouch/internal/event"
	"github.com/ayusman/keytouch/internal/gesture"
)

// Engine tracks the active contact points of one input surface. All methods
// must be called on the goroutine that drives the engine's clock.
type Engine struct {
	clock  clock.Clock
	config gesture.SegmentationConfig
	points []*gesture.Source
	seed   int

	pointStart event.Registry[func(*gesture.Source)]
}

// New creates an engine whose sources use config for path segmentation.
func New(clk clock.Clock, config gesture.SegmentationConfig) *Engine {
	return &Engine{clock: clk, config: config, seed: 1}
}

// OnPointStart subscribes to new contact points.
func (e *Engine) OnPointStart(f func(*gesture.Source)) func() {
	return e.pointStart.Add(f)
}

// NextID returns a fresh identifier for a point that has none of its own,
// such as one loaded from a recording.
func (e *Engine) NextID() int {
	id := e.seed
	e.seed++
	return id
}

// SetConfig changes the segmentation thresholds of contacts started later.
func (e *Engine) SetConfig(config gesture.SegmentationConfig) { e.config = config }

// Clock returns the clock the engine schedules on.
func (e *Engine) Clock() clock.Clock { return e.clock }

// Start begins a new contact with its first sample. A contact of the same
// input kind still active under the same id is cancelled first. Touch and
// mouse ids are independent.
func (e *Engine) Start(id int, sample gesture.InputSample, isFromTouch bool) *gesture.Source {
	if stale := e.point(id, isFromTouch); stale != nil {
		stale.Terminate(true)
	}

	src := gesture.NewSourceWithConfig(id, isFromTouch, e.config)
	src.Update(sample)
	e.points = append(e.points, src)

	drop := func() { e.drop(src) }
	src.Path().OnInvalidated(drop)
	src.Path().OnComplete(drop)

	e.pointStart.Each(func(f func(*gesture.Source)) { f(src) })
	return src
}

// Move extends an active contact. It reports false for unknown ids.
func (e *Engine) Move(id int, isFromTouch bool, sample gesture.InputSample) bool {
	src := e.point(id, isFromTouch)
	if src == nil {
		return false
	}
	src.Update(sample)
	return true
}

// MoveCancel extends an active contact with a final sample and cancels it.
func (e *Engine) MoveCancel(id int, isFromTouch bool, sample gesture.InputSample) bool {
	src := e.point(id, isFromTouch)
	if src == nil {
		return false
	}
	src.Update(sample)
	src.Terminate(true)
	return true
}

// End releases a contact at time t. A release later than the last sample
// repeats that sample's position so the path records the hold.
func (e *Engine) End(id int, isFromTouch bool, t float64) bool {
	src := e.point(id, isFromTouch)
	if src == nil {
		return false
	}
	if last, ok := src.CurrentSample(); ok && last.T != t {
		src.Update(last.At(t))
	}
	src.Terminate(false)
	return true
}

// Cancel abandons a contact without a final sample.
func (e *Engine) Cancel(id int, isFromTouch bool) bool {
	src := e.point(id, isFromTouch)
	if src == nil {
		return false
	}
	src.Terminate(true)
	return true
}

// CancelAll abandons every active contact.
func (e *Engine) CancelAll() {
	for _, src := range e.ActivePoints() {
		src.Terminate(true)
	}
}

// ActivePoints returns the contacts that have not terminated, oldest first.
func (e *Engine) ActivePoints() []*gesture.Source {
	return append([]*gesture.Source(nil), e.points...)
}

func (e *Engine) point(id int, isFromTouch bool) *gesture.Source {
	for _, src := range e.points {
		if src.RawID() == id && src.IsFromTouch() == isFromTouch {
			return src
		}
	}
	return nil
}

func (e *Engine) drop(src *gesture.Source) {
	for i, s := range e.points {
		if s == src {
			e.points = append(e.points[:i:i], e.points[i+1:]...)
			return
		}
	}
}
