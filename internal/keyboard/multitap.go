package keyboard

import (
	"github.com/ayusman/keytouch/internal/clock"
	"github.com/ayusman/keytouch/internal/multitap"
	"github.com/ayusman/keytouch/internal/recognizer"
)

// MultiTapTracker watches recognized taps and switches layers when a key
// with a multi-tap layer is tapped twice in quick succession.
type MultiTapTracker struct {
	layout  *Layout
	clock   clock.Clock
	active  func() []string
	onLayer func(layer string)
	opts    []multitap.Option
	pending *multitap.PendingMultiTap
}

// NewMultiTapTracker creates a tracker. active returns the identifiers of
// the contacts currently down. opts apply to every multi-tap started.
func NewMultiTapTracker(layout *Layout, clk clock.Clock, active func() []string, onLayer func(layer string), opts ...multitap.Option) *MultiTapTracker {
	return &MultiTapTracker{layout: layout, clock: clk, active: active, onLayer: onLayer, opts: opts}
}

type keyboardState struct {
	layout  *Layout
	touches int
}

func (k keyboardState) HasLayer(name string) bool { return k.layout.HasLayer(name) }
func (k keyboardState) TouchCount() int           { return k.touches }

// Observe feeds a recognized stage to the tracker.
func (t *MultiTapTracker) Observe(stage recognizer.GestureStage) {
	switch stage.ModelID {
	case ModelModipress:
		// The press half of a modifier tap; the release is what counts.
		return
	case ModelTap, ModelModipressEnd:
	default:
		t.cancel()
		return
	}

	key, ok := t.layout.Key(stage.Item)
	if !ok {
		t.cancel()
		return
	}

	if t.pending != nil {
		state := t.pending.IncrementTouch(key)
		if state == multitap.Waiting {
			return
		}
		t.pending = nil
		if state == multitap.Realized {
			return
		}
	}

	kbd := keyboardState{layout: t.layout, touches: t.touchCount(stage.SourceIDs)}
	if multitap.IsValidTarget(kbd, key) {
		t.pending = multitap.New(t.clock, key, 2, t.onLayer, t.opts...)
	}
}

func (t *MultiTapTracker) touchCount(sourceIDs []string) int {
	count := len(sourceIDs)
	if t.active == nil {
		return count
	}
	for _, id := range t.active() {
		found := false
		for _, own := range sourceIDs {
			if own == id {
				found = true
				break
			}
		}
		if !found {
			count++
		}
	}
	return count
}

func (t *MultiTapTracker) cancel() {
	if t.pending != nil {
		t.pending.Cancel()
		t.pending = nil
	}
}

// Pending returns the multi-tap in progress, if any.
func (t *MultiTapTracker) Pending() *multitap.PendingMultiTap { return t.pending }
