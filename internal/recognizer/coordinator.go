package recognizer

import (
	"log/slog"

	"github.com/ayusman/keytouch/internal/clock"
	"github.com/ayusman/keytouch/internal/event"
	"github.com/ayusman/keytouch/internal/gesture"
)

// InputEngine announces new contact points.
type InputEngine interface {
	OnPointStart(func(*gesture.Source)) func()
}

// TouchpointCoordinator routes new contacts to the current selector and
// turns their selections into gesture sequences. Selectors form a stack;
// the bottom one is created with the coordinator and cannot be popped.
type TouchpointCoordinator struct {
	defs   *GestureModelDefs
	clock  clock.Clock
	logger *slog.Logger

	selectorStack  []*MatcherSelector
	activeSources  []*gesture.Source
	activeGestures []*GestureSequence
	engineUnsubs   []func()

	inputStartListeners event.Registry[func(*gesture.Source)]
	recognizedListeners event.Registry[func(*GestureSequence)]
}

// NewTouchpointCoordinator creates a coordinator for defs. All callbacks
// must run on the goroutine that drives clk.
func NewTouchpointCoordinator(defs *GestureModelDefs, clk clock.Clock, logger *slog.Logger) *TouchpointCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &TouchpointCoordinator{defs: defs, clock: clk, logger: logger}
	c.selectorStack = []*MatcherSelector{NewMatcherSelector(DefaultSetID, clk, logger)}
	return c
}

// AddEngine subscribes to an input engine's new contacts.
func (c *TouchpointCoordinator) AddEngine(engine InputEngine) {
	c.engineUnsubs = append(c.engineUnsubs, engine.OnPointStart(c.Track))
}

// Close detaches from every input engine.
func (c *TouchpointCoordinator) Close() {
	for _, unsub := range c.engineUnsubs {
		unsub()
	}
	c.engineUnsubs = nil
}

// PushSelector makes selector the target for new contacts.
func (c *TouchpointCoordinator) PushSelector(selector *MatcherSelector) {
	c.selectorStack = append(c.selectorStack, selector)
}

// PopSelector removes a pushed selector and terminates everything it was
// still matching.
func (c *TouchpointCoordinator) PopSelector(selector *MatcherSelector) error {
	if selector == c.selectorStack[0] {
		return ErrPopBaseSelector
	}
	for i := len(c.selectorStack) - 1; i > 0; i-- {
		if c.selectorStack[i] == selector {
			c.selectorStack = append(c.selectorStack[:i:i], c.selectorStack[i+1:]...)
			selector.CascadeTermination()
			return nil
		}
	}
	return ErrSelectorNotFound
}

// CurrentSelector returns the top of the selector stack.
func (c *TouchpointCoordinator) CurrentSelector() *MatcherSelector {
	return c.selectorStack[len(c.selectorStack)-1]
}

// Track starts gesture matching for a new contact.
func (c *TouchpointCoordinator) Track(source *gesture.Source) {
	c.addSourceHooks(source)
	c.inputStartListeners.Each(func(f func(*gesture.Source)) { f(source) })

	selector := c.CurrentSelector()
	selector.MatchGesture(source, c.defs.ModelSet(selector.BaseSetID)).Then(func(sel Selection) {
		c.onSelection(sel)
	})
}

func (c *TouchpointCoordinator) onSelection(sel Selection) {
	if sel.Matcher == nil || !sel.Result.Matched {
		return
	}

	if sel.Matcher.claimed {
		return
	}
	ids := sel.Matcher.AllSourceIDs()
	for _, active := range c.activeGestures {
		if overlaps(active.AllSourceIDs(), ids) {
			c.logger.Debug("suppressed duplicate gesture", "model", sel.Matcher.Model().ID, "sequence", active.ID())
			return
		}
	}

	sel.Matcher.claimed = true
	seq := newGestureSequence(sel, c.CurrentSelector(), c)
	c.activeGestures = append(c.activeGestures, seq)
	seq.OnComplete(func() { c.removeGesture(seq) })

	c.logger.Info("recognized gesture", "model", sel.Matcher.Model().ID, "item", sel.Result.Item, "sequence", seq.ID())
	c.recognizedListeners.Each(func(f func(*GestureSequence)) { f(seq) })
	seq.start()
}

func (c *TouchpointCoordinator) addSourceHooks(source *gesture.Source) {
	c.activeSources = append(c.activeSources, source)
	var unsubs []func()
	drop := func() {
		for _, unsub := range unsubs {
			unsub()
		}
		for i, s := range c.activeSources {
			if s == source {
				c.activeSources = append(c.activeSources[:i:i], c.activeSources[i+1:]...)
				return
			}
		}
	}
	unsubs = append(unsubs, source.Path().OnComplete(drop), source.Path().OnInvalidated(drop))
}

func (c *TouchpointCoordinator) removeGesture(seq *GestureSequence) {
	for i, g := range c.activeGestures {
		if g == seq {
			c.activeGestures = append(c.activeGestures[:i:i], c.activeGestures[i+1:]...)
			return
		}
	}
}

// OnInputStart subscribes to new contacts.
func (c *TouchpointCoordinator) OnInputStart(f func(*gesture.Source)) func() {
	return c.inputStartListeners.Add(f)
}

// OnRecognizedGesture subscribes to newly recognized gesture sequences.
func (c *TouchpointCoordinator) OnRecognizedGesture(f func(*GestureSequence)) func() {
	return c.recognizedListeners.Add(f)
}

// ActiveGestures returns the sequences that have not completed.
func (c *TouchpointCoordinator) ActiveGestures() []*GestureSequence {
	return append([]*GestureSequence(nil), c.activeGestures...)
}

// ActiveSources returns the contacts that have not terminated.
func (c *TouchpointCoordinator) ActiveSources() []*gesture.Source {
	return append([]*gesture.Source(nil), c.activeSources...)
}

// Defs returns the gesture model catalogue.
func (c *TouchpointCoordinator) Defs() *GestureModelDefs { return c.defs }

func overlaps(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
