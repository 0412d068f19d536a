package recognizer

import (
	"github.com/ayusman/keytouch/internal/clock"
	"github.com/ayusman/keytouch/internal/gesture"
	"github.com/ayusman/keytouch/internal/settle"
)

// MatchResult is the verdict of a GestureMatcher.
type MatchResult struct {
	Matched bool             `json:"matched"`
	Cause   Cause            `json:"cause"`
	Action  ResolutionAction `json:"action"`
	Item    string           `json:"item,omitempty"`
}

type contact struct {
	source  *gesture.Source
	matcher *PathMatcher
	unsubs  []func()
}

// GestureMatcher matches one GestureModel. Each contact is watched through
// its own subview by a PathMatcher; any contact rejecting rejects the
// gesture, and the gesture resolves once every contact has resolved.
type GestureMatcher struct {
	model    *GestureModel
	clock    clock.Clock
	contacts []*contact
	result   *settle.Cell[MatchResult]
	timeout  clock.Timer

	startAtEnd bool
	// claimed is set once a sequence has been built from this matcher.
	claimed bool
}

// NewGestureMatcher starts matching model with source as its first contact.
// With startAtEnd, contacts are observed from their current sample onward
// instead of from the start of their path.
func NewGestureMatcher(model *GestureModel, source *gesture.Source, clk clock.Clock, startAtEnd bool) (*GestureMatcher, error) {
	if model == nil || source == nil || len(model.Contacts) == 0 {
		return nil, ErrInvalidConstruction
	}

	g := &GestureMatcher{
		model:      model,
		clock:      clk,
		result:     settle.New[MatchResult](),
		startAtEnd: startAtEnd,
	}
	if err := g.addContact(source); err != nil {
		return nil, err
	}

	if len(model.Contacts) > 1 && model.ContactTimeout > 0 {
		if clk == nil {
			return nil, ErrInvalidConstruction
		}
		g.timeout = clk.AfterFunc(model.ContactTimeout, func() {
			if len(g.contacts) < len(g.model.Contacts) {
				g.finalize(false, CauseTimer)
			}
		})
	}
	return g, nil
}

func (g *GestureMatcher) addContact(source *gesture.Source) error {
	spec := &g.model.Contacts[len(g.contacts)]
	view := source.ConstructSubview(g.startAtEnd, !g.startAtEnd)

	pm, err := NewPathMatcher(spec, view, g.clock)
	if err != nil {
		view.Disconnect()
		return err
	}

	c := &contact{source: view, matcher: pm}
	g.contacts = append(g.contacts, c)

	update := func() { pm.Update() }
	c.unsubs = append(c.unsubs,
		view.Path().OnStep(func(gesture.InputSample) { update() }),
		view.Path().OnComplete(update),
		view.Path().OnInvalidated(update),
	)
	pm.Result().Then(func(r PathMatchResult) { g.onContactResult(r) })
	return nil
}

// TryAddContact offers an additional contact to a pending multi-contact
// matcher. It reports whether the contact was accepted.
func (g *GestureMatcher) TryAddContact(source *gesture.Source) bool {
	if g.result.IsSettled() || len(g.contacts) >= len(g.model.Contacts) {
		return false
	}
	id := source.Root().Identifier()
	for _, c := range g.contacts {
		if c.source.Root().Identifier() == id {
			return false
		}
	}
	if err := g.addContact(source); err != nil {
		return false
	}
	return true
}

// Update evaluates every contact against its current path.
func (g *GestureMatcher) Update() {
	for _, c := range append([]*contact(nil), g.contacts...) {
		if g.result.IsSettled() {
			return
		}
		c.matcher.Update()
	}
}

func (g *GestureMatcher) onContactResult(r PathMatchResult) {
	if g.result.IsSettled() {
		return
	}
	if r.Type != VerdictResolve {
		g.finalize(false, r.Cause)
		return
	}
	if len(g.contacts) < len(g.model.Contacts) {
		return
	}
	for _, c := range g.contacts {
		v, ok := c.matcher.Result().Value()
		if !ok || v.Type != VerdictResolve {
			return
		}
	}
	g.finalize(true, r.Cause)
}

func (g *GestureMatcher) finalize(matched bool, cause Cause) {
	result := MatchResult{Matched: matched, Cause: cause}
	if matched {
		result.Action = g.model.Resolution
		result.Item = g.item()
	}
	if !g.result.Resolve(result) {
		return
	}

	if g.timeout != nil {
		g.timeout.Stop()
	}
	for _, c := range g.contacts {
		c.matcher.Cancel()
		for _, unsub := range c.unsubs {
			unsub()
		}
		c.source.Disconnect()
	}
}

// item picks the reported item from the contact with the highest item priority.
func (g *GestureMatcher) item() string {
	if len(g.contacts) == 0 {
		return ""
	}
	best := g.contacts[0]
	for _, c := range g.contacts[1:] {
		if c.matcher.Model().ItemPriority > best.matcher.Model().ItemPriority {
			best = c
		}
	}
	switch g.model.Resolution.Item {
	case ItemNone:
		return ""
	case ItemBase:
		return best.matcher.BaseItem()
	default:
		return best.matcher.LastItem()
	}
}

// Cancel rejects the matcher with cause cancelled if it is still pending.
func (g *GestureMatcher) Cancel() {
	g.finalize(false, CauseCancelled)
}

// Result returns the cell holding the gesture verdict.
func (g *GestureMatcher) Result() *settle.Cell[MatchResult] { return g.result }

func (g *GestureMatcher) Model() *GestureModel { return g.model }

// Sources returns the real contacts taking part in the gesture.
func (g *GestureMatcher) Sources() []*gesture.Source {
	sources := make([]*gesture.Source, len(g.contacts))
	for i, c := range g.contacts {
		sources[i] = c.source.Root()
	}
	return sources
}

// AllSourceIDs returns the identifiers of the contacts taking part.
func (g *GestureMatcher) AllSourceIDs() []string {
	ids := make([]string, len(g.contacts))
	for i, c := range g.contacts {
		ids[i] = c.source.Root().Identifier()
	}
	return ids
}

// PrimaryStats returns the path statistics of the first contact's subview.
func (g *GestureMatcher) PrimaryStats() *gesture.CumulativePathStats {
	if len(g.contacts) == 0 {
		return gesture.NewStats()
	}
	return g.contacts[0].source.Path().Stats()
}

func (g *GestureMatcher) sharesSource(other *GestureMatcher) bool {
	for _, a := range g.AllSourceIDs() {
		for _, b := range other.AllSourceIDs() {
			if a == b {
				return true
			}
		}
	}
	return false
}

func (g *GestureMatcher) hasSource(id string) bool {
	for _, s := range g.AllSourceIDs() {
		if s == id {
			return true
		}
	}
	return false
}
