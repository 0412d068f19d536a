package recognizer

import (
	"log/slog"

	"github.com/ayusman/keytouch/internal/clock"
	"github.com/ayusman/keytouch/internal/gesture"
	"github.com/ayusman/keytouch/internal/settle"
)

// Selection is the outcome of matching a source: the winning matcher, or a
// nil Matcher when no model matched.
type Selection struct {
	Matcher *GestureMatcher
	Result  MatchResult
}

type selectionEntry struct {
	source   *gesture.Source
	cell     *settle.Cell[Selection]
	matchers []*GestureMatcher
	last     MatchResult
}

// MatcherSelector runs competing gesture matchers for the sources it is given
// and settles one Selection per source.
//
// A matcher that resolves wins unless a still-pending competitor sharing one
// of its sources has a strictly higher ResolutionPriority, in which case it
// waits. Among waiting winners the earliest resolution is chosen. A winner
// cancels every competitor that shares a source with it.
type MatcherSelector struct {
	BaseSetID string

	clock      clock.Clock
	logger     *slog.Logger
	pending    []*GestureMatcher
	candidates []*GestureMatcher
	entries    []*selectionEntry

	arbitrating bool
	rearbitrate bool
}

// NewMatcherSelector creates a selector whose new contacts are matched
// against the baseSetID model set.
func NewMatcherSelector(baseSetID string, clk clock.Clock, logger *slog.Logger) *MatcherSelector {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatcherSelector{
		BaseSetID: baseSetID,
		clock:     clk,
		logger:    logger,
	}
}

// MatchGesture matches a new contact against models. The contact is first
// offered to pending multi-contact matchers, then one matcher per model is
// started with it as the first contact.
func (s *MatcherSelector) MatchGesture(source *gesture.Source, models []*GestureModel) *settle.Cell[Selection] {
	return s.match(source, models, false, true)
}

// ContinueGesture matches models against a contact from its current sample
// onward. Pending multi-contact matchers are not offered the contact.
func (s *MatcherSelector) ContinueGesture(source *gesture.Source, models []*GestureModel) *settle.Cell[Selection] {
	return s.match(source, models, true, false)
}

func (s *MatcherSelector) match(source *gesture.Source, models []*GestureModel, startAtEnd, offer bool) *settle.Cell[Selection] {
	root := source.Root()
	entry := &selectionEntry{source: root, cell: settle.New[Selection]()}
	s.entries = append(s.entries, entry)

	var started []*GestureMatcher
	if offer {
		for _, gm := range append([]*GestureMatcher(nil), s.pending...) {
			if gm.TryAddContact(source) {
				entry.matchers = append(entry.matchers, gm)
				started = append(started, gm)
			}
		}
	}

	for _, model := range models {
		gm, err := NewGestureMatcher(model, source, s.clock, startAtEnd)
		if err != nil {
			s.logger.Warn("skipping gesture model", "model", model.ID, "error", err)
			continue
		}
		entry.matchers = append(entry.matchers, gm)
		s.pending = append(s.pending, gm)
		started = append(started, gm)
		gm.Result().Then(func(r MatchResult) { s.onMatcherSettled(gm, r) })
	}

	if len(entry.matchers) == 0 {
		entry.cell.Resolve(Selection{Result: MatchResult{Matched: false, Cause: CausePath}})
		s.dropEntry(entry)
		return entry.cell
	}

	for _, gm := range started {
		gm.Update()
	}
	return entry.cell
}

func (s *MatcherSelector) onMatcherSettled(gm *GestureMatcher, r MatchResult) {
	s.pending = removeMatcher(s.pending, gm)
	for _, e := range s.entries {
		if containsMatcher(e.matchers, gm) {
			e.last = r
		}
	}
	if r.Matched {
		s.candidates = append(s.candidates, gm)
	}
	s.arbitrate()
}

func (s *MatcherSelector) arbitrate() {
	if s.arbitrating {
		s.rearbitrate = true
		return
	}
	s.arbitrating = true
	defer func() { s.arbitrating = false }()

	for {
		s.rearbitrate = false
		for _, c := range append([]*GestureMatcher(nil), s.candidates...) {
			if !containsMatcher(s.candidates, c) || s.blocked(c) {
				continue
			}
			s.win(c)
		}
		s.settleExhausted()
		if !s.rearbitrate {
			return
		}
	}
}

// blocked reports whether a higher-priority competitor of c is still in play.
func (s *MatcherSelector) blocked(c *GestureMatcher) bool {
	priority := c.Model().ResolutionPriority
	for _, list := range [][]*GestureMatcher{s.pending, s.candidates} {
		for _, other := range list {
			if other != c && other.Model().ResolutionPriority > priority && other.sharesSource(c) {
				return true
			}
		}
	}
	return false
}

func (s *MatcherSelector) win(c *GestureMatcher) {
	s.candidates = removeMatcher(s.candidates, c)
	result, _ := c.Result().Value()
	selection := Selection{Matcher: c, Result: result}

	var losers []*GestureMatcher
	for _, list := range [][]*GestureMatcher{s.pending, s.candidates} {
		for _, other := range list {
			if other.sharesSource(c) {
				losers = append(losers, other)
			}
		}
	}
	for _, l := range losers {
		s.candidates = removeMatcher(s.candidates, l)
	}

	for _, e := range append([]*selectionEntry(nil), s.entries...) {
		if containsMatcher(e.matchers, c) {
			e.cell.Resolve(selection)
			s.dropEntry(e)
		}
	}

	for _, l := range losers {
		l.Cancel()
	}
}

// settleExhausted resolves entries whose matchers have all rejected.
func (s *MatcherSelector) settleExhausted() {
	for _, e := range append([]*selectionEntry(nil), s.entries...) {
		if e.cell.IsSettled() {
			s.dropEntry(e)
			continue
		}
		live := false
		for _, gm := range e.matchers {
			if containsMatcher(s.pending, gm) || containsMatcher(s.candidates, gm) {
				live = true
				break
			}
		}
		if live {
			continue
		}
		last := e.last
		last.Matched = false
		e.cell.Resolve(Selection{Result: last})
		s.dropEntry(e)
	}
}

func (s *MatcherSelector) dropEntry(e *selectionEntry) {
	for i, other := range s.entries {
		if other == e {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			return
		}
	}
}

// CancelSources cancels every matcher involving any of the given contacts.
func (s *MatcherSelector) CancelSources(ids []string) {
	var doomed []*GestureMatcher
	for _, list := range [][]*GestureMatcher{s.pending, s.candidates} {
		for _, gm := range list {
			for _, id := range ids {
				if gm.hasSource(id) {
					doomed = append(doomed, gm)
					break
				}
			}
		}
	}
	for _, gm := range doomed {
		s.candidates = removeMatcher(s.candidates, gm)
		gm.Cancel()
	}
	s.arbitrate()
}

// CascadeTermination cancels every matcher in progress and terminates, as
// cancelled, every contact the selector is tracking.
func (s *MatcherSelector) CascadeTermination() {
	sources := make([]*gesture.Source, 0, len(s.entries))
	for _, e := range s.entries {
		sources = append(sources, e.source)
	}

	for _, gm := range append([]*GestureMatcher(nil), s.pending...) {
		gm.Cancel()
	}
	s.candidates = nil
	s.arbitrate()

	for _, src := range sources {
		src.Terminate(true)
	}
}

// Pending reports whether any matcher is still undecided.
func (s *MatcherSelector) Pending() bool {
	return len(s.pending) > 0 || len(s.candidates) > 0
}

func containsMatcher(list []*GestureMatcher, gm *GestureMatcher) bool {
	for _, m := range list {
		if m == gm {
			return true
		}
	}
	return false
}

func removeMatcher(list []*GestureMatcher, gm *GestureMatcher) []*GestureMatcher {
	for i, m := range list {
		if m == gm {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
