// Package recognizer decides which gesture a set of contact points forms.
//
// A ContactModel describes how a single contact's path must behave. A
// PathMatcher applies one ContactModel to one source. A GestureMatcher
// combines one PathMatcher per contact of a GestureModel. A MatcherSelector
// runs competing GestureMatchers for new sources and picks a winner. A
// GestureSequence follows a recognized gesture through chained stages, and
// the TouchpointCoordinator ties input engines, selectors and sequences
// together.
package recognizer

import (
	"errors"
	"time"

	"github.com/ayusman/keytouch/internal/gesture"
)

var (
	// ErrInvalidConstruction is returned when a matcher is built without its
	// required model or source.
	ErrInvalidConstruction = errors.New("invalid matcher construction")
	// ErrPopBaseSelector is returned when popping the coordinator's base selector.
	ErrPopBaseSelector = errors.New("may not pop the original, base gesture selector")
	// ErrSelectorNotFound is returned when popping a selector that was never pushed.
	ErrSelectorNotFound = errors.New("selector not pushed")
)

// PathResult is a path model's opinion of a path so far.
type PathResult string

const (
	PathContinue PathResult = "continue"
	PathResolve  PathResult = "resolve"
	PathReject   PathResult = "reject"
)

// Verdict is the outcome type of a matcher.
type Verdict string

const (
	VerdictContinue Verdict = "continue"
	VerdictResolve  Verdict = "resolve"
	VerdictReject   Verdict = "reject"
)

// Cause records what settled a verdict.
type Cause string

const (
	CausePath      Cause = "path"
	CauseTimer     Cause = "timer"
	CauseItem      Cause = "item"
	CauseCancelled Cause = "cancelled"
)

// PathModel evaluates a contact's path. An empty result means continue.
type PathModel interface {
	Evaluate(path *gesture.Path) PathResult
}

// PathModelFunc adapts a function to PathModel.
type PathModelFunc func(path *gesture.Path) PathResult

func (f PathModelFunc) Evaluate(path *gesture.Path) PathResult { return f(path) }

// TimerSpec schedules a verdict after Duration. When the timer elapses the
// contact resolves if ExpectedResult is true and rejects otherwise.
type TimerSpec struct {
	Duration       time.Duration
	ExpectedResult bool
}

// ContactModel describes the path behaviour required of one contact.
type ContactModel struct {
	// ItemPriority orders contacts when choosing which item a gesture reports.
	ItemPriority int
	// OnItemChange, when set, settles the contact as soon as the hovered
	// item differs from the base item.
	OnItemChange Verdict
	// OnPathResolve is the verdict applied when the path model resolves.
	// Defaults to resolve.
	OnPathResolve Verdict
	Timer         *TimerSpec
	PathModel     PathModel
}

func (m *ContactModel) pathResolutionAction() Verdict {
	if m.OnPathResolve == "" {
		return VerdictResolve
	}
	return m.OnPathResolve
}

// PathMatchResult is the verdict of a PathMatcher.
type PathMatchResult struct {
	Type  Verdict `json:"type"`
	Cause Cause   `json:"cause"`
}

// Resolved reports whether the verdict is a resolution.
func (r PathMatchResult) Resolved() bool { return r.Type == VerdictResolve }

// PathUpdateResult is returned by PathMatcher.Update: either a settled
// verdict or VerdictContinue.
type PathUpdateResult = PathMatchResult
