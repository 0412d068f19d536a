package recognizer

import (
	"github.com/ayusman/keytouch/internal/clock"
	"github.com/ayusman/keytouch/internal/gesture"
	"github.com/ayusman/keytouch/internal/settle"
)

// PathMatcher applies a ContactModel to a single source. Its verdict is
// settled at most once; every later finalize returns the first verdict.
type PathMatcher struct {
	model     *ContactModel
	source    *gesture.Source
	clock     clock.Clock
	timer     clock.Timer
	published *settle.Cell[PathMatchResult]
}

// NewPathMatcher builds a matcher and starts the model's timer, if any.
func NewPathMatcher(model *ContactModel, source *gesture.Source, clk clock.Clock) (*PathMatcher, error) {
	if model == nil || source == nil || model.PathModel == nil {
		return nil, ErrInvalidConstruction
	}
	if model.Timer != nil && clk == nil {
		return nil, ErrInvalidConstruction
	}

	m := &PathMatcher{
		model:     model,
		source:    source,
		clock:     clk,
		published: settle.New[PathMatchResult](),
	}

	if model.Timer != nil {
		m.timer = clk.AfterFunc(model.Timer.Duration, m.onTimer)
		m.published.Then(func(PathMatchResult) { m.timer.Stop() })
	}
	return m, nil
}

func (m *PathMatcher) onTimer() {
	if m.published.IsSettled() {
		return
	}

	trueSource := m.source.Root()
	if !trueSource.IsPathComplete() {
		now := m.clock.Now()
		if current, ok := trueSource.CurrentSample(); ok && current.T != now {
			// Let the path models see how long the contact has been held.
			trueSource.Path().Extend(current.At(now))
		}
	}

	m.finalize(m.model.Timer.ExpectedResult, CauseTimer)
}

func (m *PathMatcher) finalize(matched bool, cause Cause) PathMatchResult {
	result := PathMatchResult{Type: VerdictReject, Cause: cause}
	if matched {
		result.Type = m.model.pathResolutionAction()
	}
	m.published.Resolve(result)

	settled, _ := m.published.Value()
	return settled
}

// Update re-evaluates the source's path and returns the verdict, or
// VerdictContinue while undecided.
func (m *PathMatcher) Update() PathUpdateResult {
	if v, ok := m.published.Value(); ok {
		return v
	}

	path := m.source.Path()
	if path.WasCancelled() {
		return m.finalize(false, CausePath)
	}

	if m.model.OnItemChange != "" && path.Len() > 0 {
		if current, ok := m.source.CurrentSample(); ok && current.Item != m.source.BaseItem() {
			return m.finalize(m.model.OnItemChange == VerdictResolve, CauseItem)
		}
	}

	result := m.model.PathModel.Evaluate(path)
	if result == "" {
		result = PathContinue
	}

	switch result {
	case PathResolve:
		return m.finalize(true, CausePath)
	case PathReject:
		return m.finalize(false, CausePath)
	}

	if path.IsComplete() {
		return m.finalize(false, CausePath)
	}
	return PathMatchResult{Type: VerdictContinue}
}

// Cancel rejects the matcher if it has not settled yet.
func (m *PathMatcher) Cancel() PathMatchResult {
	return m.finalize(false, CauseCancelled)
}

// Result returns the cell holding the verdict.
func (m *PathMatcher) Result() *settle.Cell[PathMatchResult] { return m.published }

// IsSettled reports whether a verdict has been reached.
func (m *PathMatcher) IsSettled() bool { return m.published.IsSettled() }

func (m *PathMatcher) Model() *ContactModel    { return m.model }
func (m *PathMatcher) Source() *gesture.Source { return m.source }

// Stats returns the statistics of the matched path.
func (m *PathMatcher) Stats() *gesture.CumulativePathStats { return m.source.Path().Stats() }

// BaseItem returns the item the contact started on.
func (m *PathMatcher) BaseItem() string { return m.source.BaseItem() }

// LastItem returns the item currently under the contact.
func (m *PathMatcher) LastItem() string {
	current, _ := m.source.CurrentSample()
	return current.Item
}
