package recognizer

import (
	"github.com/oklog/ulid/v2"

	"github.com/ayusman/keytouch/internal/event"
	"github.com/ayusman/keytouch/internal/gesture"
)

// GestureStage is one recognized step of a gesture sequence.
type GestureStage struct {
	ModelID   string                       `json:"modelId"`
	Item      string                       `json:"item,omitempty"`
	SourceIDs []string                     `json:"sourceIds"`
	Cause     Cause                        `json:"cause"`
	Action    ResolutionAction             `json:"action"`
	Stats     *gesture.CumulativePathStats `json:"stats,omitempty"`
}

func stageFrom(sel Selection) GestureStage {
	return GestureStage{
		ModelID:   sel.Matcher.Model().ID,
		Item:      sel.Result.Item,
		SourceIDs: sel.Matcher.AllSourceIDs(),
		Cause:     sel.Result.Cause,
		Action:    sel.Result.Action,
		Stats:     sel.Matcher.PrimaryStats(),
	}
}

// GestureSequence follows a recognized gesture through its chained stages.
// It emits update for every stage, then either end or cancel, then complete.
type GestureSequence struct {
	id          string
	defs        *GestureModelDefs
	coordinator *TouchpointCoordinator
	selector    *MatcherSelector
	pushed      *MatcherSelector
	stages      []GestureStage
	sources     []*gesture.Source
	started     bool
	done        bool
	cancelled   bool

	updateListeners   event.Registry[func(GestureStage)]
	cancelListeners   event.Registry[func()]
	endListeners      event.Registry[func()]
	completeListeners event.Registry[func()]
}

func newGestureSequence(first Selection, selector *MatcherSelector, coordinator *TouchpointCoordinator) *GestureSequence {
	return &GestureSequence{
		id:          ulid.Make().String(),
		defs:        coordinator.defs,
		coordinator: coordinator,
		selector:    selector,
		stages:      []GestureStage{stageFrom(first)},
		sources:     first.Matcher.Sources(),
	}
}

// start publishes the first stage and acts on its resolution.
func (q *GestureSequence) start() {
	if q.started {
		return
	}
	q.started = true
	q.emitUpdate(q.stages[0])
	q.advance(q.stages[0].Action)
}

func (q *GestureSequence) emitUpdate(stage GestureStage) {
	q.updateListeners.Each(func(f func(GestureStage)) { f(stage) })
}

func (q *GestureSequence) advance(action ResolutionAction) {
	if q.done {
		return
	}
	if action.Selector == SelectorPush && q.pushed == nil {
		q.pushed = NewMatcherSelector(action.pushSet(), q.coordinator.clock, q.coordinator.logger)
		q.coordinator.PushSelector(q.pushed)
	}
	if action.Type != ResolutionChain {
		q.finish()
		return
	}

	primary := q.sources[0]
	if primary.IsPathComplete() {
		q.finish()
		return
	}
	q.activeSelector().ContinueGesture(primary, q.defs.ModelSet(action.Next)).Then(q.onSelection)
}

func (q *GestureSequence) activeSelector() *MatcherSelector {
	if q.pushed != nil {
		return q.pushed
	}
	return q.selector
}

func (q *GestureSequence) onSelection(sel Selection) {
	if q.done {
		return
	}
	if sel.Matcher == nil || !sel.Result.Matched {
		q.finish()
		return
	}

	stage := stageFrom(sel)
	q.stages = append(q.stages, stage)
	for _, src := range sel.Matcher.Sources() {
		if !q.hasSource(src.Identifier()) {
			q.sources = append(q.sources, src)
		}
	}
	q.emitUpdate(stage)
	q.advance(stage.Action)
}

func (q *GestureSequence) finish() {
	if q.done {
		return
	}
	q.done = true

	if q.pushed != nil {
		if err := q.coordinator.PopSelector(q.pushed); err != nil {
			q.coordinator.logger.Debug("pushed selector already removed", "sequence", q.id, "error", err)
		}
	}

	cancelled := q.cancelled
	for _, src := range q.sources {
		if src.Path().WasCancelled() {
			cancelled = true
		}
	}
	if cancelled {
		q.cancelListeners.Each(func(f func()) { f() })
	} else {
		q.endListeners.Each(func(f func()) { f() })
	}
	q.completeListeners.Each(func(f func()) { f() })
}

// Cancel abandons the sequence. Pending stage matching is cancelled and the
// sequence completes with a cancel event.
func (q *GestureSequence) Cancel() {
	if q.done {
		return
	}
	q.cancelled = true
	q.activeSelector().CancelSources(q.AllSourceIDs())
	q.finish()
}

func (q *GestureSequence) hasSource(id string) bool {
	for _, src := range q.sources {
		if src.Identifier() == id {
			return true
		}
	}
	return false
}

// ID is a lexically sortable identifier.
func (q *GestureSequence) ID() string { return q.id }

// Stages returns the stages recognized so far.
func (q *GestureSequence) Stages() []GestureStage {
	return append([]GestureStage(nil), q.stages...)
}

// AllSourceIDs returns the identifiers of every contact in the sequence.
func (q *GestureSequence) AllSourceIDs() []string {
	ids := make([]string, len(q.sources))
	for i, src := range q.sources {
		ids[i] = src.Identifier()
	}
	return ids
}

func (q *GestureSequence) IsComplete() bool { return q.done }

// OnUpdate subscribes to new stages.
func (q *GestureSequence) OnUpdate(f func(GestureStage)) func() { return q.updateListeners.Add(f) }

// OnCancel subscribes to cancelled completion.
func (q *GestureSequence) OnCancel(f func()) func() { return q.cancelListeners.Add(f) }

// OnEnd subscribes to normal completion.
func (q *GestureSequence) OnEnd(f func()) func() { return q.endListeners.Add(f) }

// OnComplete subscribes to completion of either kind.
func (q *GestureSequence) OnComplete(f func()) func() { return q.completeListeners.Add(f) }
