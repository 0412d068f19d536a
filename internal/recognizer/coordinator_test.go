package recognizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/keytouch/internal/clock"
	"github.com/ayusman/keytouch/internal/event"
	"github.com/ayusman/keytouch/internal/gesture"
)

type fakeEngine struct {
	listeners event.Registry[func(*gesture.Source)]
}

func (e *fakeEngine) OnPointStart(f func(*gesture.Source)) func() { return e.listeners.Add(f) }

func (e *fakeEngine) start(src *gesture.Source) {
	e.listeners.Each(func(f func(*gesture.Source)) { f(src) })
}

type sequenceLog struct {
	recognized []*GestureSequence
	events     []string
	stages     []GestureStage
}

func watch(c *TouchpointCoordinator) *sequenceLog {
	log := &sequenceLog{}
	c.OnRecognizedGesture(func(seq *GestureSequence) {
		log.recognized = append(log.recognized, seq)
		seq.OnUpdate(func(stage GestureStage) {
			log.events = append(log.events, "update:"+stage.ModelID)
			log.stages = append(log.stages, stage)
		})
		seq.OnEnd(func() { log.events = append(log.events, "end") })
		seq.OnCancel(func() { log.events = append(log.events, "cancel") })
		seq.OnComplete(func() { log.events = append(log.events, "complete") })
	})
	return log
}

func TestCoordinatorMultiTouchDedup(t *testing.T) {
	clk := clock.NewManual(0)
	defs := &GestureModelDefs{Models: []*GestureModel{{
		ID:             "two-finger-tap",
		Contacts:       []ContactModel{{PathModel: resolveOnRelease()}, {PathModel: resolveOnRelease()}},
		ContactTimeout: 300 * time.Millisecond,
		Resolution:     ResolutionAction{Type: ResolutionComplete, Item: ItemNone},
	}}}
	require.NoError(t, defs.Validate())

	c := NewTouchpointCoordinator(defs, clk, nil)
	engine := &fakeEngine{}
	c.AddEngine(engine)
	log := watch(c)

	var started []string
	c.OnInputStart(func(src *gesture.Source) { started = append(started, src.Identifier()) })

	first := touch(1, 0, 0, 0, "a")
	second := touch(2, 40, 0, 20, "b")
	engine.start(first)
	engine.start(second)
	assert.Equal(t, []string{"touch:1", "touch:2"}, started)
	assert.Len(t, c.ActiveSources(), 2)

	clk.Advance(50 * time.Millisecond)
	first.Terminate(false)
	second.Terminate(false)

	require.Len(t, log.recognized, 1)
	assert.ElementsMatch(t, []string{"touch:1", "touch:2"}, log.recognized[0].AllSourceIDs())
	assert.Equal(t, []string{"update:two-finger-tap", "end", "complete"}, log.events)
	assert.Empty(t, c.ActiveGestures())
	assert.Empty(t, c.ActiveSources())
	assert.Equal(t, 0, clk.Pending())
}

func TestCoordinatorChainedSequence(t *testing.T) {
	defs := &GestureModelDefs{
		Models: []*GestureModel{
			{
				ID:         "press",
				Contacts:   []ContactModel{{PathModel: constantModel(PathResolve)}},
				Resolution: ResolutionAction{Type: ResolutionChain, Next: "release-set", Item: ItemBase},
			},
			tapModel("release", 0),
		},
		Sets: map[string][]string{
			DefaultSetID:  {"press"},
			"release-set": {"release"},
		},
	}
	require.NoError(t, defs.Validate())

	c := NewTouchpointCoordinator(defs, nil, nil)
	log := watch(c)

	src := touch(1, 0, 0, 0, "a")
	c.Track(src)
	require.Len(t, log.recognized, 1)
	seq := log.recognized[0]
	assert.Equal(t, []string{"update:press"}, log.events)
	assert.Len(t, c.ActiveGestures(), 1)
	assert.NotEmpty(t, seq.ID())

	src.Update(at(3, 0, 40, "b"))
	src.Terminate(false)

	assert.Equal(t, []string{"update:press", "update:release", "end", "complete"}, log.events)
	require.Len(t, log.stages, 2)
	assert.Equal(t, "a", log.stages[0].Item)
	assert.Equal(t, "b", log.stages[1].Item)
	assert.Equal(t, []string{"touch:1"}, log.stages[1].SourceIDs)
	assert.True(t, seq.IsComplete())
	assert.Empty(t, c.ActiveGestures())
}

func TestCoordinatorChainCancelled(t *testing.T) {
	defs := &GestureModelDefs{
		Models: []*GestureModel{
			{
				ID:         "press",
				Contacts:   []ContactModel{{PathModel: constantModel(PathResolve)}},
				Resolution: ResolutionAction{Type: ResolutionChain, Next: "release-set"},
			},
			tapModel("release", 0),
		},
		Sets: map[string][]string{DefaultSetID: {"press"}, "release-set": {"release"}},
	}

	c := NewTouchpointCoordinator(defs, nil, nil)
	log := watch(c)

	src := touch(1, 0, 0, 0, "a")
	c.Track(src)
	src.Terminate(true)

	assert.Equal(t, []string{"update:press", "cancel", "complete"}, log.events)
}

func TestCoordinatorPushedSelector(t *testing.T) {
	defs := &GestureModelDefs{
		Models: []*GestureModel{
			{
				ID:         "modipress",
				Contacts:   []ContactModel{{PathModel: constantModel(PathResolve)}},
				Resolution: ResolutionAction{Type: ResolutionChain, Next: "modipress-end", Selector: SelectorPush, PushSet: "inner"},
			},
			tapModel("modipress-end", 0),
			tapModel("tap", 0),
		},
		Sets: map[string][]string{
			DefaultSetID:    {"modipress"},
			"modipress-end": {"modipress-end"},
			"inner":         {"tap"},
		},
	}
	require.NoError(t, defs.Validate())

	c := NewTouchpointCoordinator(defs, nil, nil)
	base := c.CurrentSelector()
	log := watch(c)

	shift := touch(1, 0, 0, 0, "shift")
	c.Track(shift)
	require.NotSame(t, base, c.CurrentSelector())
	assert.Equal(t, "inner", c.CurrentSelector().BaseSetID)

	key := touch(2, 50, 0, 10, "k")
	c.Track(key)
	key.Terminate(false)

	stray := touch(3, 80, 0, 20, "j")
	c.Track(stray)

	shift.Update(at(0, 0, 30, "shift"))
	shift.Terminate(false)

	require.Len(t, log.recognized, 2)
	assert.Equal(t, "modipress", log.recognized[0].Stages()[0].ModelID)
	assert.Equal(t, "tap", log.recognized[1].Stages()[0].ModelID)
	assert.Equal(t, "k", log.recognized[1].Stages()[0].Item)
	assert.Same(t, base, c.CurrentSelector())

	assert.True(t, stray.IsPathComplete())
	assert.True(t, stray.Path().WasCancelled())
}

func TestCoordinatorSequenceCancel(t *testing.T) {
	defs := &GestureModelDefs{
		Models: []*GestureModel{
			{
				ID:         "press",
				Contacts:   []ContactModel{{PathModel: constantModel(PathResolve)}},
				Resolution: ResolutionAction{Type: ResolutionChain, Next: "release-set"},
			},
			tapModel("release", 0),
		},
		Sets: map[string][]string{DefaultSetID: {"press"}, "release-set": {"release"}},
	}

	c := NewTouchpointCoordinator(defs, nil, nil)
	log := watch(c)
	src := touch(1, 0, 0, 0, "a")
	c.Track(src)

	log.recognized[0].Cancel()
	log.recognized[0].Cancel()

	assert.Equal(t, []string{"update:press", "cancel", "complete"}, log.events)
	assert.False(t, src.IsPathComplete())
}

func TestCoordinatorPopSelector(t *testing.T) {
	c := NewTouchpointCoordinator(&GestureModelDefs{}, nil, nil)

	assert.ErrorIs(t, c.PopSelector(c.CurrentSelector()), ErrPopBaseSelector)
	assert.ErrorIs(t, c.PopSelector(NewMatcherSelector("x", nil, nil)), ErrSelectorNotFound)

	pushed := NewMatcherSelector("x", nil, nil)
	c.PushSelector(pushed)
	assert.Same(t, pushed, c.CurrentSelector())
	require.NoError(t, c.PopSelector(pushed))
	assert.ErrorIs(t, c.PopSelector(pushed), ErrSelectorNotFound)
}

func TestCoordinatorCloseDetachesEngines(t *testing.T) {
	c := NewTouchpointCoordinator(&GestureModelDefs{}, nil, nil)
	engine := &fakeEngine{}
	c.AddEngine(engine)
	c.Close()

	engine.start(touch(1, 0, 0, 0, "a"))
	assert.Empty(t, c.ActiveSources())
}

func TestModelDefsValidate(t *testing.T) {
	tests := []struct {
		name string
		defs GestureModelDefs
	}{
		{"no contacts", GestureModelDefs{Models: []*GestureModel{{ID: "a"}}}},
		{"duplicate", GestureModelDefs{Models: []*GestureModel{tapModel("a", 0), tapModel("a", 0)}}},
		{"unknown member", GestureModelDefs{Models: []*GestureModel{tapModel("a", 0)}, Sets: map[string][]string{"s": {"b"}}}},
		{"chain without next", GestureModelDefs{Models: []*GestureModel{{
			ID: "a", Contacts: []ContactModel{{PathModel: resolveOnRelease()}},
			Resolution: ResolutionAction{Type: ResolutionChain},
		}}}},
		{"unknown next", GestureModelDefs{Models: []*GestureModel{{
			ID: "a", Contacts: []ContactModel{{PathModel: resolveOnRelease()}},
			Resolution: ResolutionAction{Type: ResolutionChain, Next: "nowhere"},
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.defs.Validate())
		})
	}
}

func TestModelSetFallsBackToAllModels(t *testing.T) {
	defs := &GestureModelDefs{Models: []*GestureModel{tapModel("a", 0), tapModel("b", 0)}}
	assert.Len(t, defs.ModelSet(DefaultSetID), 2)
	assert.Empty(t, defs.ModelSet("other"))
}
