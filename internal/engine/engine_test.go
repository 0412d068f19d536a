package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/keytouch/internal/clock"
	"github.com/ayusman/keytouch/internal/gesture"
	"github.com/ayusman/keytouch/internal/recognizer"
)

func at(x, y, t float64, item string) gesture.InputSample {
	return gesture.InputSample{TargetX: x, TargetY: y, ClientX: x, ClientY: y, T: t, Item: item}
}

func TestEngineLifecycle(t *testing.T) {
	e := New(clock.NewManual(0), gesture.DefaultSegmentationConfig())

	var started []*gesture.Source
	e.OnPointStart(func(src *gesture.Source) { started = append(started, src) })

	src := e.Start(3, at(1, 1, 0, "K_A"), true)
	require.Len(t, started, 1)
	assert.Same(t, src, started[0])
	assert.Equal(t, "touch:3", src.Identifier())
	assert.Equal(t, 1, src.Path().Len())

	assert.True(t, e.Move(3, true, at(2, 1, 10, "K_A")))
	assert.False(t, e.Move(9, true, at(2, 1, 10, "K_A")))
	assert.Len(t, e.ActivePoints(), 1)

	assert.True(t, e.End(3, true, 50))
	assert.True(t, src.IsPathComplete())
	assert.Equal(t, 3, src.Path().Len())
	last, _ := src.CurrentSample()
	assert.Equal(t, 50.0, last.T)
	assert.Equal(t, 2.0, last.TargetX)

	assert.Empty(t, e.ActivePoints())
	assert.False(t, e.End(3, true, 60))
}

func TestEngineEndAtLastSampleTimeAddsNothing(t *testing.T) {
	e := New(clock.NewManual(0), gesture.DefaultSegmentationConfig())
	src := e.Start(1, at(0, 0, 0, ""), false)
	e.Move(1, false, at(5, 0, 20, ""))
	e.End(1, false, 20)

	assert.Equal(t, 2, src.Path().Len())
	assert.Equal(t, "mouse:1", src.Identifier())
}

func TestEngineCancellation(t *testing.T) {
	e := New(clock.NewManual(0), gesture.DefaultSegmentationConfig())

	a := e.Start(1, at(0, 0, 0, ""), true)
	assert.True(t, e.MoveCancel(1, true, at(3, 0, 10, "")))
	assert.True(t, a.Path().WasCancelled())
	assert.Equal(t, 2, a.Path().Len())

	b := e.Start(2, at(0, 0, 0, ""), true)
	c := e.Start(2, at(9, 9, 5, ""), true)
	assert.True(t, b.Path().WasCancelled())
	assert.Equal(t, []*gesture.Source{c}, e.ActivePoints())

	e.Start(4, at(0, 0, 0, ""), true)
	e.CancelAll()
	assert.Empty(t, e.ActivePoints())
	assert.True(t, c.Path().WasCancelled())
	assert.False(t, e.Cancel(4, true))
}

func TestEngineSeparatesTouchAndMouseIDs(t *testing.T) {
	e := New(clock.NewManual(0), gesture.DefaultSegmentationConfig())

	touch := e.Start(1, at(0, 0, 0, "K_A"), true)
	mouse := e.Start(1, at(50, 50, 5, "K_B"), false)

	assert.False(t, touch.Path().WasCancelled())
	assert.Equal(t, "touch:1", touch.Identifier())
	assert.Equal(t, "mouse:1", mouse.Identifier())
	assert.Len(t, e.ActivePoints(), 2)

	require.True(t, e.Move(1, false, at(60, 50, 10, "K_B")))
	assert.Equal(t, 1, touch.Path().Len())
	assert.Equal(t, 2, mouse.Path().Len())

	require.True(t, e.End(1, true, 20))
	assert.True(t, touch.IsPathComplete())
	assert.False(t, mouse.IsPathComplete())
	assert.Equal(t, []*gesture.Source{mouse}, e.ActivePoints())

	assert.False(t, e.Cancel(1, true))
	assert.True(t, e.Cancel(1, false))
	assert.True(t, mouse.Path().WasCancelled())
}

func TestEngineFeedsCoordinator(t *testing.T) {
	clk := clock.NewManual(0)
	e := New(clk, gesture.DefaultSegmentationConfig())

	defs := &recognizer.GestureModelDefs{Models: []*recognizer.GestureModel{{
		ID: "tap",
		Contacts: []recognizer.ContactModel{{
			PathModel: recognizer.PathModelFunc(func(path *gesture.Path) recognizer.PathResult {
				if path.IsComplete() {
					return recognizer.PathResolve
				}
				return recognizer.PathContinue
			}),
		}},
		Resolution: recognizer.ResolutionAction{Type: recognizer.ResolutionComplete, Item: recognizer.ItemCurrent},
	}}}
	coord := recognizer.NewTouchpointCoordinator(defs, clk, nil)
	coord.AddEngine(e)

	var items []string
	coord.OnRecognizedGesture(func(seq *recognizer.GestureSequence) {
		seq.OnUpdate(func(stage recognizer.GestureStage) { items = append(items, stage.Item) })
	})

	e.Start(1, at(0, 0, 0, "K_Q"), true)
	clk.Advance(40 * time.Millisecond)
	e.End(1, true, clk.Now())

	assert.Equal(t, []string{"K_Q"}, items)

	coord.Close()
	e.Start(2, at(0, 0, 50, "K_W"), true)
	e.End(2, true, 60)
	assert.Equal(t, []string{"K_Q"}, items)
}

func TestNextID(t *testing.T) {
	e := New(clock.NewManual(0), gesture.DefaultSegmentationConfig())
	assert.Equal(t, 1, e.NextID())
	assert.Equal(t, 2, e.NextID())
}
