package recognizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/keytouch/internal/clock"
	"github.com/ayusman/keytouch/internal/gesture"
)

func constantModel(result PathResult) PathModel {
	return PathModelFunc(func(*gesture.Path) PathResult { return result })
}

func at(x, y, t float64, item string) gesture.InputSample {
	return gesture.InputSample{TargetX: x, TargetY: y, ClientX: x, ClientY: y, T: t, Item: item}
}

func TestPathMatcherRequiresModelAndSource(t *testing.T) {
	src := gesture.NewSource(1, true)
	_, err := NewPathMatcher(nil, src, nil)
	assert.ErrorIs(t, err, ErrInvalidConstruction)

	_, err = NewPathMatcher(&ContactModel{PathModel: constantModel(PathContinue)}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConstruction)

	_, err = NewPathMatcher(&ContactModel{
		PathModel: constantModel(PathContinue),
		Timer:     &TimerSpec{Duration: time.Second},
	}, src, nil)
	assert.ErrorIs(t, err, ErrInvalidConstruction)
}

func TestPathMatcherFinalizeIsIdempotent(t *testing.T) {
	src := gesture.NewSource(1, true)
	src.Update(at(0, 0, 0, "a"))

	m, err := NewPathMatcher(&ContactModel{PathModel: constantModel(PathResolve)}, src, nil)
	require.NoError(t, err)

	first := m.Update()
	second := m.Update()
	assert.Equal(t, PathMatchResult{Type: VerdictResolve, Cause: CausePath}, first)
	assert.Equal(t, first, second)

	assert.Equal(t, first, m.finalize(false, CauseTimer))
	assert.Equal(t, first, m.Cancel())

	v, ok := m.Result().Value()
	require.True(t, ok)
	assert.Equal(t, first, v)
}

func TestPathMatcherContinue(t *testing.T) {
	src := gesture.NewSource(1, true)
	src.Update(at(0, 0, 0, "a"))
	m, err := NewPathMatcher(&ContactModel{PathModel: constantModel("")}, src, nil)
	require.NoError(t, err)

	assert.Equal(t, VerdictContinue, m.Update().Type)
	assert.False(t, m.IsSettled())
}

func TestPathMatcherRejectsOnCompletionWhenUndecided(t *testing.T) {
	src := gesture.NewSource(1, true)
	src.Update(at(0, 0, 0, "a"))
	m, err := NewPathMatcher(&ContactModel{PathModel: constantModel(PathContinue)}, src, nil)
	require.NoError(t, err)

	src.Terminate(false)
	assert.Equal(t, PathMatchResult{Type: VerdictReject, Cause: CausePath}, m.Update())
}

func TestPathMatcherCancelledPathReportsPathCause(t *testing.T) {
	src := gesture.NewSource(1, true)
	src.Update(at(0, 0, 0, "a"))
	m, err := NewPathMatcher(&ContactModel{PathModel: constantModel(PathResolve)}, src, nil)
	require.NoError(t, err)

	src.Terminate(true)
	assert.Equal(t, PathMatchResult{Type: VerdictReject, Cause: CausePath}, m.Update())
}

func TestPathMatcherExplicitCancel(t *testing.T) {
	src := gesture.NewSource(1, true)
	src.Update(at(0, 0, 0, "a"))
	m, err := NewPathMatcher(&ContactModel{PathModel: constantModel(PathContinue)}, src, nil)
	require.NoError(t, err)

	assert.Equal(t, PathMatchResult{Type: VerdictReject, Cause: CauseCancelled}, m.Cancel())
}

func TestPathMatcherItemChange(t *testing.T) {
	tests := []struct {
		action Verdict
		want   Verdict
	}{
		{VerdictReject, VerdictReject},
		{VerdictResolve, VerdictResolve},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			src := gesture.NewSource(1, true)
			src.Update(at(0, 0, 0, "a"))
			m, err := NewPathMatcher(&ContactModel{
				OnItemChange: tt.action,
				PathModel:    constantModel(PathContinue),
			}, src, nil)
			require.NoError(t, err)

			assert.Equal(t, VerdictContinue, m.Update().Type)
			src.Update(at(30, 0, 20, "b"))
			assert.Equal(t, PathMatchResult{Type: tt.want, Cause: CauseItem}, m.Update())
			assert.Equal(t, "a", m.BaseItem())
			assert.Equal(t, "b", m.LastItem())
		})
	}
}

func TestPathMatcherResolutionActionOverride(t *testing.T) {
	src := gesture.NewSource(1, true)
	src.Update(at(0, 0, 0, "a"))
	m, err := NewPathMatcher(&ContactModel{
		OnPathResolve: VerdictReject,
		PathModel:     constantModel(PathResolve),
	}, src, nil)
	require.NoError(t, err)

	assert.Equal(t, PathMatchResult{Type: VerdictReject, Cause: CausePath}, m.Update())
}

func TestPathMatcherTimerAddsSyntheticSample(t *testing.T) {
	clk := clock.NewManual(0)
	src := gesture.NewSource(1, true)
	src.Update(at(5, 5, 0, "a"))
	sub := src.ConstructSubview(false, true)

	m, err := NewPathMatcher(&ContactModel{
		PathModel: constantModel(PathContinue),
		Timer:     &TimerSpec{Duration: 500 * time.Millisecond, ExpectedResult: true},
	}, sub, clk)
	require.NoError(t, err)

	clk.Advance(499 * time.Millisecond)
	assert.False(t, m.IsSettled())

	clk.Advance(time.Millisecond)
	v, ok := m.Result().Value()
	require.True(t, ok)
	assert.Equal(t, PathMatchResult{Type: VerdictResolve, Cause: CauseTimer}, v)

	assert.Equal(t, 2, src.Path().Len())
	assert.Equal(t, 2, sub.Path().Len())
	assert.InDelta(t, 0.5, sub.Path().Stats().Duration(), 1e-9)
}

func TestPathMatcherTimerUnexpectedRejects(t *testing.T) {
	clk := clock.NewManual(0)
	src := gesture.NewSource(1, true)
	src.Update(at(5, 5, 0, "a"))

	m, err := NewPathMatcher(&ContactModel{
		PathModel: constantModel(PathContinue),
		Timer:     &TimerSpec{Duration: 100 * time.Millisecond, ExpectedResult: false},
	}, src, clk)
	require.NoError(t, err)

	clk.Advance(100 * time.Millisecond)
	v, _ := m.Result().Value()
	assert.Equal(t, PathMatchResult{Type: VerdictReject, Cause: CauseTimer}, v)
}

func TestPathMatcherTimerCancelledOnPublish(t *testing.T) {
	clk := clock.NewManual(0)
	src := gesture.NewSource(1, true)
	src.Update(at(5, 5, 0, "a"))

	m, err := NewPathMatcher(&ContactModel{
		PathModel: constantModel(PathResolve),
		Timer:     &TimerSpec{Duration: 100 * time.Millisecond, ExpectedResult: false},
	}, src, clk)
	require.NoError(t, err)
	require.Equal(t, 1, clk.Pending())

	m.Update()
	assert.Equal(t, 0, clk.Pending())
	clk.Advance(time.Second)
	assert.Equal(t, 1, src.Path().Len())
}

func TestPathMatcherTimerSkipsSampleOnCompletePath(t *testing.T) {
	clk := clock.NewManual(0)
	src := gesture.NewSource(1, true)
	src.Update(at(5, 5, 0, "a"))
	src.Terminate(false)

	m, err := NewPathMatcher(&ContactModel{
		PathModel: constantModel(PathContinue),
		Timer:     &TimerSpec{Duration: 100 * time.Millisecond, ExpectedResult: true},
	}, src, clk)
	require.NoError(t, err)

	clk.Advance(100 * time.Millisecond)
	assert.True(t, m.IsSettled())
	assert.Equal(t, 1, src.Path().Len())
}
