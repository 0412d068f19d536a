package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualFiresInOrder(t *testing.T) {
	m := NewManual(100)
	var fired []string

	m.AfterFunc(20*time.Millisecond, func() { fired = append(fired, "b") })
	m.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "a") })
	m.AfterFunc(20*time.Millisecond, func() { fired = append(fired, "c") })

	m.Advance(15 * time.Millisecond)
	assert.Equal(t, []string{"a"}, fired)
	assert.Equal(t, 115.0, m.Now())

	m.Advance(5 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Equal(t, 0, m.Pending())
}

func TestManualNowDuringCallback(t *testing.T) {
	m := NewManual(0)
	var seen float64
	m.AfterFunc(30*time.Millisecond, func() { seen = m.Now() })
	m.Advance(time.Second)
	assert.Equal(t, 30.0, seen)
	assert.Equal(t, 1000.0, m.Now())
}

func TestManualStop(t *testing.T) {
	m := NewManual(0)
	fired := false
	timer := m.AfterFunc(10*time.Millisecond, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	m.Advance(20 * time.Millisecond)
	assert.False(t, fired)
}

func TestManualChainedTimers(t *testing.T) {
	m := NewManual(0)
	count := 0
	var schedule func()
	schedule = func() {
		count++
		if count < 3 {
			m.AfterFunc(0, schedule)
		}
	}
	m.AfterFunc(5*time.Millisecond, schedule)
	m.Advance(5 * time.Millisecond)
	assert.Equal(t, 3, count)
}

func TestLoopSerializesCallbacks(t *testing.T) {
	loop := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, loop.Post(func() { order = append(order, i) }))
	}
	require.NoError(t, loop.Do(ctx, func() {}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLoopTimer(t *testing.T) {
	loop := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	fired := make(chan float64, 1)
	loop.AfterFunc(5*time.Millisecond, func() { fired <- loop.Now() })

	select {
	case now := <-fired:
		assert.GreaterOrEqual(t, now, 5.0)
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	stopped := loop.AfterFunc(5*time.Millisecond, func() { t.Error("stopped timer fired") })
	assert.True(t, stopped.Stop())
	time.Sleep(20 * time.Millisecond)
}

func TestLoopPostAfterStop(t *testing.T) {
	loop := NewLoop(1)
	loop.Stop()
	assert.ErrorIs(t, loop.Post(func() {}), ErrLoopStopped)
}
