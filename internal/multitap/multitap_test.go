package multitap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ayusman/keytouch/internal/clock"
)

type key struct {
	id      string
	layer   string
	subkeys bool
}

func (k key) KeyID() string          { return k.id }
func (k key) HasSubkeys() bool       { return k.subkeys }
func (k key) MultiTapTarget() string { return k.layer }

type keyboard struct {
	layers  map[string]bool
	touches int
}

func (k keyboard) HasLayer(name string) bool { return k.layers[name] }
func (k keyboard) TouchCount() int           { return k.touches }

var shift = key{id: "K_SHIFT", layer: "caps"}

func TestIsValidTarget(t *testing.T) {
	kbd := keyboard{layers: map[string]bool{"caps": true}, touches: 1}

	assert.True(t, IsValidTarget(kbd, shift))
	assert.False(t, IsValidTarget(kbd, key{id: "K_A"}))
	assert.False(t, IsValidTarget(kbd, key{id: "K_SHIFT", layer: "caps", subkeys: true}))
	assert.False(t, IsValidTarget(keyboard{layers: map[string]bool{}, touches: 1}, shift))
	assert.False(t, IsValidTarget(keyboard{layers: map[string]bool{"caps": true}, touches: 2}, shift))
}

func TestDoubleTapRealizes(t *testing.T) {
	clk := clock.NewManual(0)
	var layers []string
	p := New(clk, shift, 2, func(layer string) { layers = append(layers, layer) })

	clk.Advance(100 * time.Millisecond)
	assert.Equal(t, Realized, p.IncrementTouch(shift))
	assert.True(t, p.Realized())
	assert.Equal(t, []string{"caps"}, layers)
	assert.Equal(t, 0, clk.Pending())

	p.Realize()
	p.Cancel()
	assert.Equal(t, Realized, p.State())
	assert.Len(t, layers, 1)
}

func TestOtherKeyCancels(t *testing.T) {
	clk := clock.NewManual(0)
	p := New(clk, shift, 2, nil)

	assert.Equal(t, Cancelled, p.IncrementTouch(key{id: "K_A"}))
	assert.Equal(t, Cancelled, p.IncrementTouch(shift))
	assert.Equal(t, 1, p.Touches())
	assert.Equal(t, 0, clk.Pending())
}

func TestTimeoutCancels(t *testing.T) {
	clk := clock.NewManual(0)
	p := New(clk, shift, 3, func(string) { t.Error("should not realize") })

	clk.Advance(374 * time.Millisecond)
	assert.Equal(t, Waiting, p.IncrementTouch(shift))
	assert.False(t, p.Timeout().IsSettled())

	clk.Advance(time.Millisecond)
	assert.True(t, p.Cancelled())
	assert.True(t, p.Timeout().IsSettled())
	assert.Equal(t, Cancelled, p.IncrementTouch(shift))
}

func TestCustomDelayFactor(t *testing.T) {
	clk := clock.NewManual(0)
	p := New(clk, shift, 2, nil, WithDelayFactor(50*time.Millisecond))

	clk.Advance(100 * time.Millisecond)
	assert.True(t, p.Cancelled())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "waiting", Waiting.String())
	assert.Equal(t, "realized", Realized.String())
	assert.Equal(t, "cancelled", Cancelled.String())
}
