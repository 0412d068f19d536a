// Package multitap tracks a pending multi-tap: a series of taps on the same
// key that must complete within a time window.
package multitap

import (
	"time"

	"github.com/ayusman/keytouch/internal/clock"
	"github.com/ayusman/keytouch/internal/settle"
)

// DefaultDelayFactor is the time allowed per required tap.
const DefaultDelayFactor = 125 * time.Millisecond

// State is the lifecycle state of a pending multi-tap.
type State int

const (
	Waiting State = iota
	Realized
	Cancelled
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Realized:
		return "realized"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Key is the key metadata a multi-tap needs.
type Key interface {
	KeyID() string
	HasSubkeys() bool
	// MultiTapTarget names the layer selected when the multi-tap completes.
	MultiTapTarget() string
}

// Keyboard is the keyboard state a multi-tap needs.
type Keyboard interface {
	HasLayer(name string) bool
	TouchCount() int
}

// IsValidTarget reports whether a tap on key may start a multi-tap.
func IsValidTarget(kbd Keyboard, key Key) bool {
	layer := key.MultiTapTarget()
	return layer != "" &&
		kbd.HasLayer(layer) &&
		!key.HasSubkeys() &&
		kbd.TouchCount() == 1
}

// PendingMultiTap counts taps on a base key. It starts with one touch
// already counted. When count touches land before the timeout the layer
// switch callback runs once.
type PendingMultiTap struct {
	baseKey     Key
	count       int
	touches     int
	state       State
	clock       clock.Clock
	timer       clock.Timer
	delayFactor time.Duration
	onRealize   func(layer string)
	timeout     *settle.Cell[struct{}]
}

// Option configures a PendingMultiTap.
type Option func(*PendingMultiTap)

// WithDelayFactor overrides the time allowed per required tap.
func WithDelayFactor(d time.Duration) Option {
	return func(p *PendingMultiTap) { p.delayFactor = d }
}

// New starts waiting for count taps on baseKey.
func New(clk clock.Clock, baseKey Key, count int, onRealize func(layer string), opts ...Option) *PendingMultiTap {
	p := &PendingMultiTap{
		baseKey:     baseKey,
		count:       count,
		touches:     1,
		state:       Waiting,
		clock:       clk,
		delayFactor: DefaultDelayFactor,
		onRealize:   onRealize,
		timeout:     settle.New[struct{}](),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.timer = clk.AfterFunc(p.delayFactor*time.Duration(count), func() {
		p.Cancel()
		p.timeout.Resolve(struct{}{})
	})
	return p
}

func (p *PendingMultiTap) cleanup() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Cancel abandons a waiting multi-tap.
func (p *PendingMultiTap) Cancel() {
	if p.state != Waiting {
		return
	}
	p.state = Cancelled
	p.cleanup()
}

// IncrementTouch records a tap on newKey and returns the resulting state.
// A tap on any other key cancels the multi-tap.
func (p *PendingMultiTap) IncrementTouch(newKey Key) State {
	if p.state == Waiting {
		if newKey.KeyID() != p.baseKey.KeyID() {
			p.Cancel()
		} else {
			p.touches++
			if p.touches == p.count {
				p.Realize()
			}
		}
	}
	return p.state
}

// Realize completes a waiting multi-tap and raises the layer switch.
func (p *PendingMultiTap) Realize() {
	if p.state != Waiting {
		return
	}
	p.state = Realized
	p.cleanup()

	if p.onRealize != nil {
		p.onRealize(p.baseKey.MultiTapTarget())
	}
}

func (p *PendingMultiTap) State() State    { return p.state }
func (p *PendingMultiTap) Realized() bool  { return p.state == Realized }
func (p *PendingMultiTap) Cancelled() bool { return p.state == Cancelled }
func (p *PendingMultiTap) Touches() int    { return p.touches }
func (p *PendingMultiTap) BaseKey() Key    { return p.baseKey }

// Timeout settles when the tap window elapses without completion.
func (p *PendingMultiTap) Timeout() *settle.Cell[struct{}] { return p.timeout }
