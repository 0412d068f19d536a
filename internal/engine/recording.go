package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/keytouch/internal/clock"
	"github.com/ayusman/keytouch/internal/gesture"
	"github.com/ayusman/keytouch/internal/settle"
)

// ErrEmptyRecording is returned for recordings without any samples.
var ErrEmptyRecording = errors.New("recording has no samples")

// RecordedInput groups the contacts of one recorded interaction.
type RecordedInput struct {
	Touchpoints []gesture.SerializedSource `json:"touchpoints"`
}

// Recording is a saved set of contact paths with their original timing.
type Recording struct {
	Inputs []RecordedInput `json:"inputs"`
}

// ParseRecording decodes and validates a recording.
func ParseRecording(data []byte) (*Recording, error) {
	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Validate checks that the recording holds at least one sample and that
// every path's timestamps never decrease.
func (r *Recording) Validate() error {
	total := 0
	for i, input := range r.Inputs {
		for j, tp := range input.Touchpoints {
			coords := tp.Path.Coords
			for k := 1; k < len(coords); k++ {
				if coords[k].T < coords[k-1].T {
					return fmt.Errorf("input %d touchpoint %d sample %d: %w", i, j, k, gesture.ErrInvalidArgument)
				}
			}
			total += len(coords)
		}
	}
	if total == 0 {
		return ErrEmptyRecording
	}
	return nil
}

// Span returns the timestamps of the first and last recorded samples.
func (r *Recording) Span() (start, end float64) {
	start, end = math.Inf(1), math.Inf(-1)
	for _, input := range r.Inputs {
		for _, tp := range input.Touchpoints {
			coords := tp.Path.Coords
			if len(coords) == 0 {
				continue
			}
			start = math.Min(start, coords[0].T)
			end = math.Max(end, coords[len(coords)-1].T)
		}
	}
	if math.IsInf(start, 1) {
		return 0, 0
	}
	return start, end
}

// Touchpoints returns every recorded contact in order.
func (r *Recording) Touchpoints() []gesture.SerializedSource {
	var all []gesture.SerializedSource
	for _, input := range r.Inputs {
		all = append(all, input.Touchpoints...)
	}
	return all
}

// RecordSources builds a single-input recording from sources.
func RecordSources(sources ...*gesture.Source) *Recording {
	input := RecordedInput{}
	for _, src := range sources {
		input.Touchpoints = append(input.Touchpoints, gesture.SerializedSource{
			IsFromTouch: src.IsFromTouch(),
			Path:        src.Path().Serialize(),
		})
	}
	return &Recording{Inputs: []RecordedInput{input}}
}

// Playback is a recording being replayed on an engine's clock.
type Playback struct {
	engine *Engine
	offset float64
	end    float64
	points []*replayPoint
	live   int
	done   *settle.Cell[struct{}]
}

type replayPoint struct {
	id        int
	touch     bool
	cancelled bool
	samples   []gesture.InputSample
	next      int
	timer     clock.Timer
	finished  bool
}

// Schedule replays rec on the engine. The first recorded sample is played
// at the current clock time and every later one keeps its recorded offset.
// Each recorded contact is given a fresh id from the engine's seed.
func (e *Engine) Schedule(rec *Recording) *Playback {
	start, end := rec.Span()
	p := &Playback{
		engine: e,
		offset: e.clock.Now() - start,
		done:   settle.New[struct{}](),
	}
	p.end = end + p.offset

	for _, tp := range rec.Touchpoints() {
		if len(tp.Path.Coords) == 0 {
			continue
		}
		rp := &replayPoint{
			id:        e.NextID(),
			touch:     tp.IsFromTouch,
			cancelled: tp.Path.WasCancelled,
			samples:   make([]gesture.InputSample, len(tp.Path.Coords)),
		}
		for i, s := range tp.Path.Coords {
			rp.samples[i] = s.At(s.T + p.offset)
		}
		p.points = append(p.points, rp)
		p.live++
		p.arm(rp)
	}

	if p.live == 0 {
		p.done.Resolve(struct{}{})
	}
	return p
}

func (p *Playback) arm(rp *replayPoint) {
	delay := rp.samples[rp.next].T - p.engine.clock.Now()
	if delay < 0 {
		delay = 0
	}
	rp.timer = p.engine.clock.AfterFunc(clock.Millis(delay), func() { p.step(rp) })
}

func (p *Playback) step(rp *replayPoint) {
	rp.timer = nil
	sample := rp.samples[rp.next]
	if rp.next == 0 {
		p.engine.Start(rp.id, sample, rp.touch)
	} else {
		p.engine.Move(rp.id, rp.touch, sample)
	}
	rp.next++

	if rp.next < len(rp.samples) {
		p.arm(rp)
		return
	}

	if rp.cancelled {
		p.engine.Cancel(rp.id, rp.touch)
	} else {
		p.engine.End(rp.id, rp.touch, sample.T)
	}
	p.finish(rp)
}

func (p *Playback) finish(rp *replayPoint) {
	if rp.finished {
		return
	}
	rp.finished = true
	p.live--
	if p.live == 0 {
		p.done.Resolve(struct{}{})
	}
}

// End returns the clock time of the last replayed sample.
func (p *Playback) End() float64 { return p.end }

// Done settles once every contact has been released or cancelled.
func (p *Playback) Done() *settle.Cell[struct{}] { return p.done }

// Stop abandons the replay. Contacts already started are cancelled.
func (p *Playback) Stop() {
	for _, rp := range p.points {
		if rp.finished {
			continue
		}
		if rp.timer != nil {
			rp.timer.Stop()
			rp.timer = nil
		}
		if rp.next > 0 {
			p.engine.Cancel(rp.id, rp.touch)
		}
		p.finish(rp)
	}
}

// Executor runs f on the goroutine that owns an engine and waits for it.
// *clock.Loop satisfies it.
type Executor interface {
	Do(ctx context.Context, f func()) error
}

// Replay plays rec in real time and blocks until it finishes or ctx ends.
// It must not be called from the executor's own goroutine.
func (e *Engine) Replay(ctx context.Context, exec Executor, rec *Recording) error {
	var pb *Playback
	finished := make(chan struct{})
	err := exec.Do(ctx, func() {
		pb = e.Schedule(rec)
		pb.Done().Then(func(struct{}) { close(finished) })
	})
	if err != nil {
		return fmt.Errorf("schedule replay: %w", err)
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		_ = exec.Do(context.Background(), pb.Stop)
		return ctx.Err()
	}
}
