package gesture

import (
	"encoding/json"

	"github.com/ayusman/keytouch/internal/event"
)

// Path is the append-only record of one contact point's samples. It keeps
// running statistics and splits itself into segments as samples arrive.
//
// Event order: step precedes the segmentation events of the same sample.
// A normal Terminate emits the end segment and then complete; a cancelling
// Terminate emits invalidated and then the end segment.
type Path struct {
	config       SegmentationConfig
	samples      []InputSample
	stats        *CumulativePathStats
	seg          *segmenter
	isComplete   bool
	wasCancelled bool

	stepListeners         event.Registry[func(InputSample)]
	segmentationListeners event.Registry[func(*Segment)]
	completeListeners     event.Registry[func()]
	invalidatedListeners  event.Registry[func()]
}

// NewPath creates an empty path using the default segmentation thresholds.
func NewPath() *Path {
	return NewPathWithConfig(DefaultSegmentationConfig())
}

// NewPathWithConfig creates an empty path with custom segmentation thresholds.
func NewPathWithConfig(config SegmentationConfig) *Path {
	p := &Path{config: config, stats: NewStats()}
	p.seg = newSegmenter(config, p.emitSegmentation)
	return p
}

func (p *Path) emitSegmentation(s *Segment) {
	p.segmentationListeners.Each(func(f func(*Segment)) { f(s) })
}

// Extend appends a sample. Samples arriving after termination are ignored.
func (p *Path) Extend(sample InputSample) {
	if p.isComplete {
		return
	}
	p.samples = append(p.samples, sample)
	p.stats = p.stats.Extend(sample)

	p.stepListeners.Each(func(f func(InputSample)) { f(sample) })
	p.seg.add(sample, p.stats)
}

// Terminate finalizes the path. Later calls have no effect.
func (p *Path) Terminate(cancel bool) {
	if p.isComplete {
		return
	}
	p.isComplete = true
	p.wasCancelled = cancel

	if cancel {
		p.invalidatedListeners.Each(func(f func()) { f() })
		p.seg.close()
		return
	}
	p.seg.close()
	p.completeListeners.Each(func(f func()) { f() })
}

// OnStep subscribes to new samples. The returned func unsubscribes.
func (p *Path) OnStep(f func(InputSample)) func() { return p.stepListeners.Add(f) }

// OnSegmentation subscribes to segment creation.
func (p *Path) OnSegmentation(f func(*Segment)) func() { return p.segmentationListeners.Add(f) }

// OnComplete subscribes to normal termination.
func (p *Path) OnComplete(f func()) func() { return p.completeListeners.Add(f) }

// OnInvalidated subscribes to cancelling termination.
func (p *Path) OnInvalidated(f func()) func() { return p.invalidatedListeners.Add(f) }

func (p *Path) IsComplete() bool   { return p.isComplete }
func (p *Path) WasCancelled() bool { return p.wasCancelled }

// Stats returns statistics over the whole path.
func (p *Path) Stats() *CumulativePathStats { return p.stats }

// Len returns the number of samples.
func (p *Path) Len() int { return len(p.samples) }

// Samples returns a copy of the recorded samples.
func (p *Path) Samples() []InputSample {
	return append([]InputSample(nil), p.samples...)
}

// Segments returns the segments produced so far, including the start and end markers.
func (p *Path) Segments() []*Segment {
	return append([]*Segment(nil), p.seg.segments...)
}

// First returns the earliest sample.
func (p *Path) First() (InputSample, bool) {
	if len(p.samples) == 0 {
		return InputSample{}, false
	}
	return p.samples[0], true
}

// Last returns the most recent sample.
func (p *Path) Last() (InputSample, bool) {
	if len(p.samples) == 0 {
		return InputSample{}, false
	}
	return p.samples[len(p.samples)-1], true
}

// Config returns the segmentation thresholds of the path.
func (p *Path) Config() SegmentationConfig { return p.config }

// Clone returns an independent copy with the same samples and terminal state
// but no listeners.
func (p *Path) Clone() *Path {
	c := NewPathWithConfig(p.config)
	for _, s := range p.samples {
		c.Extend(s)
	}
	if p.isComplete {
		c.Terminate(p.wasCancelled)
	}
	return c
}

// SerializedPath is the JSON form of a path.
type SerializedPath struct {
	Coords       []InputSample `json:"coords"`
	WasCancelled bool          `json:"wasCancelled,omitempty"`
	IsComplete   bool          `json:"isComplete,omitempty"`
}

// Serialize returns the JSON-ready form of the path.
func (p *Path) Serialize() SerializedPath {
	return SerializedPath{
		Coords:       p.Samples(),
		WasCancelled: p.wasCancelled,
		IsComplete:   p.isComplete,
	}
}

func (p *Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Serialize())
}

// DeserializePath rebuilds a path by replaying its samples.
func DeserializePath(sp SerializedPath, config SegmentationConfig) *Path {
	p := NewPathWithConfig(config)
	for _, s := range sp.Coords {
		p.Extend(s)
	}
	if sp.IsComplete || sp.WasCancelled {
		p.Terminate(sp.WasCancelled)
	}
	return p
}
