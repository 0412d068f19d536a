package gesture

import "fmt"

// SegmentType classifies a segment of a path.
type SegmentType string

// An open segment has no type until it is closed.
const (
	SegmentStart SegmentType = "start"
	SegmentEnd   SegmentType = "end"
	SegmentHold  SegmentType = "hold"
	SegmentMove  SegmentType = "move"
)

// Segment is a run of samples sharing one motion phase. StartIndex and
// EndIndex are inclusive sample indices into the owning path. Neighbouring
// segments share their boundary sample. Type stays empty until the segment
// is closed and classified; start and end markers cover a single sample.
type Segment struct {
	Type       SegmentType
	StartIndex int
	EndIndex   int
	Stats      *CumulativePathStats
}

// SegmentationConfig tunes how paths are split into hold and move segments.
type SegmentationConfig struct {
	// WindowMs is the length of the trailing window used to classify motion.
	WindowMs float64
	// HoldSpeed is the window speed (px/s) below which motion counts as a hold.
	HoldSpeed float64
	// MinSegmentMs is the minimum duration of a segment before it may close.
	MinSegmentMs float64
}

// DefaultSegmentationConfig returns the stock thresholds.
func DefaultSegmentationConfig() SegmentationConfig {
	return SegmentationConfig{
		WindowMs:     48,
		HoldSpeed:    80,
		MinSegmentMs: 64,
	}
}

type segmenter struct {
	config   SegmentationConfig
	samples  []InputSample
	prefixes []*CumulativePathStats
	segments []*Segment
	open     *Segment
	class    SegmentType
	closed   bool
	emit     func(*Segment)
}

func newSegmenter(config SegmentationConfig, emit func(*Segment)) *segmenter {
	return &segmenter{config: config, emit: emit}
}

// rangeStats returns the stats of samples[from..to].
func (sg *segmenter) rangeStats(from, to int) *CumulativePathStats {
	full := sg.prefixes[to]
	if from == 0 {
		return full
	}
	prefix := sg.prefixes[from-1].Followed(sg.samples[from])
	stats, err := full.Deaccumulate(prefix)
	if err != nil {
		panic(fmt.Sprintf("gesture: segment stats: %v", err))
	}
	return stats
}

// windowStart returns the first index inside the trailing window.
func (sg *segmenter) windowStart() int {
	last := len(sg.samples) - 1
	cutoff := sg.samples[last].T - sg.config.WindowMs
	i := last
	for i > 0 && sg.samples[i-1].T >= cutoff {
		i--
	}
	return i
}

func (sg *segmenter) classify(stats *CumulativePathStats) SegmentType {
	d := stats.Duration()
	if stats.SampleCount() < 2 || !(d > 0) {
		return ""
	}
	if stats.RawDistance()/d < sg.config.HoldSpeed {
		return SegmentHold
	}
	return SegmentMove
}

func (sg *segmenter) add(sample InputSample, stats *CumulativePathStats) {
	if sg.closed {
		return
	}
	sg.samples = append(sg.samples, sample)
	sg.prefixes = append(sg.prefixes, stats)
	last := len(sg.samples) - 1

	if last == 0 {
		start := &Segment{Type: SegmentStart, Stats: stats}
		sg.open = &Segment{Stats: stats}
		sg.segments = append(sg.segments, start, sg.open)
		sg.emit(start)
		sg.emit(sg.open)
		return
	}

	sg.open.EndIndex = last
	sg.open.Stats = sg.rangeStats(sg.open.StartIndex, last)

	ws := sg.windowStart()
	class := sg.classify(sg.rangeStats(ws, last))
	if class == "" {
		return
	}
	if sg.class == "" {
		sg.class = class
		return
	}
	if class == sg.class || ws <= sg.open.StartIndex {
		return
	}
	if sg.samples[ws].T-sg.samples[sg.open.StartIndex].T < sg.config.MinSegmentMs {
		return
	}

	sg.open.EndIndex = ws
	sg.open.Stats = sg.rangeStats(sg.open.StartIndex, ws)
	sg.open.Type = sg.class

	next := &Segment{StartIndex: ws, EndIndex: last, Stats: sg.rangeStats(ws, last)}
	sg.open = next
	sg.class = class
	sg.segments = append(sg.segments, next)
	sg.emit(next)
}

func (sg *segmenter) close() {
	if sg.closed {
		return
	}
	sg.closed = true

	last := len(sg.samples) - 1
	if last < 0 {
		end := &Segment{Type: SegmentEnd, StartIndex: -1, EndIndex: -1, Stats: NewStats()}
		sg.segments = append(sg.segments, end)
		sg.emit(end)
		return
	}

	if sg.open != nil && sg.open.Stats.Duration() > 0 && sg.class != "" {
		sg.open.Type = sg.class
	}
	end := &Segment{Type: SegmentEnd, StartIndex: last, EndIndex: last, Stats: sg.rangeStats(last, last)}
	sg.segments = append(sg.segments, end)
	sg.emit(end)
}
