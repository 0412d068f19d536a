package gesture

import (
	"encoding/json"
	"fmt"
	"math"
)

// Direction is one of the eight compass buckets of a path's angle.
// Screen y grows downward, so "n" means toward the top of the screen.
type Direction string

const (
	DirN  Direction = "n"
	DirNE Direction = "ne"
	DirE  Direction = "e"
	DirSE Direction = "se"
	DirS  Direction = "s"
	DirSW Direction = "sw"
	DirW  Direction = "w"
	DirNW Direction = "nw"
)

var directionBuckets = []Direction{DirN, DirNE, DirE, DirSE, DirS, DirSW, DirW, DirNW}

// CumulativePathStats summarizes a path in running sums so that statistics
// over any contiguous sub-range can be derived by subtracting prefix stats.
// Values are immutable: Extend and Deaccumulate return new instances.
//
// Centroid sums are kept relative to the first sample ever seen to reduce
// cancellation error on long paths; the base never changes under Deaccumulate.
type CumulativePathStats struct {
	xCentroidSum float64
	yCentroidSum float64
	coordArcSum  float64

	speedLinearSum float64
	speedQuadSum   float64

	cosLinearSum   float64
	sinLinearSum   float64
	arcSampleCount int

	baseSample      *InputSample
	initialSample   *InputSample
	lastSample      *InputSample
	followingSample *InputSample

	sampleCount int
}

// NewStats returns empty path statistics.
func NewStats() *CumulativePathStats {
	return &CumulativePathStats{}
}

func (s *CumulativePathStats) clone() *CumulativePathStats {
	c := *s
	return &c
}

// Extend returns the statistics of the path with sample appended.
func (s *CumulativePathStats) Extend(sample InputSample) *CumulativePathStats {
	result := s.clone()
	next := sample
	result.followingSample = nil

	if s.initialSample == nil {
		result.initialSample = &next
	}
	if s.baseSample == nil {
		result.baseSample = &next
	}

	if s.lastSample != nil {
		prev := *s.lastSample
		dx := next.TargetX - prev.TargetX
		dy := next.TargetY - prev.TargetY
		dt := (next.T - prev.T) / 1000

		base := *result.baseSample
		result.xCentroidSum += 0.5 * dt * ((next.TargetX - base.TargetX) + (prev.TargetX - base.TargetX))
		result.yCentroidSum += 0.5 * dt * ((next.TargetY - base.TargetY) + (prev.TargetY - base.TargetY))

		arc := math.Hypot(dx, dy)
		result.coordArcSum += arc

		if dx != 0 || dy != 0 {
			result.cosLinearSum += -dy / arc
			result.sinLinearSum += dx / arc
			result.arcSampleCount++
		}

		if dt != 0 {
			speed := arc / dt
			result.speedLinearSum += speed
			result.speedQuadSum += speed * speed
		}
	}

	result.lastSample = &next
	result.sampleCount = s.sampleCount + 1
	return result
}

// Followed returns a copy of the statistics that records sample as the one
// immediately after this range. Deaccumulate needs it to remove the step
// that links a prefix to the remainder of the path.
func (s *CumulativePathStats) Followed(sample InputSample) *CumulativePathStats {
	result := s.clone()
	next := sample
	result.followingSample = &next
	return result
}

// Deaccumulate removes a leading sub-range from the statistics. subset must
// be the stats of a prefix of this path with its following sample recorded
// through Followed. A nil subset returns an unchanged copy.
func (s *CumulativePathStats) Deaccumulate(subset *CumulativePathStats) (*CumulativePathStats, error) {
	result := s.clone()
	if subset == nil {
		return result, nil
	}
	if subset.followingSample == nil || subset.lastSample == nil {
		return nil, fmt.Errorf("%w: subset stats lack a last or following sample", ErrInvalidArgument)
	}

	last := *subset.lastSample
	following := *subset.followingSample
	dx := following.TargetX - last.TargetX
	dy := following.TargetY - last.TargetY
	dt := (following.T - last.T) / 1000

	if result.baseSample != nil {
		base := *result.baseSample
		result.xCentroidSum -= 0.5 * dt * ((following.TargetX - base.TargetX) + (last.TargetX - base.TargetX))
		result.yCentroidSum -= 0.5 * dt * ((following.TargetY - base.TargetY) + (last.TargetY - base.TargetY))
		if subset.baseSample != nil && *subset.baseSample != base {
			// Rebase the subset's sums onto our base before subtracting.
			sb := *subset.baseSample
			span := subset.Duration()
			result.xCentroidSum -= subset.xCentroidSum + span*(sb.TargetX-base.TargetX)
			result.yCentroidSum -= subset.yCentroidSum + span*(sb.TargetY-base.TargetY)
		} else {
			result.xCentroidSum -= subset.xCentroidSum
			result.yCentroidSum -= subset.yCentroidSum
		}
	}

	arc := math.Hypot(dx, dy)
	result.coordArcSum -= arc + subset.coordArcSum

	if dx != 0 || dy != 0 {
		result.cosLinearSum -= -dy / arc
		result.sinLinearSum -= dx / arc
		result.arcSampleCount--
	}
	result.cosLinearSum -= subset.cosLinearSum
	result.sinLinearSum -= subset.sinLinearSum
	result.arcSampleCount -= subset.arcSampleCount

	if dt != 0 {
		speed := arc / dt
		result.speedLinearSum -= speed
		result.speedQuadSum -= speed * speed
	}
	result.speedLinearSum -= subset.speedLinearSum
	result.speedQuadSum -= subset.speedQuadSum

	result.sampleCount -= subset.sampleCount
	result.initialSample = &following
	return result, nil
}

// SampleCount is the number of samples covered.
func (s *CumulativePathStats) SampleCount() int { return s.sampleCount }

// InitialSample returns the first sample covered.
func (s *CumulativePathStats) InitialSample() (InputSample, bool) {
	if s.initialSample == nil {
		return InputSample{}, false
	}
	return *s.initialSample, true
}

// LastSample returns the most recent sample covered.
func (s *CumulativePathStats) LastSample() (InputSample, bool) {
	if s.lastSample == nil {
		return InputSample{}, false
	}
	return *s.lastSample, true
}

// LastTimestamp returns the time of the most recent sample, or NaN.
func (s *CumulativePathStats) LastTimestamp() float64 {
	if s.lastSample == nil {
		return math.NaN()
	}
	return s.lastSample.T
}

// Duration is the covered time span in seconds.
func (s *CumulativePathStats) Duration() float64 {
	if s.lastSample == nil || s.initialSample == nil {
		return math.NaN()
	}
	return (s.lastSample.T - s.initialSample.T) / 1000
}

// RawDistance is the arc length of the covered path.
func (s *CumulativePathStats) RawDistance() float64 { return s.coordArcSum }

// DirectDistance is the straight-line distance from first to last sample.
func (s *CumulativePathStats) DirectDistance() float64 {
	if s.lastSample == nil || s.initialSample == nil {
		return math.NaN()
	}
	return math.Hypot(s.lastSample.TargetX-s.initialSample.TargetX, s.lastSample.TargetY-s.initialSample.TargetY)
}

// Centroid is the time-weighted mean position of the path. It is undefined
// for an empty path and equals the only sample for a single-sample path.
func (s *CumulativePathStats) Centroid() (Point, bool) {
	switch {
	case s.sampleCount == 0 || s.lastSample == nil:
		return Point{}, false
	case s.sampleCount == 1:
		return s.lastSample.Pos(), true
	}
	coeff := 1 / s.Duration()
	base := *s.baseSample
	return Point{
		X: s.xCentroidSum*coeff + base.TargetX,
		Y: s.yCentroidSum*coeff + base.TargetY,
	}, true
}

// Angle is the direction from first to last sample in radians, clockwise
// from screen-up. It is NaN for single samples and displacements under 1px.
func (s *CumulativePathStats) Angle() float64 {
	if s.sampleCount <= 1 || s.lastSample == nil || s.initialSample == nil {
		return math.NaN()
	}
	dist := s.DirectDistance()
	if dist < 1 {
		return math.NaN()
	}
	dx := s.lastSample.TargetX - s.initialSample.TargetX
	dy := s.lastSample.TargetY - s.initialSample.TargetY
	angle := math.Acos(-dy / dist)
	if dx < 0 {
		angle = 2*math.Pi - angle
	}
	return angle
}

// AngleInDegrees is Angle expressed in degrees.
func (s *CumulativePathStats) AngleInDegrees() float64 {
	return s.Angle() * 180 / math.Pi
}

// CardinalDirection buckets Angle into eight 45° sectors centred on the
// compass points. It is empty whenever Angle is undefined.
func (s *CumulativePathStats) CardinalDirection() Direction {
	deg := s.AngleInDegrees()
	if math.IsNaN(deg) {
		return ""
	}
	threshold := 22.5
	for _, dir := range directionBuckets {
		if deg < threshold {
			return dir
		}
		threshold += 45
	}
	return DirN
}

// Speed is the direct distance over the duration, in px/s.
func (s *CumulativePathStats) Speed() float64 {
	d := s.Duration()
	if d == 0 || math.IsNaN(d) {
		return math.NaN()
	}
	return s.DirectDistance() / d
}

// SpeedMean is the mean of the per-step speeds.
func (s *CumulativePathStats) SpeedMean() float64 {
	if s.sampleCount < 2 {
		return math.NaN()
	}
	return s.speedLinearSum / float64(s.sampleCount-1)
}

// SpeedVariance is the variance of the per-step speeds.
func (s *CumulativePathStats) SpeedVariance() float64 {
	if s.sampleCount < 2 {
		return math.NaN()
	}
	mean := s.SpeedMean()
	return s.speedQuadSum/float64(s.sampleCount-1) - mean*mean
}

// AngleMean is the circular mean of the step directions in [0, 2π).
func (s *CumulativePathStats) AngleMean() float64 {
	if s.arcSampleCount == 0 {
		return math.NaN()
	}
	angle := math.Atan2(s.sinLinearSum, s.cosLinearSum)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle
}

func (s *CumulativePathStats) meanResultantSquared() float64 {
	n := float64(s.arcSampleCount)
	return (s.cosLinearSum*s.cosLinearSum + s.sinLinearSum*s.sinLinearSum) / (n * n)
}

// AngleVariance is the circular variance of the step directions, 1 - R².
func (s *CumulativePathStats) AngleVariance() float64 {
	if s.arcSampleCount == 0 {
		return math.NaN()
	}
	return 1 - s.meanResultantSquared()
}

// AngleDeviation is the circular standard deviation sqrt(-ln R²).
func (s *CumulativePathStats) AngleDeviation() float64 {
	if s.arcSampleCount == 0 {
		return math.NaN()
	}
	return math.Sqrt(-math.Log(s.meanResultantSquared()))
}

type statsSummary struct {
	AngleMean      *float64 `json:"angleMean"`
	AngleVariance  *float64 `json:"angleVariance"`
	AngleDeviation *float64 `json:"angleDeviation"`
	SpeedMean      *float64 `json:"speedMean"`
	SpeedVariance  *float64 `json:"speedVariance"`
	CoordArcSum    *float64 `json:"coordArcSum"`
	Duration       *float64 `json:"duration"`
	SampleCount    int      `json:"sampleCount"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// MarshalJSON encodes a debugging summary; undefined values become null.
func (s *CumulativePathStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(statsSummary{
		AngleMean:      finite(s.AngleMean()),
		AngleVariance:  finite(s.AngleVariance()),
		AngleDeviation: finite(s.AngleDeviation()),
		SpeedMean:      finite(s.SpeedMean()),
		SpeedVariance:  finite(s.SpeedVariance()),
		CoordArcSum:    finite(s.RawDistance()),
		Duration:       finite(s.Duration()),
		SampleCount:    s.sampleCount,
	})
}
