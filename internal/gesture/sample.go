// Package gesture tracks pointer paths for the keytouch recognizer: raw input
// samples, cumulative path statistics, segmentation, and the sources that
// expose a path to competing gesture matchers.
package gesture

import "errors"

// ErrInvalidArgument is returned when an operation is given inputs that
// violate its preconditions.
var ErrInvalidArgument = errors.New("invalid argument")

// InputSample is a single pointer observation. T is in milliseconds and never
// decreases within a path. Item identifies the hovered key, if any.
type InputSample struct {
	TargetX float64 `json:"targetX"`
	TargetY float64 `json:"targetY"`
	ClientX float64 `json:"clientX"`
	ClientY float64 `json:"clientY"`
	T       float64 `json:"t"`
	Item    string  `json:"item,omitempty"`
}

// At returns a copy of the sample stamped with time t.
func (s InputSample) At(t float64) InputSample {
	s.T = t
	return s
}

// WithItem returns a copy of the sample hovering item.
func (s InputSample) WithItem(item string) InputSample {
	s.Item = item
	return s
}

// Point is a 2D coordinate in target space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pos returns the sample's target coordinate.
func (s InputSample) Pos() Point {
	return Point{X: s.TargetX, Y: s.TargetY}
}

// Points extracts target coordinates from samples.
func Points(samples []InputSample) []Point {
	points := make([]Point, len(samples))
	for i, s := range samples {
		points[i] = s.Pos()
	}
	return points
}
