package gesture

import (
	"math"
	"testing"
)

func TestTrainShape(t *testing.T) {
	strokes := [][]Point{
		{{X: 0, Y: 0}, {X: 10, Y: 0}},
		{{X: 0, Y: 2}, {X: 10, Y: 2}},
	}

	result, err := TrainShape(strokes)
	if err != nil {
		t.Fatalf("TrainShape() error = %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 points, got %d", len(result))
	}
	if !floatEqual(result[0].Y, 1) || !floatEqual(result[1].X, 10) {
		t.Errorf("wrong average: got %v", result)
	}
}

func TestTrainShape_DifferentLengths(t *testing.T) {
	strokes := [][]Point{
		{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}},
		{{X: 0, Y: 0}, {X: 10, Y: 0}},
	}

	result, err := TrainShape(strokes)
	if err != nil {
		t.Fatalf("TrainShape() error = %v", err)
	}

	if len(result) != 3 {
		t.Fatalf("expected result resampled to first stroke length 3, got %d", len(result))
	}
	if !floatEqual(result[1].X, 5) {
		t.Errorf("expected midpoint x=5, got %f", result[1].X)
	}
}

func TestTrainShape_EmptyStrokes(t *testing.T) {
	if _, err := TrainShape(nil); err == nil {
		t.Error("expected error for no strokes")
	}
}

func TestTrainShape_InsufficientPoints(t *testing.T) {
	strokes := [][]Point{{{X: 0, Y: 0}}}

	if _, err := TrainShape(strokes); err == nil {
		t.Error("expected error for single-point stroke")
	}
}

func TestResamplePath(t *testing.T) {
	path := []Point{{X: 0, Y: 0}, {X: 10, Y: 10}}

	result := resamplePath(path, 5)

	if len(result) != 5 {
		t.Fatalf("expected 5 points, got %d", len(result))
	}
	for i, want := range []float64{0, 2.5, 5, 7.5, 10} {
		if !floatEqual(result[i].X, want) || !floatEqual(result[i].Y, want) {
			t.Errorf("point %d: expected (%f, %f), got %v", i, want, want, result[i])
		}
	}
}

func TestResamplePath_Empty(t *testing.T) {
	if result := resamplePath(nil, 5); result != nil {
		t.Errorf("expected nil, got %v", result)
	}
}

func TestResamplePath_SinglePoint(t *testing.T) {
	result := resamplePath([]Point{{X: 3, Y: 4}}, 5)

	if len(result) != 1 || result[0] != (Point{X: 3, Y: 4}) {
		t.Errorf("expected single original point, got %v", result)
	}
}

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
