package gesture

import "fmt"

// TrainShape averages several recorded strokes into a single template path.
// Strokes are resampled to the length of the first before averaging.
func TrainShape(strokes [][]Point) ([]Point, error) {
	if len(strokes) == 0 {
		return nil, fmt.Errorf("no strokes provided")
	}
	for i, stroke := range strokes {
		if len(stroke) < 2 {
			return nil, fmt.Errorf("stroke %d has insufficient points", i)
		}
	}

	targetLength := len(strokes[0])
	resampled := make([][]Point, len(strokes))
	for i, stroke := range strokes {
		resampled[i] = resamplePath(stroke, targetLength)
	}

	averaged := make([]Point, targetLength)
	n := float64(len(strokes))
	for i := 0; i < targetLength; i++ {
		var sumX, sumY float64
		for _, stroke := range resampled {
			sumX += stroke[i].X
			sumY += stroke[i].Y
		}
		averaged[i] = Point{X: sumX / n, Y: sumY / n}
	}

	return averaged, nil
}

// resamplePath resamples a path to have exactly targetLength points
// using linear interpolation.
func resamplePath(path []Point, targetLength int) []Point {
	if len(path) == 0 {
		return nil
	}
	if len(path) == 1 || targetLength <= 1 {
		return []Point{path[0]}
	}

	result := make([]Point, targetLength)
	for i := 0; i < targetLength; i++ {
		t := float64(i) / float64(targetLength-1)
		pos := t * float64(len(path)-1)

		idx := int(pos)
		if idx >= len(path)-1 {
			idx = len(path) - 2
		}
		frac := pos - float64(idx)

		p1 := path[idx]
		p2 := path[idx+1]
		result[i] = Point{
			X: p1.X + frac*(p2.X-p1.X),
			Y: p1.Y + frac*(p2.Y-p1.Y),
		}
	}

	return result
}
