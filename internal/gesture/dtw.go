package gesture

import (
	"math"
	"sort"
)

// DTWDistance calculates Dynamic Time Warping distance between two paths.
// Returns infinity if either path is empty.
// The distance is normalized by the maximum path length.
func DTWDistance(path1, path2 []Point) float64 {
	n := len(path1)
	m := len(path2)

	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	// (n+1) x (m+1) cost matrix, infinity except the origin
	dtw := make([][]float64, n+1)
	for i := range dtw {
		dtw[i] = make([]float64, m+1)
		for j := range dtw[i] {
			dtw[i][j] = math.Inf(1)
		}
	}
	dtw[0][0] = 0

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			cost := pointDistance(path1[i-1], path2[j-1])
			dtw[i][j] = cost + min3(dtw[i-1][j], dtw[i][j-1], dtw[i-1][j-1])
		}
	}

	return dtw[n][m] / float64(max(n, m))
}

// pointDistance calculates the Euclidean distance between two points.
func pointDistance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// min3 returns the minimum of three float64 values.
func min3(a, b, c float64) float64 {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}

// ShapeTemplate is a reference stroke drawn across the keyboard surface.
type ShapeTemplate struct {
	ID        string  // Unique identifier for the template
	Name      string  // Human-readable name, also the gesture model suffix
	Path      []Point // Reference stroke
	Tolerance float64 // Maximum normalized DTW distance for a match
}

// ShapeMatch is the result of comparing a stroke against a template.
type ShapeMatch struct {
	Template *ShapeTemplate
	Score    float64 // 0-1, higher is better
	Distance float64 // normalized DTW distance
}

// ShapeMatcher matches strokes against registered templates using DTW.
type ShapeMatcher struct {
	templates []*ShapeTemplate
}

// NewShapeMatcher creates a new ShapeMatcher instance.
func NewShapeMatcher() *ShapeMatcher {
	return &ShapeMatcher{
		templates: make([]*ShapeTemplate, 0),
	}
}

// AddTemplate adds a shape template to the matcher.
func (m *ShapeMatcher) AddTemplate(t *ShapeTemplate) {
	if t == nil {
		return
	}
	m.templates = append(m.templates, t)
}

// RemoveTemplate removes a template by its ID.
func (m *ShapeMatcher) RemoveTemplate(id string) {
	for i, t := range m.templates {
		if t.ID == id {
			m.templates = append(m.templates[:i], m.templates[i+1:]...)
			return
		}
	}
}

// Templates returns the registered templates.
func (m *ShapeMatcher) Templates() []*ShapeTemplate {
	return append([]*ShapeTemplate(nil), m.templates...)
}

// Match finds matching templates for the given stroke.
// Returns matches sorted by score in descending order (best matches first).
func (m *ShapeMatcher) Match(path []Point) []ShapeMatch {
	if len(path) == 0 {
		return nil
	}

	normalizedInput := NormalizePath(path)

	var matches []ShapeMatch
	for _, template := range m.templates {
		distance, ok := CompareShape(normalizedInput, template)
		if !ok {
			continue
		}
		matches = append(matches, ShapeMatch{
			Template: template,
			Score:    1.0 / (1.0 + distance),
			Distance: distance,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches
}

// CompareShape reports the DTW distance between an already normalized stroke
// and a template, and whether it falls within the template's tolerance.
func CompareShape(normalized []Point, template *ShapeTemplate) (float64, bool) {
	if template == nil || len(template.Path) == 0 || len(normalized) == 0 {
		return math.Inf(1), false
	}
	distance := DTWDistance(normalized, NormalizePath(template.Path))
	if math.IsInf(distance, 1) {
		return distance, false
	}
	return distance, distance <= template.Tolerance
}

// NormalizePath scales the path coordinates to the 0-1 range per axis.
func NormalizePath(path []Point) []Point {
	if path == nil {
		return nil
	}

	n := len(path)
	if n == 0 {
		return []Point{}
	}
	if n == 1 {
		return []Point{{X: 0, Y: 0}}
	}

	minX, maxX := path[0].X, path[0].X
	minY, maxY := path[0].Y, path[0].Y
	for _, p := range path {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY

	normalized := make([]Point, n)
	for i, p := range path {
		var normX, normY float64
		if rangeX > 0 {
			normX = (p.X - minX) / rangeX
		}
		if rangeY > 0 {
			normY = (p.Y - minY) / rangeY
		}
		normalized[i] = Point{X: normX, Y: normY}
	}

	return normalized
}
