package preview

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ayusman/keytouch/internal/engine"
	"github.com/ayusman/keytouch/internal/gesture"
)

func stroke(cancelled bool, pts ...[2]float64) gesture.SerializedSource {
	src := gesture.SerializedSource{IsFromTouch: true}
	for i, p := range pts {
		src.Path.Coords = append(src.Path.Coords, gesture.InputSample{
			ClientX: p[0],
			ClientY: p[1],
			T:       float64(i * 16),
		})
	}
	src.Path.WasCancelled = cancelled
	src.Path.IsComplete = !cancelled
	return src
}

func TestOptions_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   Options
		want Options
	}{
		{"zero", Options{}, DefaultOptions()},
		{"custom", Options{Width: 200, Height: 100, Padding: 10, Thickness: 1}, Options{Width: 200, Height: 100, Padding: 10, Thickness: 1}},
		{"padding too large", Options{Width: 100, Height: 100, Padding: 60, Thickness: 1}, Options{Width: 100, Height: 100, Padding: DefaultPadding, Thickness: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.normalize(); got != tt.want {
				t.Errorf("normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestProjection_FitsCanvas(t *testing.T) {
	o := DefaultOptions()
	sources := []gesture.SerializedSource{stroke(false, [2]float64{100, 100}, [2]float64{300, 150})}

	proj, ok := newProjection(sources, o)
	if !ok {
		t.Fatal("newProjection() reported no samples")
	}

	start := proj.point(sources[0].Path.Coords[0])
	end := proj.point(sources[0].Path.Coords[1])
	if start.X != o.Padding {
		t.Errorf("start.X = %d, want %d", start.X, o.Padding)
	}
	if end.X != o.Width-o.Padding {
		t.Errorf("end.X = %d, want %d", end.X, o.Width-o.Padding)
	}
	if start.Y >= end.Y {
		t.Errorf("start.Y = %d should be above end.Y = %d", start.Y, end.Y)
	}
}

func TestProjection_SinglePointCentered(t *testing.T) {
	o := DefaultOptions()
	sources := []gesture.SerializedSource{stroke(false, [2]float64{42, 17})}

	proj, ok := newProjection(sources, o)
	if !ok {
		t.Fatal("newProjection() reported no samples")
	}
	p := proj.point(sources[0].Path.Coords[0])
	if p.X != o.Width/2 || p.Y != o.Height/2 {
		t.Errorf("point = %v, want canvas center", p)
	}
}

func TestRender_NothingToDraw(t *testing.T) {
	canvas, err := Render([]gesture.SerializedSource{{}}, DefaultOptions())
	defer canvas.Close()
	if !errors.Is(err, ErrNothingToDraw) {
		t.Errorf("Render() error = %v, want ErrNothingToDraw", err)
	}
}

func TestRender_DrawsPaths(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	sources := []gesture.SerializedSource{
		stroke(false, [2]float64{0, 0}, [2]float64{50, 10}, [2]float64{100, 40}),
		stroke(true, [2]float64{20, 80}, [2]float64{25, 90}),
	}
	canvas, err := Render(sources, DefaultOptions())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	defer canvas.Close()

	if canvas.Rows() != DefaultHeight || canvas.Cols() != DefaultWidth {
		t.Errorf("canvas = %dx%d, want %dx%d", canvas.Cols(), canvas.Rows(), DefaultWidth, DefaultHeight)
	}

	coverage := Coverage(canvas)
	if coverage <= 0 {
		t.Error("Coverage() = 0, expected drawn pixels")
	}
	if coverage > 50 {
		t.Errorf("Coverage() = %f, expected thin strokes", coverage)
	}
}

func TestRenderJPEG(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV encoding")
	}

	rec := engine.RecordSources()
	rec.Inputs[0].Touchpoints = append(rec.Inputs[0].Touchpoints,
		stroke(false, [2]float64{10, 10}, [2]float64{90, 60}))

	data, err := RenderJPEG(rec, Options{Width: 160, Height: 120})
	if err != nil {
		t.Fatalf("RenderJPEG() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Error("RenderJPEG() output is not a JPEG")
	}
}
