// Package preview renders recorded contact paths to images using GoCV (OpenCV).
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/ayusman/keytouch/internal/engine"
	"github.com/ayusman/keytouch/internal/gesture"
	"gocv.io/x/gocv"
)

// Default canvas settings
const (
	DefaultWidth     = 640
	DefaultHeight    = 480
	DefaultPadding   = 32
	DefaultThickness = 2
)

// InkThreshold is the gray level above which a pixel counts as drawn.
const InkThreshold = 25

// ErrNothingToDraw is returned when no touchpoint has any samples.
var ErrNothingToDraw = errors.New("no samples to draw")

var background = gocv.NewScalar(20, 20, 20, 0)

var palette = []color.RGBA{
	{R: 66, G: 165, B: 245, A: 255},
	{R: 102, G: 187, B: 106, A: 255},
	{R: 255, G: 167, B: 38, A: 255},
	{R: 171, G: 71, B: 188, A: 255},
	{R: 38, G: 198, B: 218, A: 255},
}

var cancelled = color.RGBA{R: 239, G: 83, B: 80, A: 255}

// Options controls the canvas size and stroke width.
type Options struct {
	Width     int
	Height    int
	Padding   int
	Thickness int
}

// DefaultOptions returns a 640x480 canvas.
func DefaultOptions() Options {
	return Options{
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		Padding:   DefaultPadding,
		Thickness: DefaultThickness,
	}
}

func (o Options) normalize() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.Padding < 0 || 2*o.Padding >= o.Width || 2*o.Padding >= o.Height {
		o.Padding = d.Padding
	}
	if o.Thickness <= 0 {
		o.Thickness = d.Thickness
	}
	return o
}

// projection maps client coordinates onto the canvas, preserving aspect ratio.
type projection struct {
	minX, minY float64
	scale      float64
	offX, offY float64
}

func newProjection(sources []gesture.SerializedSource, o Options) (projection, bool) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, src := range sources {
		for _, s := range src.Path.Coords {
			minX = math.Min(minX, s.ClientX)
			minY = math.Min(minY, s.ClientY)
			maxX = math.Max(maxX, s.ClientX)
			maxY = math.Max(maxY, s.ClientY)
		}
	}
	if math.IsInf(minX, 1) {
		return projection{}, false
	}

	w := float64(o.Width - 2*o.Padding)
	h := float64(o.Height - 2*o.Padding)
	dx, dy := maxX-minX, maxY-minY

	p := projection{minX: minX, minY: minY, scale: 1}
	if dx > 0 || dy > 0 {
		p.scale = math.Inf(1)
		if dx > 0 {
			p.scale = w / dx
		}
		if dy > 0 {
			p.scale = math.Min(p.scale, h/dy)
		}
	}
	p.offX = float64(o.Padding) + (w-dx*p.scale)/2
	p.offY = float64(o.Padding) + (h-dy*p.scale)/2
	return p, true
}

func (p projection) point(s gesture.InputSample) image.Point {
	return image.Pt(
		int(math.Round(p.offX+(s.ClientX-p.minX)*p.scale)),
		int(math.Round(p.offY+(s.ClientY-p.minY)*p.scale)),
	)
}

// Render draws every touchpoint's path onto a new BGR canvas. Each path
// starts with a filled dot and ends with a ring, or a cross when the contact
// was cancelled. The caller must Close the returned Mat.
func Render(sources []gesture.SerializedSource, opts Options) (gocv.Mat, error) {
	o := opts.normalize()
	proj, ok := newProjection(sources, o)
	if !ok {
		return gocv.NewMat(), ErrNothingToDraw
	}

	canvas := gocv.NewMatWithSize(o.Height, o.Width, gocv.MatTypeCV8UC3)
	canvas.SetTo(background)

	for i, src := range sources {
		coords := src.Path.Coords
		if len(coords) == 0 {
			continue
		}
		c := palette[i%len(palette)]

		prev := proj.point(coords[0])
		for _, s := range coords[1:] {
			next := proj.point(s)
			gocv.Line(&canvas, prev, next, c, o.Thickness)
			prev = next
		}

		start := proj.point(coords[0])
		gocv.Circle(&canvas, start, 3*o.Thickness, c, -1)
		gocv.PutText(&canvas, strconv.Itoa(i+1), start.Add(image.Pt(6, -6)), gocv.FontHersheySimplex, 0.5, c, 1)

		end := proj.point(coords[len(coords)-1])
		if src.Path.WasCancelled {
			r := 4 * o.Thickness
			gocv.Line(&canvas, end.Add(image.Pt(-r, -r)), end.Add(image.Pt(r, r)), cancelled, o.Thickness)
			gocv.Line(&canvas, end.Add(image.Pt(-r, r)), end.Add(image.Pt(r, -r)), cancelled, o.Thickness)
		} else {
			gocv.Circle(&canvas, end, 4*o.Thickness, c, o.Thickness)
		}
	}

	return canvas, nil
}

// RenderJPEG renders a recording and encodes it as JPEG.
func RenderJPEG(rec *engine.Recording, opts Options) ([]byte, error) {
	canvas, err := Render(rec.Touchpoints(), opts)
	defer canvas.Close()
	if err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", canvas)
	if err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases native memory released by Close.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Coverage returns the percentage of canvas pixels that were drawn on.
func Coverage(canvas gocv.Mat) float64 {
	if canvas.Empty() {
		return 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if canvas.Channels() > 1 {
		gocv.CvtColor(canvas, &gray, gocv.ColorBGRToGray)
	} else {
		canvas.CopyTo(&gray)
	}

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(gray, &thresh, InkThreshold, 255, gocv.ThresholdBinary)

	total := thresh.Rows() * thresh.Cols()
	return float64(gocv.CountNonZero(thresh)) / float64(total) * 100.0
}
