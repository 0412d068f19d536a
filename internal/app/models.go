package app

import (
	"fmt"
	"time"

	"github.com/ayusman/keytouch/internal/config"
	"github.com/ayusman/keytouch/internal/gesture"
	"github.com/ayusman/keytouch/internal/keyboard"
	"github.com/ayusman/keytouch/internal/recognizer"
	"github.com/ayusman/keytouch/internal/store"
)

// SegmentationConfig converts the [segmentation] settings.
func SegmentationConfig(settings *config.Config) gesture.SegmentationConfig {
	return gesture.SegmentationConfig{
		WindowMs:     settings.Segmentation.WindowMs,
		HoldSpeed:    settings.Segmentation.HoldSpeed,
		MinSegmentMs: settings.Segmentation.MinSegmentMs,
	}
}

// Tuning converts the [gestures] settings.
func Tuning(settings *config.Config) keyboard.Tuning {
	t := keyboard.DefaultTuning()
	g := settings.Gestures
	t.Longpress = time.Duration(g.LongpressMs) * time.Millisecond
	t.LongpressRoam = g.LongpressRoam
	t.FlickDistance = g.FlickDistance
	t.FlickStraightness = g.FlickStraightness
	t.ShapeMinDistance = g.ShapeMinDistance
	return t
}

// MultiTapDelay is the time allowed per tap of a multi-tap.
func MultiTapDelay(settings *config.Config) time.Duration {
	return time.Duration(settings.Gestures.MultitapDelayMs) * time.Millisecond
}

// LoadTemplates reads the trained shape templates from the store.
// Templates without a reference path are skipped.
func LoadTemplates(s *store.Store) ([]*gesture.ShapeTemplate, error) {
	if s == nil {
		return nil, nil
	}

	templates, err := s.Templates().List()
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	var shapes []*gesture.ShapeTemplate
	for _, t := range templates {
		path, err := s.Templates().GetPath(t.ID)
		if err != nil {
			return nil, fmt.Errorf("load path of %s: %w", t.Name, err)
		}
		if len(path) < 2 {
			continue
		}
		points := make([]gesture.Point, len(path))
		for i, p := range path {
			points[i] = gesture.Point{X: p.X, Y: p.Y}
		}
		shapes = append(shapes, &gesture.ShapeTemplate{
			ID:        t.ID,
			Name:      t.Name,
			Path:      points,
			Tolerance: t.Tolerance,
		})
	}
	return shapes, nil
}

// BuildModels assembles the keyboard gesture models for settings, with one
// shape model per stored template.
func BuildModels(settings *config.Config, layout *keyboard.Layout, s *store.Store) (*recognizer.GestureModelDefs, error) {
	shapes, err := LoadTemplates(s)
	if err != nil {
		return nil, err
	}
	defs := keyboard.Models(layout, Tuning(settings), shapes)
	if err := defs.Validate(); err != nil {
		return nil, err
	}
	return defs, nil
}
