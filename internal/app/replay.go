package app

import (
	"log/slog"

	"github.com/ayusman/keytouch/internal/clock"
	"github.com/ayusman/keytouch/internal/config"
	"github.com/ayusman/keytouch/internal/engine"
	"github.com/ayusman/keytouch/internal/keyboard"
	"github.com/ayusman/keytouch/internal/multitap"
	"github.com/ayusman/keytouch/internal/recognizer"
)

// settleMarginMs is how long the replay clock keeps running after the last
// sample so that pending timers can fire.
const settleMarginMs = 2000

// ReplayStage is one stage recognized during a replay.
type ReplayStage struct {
	Sequence string                  `json:"sequence"`
	Label    string                  `json:"label"`
	Stage    recognizer.GestureStage `json:"stage"`
}

// ReplayResult is everything recognized while replaying a recording.
type ReplayResult struct {
	Stages    []ReplayStage `json:"stages"`
	Cancelled []string      `json:"cancelled,omitempty"`
	Layers    []string      `json:"layers,omitempty"`
}

// Labels returns the stage labels in recognition order.
func (r *ReplayResult) Labels() []string {
	labels := make([]string, len(r.Stages))
	for i, s := range r.Stages {
		labels[i] = s.Label
	}
	return labels
}

// Replay runs rec through a fresh recognizer on a simulated clock and
// returns what it recognized. It does not dispatch actions.
func Replay(defs *recognizer.GestureModelDefs, settings *config.Config, layout *keyboard.Layout, rec *engine.Recording, logger *slog.Logger) (*ReplayResult, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if settings == nil {
		settings = config.Default()
	}
	if layout == nil {
		layout = keyboard.DefaultLayout()
	}

	clk := clock.NewManual(0)
	eng := engine.New(clk, SegmentationConfig(settings))
	coord := recognizer.NewTouchpointCoordinator(defs, clk, logger)
	coord.AddEngine(eng)
	defer coord.Close()

	result := &ReplayResult{Stages: []ReplayStage{}}
	tracker := keyboard.NewMultiTapTracker(layout, clk, activeIDs(coord), func(layer string) {
		result.Layers = append(result.Layers, layer)
	}, multitap.WithDelayFactor(MultiTapDelay(settings)))

	coord.OnRecognizedGesture(func(seq *recognizer.GestureSequence) {
		seq.OnUpdate(func(stage recognizer.GestureStage) {
			tracker.Observe(stage)
			result.Stages = append(result.Stages, ReplayStage{
				Sequence: seq.ID(),
				Label:    keyboard.Describe(stage),
				Stage:    stage,
			})
		})
		seq.OnCancel(func() { result.Cancelled = append(result.Cancelled, seq.ID()) })
	})

	pb := eng.Schedule(rec)
	clk.AdvanceTo(pb.End() + settleMarginMs)
	return result, nil
}
