package app

import (
	"github.com/ayusman/keytouch/internal/action"
	"github.com/ayusman/keytouch/internal/config"
	"github.com/ayusman/keytouch/internal/gesture"
	"github.com/ayusman/keytouch/internal/keyboard"
	"github.com/ayusman/keytouch/internal/multitap"
	"github.com/ayusman/keytouch/internal/recognizer"
)

// attach builds a coordinator for defs on the engine and hooks its events
// into the pipeline:
//  1. new contacts are announced as inputstart
//  2. every recognized stage feeds the multi-tap tracker
//  3. the stage is published with a readable label
//  4. the action bound to the stage, if any, is dispatched
//  5. sequence completion is published as end or cancel
//
// Must run on the loop goroutine, or before the loop starts.
func (a *App) attach(defs *recognizer.GestureModelDefs, settings *config.Config) {
	coord := recognizer.NewTouchpointCoordinator(defs, a.loop, a.logger)
	coord.AddEngine(a.engine)

	a.tracker = keyboard.NewMultiTapTracker(a.config.Layout, a.loop, activeIDs(coord), a.onLayer,
		multitap.WithDelayFactor(MultiTapDelay(settings)))

	coord.OnInputStart(func(src *gesture.Source) {
		a.publish(Event{Type: EventInputStart, Source: src.Identifier()})
	})
	coord.OnRecognizedGesture(a.onRecognized)
	a.coordinator = coord

	a.mu.Lock()
	a.defs = defs
	a.mu.Unlock()
}

func (a *App) onRecognized(seq *recognizer.GestureSequence) {
	a.publish(Event{Type: EventRecognized, Sequence: seq.ID()})

	seq.OnUpdate(func(stage recognizer.GestureStage) {
		a.tracker.Observe(stage)

		label := keyboard.Describe(stage)
		a.mu.Lock()
		a.lastGesture = label
		a.mu.Unlock()
		a.publish(Event{Type: EventUpdate, Sequence: seq.ID(), Stage: &stage, Label: label})

		if a.IsEnabled() {
			a.dispatcher.Dispatch(a.ctx, action.Trigger{ModelID: stage.ModelID, Item: stage.Item, Sequence: seq.ID()})
		}
	})
	seq.OnCancel(func() { a.publish(Event{Type: EventCancel, Sequence: seq.ID()}) })
	seq.OnEnd(func() { a.publish(Event{Type: EventEnd, Sequence: seq.ID()}) })
}

func (a *App) onLayer(layer string) {
	a.logger.Info("layer switch", "layer", layer)
	a.publish(Event{Type: EventLayer, Layer: layer})
}

func activeIDs(coord *recognizer.TouchpointCoordinator) func() []string {
	return func() []string {
		sources := coord.ActiveSources()
		ids := make([]string, len(sources))
		for i, src := range sources {
			ids[i] = src.Identifier()
		}
		return ids
	}
}
