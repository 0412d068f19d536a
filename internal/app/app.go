// Package app wires the gesture recognizer to its input, storage and action plugins.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/ayusman/keytouch/internal/action"
	"github.com/ayusman/keytouch/internal/clock"
	"github.com/ayusman/keytouch/internal/config"
	"github.com/ayusman/keytouch/internal/engine"
	"github.com/ayusman/keytouch/internal/event"
	"github.com/ayusman/keytouch/internal/gesture"
	"github.com/ayusman/keytouch/internal/keyboard"
	"github.com/ayusman/keytouch/internal/recognizer"
	"github.com/ayusman/keytouch/internal/store"
)

// Input message types.
const (
	InputStart  = "start"
	InputMove   = "move"
	InputEnd    = "end"
	InputCancel = "cancel"
)

// Event types.
const (
	EventInputStart = "inputstart"
	EventRecognized = "recognized"
	EventUpdate     = "update"
	EventCancel     = "cancel"
	EventEnd        = "end"
	EventLayer      = "layer"
)

const enabledSetting = "recognition.enabled"

// ErrUnknownInput is returned for input messages of an unknown type.
var ErrUnknownInput = errors.New("unknown input type")

// Config holds the application dependencies.
type Config struct {
	Settings *config.Config
	Store    *store.Store
	Logger   *slog.Logger
	Layout   *keyboard.Layout
}

// Input is one pointer event from a client. A contact is named by ID and
// Touch together, so every event of a contact carries the same Touch.
type Input struct {
	Type   string              `json:"type"`
	ID     int                 `json:"id"`
	Touch  bool                `json:"touch"`
	Sample gesture.InputSample `json:"sample"`
}

// Event reports recognizer activity to subscribers.
type Event struct {
	Type     string                   `json:"type"`
	Sequence string                   `json:"sequence,omitempty"`
	Source   string                   `json:"source,omitempty"`
	Stage    *recognizer.GestureStage `json:"stage,omitempty"`
	Label    string                   `json:"label,omitempty"`
	Layer    string                   `json:"layer,omitempty"`
}

// App runs the recognizer on its own event loop and fans recognized
// gestures out to subscribers and bound plugin actions.
type App struct {
	config     Config
	logger     *slog.Logger
	loop       *clock.Loop
	engine     *engine.Engine
	plugins    *action.Manager
	dispatcher *action.Dispatcher

	// Owned by the loop goroutine.
	coordinator *recognizer.TouchpointCoordinator
	tracker     *keyboard.MultiTapTracker

	enabled atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	mu          sync.RWMutex
	settings    *config.Config
	defs        *recognizer.GestureModelDefs
	lastGesture string
	subscribers event.Registry[func(Event)]
}

// New creates an App. Shape templates are loaded from the store.
func New(cfg Config) (*App, error) {
	if cfg.Settings == nil {
		cfg.Settings = config.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Layout == nil {
		cfg.Layout = keyboard.DefaultLayout()
	}

	defs, err := BuildModels(cfg.Settings, cfg.Layout, cfg.Store)
	if err != nil {
		return nil, err
	}

	var bindings action.Bindings = noBindings{}
	if cfg.Store != nil {
		bindings = cfg.Store.Actions()
	}

	loop := clock.NewLoop(256)
	plugins := action.NewManager(cfg.Settings.Plugins.Dir, cfg.Logger)
	a := &App{
		config:     cfg,
		logger:     cfg.Logger,
		loop:       loop,
		engine:     engine.New(loop, SegmentationConfig(cfg.Settings)),
		plugins:    plugins,
		dispatcher: action.NewDispatcher(bindings, plugins, action.NewExecutor(cfg.Settings.PluginTimeout()), cfg.Logger),
		settings:   cfg.Settings,
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.enabled.Store(true)
	if cfg.Store != nil {
		v, err := cfg.Store.Settings().GetOr(enabledSetting, "true")
		if err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		a.enabled.Store(v != "false")
	}

	// The loop is not running yet, so the coordinator can be built here.
	a.attach(defs, cfg.Settings)
	return a, nil
}

type noBindings struct{}

func (noBindings) Match(string, string) (*store.Action, error) { return nil, nil }

// DiscoverPlugins scans the plugin directory.
func (a *App) DiscoverPlugins() error {
	return a.plugins.Discover()
}

// Run processes input until ctx is cancelled or Close is called.
func (a *App) Run(ctx context.Context) error {
	if err := a.DiscoverPlugins(); err != nil {
		a.logger.Warn("plugin discovery failed", "dir", a.plugins.PluginDir(), "error", err)
	}
	err := a.loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close stops the event loop and waits for running plugin actions.
func (a *App) Close() {
	a.loop.Stop()
	a.cancel()
	a.dispatcher.Wait()
}

// Apply feeds one pointer event to the recognizer. Samples are restamped
// with the loop clock so that they line up with recognizer timers.
func (a *App) Apply(ctx context.Context, in Input) error {
	switch in.Type {
	case InputStart, InputMove, InputEnd, InputCancel:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownInput, in.Type)
	}
	if in.Type == InputStart && !a.IsEnabled() {
		return nil
	}

	return a.loop.Do(ctx, func() {
		now := a.loop.Now()
		switch in.Type {
		case InputStart:
			a.engine.Start(in.ID, in.Sample.At(now), in.Touch)
		case InputMove:
			a.engine.Move(in.ID, in.Touch, in.Sample.At(now))
		case InputEnd:
			a.engine.End(in.ID, in.Touch, now)
		case InputCancel:
			a.engine.Cancel(in.ID, in.Touch)
		}
	})
}

// Play replays rec into the live recognizer in real time.
func (a *App) Play(ctx context.Context, rec *engine.Recording) error {
	return a.engine.Replay(ctx, a.loop, rec)
}

// Reload rebuilds the gesture models from settings and the stored shape
// templates. Contacts in progress are cancelled.
func (a *App) Reload(ctx context.Context, settings *config.Config) error {
	defs, err := BuildModels(settings, a.config.Layout, a.config.Store)
	if err != nil {
		return err
	}
	err = a.loop.Do(ctx, func() {
		a.engine.CancelAll()
		a.coordinator.Close()
		a.engine.SetConfig(SegmentationConfig(settings))
		a.attach(defs, settings)
	})
	if err != nil {
		return fmt.Errorf("reload models: %w", err)
	}

	a.mu.Lock()
	a.settings = settings
	a.mu.Unlock()
	a.logger.Info("gesture models reloaded", "models", len(defs.Models))
	return nil
}

// ReloadTemplates rebuilds the models with the current settings.
func (a *App) ReloadTemplates(ctx context.Context) error {
	return a.Reload(ctx, a.Settings())
}

// Subscribe registers f for recognizer events. f runs on the event loop
// and must not block. The returned function unsubscribes.
func (a *App) Subscribe(f func(Event)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	remove := a.subscribers.Add(f)
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		remove()
	}
}

func (a *App) publish(ev Event) {
	var listeners []func(Event)
	a.mu.RLock()
	a.subscribers.Each(func(f func(Event)) { listeners = append(listeners, f) })
	a.mu.RUnlock()
	for _, f := range listeners {
		f(ev)
	}
}

// SetEnabled turns recognition of new contacts and action dispatch on or off.
// The choice is kept in the store across restarts.
func (a *App) SetEnabled(enabled bool) {
	a.enabled.Store(enabled)
	a.logger.Info("recognition toggled", "enabled", enabled)
	if a.config.Store != nil {
		if err := a.config.Store.Settings().Set(enabledSetting, strconv.FormatBool(enabled)); err != nil {
			a.logger.Warn("persist enabled flag", "error", err)
		}
	}
}

// IsEnabled reports whether recognition is on.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// LastGesture returns the label of the most recent recognized stage.
func (a *App) LastGesture() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastGesture
}

// Settings returns the settings the models were last built from.
func (a *App) Settings() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// Models returns the current gesture model catalogue.
func (a *App) Models() *recognizer.GestureModelDefs {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.defs
}

// Layout returns the keyboard layout.
func (a *App) Layout() *keyboard.Layout {
	return a.config.Layout
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *action.Manager {
	return a.plugins
}

// Dispatcher returns the action dispatcher.
func (a *App) Dispatcher() *action.Dispatcher {
	return a.dispatcher
}
