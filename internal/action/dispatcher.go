package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ayusman/keytouch/internal/store"
)

// Bindings finds the action bound to a recognized gesture.
type Bindings interface {
	Match(modelID, item string) (*store.Action, error)
}

// Trigger is one recognized gesture stage offered to the dispatcher.
type Trigger struct {
	ModelID  string
	Item     string
	Sequence string
}

// Dispatcher runs bound plugin actions for recognized gestures. Plugins
// run on their own goroutines so the recognizer is never blocked.
type Dispatcher struct {
	bindings Bindings
	manager  *Manager
	executor *Executor
	logger   *slog.Logger

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(bindings Bindings, manager *Manager, executor *Executor, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{bindings: bindings, manager: manager, executor: executor, logger: logger}
}

// Dispatch starts the action bound to t, if any. It reports whether an
// action was started.
func (d *Dispatcher) Dispatch(ctx context.Context, t Trigger) bool {
	binding, err := d.bindings.Match(t.ModelID, t.Item)
	if err != nil {
		d.logger.Error("action lookup failed", "model", t.ModelID, "error", err)
		return false
	}
	if binding == nil {
		return false
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if _, err := d.Run(ctx, binding, t); err != nil {
			d.logger.Warn("action failed", "model", t.ModelID, "plugin", binding.PluginName,
				"action", binding.ActionName, "error", err)
		}
	}()
	return true
}

// Run executes binding synchronously for t.
func (d *Dispatcher) Run(ctx context.Context, binding *store.Action, t Trigger) (*Response, error) {
	plugin, err := d.manager.Get(binding.PluginName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", binding.PluginName, err)
	}
	if !plugin.Manifest.Supports(binding.ActionName) {
		return nil, fmt.Errorf("plugin %s does not offer action %q", binding.PluginName, binding.ActionName)
	}

	resp, err := d.executor.Execute(ctx, plugin, &Request{
		Action:   binding.ActionName,
		Gesture:  t.ModelID,
		Item:     t.Item,
		Sequence: t.Sequence,
		Config:   binding.Config,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}

// Wait blocks until every dispatched action has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
