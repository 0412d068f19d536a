// Package tray provides a system tray toggle for the keytouch recognizer.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray menu: an on/off toggle, the last recognized
// gesture and active layer, and shortcuts to the web UI and template reload.
type Tray struct {
	onToggle   func(enabled bool)
	onSettings func()
	onReload   func()
	onQuit     func()
	enabled    bool
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuLastGesture *systray.MenuItem
	menuLayer       *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback for the "Open Settings" item.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnReload sets the callback for the "Reload Templates" item.
func (t *Tray) OnReload(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReload = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("keytouch")
	systray.SetTooltip("keytouch gesture recognition")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle gesture recognition")
	systray.AddSeparator()

	t.menuLastGesture = systray.AddMenuItem(lastTitle(""), "Last recognized gesture")
	t.menuLastGesture.Disable()
	t.menuLayer = systray.AddMenuItem(layerTitle(""), "Layer selected by the last multi-tap")
	t.menuLayer.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	menuReload := systray.AddMenuItem("Reload Templates", "Reload shape templates from the database")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit keytouch")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.invoke(func() func() { return t.onSettings })
			case <-menuReload.ClickedCh:
				t.invoke(func() func() { return t.onReload })
			case <-menuQuit.ClickedCh:
				t.invoke(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func lastTitle(label string) string {
	if label == "" {
		return "Last: none"
	}
	return "Last: " + label
}

func layerTitle(layer string) string {
	if layer == "" {
		return "Layer: default"
	}
	return "Layer: " + layer
}

// invoke calls the callback returned by get outside the lock.
func (t *Tray) invoke(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.menuToggle.SetTitle(toggleTitle(enabled))
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// SetEnabled updates the toggle without calling the OnToggle callback.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// SetLastGesture updates the last gesture display in the menu.
func (t *Tray) SetLastGesture(label string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(lastTitle(label))
	}
}

// SetLayer updates the layer display in the menu.
func (t *Tray) SetLayer(layer string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuLayer != nil {
		t.menuLayer.SetTitle(layerTitle(layer))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
