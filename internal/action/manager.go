package action

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrPluginNotFound is returned when a requested plugin cannot be found.
var ErrPluginNotFound = errors.New("plugin not found")

// Manager discovers plugins in a directory and looks them up by name.
type Manager struct {
	pluginDir string
	logger    *slog.Logger
	plugins   map[string]*Plugin
	mu        sync.RWMutex
}

// NewManager creates a Manager for pluginDir.
func NewManager(pluginDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		pluginDir: pluginDir,
		logger:    logger,
		plugins:   make(map[string]*Plugin),
	}
}

// Discover rescans the plugin directory. Each subdirectory holding a
// plugin.json manifest is a plugin; unreadable manifests are skipped.
func (m *Manager) Discover() error {
	plugins := make(map[string]*Plugin)

	info, err := os.Stat(m.pluginDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		m.replace(plugins)
		return nil
	case err != nil:
		return err
	case !info.IsDir():
		m.replace(plugins)
		return nil
	}

	entries, err := os.ReadDir(m.pluginDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pluginPath := filepath.Join(m.pluginDir, entry.Name())
		manifestData, err := os.ReadFile(filepath.Join(pluginPath, "plugin.json"))
		if err != nil {
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(manifestData, &manifest); err != nil {
			m.logger.Warn("skipping plugin with invalid manifest", "path", pluginPath, "error", err)
			continue
		}
		if manifest.Name == "" || manifest.Executable == "" {
			m.logger.Warn("skipping plugin with incomplete manifest", "path", pluginPath)
			continue
		}

		plugins[manifest.Name] = &Plugin{
			Manifest:   manifest,
			Path:       pluginPath,
			Executable: filepath.Join(pluginPath, manifest.Executable),
		}
	}

	m.replace(plugins)
	m.logger.Info("discovered plugins", "dir", m.pluginDir, "count", len(plugins))
	return nil
}

func (m *Manager) replace(plugins map[string]*Plugin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plugins = plugins
}

// Get returns a plugin by name.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugin, ok := m.plugins[name]
	if !ok {
		return nil, ErrPluginNotFound
	}
	return plugin, nil
}

// List returns every discovered plugin ordered by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, plugin := range m.plugins {
		plugins = append(plugins, plugin)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Manifest.Name < plugins[j].Manifest.Name })
	return plugins
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
