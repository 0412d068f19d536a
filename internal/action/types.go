// Package action runs external plugin executables in response to
// recognized gestures.
package action

import (
	"encoding/json"
	"slices"
)

// Manifest describes a plugin's metadata and the actions it offers. It is
// read from plugin.json in the plugin's directory.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the plugin declares the named action.
func (m Manifest) Supports(action string) bool {
	return slices.Contains(m.Actions, action)
}

// Request is written as JSON to a plugin's stdin.
type Request struct {
	Action string `json:"action"`
	// Gesture is the recognized gesture model ID.
	Gesture  string          `json:"gesture"`
	Item     string          `json:"item,omitempty"`
	Sequence string          `json:"sequence,omitempty"`
	Config   json.RawMessage `json:"config,omitempty"`
	Params   json.RawMessage `json:"params,omitempty"`
}

// Response is read as JSON from a plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
