// Package main provides a keystroke plugin. It types the key item of a
// recognized gesture, or a configured shortcut, into the focused window.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Item    string          `json:"item"`
	Config  json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ShortcutConfig is the binding config of the shortcut action.
type ShortcutConfig struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // ctrl, alt, shift, cmd
}

// namedKeys maps key IDs without a printable character to key names.
var namedKeys = map[string]string{
	"K_SPACE": "space",
	"K_BKSP":  "BackSpace",
	"K_ENTER": "Return",
	"K_TAB":   "Tab",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	var err error
	switch req.Action {
	case "type":
		err = typeItem(req.Item)
	case "shortcut":
		err = sendShortcut(req.Config)
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}
	if err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	data, _ := json.Marshal(map[string]string{"item": req.Item})
	writeResponse(Response{Success: true, Data: data})
}

// itemText resolves a key item to the text it produces. Key IDs look like
// K_A or K_SPACE; character items look like U_00E9 and may join several
// code points with underscores.
func itemText(item string) (text string, named bool, err error) {
	switch {
	case strings.HasPrefix(item, "U_"):
		var b strings.Builder
		for _, hex := range strings.Split(item[2:], "_") {
			cp, err := strconv.ParseUint(hex, 16, 32)
			if err != nil {
				return "", false, fmt.Errorf("bad character item %q", item)
			}
			b.WriteRune(rune(cp))
		}
		return b.String(), false, nil
	case strings.HasPrefix(item, "K_"):
		if name, ok := namedKeys[item]; ok {
			return name, true, nil
		}
		if rest := item[2:]; len(rest) == 1 {
			return strings.ToLower(rest), false, nil
		}
		return "", false, fmt.Errorf("no text for key %q", item)
	}
	return "", false, fmt.Errorf("unsupported item %q", item)
}

func typeItem(item string) error {
	text, named, err := itemText(item)
	if err != nil {
		return err
	}

	switch runtime.GOOS {
	case "darwin":
		if named {
			return run("osascript", "-e", fmt.Sprintf(`tell application "System Events" to key code %d`, appleKeyCode(text)))
		}
		return run("osascript", "-e", fmt.Sprintf(`tell application "System Events" to keystroke %q`, text))
	default:
		if named {
			return run("xdotool", "key", text)
		}
		return run("xdotool", "type", "--", text)
	}
}

func sendShortcut(raw json.RawMessage) error {
	var cfg ShortcutConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Key == "" {
		return fmt.Errorf("key is required")
	}

	switch runtime.GOOS {
	case "darwin":
		var mods []string
		for _, m := range cfg.Modifiers {
			switch strings.ToLower(m) {
			case "cmd", "command":
				mods = append(mods, "command down")
			case "alt", "option":
				mods = append(mods, "option down")
			case "ctrl", "control":
				mods = append(mods, "control down")
			case "shift":
				mods = append(mods, "shift down")
			}
		}
		script := fmt.Sprintf(`tell application "System Events" to keystroke %q`, cfg.Key)
		if len(mods) > 0 {
			script += " using {" + strings.Join(mods, ", ") + "}"
		}
		return run("osascript", "-e", script)
	default:
		combo := append(append([]string{}, cfg.Modifiers...), cfg.Key)
		for i, m := range combo[:len(combo)-1] {
			if strings.EqualFold(m, "cmd") {
				combo[i] = "super"
			}
		}
		return run("xdotool", "key", strings.Join(combo, "+"))
	}
}

func appleKeyCode(name string) int {
	switch name {
	case "BackSpace":
		return 51
	case "Return":
		return 36
	case "Tab":
		return 48
	}
	return 49
}

func writeErrorResponse(errMsg string) {
	writeResponse(Response{Success: false, Error: errMsg})
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
