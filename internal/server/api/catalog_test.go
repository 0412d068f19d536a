package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/ayusman/keytouch/internal/action"
	"github.com/ayusman/keytouch/internal/keyboard"
)

type fakePlugins struct {
	plugins     []*action.Plugin
	discoverErr error
	discovered  int
}

func (f *fakePlugins) List() []*action.Plugin { return f.plugins }

func (f *fakePlugins) Discover() error {
	f.discovered++
	return f.discoverErr
}

func TestPluginHandler(t *testing.T) {
	plugins := &fakePlugins{plugins: []*action.Plugin{{
		Manifest: action.Manifest{Name: "keyboard", Version: "1.0.0", Actions: []string{"type"}},
		Path:     "/plugins/keyboard",
	}}}
	handler := NewPluginHandler(plugins)

	rec := doRequest(handler, http.MethodGet, "/api/plugins", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listPluginsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Plugins) != 1 || response.Plugins[0].Name != "keyboard" {
		t.Errorf("plugins = %+v", response.Plugins)
	}
	if plugins.discovered != 0 {
		t.Error("GET should not rescan plugins")
	}

	rec = doRequest(handler, http.MethodPost, "/api/plugins", nil)
	if rec.Code != http.StatusOK || plugins.discovered != 1 {
		t.Errorf("POST status = %d, discovered = %d", rec.Code, plugins.discovered)
	}

	plugins.discoverErr = errors.New("permission denied")
	rec = doRequest(handler, http.MethodPost, "/api/plugins", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}

	rec = doRequest(handler, http.MethodDelete, "/api/plugins", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestModelHandler(t *testing.T) {
	handler := NewModelHandler(keyboardCatalog())

	rec := doRequest(handler, http.MethodGet, "/api/models", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listModelsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	ids := make(map[string]bool)
	for _, m := range response.Models {
		ids[m.ID] = true
	}
	for _, want := range []string{keyboard.ModelTap, keyboard.ModelLongpress, keyboard.ModelModipress} {
		if !ids[want] {
			t.Errorf("model %q missing", want)
		}
	}
}

func TestModelHandler_NotLoaded(t *testing.T) {
	handler := NewModelHandler(staticCatalog{})

	rec := doRequest(handler, http.MethodGet, "/api/models", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}
