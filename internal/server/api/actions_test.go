package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ayusman/keytouch/internal/keyboard"
	"github.com/ayusman/keytouch/internal/recognizer"
	"github.com/ayusman/keytouch/internal/store"
)

type staticCatalog struct {
	defs *recognizer.GestureModelDefs
}

func (c staticCatalog) Models() *recognizer.GestureModelDefs { return c.defs }

func keyboardCatalog() staticCatalog {
	return staticCatalog{defs: keyboard.Models(keyboard.DefaultLayout(), keyboard.DefaultTuning(), nil)}
}

func createAction(t *testing.T, s *store.Store, modelID, item string) *store.Action {
	t.Helper()
	a := &store.Action{
		ModelID:    modelID,
		Item:       item,
		PluginName: "keyboard",
		ActionName: "type",
		Enabled:    true,
	}
	if err := s.Actions().Create(a); err != nil {
		t.Fatalf("failed to create action: %v", err)
	}
	return a
}

func TestActionHandler_Create(t *testing.T) {
	s := newTestStore(t)
	handler := NewActionHandler(s, keyboardCatalog())

	body := []byte(`{"model_id":"longpress","item":"K_E","plugin_name":"keyboard","action_name":"type","config":{"text":"é"}}`)
	rec := doRequest(handler, http.MethodPost, "/api/actions", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var response actionResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.ID == "" || !response.Enabled {
		t.Errorf("response = %+v, want an enabled action with an ID", response)
	}

	stored, err := s.Actions().GetByID(response.ID)
	if err != nil {
		t.Fatalf("failed to get created action: %v", err)
	}
	if stored.ModelID != "longpress" || stored.Item != "K_E" {
		t.Errorf("stored action = %+v", stored)
	}
}

func TestActionHandler_Create_DefaultConfig(t *testing.T) {
	s := newTestStore(t)
	handler := NewActionHandler(s, nil)

	rec := doRequest(handler, http.MethodPost, "/api/actions",
		[]byte(`{"model_id":"anything","plugin_name":"p","action_name":"a"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rec.Code)
	}

	var response actionResponse
	json.NewDecoder(rec.Body).Decode(&response)
	if string(response.Config) != "{}" {
		t.Errorf("expected empty config object, got %s", response.Config)
	}
}

func TestActionHandler_Create_Invalid(t *testing.T) {
	s := newTestStore(t)
	handler := NewActionHandler(s, keyboardCatalog())
	createAction(t, s, keyboard.ModelTap, "K_A")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", "nope", http.StatusBadRequest},
		{"missing model", `{"plugin_name":"p","action_name":"a"}`, http.StatusBadRequest},
		{"missing plugin", `{"model_id":"simple-tap","action_name":"a"}`, http.StatusBadRequest},
		{"missing action", `{"model_id":"simple-tap","plugin_name":"p"}`, http.StatusBadRequest},
		{"unknown model", `{"model_id":"pinch","plugin_name":"p","action_name":"a"}`, http.StatusBadRequest},
		{"duplicate binding", `{"model_id":"simple-tap","item":"K_A","plugin_name":"p","action_name":"a"}`, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(handler, http.MethodPost, "/api/actions", []byte(tt.body))
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestActionHandler_Create_UntrainedShape(t *testing.T) {
	s := newTestStore(t)
	handler := NewActionHandler(s, keyboardCatalog())

	rec := doRequest(handler, http.MethodPost, "/api/actions",
		[]byte(`{"model_id":"shape:spiral","plugin_name":"p","action_name":"a"}`))
	if rec.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, rec.Code)
	}
}

func TestActionHandler_ListAndGet(t *testing.T) {
	s := newTestStore(t)
	handler := NewActionHandler(s, nil)
	a := createAction(t, s, keyboard.ModelFlick, "K_O")

	rec := doRequest(handler, http.MethodGet, "/api/actions", nil)
	var list listActionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(list.Actions) != 1 || list.Actions[0].ID != a.ID {
		t.Errorf("list = %+v", list.Actions)
	}

	rec = doRequest(handler, http.MethodGet, "/api/actions/"+a.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	rec = doRequest(handler, http.MethodGet, "/api/actions/nonexistent", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestActionHandler_Update(t *testing.T) {
	s := newTestStore(t)
	handler := NewActionHandler(s, keyboardCatalog())
	a := createAction(t, s, keyboard.ModelTap, "K_A")
	createAction(t, s, keyboard.ModelTap, "K_B")

	rec := doRequest(handler, http.MethodPut, "/api/actions/"+a.ID, []byte(`{"enabled":false,"action_name":"press"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	stored, _ := s.Actions().GetByID(a.ID)
	if stored.Enabled || stored.ActionName != "press" || stored.Item != "K_A" {
		t.Errorf("stored action = %+v", stored)
	}

	// Moving onto an existing binding conflicts.
	rec = doRequest(handler, http.MethodPut, "/api/actions/"+a.ID, []byte(`{"item":"K_B"}`))
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}

	// An explicit empty item binds every key.
	rec = doRequest(handler, http.MethodPut, "/api/actions/"+a.ID, []byte(`{"item":""}`))
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	stored, _ = s.Actions().GetByID(a.ID)
	if stored.Item != "" {
		t.Errorf("stored item = %q, want empty", stored.Item)
	}

	rec = doRequest(handler, http.MethodPut, "/api/actions/nonexistent", []byte(`{}`))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestActionHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	handler := NewActionHandler(s, nil)
	a := createAction(t, s, keyboard.ModelTap, "K_A")

	rec := doRequest(handler, http.MethodDelete, "/api/actions/"+a.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	rec = doRequest(handler, http.MethodDelete, "/api/actions/"+a.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}
