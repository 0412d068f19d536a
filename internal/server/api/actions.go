package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/keytouch/internal/keyboard"
	"github.com/ayusman/keytouch/internal/recognizer"
	"github.com/ayusman/keytouch/internal/store"
)

// Catalog exposes the gesture models actions may be bound to.
type Catalog interface {
	Models() *recognizer.GestureModelDefs
}

// ActionHandler handles HTTP requests for action bindings.
type ActionHandler struct {
	store   *store.Store
	catalog Catalog
}

// NewActionHandler creates a new ActionHandler. With a nil catalog any
// model ID is accepted.
func NewActionHandler(s *store.Store, catalog Catalog) *ActionHandler {
	return &ActionHandler{store: s, catalog: catalog}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *ActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/actions")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createActionRequest struct {
	ModelID    string          `json:"model_id"`
	Item       string          `json:"item"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
}

type updateActionRequest struct {
	ModelID    string          `json:"model_id"`
	Item       *string         `json:"item"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type actionResponse struct {
	ID         string          `json:"id"`
	ModelID    string          `json:"model_id"`
	Item       string          `json:"item"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
}

type listActionsResponse struct {
	Actions []actionResponse `json:"actions"`
}

func toActionResponse(a *store.Action) actionResponse {
	config := a.Config
	if config == nil {
		config = json.RawMessage("{}")
	}
	return actionResponse{
		ID:         a.ID,
		ModelID:    a.ModelID,
		Item:       a.Item,
		PluginName: a.PluginName,
		ActionName: a.ActionName,
		Config:     config,
		Enabled:    a.Enabled,
		CreatedAt:  a.CreatedAt.Format(timeFormat),
	}
}

// knownModel reports whether modelID names a gesture model. Shape models
// are accepted before their template is trained.
func (h *ActionHandler) knownModel(modelID string) bool {
	if h.catalog == nil || strings.HasPrefix(modelID, keyboard.ShapePrefix) {
		return true
	}
	defs := h.catalog.Models()
	if defs == nil {
		return true
	}
	_, ok := defs.Model(modelID)
	return ok
}

// duplicate reports whether another action already binds modelID and item.
func (h *ActionHandler) duplicate(modelID, item, exceptID string) (bool, error) {
	actions, err := h.store.Actions().List()
	if err != nil {
		return false, err
	}
	for _, a := range actions {
		if a.ModelID == modelID && a.Item == item && a.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (h *ActionHandler) list(w http.ResponseWriter, r *http.Request) {
	actions, err := h.store.Actions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list actions")
		return
	}

	response := listActionsResponse{
		Actions: make([]actionResponse, 0, len(actions)),
	}
	for _, a := range actions {
		response.Actions = append(response.Actions, toActionResponse(a))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *ActionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	action, err := h.store.Actions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get action")
		return
	}

	writeJSON(w, http.StatusOK, toActionResponse(action))
}

func (h *ActionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.ModelID == "" {
		writeError(w, http.StatusBadRequest, "model_id is required")
		return
	}
	if req.PluginName == "" {
		writeError(w, http.StatusBadRequest, "plugin_name is required")
		return
	}
	if req.ActionName == "" {
		writeError(w, http.StatusBadRequest, "action_name is required")
		return
	}
	if !h.knownModel(req.ModelID) {
		writeError(w, http.StatusBadRequest, "Unknown gesture model")
		return
	}

	dup, err := h.duplicate(req.ModelID, req.Item, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check existing action")
		return
	}
	if dup {
		writeError(w, http.StatusConflict, "Action already bound to this gesture")
		return
	}

	action := &store.Action{
		ModelID:    req.ModelID,
		Item:       req.Item,
		PluginName: req.PluginName,
		ActionName: req.ActionName,
		Config:     req.Config,
		Enabled:    true,
	}
	if err := h.store.Actions().Create(action); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create action")
		return
	}

	writeJSON(w, http.StatusCreated, toActionResponse(action))
}

func (h *ActionHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	action, err := h.store.Actions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get action")
		return
	}

	var req updateActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.ModelID != "" {
		if !h.knownModel(req.ModelID) {
			writeError(w, http.StatusBadRequest, "Unknown gesture model")
			return
		}
		action.ModelID = req.ModelID
	}
	if req.Item != nil {
		action.Item = *req.Item
	}
	if req.PluginName != "" {
		action.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		action.ActionName = req.ActionName
	}
	if req.Config != nil {
		action.Config = req.Config
	}
	if req.Enabled != nil {
		action.Enabled = *req.Enabled
	}

	dup, err := h.duplicate(action.ModelID, action.Item, action.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check existing action")
		return
	}
	if dup {
		writeError(w, http.StatusConflict, "Action already bound to this gesture")
		return
	}

	if err := h.store.Actions().Update(action); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update action")
		return
	}

	writeJSON(w, http.StatusOK, toActionResponse(action))
}

func (h *ActionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Actions().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete action")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
