// Package api provides HTTP API handlers for shape templates, action
// bindings and input recordings.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ayusman/keytouch/internal/store"
)

// Reloader rebuilds the live gesture models after templates change.
type Reloader interface {
	ReloadTemplates(ctx context.Context) error
}

// TemplateHandler handles HTTP requests for shape template resources.
type TemplateHandler struct {
	store    *store.Store
	reloader Reloader
	logger   *slog.Logger
}

// NewTemplateHandler creates a new TemplateHandler. reloader may be nil.
func NewTemplateHandler(s *store.Store, reloader Reloader, logger *slog.Logger) *TemplateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateHandler{store: s, reloader: reloader, logger: logger}
}

// ServeHTTP routes /api/templates and /api/templates/{id}.
func (h *TemplateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/templates")
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

// defaultTolerance is the normalized DTW distance accepted when a
// template is created without one.
const defaultTolerance = 0.15

type templateRequest struct {
	Name      string  `json:"name"`
	Tolerance float64 `json:"tolerance"`
}

type pointResponse struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type templateResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	ModelID   string          `json:"model_id"`
	Tolerance float64         `json:"tolerance"`
	Samples   int             `json:"samples"`
	Path      []pointResponse `json:"path,omitempty"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type listTemplatesResponse struct {
	Templates []templateResponse `json:"templates"`
}

func toTemplateResponse(t *store.Template, path []store.PathPoint) templateResponse {
	resp := templateResponse{
		ID:        t.ID,
		Name:      t.Name,
		ModelID:   shapeModelID(t.Name),
		Tolerance: t.Tolerance,
		Samples:   t.Samples,
		CreatedAt: t.CreatedAt.Format(timeFormat),
		UpdatedAt: t.UpdatedAt.Format(timeFormat),
	}
	for _, p := range path {
		resp.Path = append(resp.Path, pointResponse{X: p.X, Y: p.Y})
	}
	return resp
}

// reload refreshes the live models. Failures are logged; the store change
// has already been made.
func (h *TemplateHandler) reload(ctx context.Context) {
	if h.reloader == nil {
		return
	}
	if err := h.reloader.ReloadTemplates(ctx); err != nil {
		h.logger.Warn("template reload failed", "error", err)
	}
}

func (h *TemplateHandler) list(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.Templates().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}

	response := listTemplatesResponse{
		Templates: make([]templateResponse, 0, len(templates)),
	}
	for _, t := range templates {
		response.Templates = append(response.Templates, toTemplateResponse(t, nil))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *TemplateHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	template, err := h.store.Templates().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get template")
		return
	}

	path, err := h.store.Templates().GetPath(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get template path")
		return
	}

	writeJSON(w, http.StatusOK, toTemplateResponse(template, path))
}

// validName rejects names that cannot be part of a model ID.
func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, " \t\n/")
}

func (h *TemplateHandler) nameTaken(name, exceptID string) (bool, error) {
	existing, err := h.store.Templates().GetByName(name)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return existing.ID != exceptID, nil
}

func (h *TemplateHandler) create(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if !validName(req.Name) {
		writeError(w, http.StatusBadRequest, "Name is required and may not contain spaces or slashes")
		return
	}
	if req.Tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must not be negative")
		return
	}
	taken, err := h.nameTaken(req.Name, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check template name")
		return
	}
	if taken {
		writeError(w, http.StatusConflict, "Template name already in use")
		return
	}

	tolerance := req.Tolerance
	if tolerance == 0 {
		tolerance = defaultTolerance
	}

	template := &store.Template{Name: req.Name, Tolerance: tolerance}
	if err := h.store.Templates().Create(template); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create template")
		return
	}

	writeJSON(w, http.StatusCreated, toTemplateResponse(template, nil))
}

func (h *TemplateHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	template, err := h.store.Templates().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get template")
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" {
		if !validName(req.Name) {
			writeError(w, http.StatusBadRequest, "Name may not contain spaces or slashes")
			return
		}
		taken, err := h.nameTaken(req.Name, id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to check template name")
			return
		}
		if taken {
			writeError(w, http.StatusConflict, "Template name already in use")
			return
		}
		template.Name = req.Name
	}
	if req.Tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must not be negative")
		return
	}
	if req.Tolerance != 0 {
		template.Tolerance = req.Tolerance
	}

	if err := h.store.Templates().Update(template); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update template")
		return
	}
	h.reload(r.Context())

	writeJSON(w, http.StatusOK, toTemplateResponse(template, nil))
}

func (h *TemplateHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Templates().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete template")
		return
	}
	h.reload(r.Context())

	w.WriteHeader(http.StatusNoContent)
}
