package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ayusman/keytouch/internal/gesture"
	"github.com/ayusman/keytouch/internal/store"
)

// SamplesHandler handles the training strokes of a shape template.
// Posting strokes replaces the previous ones and retrains the template path.
type SamplesHandler struct {
	store    *store.Store
	reloader Reloader
	logger   *slog.Logger
}

// NewSamplesHandler creates a new SamplesHandler. reloader may be nil.
func NewSamplesHandler(s *store.Store, reloader Reloader, logger *slog.Logger) *SamplesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SamplesHandler{store: s, reloader: reloader, logger: logger}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/templates/{id}/samples
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/templates/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[1] != "samples" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	templateID := parts[0]

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, templateID)
	case http.MethodPost:
		h.create(w, r, templateID)
	case http.MethodDelete:
		h.clear(w, r, templateID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// createSamplesRequest holds training strokes. Each stroke is an array of
// {"x", "y"} points.
type createSamplesRequest struct {
	Samples []json.RawMessage `json:"samples"`
}

type sampleResponse struct {
	ID          int64           `json:"id"`
	TemplateID  string          `json:"template_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   string          `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

type trainResponse struct {
	Samples int `json:"samples"`
	Points  int `json:"points"`
}

func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request, templateID string) {
	samples, err := h.store.Samples().GetByTemplateID(templateID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{
		Samples: make([]sampleResponse, 0, len(samples)),
	}

	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:          s.ID,
			TemplateID:  s.TemplateID,
			SampleIndex: s.SampleIndex,
			Data:        s.Data,
			CreatedAt:   s.CreatedAt.Format(timeFormat),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// decodeStrokes parses each raw sample as a stroke of points.
func decodeStrokes(samples []json.RawMessage) ([][]gesture.Point, error) {
	strokes := make([][]gesture.Point, len(samples))
	for i, raw := range samples {
		if err := json.Unmarshal(raw, &strokes[i]); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
	}
	return strokes, nil
}

func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request, templateID string) {
	_, err := h.store.Templates().GetByID(templateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to verify template")
		return
	}

	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	strokes, err := decodeStrokes(req.Samples)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid stroke: "+err.Error())
		return
	}
	trained, err := gesture.TrainShape(strokes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Samples().Create(templateID, req.Samples); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	path := make([]store.PathPoint, len(trained))
	for i, p := range trained {
		path[i] = store.PathPoint{X: p.X, Y: p.Y}
	}
	if err := h.store.Templates().SetPath(templateID, path); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save template path")
		return
	}

	if h.reloader != nil {
		if err := h.reloader.ReloadTemplates(r.Context()); err != nil {
			h.logger.Warn("template reload failed", "template", templateID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, trainResponse{Samples: len(req.Samples), Points: len(path)})
}

func (h *SamplesHandler) clear(w http.ResponseWriter, r *http.Request, templateID string) {
	if err := h.store.Samples().Create(templateID, nil); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	if err := h.store.Templates().SetPath(templateID, nil); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear template path")
		return
	}

	if h.reloader != nil {
		if err := h.reloader.ReloadTemplates(r.Context()); err != nil {
			h.logger.Warn("template reload failed", "template", templateID, "error", err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
