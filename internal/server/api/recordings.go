package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ayusman/keytouch/internal/app"
	"github.com/ayusman/keytouch/internal/config"
	"github.com/ayusman/keytouch/internal/engine"
	"github.com/ayusman/keytouch/internal/keyboard"
	"github.com/ayusman/keytouch/internal/preview"
	"github.com/ayusman/keytouch/internal/recognizer"
	"github.com/ayusman/keytouch/internal/store"
)

// Runtime exposes the live recognizer configuration used for replays.
type Runtime interface {
	Catalog
	Settings() *config.Config
	Layout() *keyboard.Layout
}

// RecordingHandler handles HTTP requests for saved input recordings.
type RecordingHandler struct {
	store   *store.Store
	runtime Runtime
	logger  *slog.Logger
}

// NewRecordingHandler creates a new RecordingHandler. Without a runtime,
// replays use default settings and the templates in the store.
func NewRecordingHandler(s *store.Store, runtime Runtime, logger *slog.Logger) *RecordingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordingHandler{store: s, runtime: runtime, logger: logger}
}

// ServeHTTP routes requests.
// Expected paths: /api/recordings, /api/recordings/{id},
// /api/recordings/{id}/replay, /api/recordings/{id}/preview.jpg
func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/recordings")
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

	parts := strings.Split(path, "/")
	id := parts[0]

	if len(parts) == 2 {
		switch {
		case parts[1] == "replay" && r.Method == http.MethodPost:
			h.replay(w, r, id)
		case parts[1] == "preview.jpg" && r.Method == http.MethodGet:
			h.preview(w, r, id)
		case parts[1] == "replay" || parts[1] == "preview.jpg":
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		default:
			writeError(w, http.StatusNotFound, "Not found")
		}
		return
	}
	if len(parts) > 2 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createRecordingRequest struct {
	Name      string          `json:"name"`
	Recording json.RawMessage `json:"recording"`
}

type recordingResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Touchpoints int             `json:"touchpoints"`
	DurationMs  float64         `json:"duration_ms"`
	Recording   json.RawMessage `json:"recording,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

type listRecordingsResponse struct {
	Recordings []recordingResponse `json:"recordings"`
}

func toRecordingResponse(rec *store.Recording) recordingResponse {
	return recordingResponse{
		ID:          rec.ID,
		Name:        rec.Name,
		Touchpoints: rec.Touchpoints,
		DurationMs:  rec.DurationMs,
		Recording:   rec.Data,
		CreatedAt:   rec.CreatedAt.Format(timeFormat),
	}
}

// load fetches and parses a stored recording, writing the error response
// itself when it fails.
func (h *RecordingHandler) load(w http.ResponseWriter, id string) (*engine.Recording, bool) {
	stored, err := h.store.Recordings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get recording")
		return nil, false
	}
	rec, err := engine.ParseRecording(stored.Data)
	if err != nil {
		h.logger.Error("stored recording is invalid", "recording", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Stored recording is invalid")
		return nil, false
	}
	return rec, true
}

func (h *RecordingHandler) list(w http.ResponseWriter, r *http.Request) {
	recordings, err := h.store.Recordings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recordings")
		return
	}

	response := listRecordingsResponse{
		Recordings: make([]recordingResponse, 0, len(recordings)),
	}
	for _, rec := range recordings {
		response.Recordings = append(response.Recordings, toRecordingResponse(rec))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *RecordingHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.store.Recordings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get recording")
		return
	}

	writeJSON(w, http.StatusOK, toRecordingResponse(rec))
}

func (h *RecordingHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if len(req.Recording) == 0 {
		writeError(w, http.StatusBadRequest, "Recording is required")
		return
	}

	parsed, err := engine.ParseRecording(req.Recording)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid recording: "+err.Error())
		return
	}

	start, end := parsed.Span()
	rec := &store.Recording{
		Name:        req.Name,
		Touchpoints: len(parsed.Touchpoints()),
		DurationMs:  end - start,
		Data:        req.Recording,
	}
	if err := h.store.Recordings().Create(rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save recording")
		return
	}

	resp := toRecordingResponse(rec)
	resp.Recording = nil
	writeJSON(w, http.StatusCreated, resp)
}

func (h *RecordingHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Recordings().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete recording")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordingHandler) replay(w http.ResponseWriter, r *http.Request, id string) {
	rec, ok := h.load(w, id)
	if !ok {
		return
	}

	settings, layout := config.Default(), keyboard.DefaultLayout()
	var defs *recognizer.GestureModelDefs
	if h.runtime != nil {
		settings, layout = h.runtime.Settings(), h.runtime.Layout()
		defs = h.runtime.Models()
	}
	if defs == nil {
		built, err := app.BuildModels(settings, layout, h.store)
		if err != nil {
			h.logger.Error("build gesture models", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to build gesture models")
			return
		}
		defs = built
	}

	result, err := app.Replay(defs, settings, layout, rec, h.logger)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *RecordingHandler) preview(w http.ResponseWriter, r *http.Request, id string) {
	rec, ok := h.load(w, id)
	if !ok {
		return
	}

	data, err := preview.RenderJPEG(rec, preview.DefaultOptions())
	if err != nil {
		h.logger.Error("render preview", "recording", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to render preview")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
