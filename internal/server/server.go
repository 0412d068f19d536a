// Package server provides the HTTP server for the keytouch gesture recognizer.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/keytouch/internal/app"
	"github.com/ayusman/keytouch/internal/server/api"
	"github.com/ayusman/keytouch/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
	Logger    *slog.Logger
}

// Server represents the HTTP server for the keytouch application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// Interfaces stay nil without an app so handlers fall back to defaults.
	var (
		reloader api.Reloader
		catalog  api.Catalog
		runtime  api.Runtime
	)
	if s.config.App != nil {
		reloader, catalog, runtime = s.config.App, s.config.App, s.config.App
	}

	if s.config.Store != nil {
		templateHandler := api.NewTemplateHandler(s.config.Store, reloader, s.config.Logger)
		samplesHandler := api.NewSamplesHandler(s.config.Store, reloader, s.config.Logger)

		// Route /api/templates/{id}/samples to the samples handler
		templateRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/samples") {
				samplesHandler.ServeHTTP(w, r)
				return
			}
			templateHandler.ServeHTTP(w, r)
		})
		s.mux.Handle("/api/templates", templateRouter)
		s.mux.Handle("/api/templates/", templateRouter)

		actionHandler := api.NewActionHandler(s.config.Store, catalog)
		s.mux.Handle("/api/actions", actionHandler)
		s.mux.Handle("/api/actions/", actionHandler)

		recordingHandler := api.NewRecordingHandler(s.config.Store, runtime, s.config.Logger)
		s.mux.Handle("/api/recordings", recordingHandler)
		s.mux.Handle("/api/recordings/", recordingHandler)
	}

	if s.config.App != nil {
		s.mux.Handle("/api/models", api.NewModelHandler(s.config.App))
		s.mux.Handle("/api/plugins", api.NewPluginHandler(s.config.App.PluginManager()))
		s.mux.HandleFunc("/api/state", s.handleState)
		s.mux.Handle("/api/input", NewInputHandler(s.config.App, s.config.Logger))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

type stateResponse struct {
	Enabled     bool   `json:"enabled"`
	LastGesture string `json:"last_gesture"`
}

type stateRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleState reports and toggles recognition at /api/state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	a := s.config.App
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req stateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "enabled is required"})
			return
		}
		a.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stateResponse{Enabled: a.IsEnabled(), LastGesture: a.LastGesture()})
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
