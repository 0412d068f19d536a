package api

import (
	"net/http"

	"github.com/ayusman/keytouch/internal/action"
	"github.com/ayusman/keytouch/internal/recognizer"
)

// PluginLister lists discovered action plugins.
type PluginLister interface {
	List() []*action.Plugin
	Discover() error
}

type pluginResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
	Path        string   `json:"path"`
}

type listPluginsResponse struct {
	Plugins []pluginResponse `json:"plugins"`
}

// NewPluginHandler serves GET /api/plugins. POST rescans the plugin
// directory first.
func NewPluginHandler(plugins PluginLister) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
		case http.MethodPost:
			if err := plugins.Discover(); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to discover plugins: "+err.Error())
				return
			}
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		list := plugins.List()
		response := listPluginsResponse{Plugins: make([]pluginResponse, 0, len(list))}
		for _, p := range list {
			actions := p.Manifest.Actions
			if actions == nil {
				actions = []string{}
			}
			response.Plugins = append(response.Plugins, pluginResponse{
				Name:        p.Manifest.Name,
				Version:     p.Manifest.Version,
				Description: p.Manifest.Description,
				Actions:     actions,
				Path:        p.Path,
			})
		}
		writeJSON(w, http.StatusOK, response)
	})
}

type modelResponse struct {
	ID         string                      `json:"id"`
	Priority   int                         `json:"priority"`
	Contacts   int                         `json:"contacts"`
	Resolution recognizer.ResolutionAction `json:"resolution"`
}

type listModelsResponse struct {
	Models []modelResponse     `json:"models"`
	Sets   map[string][]string `json:"sets,omitempty"`
}

// NewModelHandler serves GET /api/models with the live gesture catalogue.
func NewModelHandler(catalog Catalog) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		defs := catalog.Models()
		if defs == nil {
			writeError(w, http.StatusServiceUnavailable, "Gesture models not loaded")
			return
		}

		response := listModelsResponse{
			Models: make([]modelResponse, 0, len(defs.Models)),
			Sets:   defs.Sets,
		}
		for _, m := range defs.Models {
			response.Models = append(response.Models, modelResponse{
				ID:         m.ID,
				Priority:   m.ResolutionPriority,
				Contacts:   len(m.Contacts),
				Resolution: m.Resolution,
			})
		}
		writeJSON(w, http.StatusOK, response)
	})
}
