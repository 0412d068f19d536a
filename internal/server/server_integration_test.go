package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/keytouch/internal/app"
	"github.com/ayusman/keytouch/internal/config"
	"github.com/ayusman/keytouch/internal/store"
	"github.com/gorilla/websocket"
)

const tapRecording = `{"inputs":[{"touchpoints":[{"isFromTouch":true,"path":{"coords":[
	{"targetX":10,"targetY":10,"clientX":10,"clientY":10,"t":5000,"item":"K_B"},
	{"targetX":10,"targetY":10,"clientX":10,"clientY":10,"t":5080,"item":"K_B"}
],"isComplete":true}}]}]}`

func newTestApp(t *testing.T, s *store.Store) *app.App {
	t.Helper()

	settings := config.Default()
	settings.Plugins.Dir = t.TempDir()
	a, err := app.New(app.Config{Settings: settings, Store: s})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		a.Close()
	})
	return a
}

func TestAPI_TemplateWorkflow(t *testing.T) {
	// Setup
	tmpDir := t.TempDir()
	s, _ := store.New(filepath.Join(tmpDir, "test.db"))
	defer s.Close()

	srv := New(Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Create a template
	createBody := `{"name": "zigzag"}`
	resp, err := client.Post(ts.URL+"/api/templates", "application/json", bytes.NewBufferString(createBody))
	if err != nil {
		t.Fatalf("POST /api/templates error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var created struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		ModelID string `json:"model_id"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	if created.ModelID != "shape:zigzag" {
		t.Errorf("created model_id = %s, want shape:zigzag", created.ModelID)
	}

	// 2. Train it
	samplesBody := `{"samples": [
		[{"x":0,"y":0},{"x":50,"y":50},{"x":100,"y":0}],
		[{"x":0,"y":2},{"x":52,"y":48},{"x":98,"y":0}]
	]}`
	resp, err = client.Post(ts.URL+"/api/templates/"+created.ID+"/samples", "application/json", bytes.NewBufferString(samplesBody))
	if err != nil {
		t.Fatalf("POST samples error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST samples status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	resp.Body.Close()

	// 3. The trained path is returned
	resp, _ = client.Get(ts.URL + "/api/templates/" + created.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/templates/%s status = %d, want %d", created.ID, resp.StatusCode, http.StatusOK)
	}
	var got struct {
		Samples int               `json:"samples"`
		Path    []json.RawMessage `json:"path"`
	}
	json.NewDecoder(resp.Body).Decode(&got)
	resp.Body.Close()

	if got.Samples != 2 {
		t.Errorf("samples = %d, want 2", got.Samples)
	}
	if len(got.Path) == 0 {
		t.Error("expected trained path")
	}

	// 4. Delete template
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/templates/"+created.ID, nil)
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	// 5. Verify deleted
	resp, _ = client.Get(ts.URL + "/api/templates/" + created.ID)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()
}

func TestAPI_RecordingReplay(t *testing.T) {
	s, _ := store.New(filepath.Join(t.TempDir(), "test.db"))
	defer s.Close()

	ts := httptest.NewServer(New(Config{Store: s}))
	defer ts.Close()
	client := ts.Client()

	body := `{"name": "tap", "recording": ` + tapRecording + `}`
	resp, err := client.Post(ts.URL+"/api/recordings", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/recordings error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created struct {
		ID          string  `json:"id"`
		Touchpoints int     `json:"touchpoints"`
		DurationMs  float64 `json:"duration_ms"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	if created.Touchpoints != 1 || created.DurationMs != 80 {
		t.Errorf("created = %+v, want 1 touchpoint over 80ms", created)
	}

	resp, err = client.Post(ts.URL+"/api/recordings/"+created.ID+"/replay", "application/json", nil)
	if err != nil {
		t.Fatalf("POST replay error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replay status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var result app.ReplayResult
	json.NewDecoder(resp.Body).Decode(&result)
	resp.Body.Close()

	labels := result.Labels()
	if len(labels) != 1 || labels[0] != "simple-tap K_B" {
		t.Errorf("replay labels = %v, want [simple-tap K_B]", labels)
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}

func dialInput(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/input"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s error = %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wsMessage struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Error string `json:"error"`
}

// readUntil reads messages until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) wsMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %q: %v", typ, err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func TestInput_TapOverWebSocket(t *testing.T) {
	s, _ := store.New(filepath.Join(t.TempDir(), "test.db"))
	defer s.Close()

	a := newTestApp(t, s)
	ts := httptest.NewServer(New(Config{Store: s, App: a}))
	defer ts.Close()

	conn := dialInput(t, ts)

	sample := map[string]any{"targetX": 10, "targetY": 10, "clientX": 10, "clientY": 10, "item": "K_B"}
	if err := conn.WriteJSON(map[string]any{"type": "start", "id": 1, "touch": true, "sample": sample}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	if err := conn.WriteJSON(map[string]any{"type": "end", "id": 1, "touch": true}); err != nil {
		t.Fatalf("write end: %v", err)
	}

	update := readUntil(t, conn, app.EventUpdate)
	if update.Label != "simple-tap K_B" {
		t.Errorf("label = %q, want simple-tap K_B", update.Label)
	}
	readUntil(t, conn, app.EventEnd)

	// State reflects the last gesture
	resp, err := ts.Client().Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("GET /api/state error = %v", err)
	}
	var state stateResponse
	json.NewDecoder(resp.Body).Decode(&state)
	resp.Body.Close()

	if !state.Enabled || state.LastGesture != "simple-tap K_B" {
		t.Errorf("state = %+v", state)
	}
}

func TestInput_RejectsUnknownType(t *testing.T) {
	s, _ := store.New(filepath.Join(t.TempDir(), "test.db"))
	defer s.Close()

	ts := httptest.NewServer(New(Config{Store: s, App: newTestApp(t, s)}))
	defer ts.Close()

	conn := dialInput(t, ts)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"hover","id":1}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	msg := readUntil(t, conn, "error")
	if !strings.Contains(msg.Error, "unknown input type") {
		t.Errorf("error = %q", msg.Error)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg = readUntil(t, conn, "error")
	if !strings.HasPrefix(msg.Error, "invalid input") {
		t.Errorf("error = %q", msg.Error)
	}
}

func TestState_Toggle(t *testing.T) {
	s, _ := store.New(filepath.Join(t.TempDir(), "test.db"))
	defer s.Close()

	a := newTestApp(t, s)
	srv := New(Config{Store: s, App: a})

	req := httptest.NewRequest(http.MethodPut, "/api/state", strings.NewReader(`{"enabled": false}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /api/state status = %d, want %d", rec.Code, http.StatusOK)
	}
	if a.IsEnabled() {
		t.Error("app still enabled after PUT enabled=false")
	}

	req = httptest.NewRequest(http.MethodPut, "/api/state", strings.NewReader(`{}`))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("PUT without enabled status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestModelsAndPlugins(t *testing.T) {
	s, _ := store.New(filepath.Join(t.TempDir(), "test.db"))
	defer s.Close()

	srv := New(Config{Store: s, App: newTestApp(t, s)})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/models status = %d, want %d", rec.Code, http.StatusOK)
	}
	var models struct {
		Models []struct {
			ID string `json:"id"`
		} `json:"models"`
	}
	json.NewDecoder(rec.Body).Decode(&models)

	found := false
	for _, m := range models.Models {
		if m.ID == "simple-tap" {
			found = true
		}
	}
	if !found {
		t.Errorf("simple-tap missing from %+v", models.Models)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/plugins", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/plugins status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"plugins":[]`) {
		t.Errorf("expected empty plugin list, got %s", rec.Body.String())
	}
}
