package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/keytouch/internal/app"
	"github.com/gorilla/websocket"
)

// eventBuffer is how many events may queue per client before new ones are dropped.
const eventBuffer = 64

const writeWait = 5 * time.Second

// clientIDBase keeps websocket contact IDs clear of those the engine assigns
// to replayed contacts.
const clientIDBase = 1 << 20

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Recognizer is the live recognizer driven by websocket clients.
type Recognizer interface {
	Apply(ctx context.Context, in app.Input) error
	Subscribe(f func(app.Event)) func()
}

// inputError is sent to a client whose message could not be applied.
type inputError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// InputHandler accepts pointer input over a WebSocket and streams recognizer
// events back. Contact IDs are scoped to the connection.
type InputHandler struct {
	recognizer Recognizer
	logger     *slog.Logger
	nextID     atomic.Int64
}

// NewInputHandler creates a new InputHandler.
func NewInputHandler(r Recognizer, logger *slog.Logger) *InputHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &InputHandler{recognizer: r, logger: logger}
	h.nextID.Store(clientIDBase)
	return h
}

// wsClient is one connected WebSocket.
type wsClient struct {
	conn   *websocket.Conn
	events chan any
	// ids maps client contacts to recognizer contact IDs.
	ids map[contactKey]int
}

// contactKey names a client contact; touch and mouse IDs are independent.
type contactKey struct {
	id    int
	touch bool
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *InputHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &wsClient{
		conn:   conn,
		events: make(chan any, eventBuffer),
		ids:    make(map[contactKey]int),
	}

	var dropped atomic.Int64
	unsubscribe := h.recognizer.Subscribe(func(ev app.Event) {
		select {
		case c.events <- ev:
		default:
			dropped.Add(1)
		}
	})

	ctx, cancel := context.WithCancel(r.Context())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(ctx, c)
	}()

	h.readLoop(ctx, c)

	unsubscribe()
	h.cancelContacts(c)
	cancel()
	wg.Wait()

	if n := dropped.Load(); n > 0 {
		h.logger.Warn("websocket client too slow, events dropped", "dropped", n)
	}
}

// readLoop applies client input until the connection closes.
func (h *InputHandler) readLoop(ctx context.Context, c *wsClient) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read failed", "error", err)
			}
			return
		}

		var in app.Input
		if err := json.Unmarshal(data, &in); err != nil {
			h.reply(c, inputError{Type: "error", Error: "invalid input: " + err.Error()})
			continue
		}

		key := contactKey{id: in.ID, touch: in.Touch}
		in.ID = h.mapID(c, key, in.Type)
		if err := h.recognizer.Apply(ctx, in); err != nil {
			h.reply(c, inputError{Type: "error", Error: err.Error()})
		}
		if in.Type == app.InputEnd || in.Type == app.InputCancel {
			delete(c.ids, key)
		}
	}
}

// mapID returns the recognizer contact ID for a client contact, allocating
// one on start.
func (h *InputHandler) mapID(c *wsClient, key contactKey, typ string) int {
	if typ == app.InputStart {
		id := int(h.nextID.Add(1))
		c.ids[key] = id
		return id
	}
	if id, ok := c.ids[key]; ok {
		return id
	}
	// Unknown contacts are ignored by the engine.
	return -1
}

// cancelContacts cancels the contacts a disconnected client left open.
func (h *InputHandler) cancelContacts(c *wsClient) {
	if len(c.ids) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	for key, id := range c.ids {
		if err := h.recognizer.Apply(ctx, app.Input{Type: app.InputCancel, ID: id, Touch: key.touch}); err != nil {
			h.logger.Debug("cancel contact", "id", id, "error", err)
		}
	}
}

func (h *InputHandler) reply(c *wsClient, msg any) {
	select {
	case c.events <- msg:
	default:
	}
}

// writeLoop is the only writer on the connection.
func (h *InputHandler) writeLoop(ctx context.Context, c *wsClient) {
	for {
		select {
		case <-ctx.Done():
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case msg := <-c.events:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}
