package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

// WebSocketHub broadcasts events to every connected client. The pack's only
// gorilla/websocket usage is client-side (rahjooh-CryptoTrade's exchange
// readers dial out); this hub is the server side the same library serves,
// using the upgrader the same package exposes.
type WebSocketHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	logger  *slog.Logger
}

func NewWebSocketHub(logger *slog.Logger) *WebSocketHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHub{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  make(map[*websocket.Conn]struct{}),
		logger:   logger,
	}
}

func (h *WebSocketHub) Name() string { return "websocket" }

// ServeHTTP upgrades the connection and registers it for broadcast.
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket: upgrade failed", "error", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Readers don't send anything meaningful; block on reads purely to
	// detect disconnects and drop the client.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *WebSocketHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Send implements Sink by broadcasting to every connected client, dropping
// any that error on write, so a slow consumer never blocks the pipeline.
func (h *WebSocketHub) Send(ctx context.Context, event models.Event) error {
	payload, err := json.Marshal(wireEvent(event))
	if err != nil {
		return fmt.Errorf("publisher: marshaling event: %w", err)
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(c)
		}
	}
	return nil
}
