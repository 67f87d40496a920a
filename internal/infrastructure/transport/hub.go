package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/ports"
)

// ErrNoBrowser is returned by Navigate when no browser bridge is connected.
var ErrNoBrowser = errors.New("no browser connected")

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub streams tab instructions to the connected browser bridges. It is the
// TabNavigator used when the guard runs as a server.
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]*client
	upgrader    websocket.Upgrader
	allowOrigin func(origin string) bool
	logger      ports.Logger
}

// NewHub builds a hub that, until RestrictOrigins is called, only accepts
// bridges without an Origin or from the server's own host.
func NewHub(logger ports.Logger) *Hub {
	h := &Hub{clients: make(map[string]*client), logger: logger}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

// RestrictOrigins installs the origin allowlist consulted on every upgrade.
func (h *Hub) RestrictOrigins(allow func(origin string) bool) {
	h.mu.Lock()
	h.allowOrigin = allow
	h.mu.Unlock()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	h.mu.RLock()
	allow := h.allowOrigin
	h.mu.RUnlock()
	if allow != nil {
		return allow(origin)
	}
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// Navigate implements ports.TabNavigator by broadcasting a navigate
// instruction; the bridge owning tabID applies it.
func (h *Hub) Navigate(_ context.Context, tabID int, url string) error {
	payload, err := json.Marshal(domain.TabInstruction{Type: domain.InstructionNavigate, TabID: tabID, URL: url})
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return ErrNoBrowser
	}
	delivered := 0
	for _, c := range h.clients {
		select {
		case c.send <- payload:
			delivered++
		default:
			h.logger.Warn("browser bridge backlog full, dropping instruction", map[string]interface{}{"client": c.id, "tab": tabID})
		}
	}
	if delivered == 0 {
		return ErrNoBrowser
	}
	return nil
}

// Clients returns the number of connected bridges.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps the bridge registered until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "websocket upgrade required"})
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.Info("browser bridge connected", map[string]interface{}{"client": c.id})
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()
	h.logger.Info("browser bridge disconnected", map[string]interface{}{"client": c.id})
}

// readPump only services control frames; bridges report navigations over HTTP.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every bridge.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}

var _ ports.TabNavigator = (*Hub)(nil)
