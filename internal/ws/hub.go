// Package ws provides the per-user websocket push channel: the connection
// registry, the broadcaster and the gorilla/websocket transport.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/internal/config"
	"github.com/Aidin1998/energydesk/pkg/models"
)

// UserLookup resolves the user id sent in an auth message
type UserLookup interface {
	GetUser(ctx context.Context, id string) (models.User, bool)
}

// Hub upgrades HTTP requests to websocket clients and binds them to users
// once they authenticate
type Hub struct {
	registry *Registry
	users    UserLookup
	cfg      config.WSConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithAllowedOrigins restricts upgrades to browsers from the given origins.
// An empty list or "*" allows every origin.
func WithAllowedOrigins(origins []string) HubOption {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = originChecker(origins)
	}
}

// NewHub creates a Hub
func NewHub(registry *Registry, users UserLookup, cfg config.WSConfig, logger *zap.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		registry: registry,
		users:    users,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     originChecker(nil),
		},
		logger: logger.Named("ws"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// not a browser
			return true
		}
		return slices.ContainsFunc(origins, func(o string) bool {
			return strings.EqualFold(o, origin)
		})
	}
}

// ServeWS upgrades the request and starts the client pumps. The client
// receives nothing until it sends {"type":"auth","userId":...}.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.cfg.SendQueueSize),
		hub:  h,
	}
	h.logger.Debug("websocket connection established", zap.String("conn_id", c.id), zap.String("remote", r.RemoteAddr))
	go c.writePump()
	go c.readPump()
}

func (h *Hub) handleMessage(c *Client, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Debug("websocket message parse error", zap.String("conn_id", c.id), zap.Error(err))
		return
	}
	if msg.Type != "auth" || msg.UserID == "" {
		return
	}
	if _, ok := h.users.GetUser(context.Background(), msg.UserID); !ok {
		h.logger.Warn("auth for unknown user ignored", zap.String("conn_id", c.id), zap.String("user_id", msg.UserID))
		return
	}
	if !h.registry.Register(msg.UserID, c) {
		h.logger.Debug("auth on replaced connection ignored", zap.String("conn_id", c.id), zap.String("user_id", msg.UserID))
		return
	}
	h.logger.Info("user connected", zap.String("user_id", msg.UserID), zap.String("conn_id", c.id))
}

// Client is one websocket connection. It implements Channel.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// Send implements Channel
func (c *Client) Send(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		// slow client
		return false
	}
}

// Close implements Channel. The write pump sends a close frame and exits.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump handles auth messages and control frames
func (c *Client) readPump() {
	defer func() {
		if c.hub.registry.Unregister(c) {
			c.hub.logger.Info("user disconnected", zap.String("conn_id", c.id))
		}
		c.Close()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
		return nil
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		c.hub.handleMessage(c, msg)
	}
}

// writePump sends queued events and heartbeats to the client
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
