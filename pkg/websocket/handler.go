package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"routeplanner/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Config struct {
	ReadBufferSize    int
	WriteBufferSize   int
	HandshakeTimeout  time.Duration
	PingInterval      time.Duration
	PongTimeout       time.Duration
	WriteTimeout      time.Duration
	MaxMessageSize    int64
	EnableCompression bool
	AllowedOrigins    []string
}

func (c Config) withDefaults() Config {
	if c.PongTimeout <= 0 {
		c.PongTimeout = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongTimeout {
		c.PingInterval = (c.PongTimeout * 9) / 10
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4096
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = 1024
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = 1024
	}
	return c
}

// Handler upgrades authenticated requests and attaches the connection to
// the user's room.
type Handler struct {
	hub      *Hub
	config   Config
	upgrader websocket.Upgrader
	logger   *logger.Logger

	// OnConnect runs once a connection is registered and can receive messages.
	OnConnect func(userID string)
	// OnMessage receives client messages other than ping.
	OnMessage func(userID, messageType string, data json.RawMessage)
}

func NewHandler(hub *Hub, config Config, log *logger.Logger) *Handler {
	config = config.withDefaults()

	h := &Handler{
		hub:    hub,
		config: config,
		logger: log.WithField("component", "websocket_handler"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:    config.ReadBufferSize,
		WriteBufferSize:   config.WriteBufferSize,
		HandshakeTimeout:  config.HandshakeTimeout,
		EnableCompression: config.EnableCompression,
		CheckOrigin:       h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).WithUserID(userID).Warn("WebSocket upgrade failed")
		return
	}

	client := newClient(h.hub, conn, userID, h.config, h.OnMessage)
	h.hub.Register(client)

	go client.writePump()
	go client.readPump()

	if h.OnConnect != nil {
		h.OnConnect(userID)
	}
}
