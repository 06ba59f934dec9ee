package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"routeplanner/pkg/logger"
)

// Hub keeps the live connections of every user. Each user has one room
// and every message for that user goes to all of their connections.
type Hub struct {
	clients    map[*Client]bool
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mutex      sync.RWMutex
	logger     *logger.Logger
}

type Message struct {
	Type      string      `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// inbound is a message received from a client. Data is left raw so the
// receiver decides how to decode it.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		unregister: make(chan *Client, 64),
		rooms:      make(map[string]map[*Client]bool),
		logger:     log.WithField("component", "websocket_hub"),
	}
}

// Run processes unregistrations until ctx is done, then closes every
// remaining connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Register adds client to its user's room and greets it.
func (h *Hub) Register(client *Client) {
	h.mutex.Lock()
	h.clients[client] = true
	h.joinRoom(client, client.UserID)
	h.mutex.Unlock()

	h.logger.WithUserID(client.UserID).Debug("Client registered")

	h.sendToClient(client, Message{
		Type:      "welcome",
		UserID:    client.UserID,
		Timestamp: getCurrentTimestamp(),
		Data: map[string]interface{}{
			"message": "Connected successfully",
		},
	})
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	if room, exists := h.rooms[client.UserID]; exists {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, client.UserID)
		}
	}

	h.logger.WithUserID(client.UserID).Debug("Client unregistered")
}

// SendToUser delivers a message to every connection of userID. Clients
// whose buffer is full are dropped.
func (h *Hub) SendToUser(userID string, messageType string, data interface{}) {
	message := Message{
		Type:      messageType,
		UserID:    userID,
		Timestamp: getCurrentTimestamp(),
		Data:      data,
	}

	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).WithField("type", messageType).Error("Failed to marshal websocket message")
		return
	}

	var slow []*Client

	h.mutex.RLock()
	for client := range h.rooms[userID] {
		select {
		case client.send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	h.mutex.RUnlock()

	if len(slow) == 0 {
		return
	}

	h.mutex.Lock()
	for _, client := range slow {
		h.logger.WithUserID(userID).Warn("Dropping slow websocket client")
		h.removeLocked(client)
	}
	h.mutex.Unlock()
}

// CloseUser disconnects every connection of userID.
func (h *Hub) CloseUser(userID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.rooms[userID] {
		h.removeLocked(client)
	}
}

// Connections reports how many live connections userID has.
func (h *Hub) Connections(userID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[userID])
}

func (h *Hub) sendToClient(client *Client, message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	select {
	case client.send <- data:
	default:
		h.removeLocked(client)
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		h.removeLocked(client)
	}
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
}

func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
