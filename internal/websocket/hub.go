package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Message notifies a user's open tabs that their blueprint was saved, so
// other tabs can refresh their lastSavedAt indicator.
type Message struct {
	Type        string    `json:"type"`
	UserID      string    `json:"userId"`
	LastSavedAt time.Time `json:"lastSavedAt"`
	Completed   bool      `json:"completed,omitempty"`
}

// SavedMessage builds the blueprint_saved notification.
func SavedMessage(userID string, lastSavedAt time.Time, completed bool) Message {
	return Message{
		Type:        "blueprint_saved",
		UserID:      userID,
		LastSavedAt: lastSavedAt,
		Completed:   completed,
	}
}

// Hub tracks active WebSocket clients grouped by the user they watch.
// Notifications fan out only to that user's connections; there is no
// cross-user broadcast.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client under its user id.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.userID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
}

// Notify sends a message to every connection watching the given user.
func (h *Hub) Notify(userID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal notification", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[userID] {
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop rather than block the saving request
		}
	}
}

// ClientCount returns the number of connections for a user.
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
