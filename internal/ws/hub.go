package ws

import (
	"sync"
)

// Hub tracks live connections and room membership for this instance.
// Two addressing modes: every user has a personal channel (all of their
// sockets), and every conversation a client explicitly joined has a room.
// This state is a routing cache only; the store remains the source of
// truth for membership and uniqueness.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[string]*Client // userID -> socketID -> client
	rooms   map[string]map[string]*Client // conversationID -> socketID -> client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.UserID]; !ok {
		h.clients[c.UserID] = make(map[string]*Client)
	}
	h.clients[c.UserID][c.SocketID] = c
}

// Unregister removes the client from its personal channel and from every
// room it joined.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[c.UserID]; ok {
		delete(conns, c.SocketID)
		if len(conns) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	for convID, members := range h.rooms {
		delete(members, c.SocketID)
		if len(members) == 0 {
			delete(h.rooms, convID)
		}
	}
}

func (h *Hub) JoinRoom(convID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[convID]; !ok {
		h.rooms[convID] = make(map[string]*Client)
	}
	h.rooms[convID][c.SocketID] = c
}

func (h *Hub) LeaveRoom(convID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[convID]; ok {
		delete(members, c.SocketID)
		if len(members) == 0 {
			delete(h.rooms, convID)
		}
	}
}

func (h *Hub) InRoom(convID, socketID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members, ok := h.rooms[convID]
	if !ok {
		return false
	}
	_, ok = members[socketID]
	return ok
}

// BroadcastRoom delivers payload to every socket in the conversation's
// room. exceptSocketID may be empty to include everyone.
func (h *Hub) BroadcastRoom(convID string, payload any, exceptSocketID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for socketID, c := range h.rooms[convID] {
		if socketID == exceptSocketID {
			continue
		}
		c.Send(payload)
	}
}

// SendToUser delivers payload to every socket the user holds, whether or
// not they joined any room.
func (h *Hub) SendToUser(userID string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients[userID] {
		c.Send(payload)
	}
}

// IsOnline reports whether the user holds at least one live socket on
// this instance.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}
