package ws

import (
	"encoding/json"
	"sync"
)

// Client is one open payment-events connection with user context.
type Client struct {
	UserID uint
	Send   chan []byte

	hub    *PaymentHub
	mu     sync.Mutex
	closed bool
}

// trySend drops the message if the client is closed or its buffer is
// full; a slow dashboard never blocks the pipeline. Guarded by c.mu so a
// send can never race the channel close.
func (c *Client) trySend(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.hub != nil {
		c.hub.unregister(c)
	}
}

// PaymentHub pushes payment status updates to a user's open dashboard
// connections. It is constructed and injected, never package-level state,
// and carries an explicit Start/Stop lifecycle.
type PaymentHub struct {
	mu      sync.RWMutex
	stopped bool
	byUser  map[uint]map[*Client]struct{}
}

func NewPaymentHub() *PaymentHub {
	return &PaymentHub{byUser: make(map[uint]map[*Client]struct{})}
}

// Start marks the hub accepting registrations. Separate from construction
// so the router can be wired before the hub goes live.
func (h *PaymentHub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = false
}

// Stop closes every connection and rejects further registrations.
func (h *PaymentHub) Stop() {
	h.mu.Lock()
	clients := make([]*Client, 0)
	for _, m := range h.byUser {
		for c := range m {
			clients = append(clients, c)
		}
	}
	h.stopped = true
	h.byUser = make(map[uint]map[*Client]struct{})
	h.mu.Unlock()
	for _, c := range clients {
		c.hub = nil // already removed
		c.Close()
	}
}

func (h *PaymentHub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	c.hub = h
	if h.byUser[c.UserID] == nil {
		h.byUser[c.UserID] = make(map[*Client]struct{})
	}
	h.byUser[c.UserID][c] = struct{}{}
	return true
}

func (h *PaymentHub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byUser[c.UserID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
}

// PushToUser sends a payload to every open connection the user has.
// Slow consumers are skipped rather than blocking the pipeline.
func (h *PaymentHub) PushToUser(userID uint, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.mu.RLock()
	m := h.byUser[userID]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.trySend(data)
	}
}

func (h *PaymentHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, m := range h.byUser {
		n += len(m)
	}
	return n
}
