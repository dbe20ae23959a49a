// Package realtime implements the cart-scoped event fan-out. Clients join and
// leave per-cart rooms over a websocket connection; every mutating cart or
// product operation publishes one event to the cart's room after the database
// write has committed. Delivery is fire-and-forget: there is no ack, no
// replay, and a client that misses an event reconciles with a full re-fetch.
package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

const (
	EventProductAdded    = "product-added"
	EventProductUpdated  = "product-updated"
	EventProductDeleted  = "product-deleted"
	EventProductsUpdated = "products-updated"
	EventCartCleared     = "cart-cleared"
	EventUserJoined      = "user-joined"
	EventUserRemoved     = "user-removed"
)

// Subscriber is the write side of a connected client. *websocket.Conn
// satisfies it; tests use an in-memory fake.
type Subscriber interface {
	WriteJSON(v interface{}) error
}

// Authorizer decides whether a user may subscribe to a cart's room.
type Authorizer func(ctx context.Context, cartID, userID uuid.UUID) bool

type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	writeMu sync.Mutex
	sub     Subscriber
	userID  uuid.UUID
	rooms   map[uuid.UUID]struct{}
}

func (c *client) send(env Envelope) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	// Write failures are not reported; the connection's read loop notices
	// the broken pipe and unregisters the client.
	_ = c.sub.WriteJSON(env)
}

type Hub struct {
	mu        sync.RWMutex
	clients   map[Subscriber]*client
	rooms     map[uuid.UUID]map[*client]struct{}
	authorize Authorizer
}

func NewHub(authorize Authorizer) *Hub {
	return &Hub{
		clients:   make(map[Subscriber]*client),
		rooms:     make(map[uuid.UUID]map[*client]struct{}),
		authorize: authorize,
	}
}

// Register adds a connected, authenticated subscriber with no room
// subscriptions yet.
func (h *Hub) Register(sub Subscriber, userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[sub] = &client{
		sub:    sub,
		userID: userID,
		rooms:  make(map[uuid.UUID]struct{}),
	}
}

// Unregister drops the subscriber from every room. Called when the
// connection closes.
func (h *Hub) Unregister(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[sub]
	if !ok {
		return
	}
	for cartID := range c.rooms {
		h.removeFromRoom(cartID, c)
	}
	delete(h.clients, sub)
}

// Join subscribes the client to the cart's room. It returns false when the
// subscriber is unknown or the authorizer refuses the (cart, user) pair.
func (h *Hub) Join(ctx context.Context, sub Subscriber, cartID uuid.UUID) bool {
	h.mu.RLock()
	c, ok := h.clients[sub]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	if h.authorize != nil && !h.authorize(ctx, cartID, c.userID) {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[sub]; !ok {
		return false
	}
	room, ok := h.rooms[cartID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[cartID] = room
	}
	room[c] = struct{}{}
	c.rooms[cartID] = struct{}{}
	return true
}

// Leave unsubscribes the client from the cart's room.
func (h *Hub) Leave(sub Subscriber, cartID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[sub]
	if !ok {
		return
	}
	delete(c.rooms, cartID)
	h.removeFromRoom(cartID, c)
}

// Publish sends one event to every subscriber of the cart's room. Publishing
// to a room with no subscribers is a no-op.
func (h *Hub) Publish(cartID uuid.UUID, event string, data interface{}) {
	h.mu.RLock()
	room := h.rooms[cartID]
	targets := make([]*client, 0, len(room))
	for c := range room {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	env := Envelope{Event: event, Data: data}
	for _, c := range targets {
		c.send(env)
	}
}

// RoomSize reports the number of subscribers in a cart's room.
func (h *Hub) RoomSize(cartID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[cartID])
}

func (h *Hub) removeFromRoom(cartID uuid.UUID, c *client) {
	room, ok := h.rooms[cartID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, cartID)
	}
}
