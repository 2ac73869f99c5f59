// Package notify pushes domain events to the websocket connections of the
// users they concern, so a waitlisted user learns about an offer while it
// can still be accepted.
package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

type delivery struct {
	userID  uint64
	message []byte
}

// Hub tracks connected clients per user.  All client bookkeeping happens
// on the Run goroutine.
type Hub struct {
	clients    map[uint64]map[*Client]bool
	deliver    chan delivery
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        logrus.FieldLogger

	mu    sync.RWMutex
	count int
}

// NewHub creates a hub; call Run to start it.
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    map[uint64]map[*Client]bool{},
		deliver:    make(chan delivery, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves register, unregister and delivery requests until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = map[uint64]map[*Client]bool{}
			h.setCount(0)
			return

		case c := <-h.register:
			set := h.clients[c.UserID]
			if set == nil {
				set = map[*Client]bool{}
				h.clients[c.UserID] = set
			}
			set[c] = true
			h.setCount(h.count + 1)
			h.log.WithField("user_id", c.UserID).Debug("websocket client connected")

		case c := <-h.unregister:
			h.drop(c)

		case d := <-h.deliver:
			for c := range h.clients[d.userID] {
				select {
				case c.send <- d.message:
				default:
					// slow consumer
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	set := h.clients[c.UserID]
	if !set[c] {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
	close(c.send)
	h.setCount(h.count - 1)
	h.log.WithField("user_id", c.UserID).Debug("websocket client disconnected")
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Register adds a client.  It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client; a no-op once the hub has stopped.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues ev for the connections of ev.UserID.  Events without a
// user are not pushed; a full queue drops the event.
func (h *Hub) Publish(_ context.Context, ev model.Event) {
	if ev.UserID == 0 {
		return
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Warn("encode websocket event")
		return
	}
	select {
	case h.deliver <- delivery{userID: ev.UserID, message: msg}:
	default:
		h.log.WithField("event", ev.Type).Warn("websocket delivery queue full, dropping event")
	}
}

// Client is one websocket connection of a user.
type Client struct {
	UserID uint64
	send   chan []byte
}

// NewClient creates a client for userID.
func NewClient(userID uint64) *Client {
	return &Client{UserID: userID, send: make(chan []byte, 64)}
}

// Send returns the channel the hub writes to; it is closed when the hub
// drops the client.
func (c *Client) Send() <-chan []byte { return c.send }
