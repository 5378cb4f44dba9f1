package chat

import (
	"context"
	"sync"

	"github.com/pawmate/pawmate/internal/app/domain/chat"
	"github.com/pawmate/pawmate/pkg/logger"
)

const clientBuffer = 32

// client is one live connection in a room.
type client struct {
	userID string
	send   chan chat.Message
}

type room struct {
	clients     map[*client]struct{}
	unsubscribe func()
}

// Hub tracks live connections per room and feeds them broker messages. A
// client that falls behind is disconnected.
type Hub struct {
	broker Broker
	log    *logger.Logger

	mu    sync.Mutex
	rooms map[string]*room
}

// NewHub builds a hub on top of broker.
func NewHub(broker Broker, log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewDefault("chat-hub")
	}
	if broker == nil {
		broker = NewLocalBroker()
	}
	return &Hub{broker: broker, log: log, rooms: make(map[string]*room)}
}

func (h *Hub) Name() string { return "chat-hub" }

func (h *Hub) Start(context.Context) error { return nil }

// Stop disconnects every client and closes the broker.
func (h *Hub) Stop(context.Context) error {
	h.mu.Lock()
	for id, r := range h.rooms {
		r.unsubscribe()
		for c := range r.clients {
			close(c.send)
		}
		delete(h.rooms, id)
	}
	h.mu.Unlock()
	return h.broker.Close()
}

// Publish hands a message to the broker.
func (h *Hub) Publish(ctx context.Context, msg chat.Message) error {
	return h.broker.Publish(ctx, msg)
}

// join registers a connection, subscribing to the room on first use.
func (h *Hub) join(roomID, userID string) (*client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomID]
	if !ok {
		unsubscribe, err := h.broker.Subscribe(roomID, func(msg chat.Message) { h.deliver(roomID, msg) })
		if err != nil {
			return nil, err
		}
		r = &room{clients: make(map[*client]struct{}), unsubscribe: unsubscribe}
		h.rooms[roomID] = r
	}
	c := &client{userID: userID, send: make(chan chat.Message, clientBuffer)}
	r.clients[c] = struct{}{}
	return c, nil
}

// leave removes a connection. It is safe to call more than once.
func (h *Hub) leave(roomID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(roomID, c)
}

func (h *Hub) removeLocked(roomID string, c *client) {
	r, ok := h.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := r.clients[c]; !ok {
		return
	}
	delete(r.clients, c)
	close(c.send)
	if len(r.clients) == 0 {
		r.unsubscribe()
		delete(h.rooms, roomID)
	}
}

func (h *Hub) deliver(roomID string, msg chat.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	if !ok {
		return
	}
	for c := range r.clients {
		select {
		case c.send <- msg:
		default:
			h.log.WithField("room", roomID).WithField("user_id", c.userID).Warn("dropping slow chat client")
			h.removeLocked(roomID, c)
		}
	}
}

// Connected reports whether userID has a live connection to roomID on this
// instance.
func (h *Hub) Connected(roomID, userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	if !ok {
		return false
	}
	for c := range r.clients {
		if c.userID == userID {
			return true
		}
	}
	return false
}

// Connections returns the number of live connections in roomID.
func (h *Hub) Connections(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[roomID]; ok {
		return len(r.clients)
	}
	return 0
}
