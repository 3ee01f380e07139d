package websocket

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Hub tracks live connections grouped into one room per user. Register and
// unregister share one queue so a connection that drops right after the
// handshake is always added before it is removed.
type Hub struct {
	mu sync.RWMutex

	clients map[string]*Client
	rooms   map[uuid.UUID]map[*Client]struct{}

	ops  chan hubOp
	done chan struct{}
}

type hubOp struct {
	client *Client
	add    bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[uuid.UUID]map[*Client]struct{}),
		ops:     make(chan hubOp, 256),
		done:    make(chan struct{}),
	}
}

// Run processes registrations until ctx is done. Register and Unregister
// return immediately once Run has stopped.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-h.ops:
			if op.add {
				h.addClient(op.client)
			} else {
				h.removeClient(op.client)
			}
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.enqueue(hubOp{client: client, add: true})
}

func (h *Hub) Unregister(client *Client) {
	h.enqueue(hubOp{client: client})
}

func (h *Hub) enqueue(op hubOp) {
	select {
	case h.ops <- op:
	case <-h.done:
	}
}

// SendToUser queues payload on every connection in the user's room. Slow
// connections drop the frame rather than block the sender.
func (h *Hub) SendToUser(userID uuid.UUID, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.rooms[userID] {
		if c.trySend(payload) {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.clientID] = client
	room, ok := h.rooms[client.userID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[client.userID] = room
	}
	room[client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.clientID]; !ok {
		return
	}
	delete(h.clients, client.clientID)
	if room, ok := h.rooms[client.userID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, client.userID)
		}
	}
	close(client.send)
}
