package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Hub relays events between connected clients. The service runs a single
// well-known room, but membership is still tracked per room so a client
// only receives broadcasts after it has joined.
type Hub struct {
	clients map[uuid.UUID]*Client

	// One user may hold several connections (two tabs, phone + laptop).
	userClients map[uint64]map[uuid.UUID]*Client

	rooms map[string]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[uint64]map[uuid.UUID]*Client),
		rooms:       make(map[string]map[uuid.UUID]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run owns registration and keepalive. Must run in its own goroutine.
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop shuts the hub down and closes every connection.
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.send)
		client.conn.Close()
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.userClients = make(map[uint64]map[uuid.UUID]*Client)
	h.rooms = make(map[string]map[uuid.UUID]*Client)
}

// Register and Unregister hand the client to the Run loop. After Stop they
// return immediately instead of blocking on a loop that no longer reads.
func (h *Hub) Register(client *Client) {
	if h.ctx.Err() != nil {
		return
	}
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Unregister(client *Client) {
	if h.ctx.Err() != nil {
		return
	}
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.id] = client

	if _, ok := h.userClients[client.userID]; !ok {
		h.userClients[client.userID] = make(map[uuid.UUID]*Client)
	}
	h.userClients[client.userID][client.id] = client

	log.Printf("client registered: %s (user %d)", client.id, client.userID)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.id]; !ok {
		return
	}

	for roomID := range client.rooms {
		h.removeFromRoomUnsafe(client, roomID)
	}

	if userClients, ok := h.userClients[client.userID]; ok {
		delete(userClients, client.id)
		if len(userClients) == 0 {
			delete(h.userClients, client.userID)
		}
	}

	delete(h.clients, client.id)
	close(client.send)

	log.Printf("client unregistered: %s (user %d)", client.id, client.userID)
}

// JoinRoom adds a client to a room's broadcast set.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[uuid.UUID]*Client)
	}

	h.rooms[roomID][client.id] = client
	client.mu.Lock()
	client.rooms[roomID] = true
	client.mu.Unlock()
}

func (h *Hub) removeFromRoomUnsafe(client *Client, roomID string) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := room[client.id]; !ok {
		return
	}

	delete(room, client.id)
	client.mu.Lock()
	delete(client.rooms, roomID)
	client.mu.Unlock()

	if len(room) == 0 {
		delete(h.rooms, roomID)
	}
}

// Broadcast delivers an event to every client in the room.
func (h *Hub) Broadcast(roomID string, event Event, payload interface{}) {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Printf("broadcast marshal failed: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.rooms[roomID] {
		select {
		case client.send <- data:
		default:
			log.Printf("client %s send channel full", client.id)
		}
	}
}

// SendToUser delivers an event to every connection of one user, and to
// nobody else.
func (h *Hub) SendToUser(userID uint64, event Event, payload interface{}) {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Printf("unicast marshal failed: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.userClients[userID] {
		select {
		case client.send <- data:
		default:
			log.Printf("client %s send channel full", client.id)
		}
	}
}

// OnlineUsers reports the ids of users with at least one open connection.
func (h *Hub) OnlineUsers() []uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]uint64, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}

func (h *Hub) ping() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(Envelope{Event: "ping", Timestamp: time.Now()})
	if err != nil {
		return
	}

	for _, client := range h.clients {
		select {
		case client.send <- data:
		default:
		}
	}
}

func marshalEnvelope(event Event, payload interface{}) ([]byte, error) {
	env := Envelope{Event: event, Timestamp: time.Now()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}
