package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512 * 1024 // 512KB
)

// EnvelopeHandler receives every application-level frame a client sends.
type EnvelopeHandler interface {
	HandleEnvelope(client *Client, env *Envelope) error
}

type Client struct {
	id       uuid.UUID
	userID   uint64
	username string
	conn     *websocket.Conn
	send     chan []byte
	rooms    map[string]bool
	hub      *Hub
	mu       sync.RWMutex
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uint64, username string) *Client {
	return &Client{
		id:       uuid.New(),
		userID:   userID,
		username: username,
		conn:     conn,
		send:     make(chan []byte, 256),
		rooms:    make(map[string]bool),
		hub:      hub,
	}
}

func (c *Client) UserID() uint64 { return c.userID }

func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// SetUsername updates the display name used for this connection.
func (c *Client) SetUsername(name string) {
	c.mu.Lock()
	c.username = name
	c.mu.Unlock()
}

// Join adds this connection to a room.
func (c *Client) Join(roomID string) {
	c.hub.JoinRoom(c, roomID)
}

func (c *Client) InRoom(roomID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[roomID]
}

// ReadPump reads frames from the connection and hands them to handler.
func (c *Client) ReadPump(handler EnvelopeHandler) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env Envelope
		err := c.conn.ReadJSON(&env)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}

		if env.Event == "pong" {
			continue
		}

		if handler != nil {
			if err := handler.HandleEnvelope(c, &env); err != nil {
				log.Printf("error handling %s: %v", env.Event, err)
				c.SendError(err.Error())
			}
		}
	}
}

// WritePump drains the send queue onto the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.conn.WriteMessage(websocket.TextMessage, message)

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Emit sends one event to this connection only.
func (c *Client) Emit(event Event, payload interface{}) error {
	env := Envelope{Event: event, Timestamp: time.Now()}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		env.Data = data
	}

	frame, err := json.Marshal(env)
	if err != nil {
		return err
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return ErrClientQueueFull
	}
}

func (c *Client) SendError(msg string) {
	c.Emit(EventError, map[string]string{"message": msg})
}
