package websocket

import (
	"encoding/json"
	"errors"
	"time"
)

// Event names exchanged over the socket.
type Event string

const (
	// Client to server.
	EventJoinChat    Event = "join_chat"
	EventSendMessage Event = "send_message"

	// Server to client.
	EventRecentMessages Event = "recent_messages"
	EventNewMessage     Event = "new_message"
	EventCoinBalance    Event = "coin_balance"
	EventError          Event = "error"
)

// Envelope is the wire frame: an event name plus its JSON payload.
type Envelope struct {
	Event     Event           `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrInvalidMessage  = errors.New("invalid message format")
)
