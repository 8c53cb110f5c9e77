// Package chat implements the shared-room message flow: join with backlog,
// sends with the anonymous coin debit, balance pushes to the sender.
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/thereayou/sneakyspeak/internal/database"
	"github.com/thereayou/sneakyspeak/internal/models"
	ws "github.com/thereayou/sneakyspeak/internal/websocket"
)

const backlogSize = 50

// AnonymousSender is the display name shown for anonymous messages.
const AnonymousSender = "Anonymous"

// Conn is one client connection as the chat flow sees it.
type Conn interface {
	UserID() uint64
	Username() string
	SetUsername(name string)
	Join(roomID string)
	InRoom(roomID string) bool
	Emit(event ws.Event, payload interface{}) error
}

// Bus fans events out to room members or to one user's connections.
type Bus interface {
	Broadcast(roomID string, event ws.Event, payload interface{})
	SendToUser(userID uint64, event ws.Event, payload interface{})
}

// Costs holds the coin prices of anonymous sends.
type Costs struct {
	AnonText int
	AnonMeme int
}

type Service struct {
	db    *database.Database
	bus   Bus
	costs Costs
}

func NewService(db *database.Database, bus Bus, costs Costs) *Service {
	return &Service{db: db, bus: bus, costs: costs}
}

type JoinPayload struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username"`
}

type SendPayload struct {
	Text        string `json:"text"`
	IsAnonymous bool   `json:"isAnonymous"`
	Kind        string `json:"type"`
	ImageURL    string `json:"imageUrl"`
	Caption     string `json:"caption"`
}

type MessageView struct {
	ID          uint64    `json:"id"`
	Text        string    `json:"text"`
	Sender      string    `json:"sender"`
	IsAnonymous bool      `json:"isAnonymous"`
	Kind        string    `json:"type"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Caption     string    `json:"caption,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type BalancePayload struct {
	Coins int `json:"coins"`
}

// HandleEnvelope dispatches socket frames. Implements ws.EnvelopeHandler.
func (s *Service) HandleEnvelope(client *ws.Client, env *ws.Envelope) error {
	switch env.Event {
	case ws.EventJoinChat:
		var payload JoinPayload
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &payload); err != nil {
				return ws.ErrInvalidMessage
			}
		}
		return s.Join(client, payload)

	case ws.EventSendMessage:
		var payload SendPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return ws.ErrInvalidMessage
		}
		return s.Send(client, payload)

	default:
		log.Printf("unknown event: %s", env.Event)
		return nil
	}
}

// Join enters the main room and replays the recent backlog plus the
// caller's own balance. The balance goes to this connection only.
func (s *Service) Join(conn Conn, payload JoinPayload) error {
	if payload.Username != "" {
		conn.SetUsername(payload.Username)
	}

	conn.Join(models.MainRoom)

	messages, err := s.db.GetRecentMessages(models.MainRoom, backlogSize)
	if err != nil {
		return err
	}

	views := make([]MessageView, len(messages))
	for i, msg := range messages {
		views[i] = viewOf(&msg)
	}
	if err := conn.Emit(ws.EventRecentMessages, views); err != nil {
		return err
	}

	coins, err := s.db.GetCoins(conn.UserID())
	if err != nil {
		return err
	}
	return conn.Emit(ws.EventCoinBalance, BalancePayload{Coins: coins})
}

// Send validates, debits anonymous sends, stores, and fans out. A message
// that cannot be paid for is never stored or broadcast.
func (s *Service) Send(conn Conn, payload SendPayload) error {
	if !conn.InRoom(models.MainRoom) {
		return fmt.Errorf("%w: join the chat before sending", ws.ErrInvalidMessage)
	}

	kind := payload.Kind
	if kind == "" {
		kind = models.MessageKindText
	}

	switch kind {
	case models.MessageKindText:
		if payload.Text == "" {
			return fmt.Errorf("%w: empty message", ws.ErrInvalidMessage)
		}
	case models.MessageKindMeme:
		if payload.ImageURL == "" {
			return fmt.Errorf("%w: meme message without image", ws.ErrInvalidMessage)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ws.ErrInvalidMessage, kind)
	}

	debited := false
	var cost, newBalance int
	if payload.IsAnonymous {
		cost = s.costs.AnonText
		if kind == models.MessageKindMeme {
			cost = s.costs.AnonMeme
		}

		balance, err := s.db.DebitCoins(conn.UserID(), cost)
		if errors.Is(err, database.ErrInsufficientCoins) {
			conn.Emit(ws.EventError, map[string]string{
				"message": "Insufficient coins for anonymous message",
			})
			return nil
		}
		if err != nil {
			return err
		}
		debited = true
		newBalance = balance
	}

	sender := conn.Username()
	if payload.IsAnonymous {
		sender = AnonymousSender
	}

	message := &models.Message{
		RoomID:      models.MainRoom,
		Text:        payload.Text,
		Sender:      sender,
		IsAnonymous: payload.IsAnonymous,
		Kind:        kind,
		ImageURL:    payload.ImageURL,
		Caption:     payload.Caption,
		CreatedAt:   time.Now(),
	}
	if err := s.db.SaveMessage(message); err != nil {
		// The debit landed but the message did not. Give the coins back
		// rather than charging for a message nobody will see.
		if debited {
			if _, refundErr := s.db.CreditCoins(conn.UserID(), cost); refundErr != nil {
				log.Printf("refund of %d coins for user %d failed: %v", cost, conn.UserID(), refundErr)
			}
		}
		return err
	}

	s.bus.Broadcast(models.MainRoom, ws.EventNewMessage, viewOf(message))

	// The balance only goes back to the payer, never the room.
	if debited {
		s.bus.SendToUser(conn.UserID(), ws.EventCoinBalance, BalancePayload{Coins: newBalance})
	}

	return nil
}

func viewOf(msg *models.Message) MessageView {
	return MessageView{
		ID:          msg.ID,
		Text:        msg.Text,
		Sender:      msg.Sender,
		IsAnonymous: msg.IsAnonymous,
		Kind:        msg.Kind,
		ImageURL:    msg.ImageURL,
		Caption:     msg.Caption,
		Timestamp:   msg.CreatedAt,
	}
}
