package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBroadcastScopedToRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	member := NewClient(hub, nil, 1, "member")
	outsider := NewClient(hub, nil, 2, "outsider")
	hub.Register(member)
	hub.Register(outsider)

	hub.JoinRoom(member, "main_room")

	hub.Broadcast("main_room", EventNewMessage, map[string]string{"text": "hi"})

	select {
	case frame := <-member.send:
		assert.Contains(t, string(frame), string(EventNewMessage))
	case <-time.After(time.Second):
		t.Fatal("room member did not receive the broadcast")
	}

	select {
	case <-outsider.send:
		t.Fatal("broadcast leaked outside the room")
	default:
	}

	hub.Unregister(member)
	hub.Unregister(outsider)
	hub.Stop()
}

func TestSendToUserReachesEveryConnection(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	laptop := NewClient(hub, nil, 7, "student")
	phone := NewClient(hub, nil, 7, "student")
	other := NewClient(hub, nil, 8, "bystander")
	hub.Register(laptop)
	hub.Register(phone)
	hub.Register(other)

	hub.SendToUser(7, EventCoinBalance, map[string]int{"coins": 4})

	for _, c := range []*Client{laptop, phone} {
		select {
		case frame := <-c.send:
			assert.Contains(t, string(frame), string(EventCoinBalance))
		case <-time.After(time.Second):
			t.Fatal("one of the user's connections missed the unicast")
		}
	}

	select {
	case <-other.send:
		t.Fatal("unicast leaked to another user")
	default:
	}

	hub.Unregister(laptop)
	hub.Unregister(phone)
	hub.Unregister(other)
	hub.Stop()
}

func TestStopUnblocksLifecycleCalls(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()

	// A pump that loses the shutdown race must not hang on registration.
	done := make(chan struct{})
	go func() {
		hub.Register(NewClient(hub, nil, 3, "late"))
		hub.Unregister(NewClient(hub, nil, 4, "later"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("registration blocked after shutdown")
	}

	assert.Empty(t, hub.OnlineUsers())
}
