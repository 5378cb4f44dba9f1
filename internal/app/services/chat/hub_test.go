package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pawmate/pawmate/internal/app/domain/chat"
	"github.com/pawmate/pawmate/pkg/logger"
)

func TestHubDeliversToRoomMembers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()
	hub := NewHub(NewLocalBroker(), logger.NewNop())

	room := chat.DirectRoom("alice", "bob")
	alice, err := hub.join(room, "alice")
	require.NoError(t, err)
	bob, err := hub.join(room, "bob")
	require.NoError(t, err)
	other, err := hub.join(chat.BookingRoom("b1"), "carol")
	require.NoError(t, err)

	assert.True(t, hub.Connected(room, "bob"))
	assert.False(t, hub.Connected(room, "carol"))
	assert.Equal(t, 2, hub.Connections(room))

	require.NoError(t, hub.Publish(ctx, chat.Message{ID: "m1", RoomID: room, SenderID: "alice", Body: "hi"}))
	for _, c := range []*client{alice, bob} {
		select {
		case msg := <-c.send:
			assert.Equal(t, "m1", msg.ID)
		case <-time.After(time.Second):
			t.Fatalf("message not delivered to %s", c.userID)
		}
	}
	select {
	case msg := <-other.send:
		t.Fatalf("unexpected delivery to other room: %+v", msg)
	default:
	}

	hub.leave(room, bob)
	hub.leave(room, bob)
	assert.False(t, hub.Connected(room, "bob"))
	_, open := <-bob.send
	assert.False(t, open, "send channel closed on leave")

	require.NoError(t, hub.Stop(ctx))
	_, open = <-alice.send
	assert.False(t, open)
	assert.Equal(t, 0, hub.Connections(room))
}

func TestHubDropsSlowClient(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()
	hub := NewHub(nil, logger.NewNop())
	room := chat.BookingRoom("b1")

	slow, err := hub.join(room, "slow")
	require.NoError(t, err)
	for i := 0; i <= clientBuffer; i++ {
		require.NoError(t, hub.Publish(ctx, chat.Message{RoomID: room, Body: "flood"}))
	}
	assert.False(t, hub.Connected(room, "slow"))

	drained := 0
	for range slow.send {
		drained++
	}
	assert.Equal(t, clientBuffer, drained)
	require.NoError(t, hub.Stop(ctx))
}

func TestLocalBrokerUnsubscribe(t *testing.T) {
	b := NewLocalBroker()
	got := 0
	unsubscribe, err := b.Subscribe("dm:a:b", func(chat.Message) { got++ })
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), chat.Message{RoomID: "dm:a:b"}))
	unsubscribe()
	unsubscribe()
	require.NoError(t, b.Publish(context.Background(), chat.Message{RoomID: "dm:a:b"}))
	assert.Equal(t, 1, got)
}
