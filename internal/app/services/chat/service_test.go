package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmate/pawmate/internal/app/domain/chat"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/storage/memory"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/pkg/logger"
	"github.com/pawmate/pawmate/pkg/testutil"
)

type fixture struct {
	svc   *Service
	rec   *testutil.Notifier
	alice user.User
	bob   user.User
	carol user.User
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	var users []user.User
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		u, err := store.CreateUser(ctx, user.User{Email: strings.ToLower(name) + "@example.com", FullName: name, Role: user.RoleOwner})
		require.NoError(t, err)
		users = append(users, u)
	}
	rec := &testutil.Notifier{}
	bookings := testutil.Participants{"b1": {users[0].ID, users[1].ID}}
	svc := New(store, store, bookings, NewHub(NewLocalBroker(), logger.NewNop()), rec, logger.NewNop())
	t.Cleanup(func() { _ = svc.Hub().Stop(context.Background()) })
	return fixture{svc: svc, rec: rec, alice: users[0], bob: users[1], carol: users[2]}
}

func TestRoomsAndMembership(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	room, err := f.svc.DirectRoom(ctx, f.bob, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.DirectRoom(f.alice.ID, f.bob.ID), room)

	_, err = f.svc.DirectRoom(ctx, f.bob, f.bob.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
	_, err = f.svc.DirectRoom(ctx, f.bob, "ghost")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.svc.Send(ctx, f.carol, room, "let me in")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = f.svc.Send(ctx, f.alice, "lobby", "hello")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	members, err := f.svc.Members(ctx, chat.BookingRoom("b1"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.alice.ID, f.bob.ID}, members)
	_, err = f.svc.Members(ctx, chat.BookingRoom("missing"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestSendAndHistory(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	room := chat.BookingRoom("b1")

	_, err := f.svc.Send(ctx, f.alice, room, "   ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
	_, err = f.svc.Send(ctx, f.alice, room, strings.Repeat("a", MaxBodyLength+1))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	var sent []chat.Message
	for _, body := range []string{"one", "two", "three"} {
		msg, err := f.svc.Send(ctx, f.alice, room, body)
		require.NoError(t, err)
		sent = append(sent, msg)
	}
	require.Len(t, f.rec.Sent(), 3)
	assert.Equal(t, f.bob.ID, f.rec.Sent()[0].UserID)
	assert.Equal(t, "New message from Alice", f.rec.Sent()[0].Title)

	page, err := f.svc.History(ctx, f.bob, room, time.Time{}, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "three", page[0].Body)

	older, err := f.svc.History(ctx, f.bob, room, page[1].CreatedAt, 0)
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, sent[0].ID, older[0].ID)
}

func TestWebsocketSession(t *testing.T) {
	f := setup(t)
	room := chat.DirectRoom(f.alice.ID, f.bob.ID)
	upgrader := websocket.Upgrader{}
	actors := map[string]user.User{"alice": f.alice, "bob": f.bob}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := actors[r.URL.Query().Get("as")]
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = f.svc.Serve(r.Context(), actor, room, conn)
	}))
	defer srv.Close()

	dial := func(as string) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?as=" + as
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		var hello Outbound
		require.NoError(t, conn.ReadJSON(&hello))
		require.Equal(t, frameConnected, hello.Type)
		return conn
	}
	aliceConn := dial("alice")
	defer aliceConn.Close()
	bobConn := dial("bob")
	defer bobConn.Close()

	require.Eventually(t, func() bool { return f.svc.Hub().Connections(room) == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, aliceConn.WriteJSON(Inbound{Body: "walk at 5?"}))
	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var out Outbound
		require.NoError(t, conn.ReadJSON(&out))
		require.Equal(t, frameMessage, out.Type)
		require.NotNil(t, out.Message)
		assert.Equal(t, "walk at 5?", out.Message.Body)
		assert.Equal(t, f.alice.ID, out.Message.SenderID)
	}
	assert.Empty(t, f.rec.Sent(), "bob is connected, no notification")

	require.NoError(t, bobConn.WriteJSON(Inbound{Body: ""}))
	var errFrame Outbound
	require.NoError(t, bobConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, bobConn.ReadJSON(&errFrame))
	assert.Equal(t, frameError, errFrame.Type)
	assert.Equal(t, "body is required", errFrame.Error)

	history, err := f.svc.History(context.Background(), f.bob, room, time.Time{}, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRedisBrokerRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	broker, err := NewRedisBroker(ctx, url, logger.NewNop())
	require.NoError(t, err)
	defer broker.Close()

	got := make(chan chat.Message, 1)
	unsubscribe, err := broker.Subscribe("dm:a:b", func(m chat.Message) { got <- m })
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, broker.Publish(ctx, chat.Message{ID: "m1", RoomID: "dm:a:b", Body: "over redis"}))
	select {
	case m := <-got:
		assert.Equal(t, "over redis", m.Body)
		assert.Equal(t, "dm:a:b", m.RoomID)
	case <-time.After(5 * time.Second):
		t.Fatal("message not received through redis")
	}
}
