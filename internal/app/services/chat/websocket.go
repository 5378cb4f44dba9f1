package chat

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pawmate/pawmate/internal/app/domain/chat"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/metrics"
	apperrors "github.com/pawmate/pawmate/internal/errors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxFrameBytes  = 16 << 10
	frameMessage   = "message"
	frameError     = "error"
	frameConnected = "connected"
)

// Inbound is a frame sent by a websocket client.
type Inbound struct {
	Body string `json:"body"`
}

// Outbound is a frame pushed to a websocket client.
type Outbound struct {
	Type    string        `json:"type"`
	Room    string        `json:"room,omitempty"`
	Message *chat.Message `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Authorize checks that actor may join roomID. Call it before upgrading.
func (s *Service) Authorize(ctx context.Context, actor user.User, roomID string) error {
	_, err := s.authorize(ctx, actor, roomID)
	return err
}

// Serve runs a websocket session in roomID until the client leaves, ctx ends
// or the hub stops. Frames received from the client are sent as messages.
func (s *Service) Serve(ctx context.Context, actor user.User, roomID string, conn *websocket.Conn) error {
	defer conn.Close()
	if err := s.Authorize(ctx, actor, roomID); err != nil {
		writeFrame(conn, Outbound{Type: frameError, Error: err.Error()})
		return err
	}

	c, err := s.hub.join(roomID, actor.ID)
	if err != nil {
		return apperrors.Internal("join room", err)
	}
	metrics.ChatConnectionOpened()
	log := s.log.WithContext(ctx).WithField("room", roomID).WithField("user_id", actor.ID)
	log.Debug("chat connection opened")
	defer func() {
		s.hub.leave(roomID, c)
		metrics.ChatConnectionClosed()
		log.Debug("chat connection closed")
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	replies := make(chan Outbound, 4)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump(ctx, conn, c, replies)
		// Unblock the reader.
		cancel()
		conn.Close()
	}()

	replies <- Outbound{Type: frameConnected, Room: roomID}
	s.readPump(ctx, actor, roomID, conn, replies)
	cancel()
	<-writerDone
	return nil
}

func (s *Service) readPump(ctx context.Context, actor user.User, roomID string, conn *websocket.Conn, replies chan<- Outbound) {
	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var in Inbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.WithError(err).WithField("room", roomID).Debug("chat read ended")
			}
			return
		}
		if _, err := s.Send(ctx, actor, roomID, in.Body); err != nil {
			select {
			case replies <- Outbound{Type: frameError, Error: errorText(err)}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Service) writePump(ctx context.Context, conn *websocket.Conn, c *client, replies <-chan Outbound) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "room closed"), time.Now().Add(writeWait))
				return
			}
			if err := writeFrame(conn, Outbound{Type: frameMessage, Message: &msg}); err != nil {
				return
			}
		case out := <-replies:
			if err := writeFrame(conn, out); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, out Outbound) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(out)
}

func errorText(err error) string {
	if se := apperrors.GetServiceError(err); se != nil {
		return se.Message
	}
	return "internal error"
}
