package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pawmate/pawmate/internal/app/domain/chat"
	"github.com/pawmate/pawmate/internal/app/domain/notification"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/metrics"
	"github.com/pawmate/pawmate/internal/app/services/notifications"
	"github.com/pawmate/pawmate/internal/app/storage"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/pkg/logger"
)

const (
	MaxBodyLength       = 2000
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// BookingDirectory resolves the two parties of a booking.
type BookingDirectory interface {
	Participants(ctx context.Context, bookingID string) (ownerID, sitterUserID string, err error)
}

// Service implements direct and booking conversations.
type Service struct {
	store    storage.ChatStore
	users    storage.UserStore
	bookings BookingDirectory
	hub      *Hub
	notifier notifications.Notifier
	log      *logger.Logger
}

// New constructs a chat service.
func New(store storage.ChatStore, users storage.UserStore, bookings BookingDirectory, hub *Hub, notifier notifications.Notifier, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("chat")
	}
	if hub == nil {
		hub = NewHub(nil, log)
	}
	if notifier == nil {
		notifier = notifications.Discard{}
	}
	return &Service{store: store, users: users, bookings: bookings, hub: hub, notifier: notifier, log: log}
}

// Hub exposes the connection hub for lifecycle registration.
func (s *Service) Hub() *Hub { return s.hub }

// DirectRoom returns the room shared by the caller and another user.
func (s *Service) DirectRoom(ctx context.Context, actor user.User, otherID string) (string, error) {
	if otherID == "" || otherID == actor.ID {
		return "", apperrors.InvalidInput("a direct room needs another user")
	}
	if _, err := s.users.GetUser(ctx, otherID); err != nil {
		return "", storage.AsServiceError(err, "user", otherID)
	}
	return chat.DirectRoom(actor.ID, otherID), nil
}

// Members returns the user ids allowed in a room.
func (s *Service) Members(ctx context.Context, roomID string) ([]string, error) {
	r, err := chat.ParseRoom(roomID)
	if err != nil {
		return nil, apperrors.InvalidInput("%v", err)
	}
	switch r.Kind {
	case chat.RoomDirect:
		return r.UserIDs, nil
	case chat.RoomBooking:
		if s.bookings == nil {
			return nil, apperrors.NotFound("room", roomID)
		}
		ownerID, sitterID, err := s.bookings.Participants(ctx, r.BookingID)
		if err != nil {
			if apperrors.HasCode(err, apperrors.CodeNotFound) || errors.Is(err, storage.ErrNotFound) {
				return nil, apperrors.NotFound("room", roomID)
			}
			return nil, err
		}
		return []string{ownerID, sitterID}, nil
	}
	return nil, apperrors.NotFound("room", roomID)
}

func (s *Service) authorize(ctx context.Context, actor user.User, roomID string) ([]string, error) {
	members, err := s.Members(ctx, roomID)
	if err != nil {
		return nil, err
	}
	for _, id := range members {
		if id == actor.ID {
			return members, nil
		}
	}
	return nil, apperrors.NotFound("room", roomID)
}

// Send stores a message and publishes it to the room. Members without a live
// connection are notified.
func (s *Service) Send(ctx context.Context, actor user.User, roomID, body string) (chat.Message, error) {
	members, err := s.authorize(ctx, actor, roomID)
	if err != nil {
		return chat.Message{}, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return chat.Message{}, apperrors.InvalidInput("body is required")
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return chat.Message{}, apperrors.InvalidInput("body must be at most %d characters", MaxBodyLength)
	}

	msg, err := s.store.CreateMessage(ctx, chat.Message{RoomID: roomID, SenderID: actor.ID, Body: body})
	if err != nil {
		return chat.Message{}, storage.AsServiceError(err, "message", "")
	}
	metrics.RecordChatMessage()
	if err := s.hub.Publish(ctx, msg); err != nil {
		// The message is stored; live delivery is best effort.
		s.log.WithContext(ctx).WithError(err).WithField("room", roomID).Warn("publish chat message")
	}

	for _, id := range members {
		if id == actor.ID || s.hub.Connected(roomID, id) {
			continue
		}
		s.notifier.Notify(ctx, notification.Notification{
			UserID: id,
			Kind:   notification.KindMessage,
			Title:  fmt.Sprintf("New message from %s", s.senderName(ctx, actor)),
			Body:   preview(body),
			RefID:  roomID,
		})
	}
	return msg, nil
}

// History returns messages newest first. before, when set, pages backwards.
func (s *Service) History(ctx context.Context, actor user.User, roomID string, before time.Time, limit int) ([]chat.Message, error) {
	if _, err := s.authorize(ctx, actor, roomID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	items, err := s.store.ListMessages(ctx, roomID, before, limit)
	if err != nil {
		return nil, storage.AsServiceError(err, "message", "")
	}
	return items, nil
}

func (s *Service) senderName(ctx context.Context, actor user.User) string {
	if actor.FullName != "" {
		return actor.FullName
	}
	if u, err := s.users.GetUser(ctx, actor.ID); err == nil && u.FullName != "" {
		return u.FullName
	}
	return "a PawMate user"
}

func preview(body string) string {
	const n = 120
	if utf8.RuneCountInString(body) <= n {
		return body
	}
	return string([]rune(body)[:n]) + "…"
}
