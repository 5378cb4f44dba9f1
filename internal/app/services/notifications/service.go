package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/pawmate/pawmate/internal/app/domain/notification"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/storage"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/pkg/logger"
)

// Notifier delivers a notification to a user. Failures are logged, not
// returned, so the operation that triggered the notification stands.
type Notifier interface {
	Notify(ctx context.Context, n notification.Notification)
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(context.Context, notification.Notification) {}

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service manages the notifications addressed to users.
type Service struct {
	store storage.NotificationStore
	log   *logger.Logger
	now   func() time.Time
}

var _ Notifier = (*Service)(nil)

// New constructs a notification service.
func New(store storage.NotificationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("notifications")
	}
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Notify stores n for its recipient.
func (s *Service) Notify(ctx context.Context, n notification.Notification) {
	if strings.TrimSpace(n.UserID) == "" || strings.TrimSpace(n.Title) == "" {
		s.log.WithField("kind", n.Kind).Warn("dropping notification without recipient or title")
		return
	}
	n.ID = ""
	n.Status = notification.StatusUnread
	n.ReadAt = nil
	created, err := s.store.CreateNotification(ctx, n)
	if err != nil {
		s.log.WithContext(ctx).WithError(err).
			WithField("recipient", n.UserID).
			WithField("kind", n.Kind).
			Error("store notification")
		return
	}
	s.log.WithContext(ctx).
		WithField("notification_id", created.ID).
		WithField("kind", created.Kind).
		Debug("notification stored")
}

// List returns the caller's notifications, newest first.
func (s *Service) List(ctx context.Context, actor user.User, filter notification.Filter) ([]notification.Notification, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	items, err := s.store.ListNotifications(ctx, actor.ID, filter)
	if err != nil {
		return nil, storage.AsServiceError(err, "notification", "")
	}
	return items, nil
}

// UnreadCount returns how many unread notifications the caller has.
func (s *Service) UnreadCount(ctx context.Context, actor user.User) (int, error) {
	count, err := s.store.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, storage.AsServiceError(err, "notification", "")
	}
	return count, nil
}

// MarkRead marks one of the caller's notifications as read.
func (s *Service) MarkRead(ctx context.Context, actor user.User, id string) (notification.Notification, error) {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return notification.Notification{}, err
	}
	n, err := s.store.MarkRead(ctx, id, s.now())
	if err != nil {
		return notification.Notification{}, storage.AsServiceError(err, "notification", id)
	}
	return n, nil
}

// MarkAllRead marks every unread notification of the caller as read.
func (s *Service) MarkAllRead(ctx context.Context, actor user.User) (int, error) {
	count, err := s.store.MarkAllRead(ctx, actor.ID, s.now())
	if err != nil {
		return 0, storage.AsServiceError(err, "notification", "")
	}
	return count, nil
}

// Delete removes one of the caller's notifications.
func (s *Service) Delete(ctx context.Context, actor user.User, id string) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	return storage.AsServiceError(s.store.DeleteNotification(ctx, id), "notification", id)
}

// owned hides other users' notifications as missing.
func (s *Service) owned(ctx context.Context, actor user.User, id string) (notification.Notification, error) {
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return notification.Notification{}, storage.AsServiceError(err, "notification", id)
	}
	if n.UserID != actor.ID {
		return notification.Notification{}, apperrors.NotFound("notification", id)
	}
	return n, nil
}
