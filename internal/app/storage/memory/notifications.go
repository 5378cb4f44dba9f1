package memory

import (
	"context"
	"time"

	"github.com/pawmate/pawmate/internal/app/domain/notification"
	"github.com/pawmate/pawmate/internal/app/storage"
)

func (s *Store) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n.ID = newID(n.ID)
	n.CreatedAt = s.nowLocked()
	if n.Status == "" {
		n.Status = notification.StatusUnread
	}
	s.notifications[n.ID] = n
	return n, nil
}

func (s *Store) GetNotification(_ context.Context, id string) (notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return notification.Notification{}, storage.ErrNotFound
	}
	return n, nil
}

func (s *Store) ListNotifications(_ context.Context, userID string, filter notification.Filter) ([]notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := collect(s.notifications,
		func(n notification.Notification) bool {
			return n.UserID == userID && (!filter.UnreadOnly || n.Status == notification.StatusUnread)
		},
		func(a, b notification.Notification) bool { return a.CreatedAt.After(b.CreatedAt) },
	)
	return page(matches, filter.Limit, filter.Offset), nil
}

func (s *Store) CountUnread(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && n.Status == notification.StatusUnread {
			count++
		}
	}
	return count, nil
}

func (s *Store) MarkRead(_ context.Context, id string, at time.Time) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return notification.Notification{}, storage.ErrNotFound
	}
	if n.Status != notification.StatusRead {
		n.Status = notification.StatusRead
		n.ReadAt = &at
		s.notifications[id] = n
	}
	return n, nil
}

func (s *Store) MarkAllRead(_ context.Context, userID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, n := range s.notifications {
		if n.UserID == userID && n.Status == notification.StatusUnread {
			readAt := at
			n.Status = notification.StatusRead
			n.ReadAt = &readAt
			s.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteNotification(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notifications[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.notifications, id)
	return nil
}
