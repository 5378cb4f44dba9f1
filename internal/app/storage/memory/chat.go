package memory

import (
	"context"
	"time"

	"github.com/pawmate/pawmate/internal/app/domain/chat"
)

func (s *Store) CreateMessage(_ context.Context, m chat.Message) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = newID(m.ID)
	m.CreatedAt = s.nowLocked()
	s.messages[m.RoomID] = append(s.messages[m.RoomID], m)
	return m, nil
}

func (s *Store) ListMessages(_ context.Context, roomID string, before time.Time, limit int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// messages are appended in creation order; walk backwards for newest first
	history := s.messages[roomID]
	out := make([]chat.Message, 0, limit)
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if !before.IsZero() && !m.CreatedAt.Before(before) {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
