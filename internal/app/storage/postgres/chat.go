package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pawmate/pawmate/internal/app/domain/chat"
)

func (s *Store) CreateMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = now()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO chat_messages (id, room_id, sender_id, body, created_at)
		VALUES (:id, :room_id, :sender_id, :body, :created_at)
	`, m)
	if err != nil {
		return chat.Message{}, mapErr(err)
	}
	return m, nil
}

func (s *Store) ListMessages(ctx context.Context, roomID string, before time.Time, limit int) ([]chat.Message, error) {
	var w where
	w.add("room_id = ?", roomID)
	if !before.IsZero() {
		w.add("created_at < ?", before)
	}
	query := `SELECT id, room_id, sender_id, body, created_at FROM chat_messages` + w.String() +
		` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ` + w.next(limit)
	}

	var out []chat.Message
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), w.args...)
	return out, mapErr(err)
}
