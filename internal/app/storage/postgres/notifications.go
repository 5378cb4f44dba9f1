package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pawmate/pawmate/internal/app/domain/notification"
)

const notificationColumns = `id, user_id, kind, title, body, ref_id, status, created_at, read_at`

func (s *Store) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Status == "" {
		n.Status = notification.StatusUnread
	}
	n.CreatedAt = now()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (:id, :user_id, :kind, :title, :body, :ref_id, :status, :created_at, :read_at)
	`, n)
	if err != nil {
		return notification.Notification{}, mapErr(err)
	}
	return n, nil
}

func (s *Store) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	var n notification.Notification
	if err := s.db.GetContext(ctx, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id); err != nil {
		return notification.Notification{}, mapErr(err)
	}
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, filter notification.Filter) ([]notification.Notification, error) {
	var w where
	w.add("user_id = ?", userID)
	if filter.UnreadOnly {
		w.add("status = ?", string(notification.StatusUnread))
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications` + w.String() + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + w.next(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + w.next(filter.Offset)
	}

	var out []notification.Notification
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), w.args...)
	return out, mapErr(err)
}

func (s *Store) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT count(*) FROM notifications WHERE user_id = $1 AND status = $2`,
		userID, notification.StatusUnread)
	return count, mapErr(err)
}

func (s *Store) MarkRead(ctx context.Context, id string, at time.Time) (notification.Notification, error) {
	var n notification.Notification
	err := s.db.GetContext(ctx, &n, `
		UPDATE notifications
		SET status = $2, read_at = COALESCE(read_at, $3)
		WHERE id = $1
		RETURNING `+notificationColumns, id, notification.StatusRead, at)
	if err != nil {
		return notification.Notification{}, mapErr(err)
	}
	return n, nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET status = $2, read_at = $3 WHERE user_id = $1 AND status = $4
	`, userID, notification.StatusRead, at, notification.StatusUnread)
	if err != nil {
		return 0, mapErr(err)
	}
	rows, err := result.RowsAffected()
	return int(rows), err
}

func (s *Store) DeleteNotification(ctx context.Context, id string) error {
	return expectRow(s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id))
}
