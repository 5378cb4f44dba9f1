package notification

import "time"

// Status tracks whether the recipient has seen a notification.
type Status string

const (
	StatusUnread Status = "unread"
	StatusRead   Status = "read"
)

// Kinds emitted by the services.
const (
	KindBooking        = "booking"
	KindPayment        = "payment"
	KindReview         = "review"
	KindSitterStatus   = "sitter_status"
	KindComment        = "comment"
	KindLike           = "like"
	KindMessage        = "message"
	KindStreakReminder = "streak_reminder"
	KindCareLog        = "care_log"
)

// Notification is a message addressed to one user.
type Notification struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Kind      string     `json:"kind" db:"kind"`
	Title     string     `json:"title" db:"title"`
	Body      string     `json:"body,omitempty" db:"body"`
	RefID     string     `json:"ref_id,omitempty" db:"ref_id"`
	Status    Status     `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty" db:"read_at"`
}

// Filter narrows a user's notification listing.
type Filter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}
