package booking

import (
	"time"

	"github.com/pawmate/pawmate/internal/app/domain/date"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusPaid      Status = "paid"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusAccepted, StatusDeclined, StatusCancelled},
	StatusAccepted:  {StatusCompleted, StatusCancelled},
	StatusCompleted: {StatusPaid},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseStatus returns the status named by s, or false.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusAccepted, StatusDeclined, StatusCancelled, StatusCompleted, StatusPaid:
		return st, true
	}
	return "", false
}

// Booking reserves a sitter for a pet over an inclusive date range.
type Booking struct {
	ID         string    `json:"id" db:"id"`
	OwnerID    string    `json:"owner_id" db:"owner_id"`
	SitterID   string    `json:"sitter_id" db:"sitter_id"`
	PetID      string    `json:"pet_id" db:"pet_id"`
	StartDate  date.Date `json:"start_date" db:"start_date"`
	EndDate    date.Date `json:"end_date" db:"end_date"`
	Status     Status    `json:"status" db:"status"`
	PriceCents int64     `json:"price_cents" db:"price_cents"`
	Notes      string    `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Days returns the inclusive day count of the booking.
func (b Booking) Days() int {
	return b.StartDate.DaysUntil(b.EndDate) + 1
}

// Covers reports whether day falls within the booking.
func (b Booking) Covers(day date.Date) bool {
	return !day.Before(b.StartDate) && !day.After(b.EndDate)
}

// Filter narrows booking listings.
type Filter struct {
	OwnerID  string
	SitterID string
	PetID    string
	Status   Status
	// EndBefore keeps bookings whose end date is strictly earlier.
	EndBefore date.Date
	// Covering keeps bookings whose range includes the day.
	Covering date.Date
}
