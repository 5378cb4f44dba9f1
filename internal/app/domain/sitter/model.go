package sitter

import (
	"time"

	"github.com/pawmate/pawmate/internal/app/domain/date"
)

// Status is the approval state of a sitter profile.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Profile is a sitter's marketplace listing.
type Profile struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Bio             string    `json:"bio,omitempty"`
	City            string    `json:"city"`
	ExperienceYears int       `json:"experience_years"`
	DailyRateCents  int64     `json:"daily_rate_cents"`
	Services        []string  `json:"services"`
	Status          Status    `json:"status"`
	Rating          float64   `json:"rating"`
	ReviewCount     int       `json:"review_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Services lists the offerings a sitter may advertise.
var Services = []string{"boarding", "house_sitting", "drop_in", "dog_walking", "day_care", "grooming"}

// Availability marks a single day as available or not for a sitter.
type Availability struct {
	SitterID  string    `json:"sitter_id" db:"sitter_id"`
	Date      date.Date `json:"date" db:"day"`
	Available bool      `json:"available" db:"available"`
	Note      string    `json:"note,omitempty" db:"note"`
}

// Review is an owner's rating of a finished booking.
type Review struct {
	ID         string    `json:"id" db:"id"`
	SitterID   string    `json:"sitter_id" db:"sitter_id"`
	BookingID  string    `json:"booking_id" db:"booking_id"`
	ReviewerID string    `json:"reviewer_id" db:"reviewer_id"`
	Rating     int       `json:"rating" db:"rating"`
	Comment    string    `json:"comment,omitempty" db:"comment"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// SearchFilter narrows the approved sitter listing.
type SearchFilter struct {
	City         string
	MinRating    float64
	MaxDailyRate int64
	Limit        int
	Offset       int
}
