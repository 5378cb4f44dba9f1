package payment

import "time"

// Method is a stored card reference. Full card numbers are never kept.
type Method struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Brand      string    `json:"brand" db:"brand"`
	Last4      string    `json:"last4" db:"last4"`
	ExpMonth   int       `json:"exp_month" db:"exp_month"`
	ExpYear    int       `json:"exp_year" db:"exp_year"`
	HolderName string    `json:"holder_name,omitempty" db:"holder_name"`
	IsDefault  bool      `json:"is_default" db:"is_default"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the card expiry month has passed at now.
func (m Method) Expired(now time.Time) bool {
	if m.ExpYear != now.Year() {
		return m.ExpYear < now.Year()
	}
	return m.ExpMonth < int(now.Month())
}

// Status is the outcome of a charge.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Currency is the only currency the marketplace settles in.
const Currency = "USD"

// Payment records a charge against a booking.
type Payment struct {
	ID          string    `json:"id" db:"id"`
	BookingID   string    `json:"booking_id" db:"booking_id"`
	PayerID     string    `json:"payer_id" db:"payer_id"`
	MethodID    string    `json:"method_id" db:"method_id"`
	AmountCents int64     `json:"amount_cents" db:"amount_cents"`
	Currency    string    `json:"currency" db:"currency"`
	Status      Status    `json:"status" db:"status"`
	Reference   string    `json:"reference,omitempty" db:"reference"`
	FailReason  string    `json:"fail_reason,omitempty" db:"fail_reason"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
