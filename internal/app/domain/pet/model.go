package pet

import (
	"time"

	"github.com/pawmate/pawmate/internal/app/domain/date"
)

// Pet is a pet profile owned by a user.
type Pet struct {
	ID            string     `json:"id" db:"id"`
	OwnerID       string     `json:"owner_id" db:"owner_id"`
	Name          string     `json:"name" db:"name"`
	Species       string     `json:"species" db:"species"`
	Breed         string     `json:"breed,omitempty" db:"breed"`
	Gender        string     `json:"gender,omitempty" db:"gender"`
	BirthDate     *date.Date `json:"birth_date,omitempty" db:"birth_date"`
	WeightKg      float64    `json:"weight_kg,omitempty" db:"weight_kg"`
	PhotoURL      string     `json:"photo_url,omitempty" db:"photo_url"`
	Notes         string     `json:"notes,omitempty" db:"notes"`
	Streak        int        `json:"streak" db:"streak"`
	LongestStreak int        `json:"longest_streak" db:"longest_streak"`
	LastLoggedOn  *date.Date `json:"last_logged_on,omitempty" db:"last_logged_on"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

var (
	Species       = []string{"dog", "cat", "bird", "rabbit", "other"}
	ActivityKinds = []string{"walk", "play", "training", "grooming", "other"}
	MealTypes     = []string{"breakfast", "lunch", "dinner", "snack", "treat"}
	Moods         = []string{"happy", "calm", "playful", "anxious", "sad", "aggressive", "tired"}
	HealthKinds   = []string{"vaccination", "vet_visit", "medication", "allergy", "surgery", "other"}
)

// Activity is a logged exercise or care session.
type Activity struct {
	ID              string    `json:"id" db:"id"`
	PetID           string    `json:"pet_id" db:"pet_id"`
	LoggedBy        string    `json:"logged_by" db:"logged_by"`
	Kind            string    `json:"kind" db:"kind"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	DistanceKm      float64   `json:"distance_km,omitempty" db:"distance_km"`
	Notes           string    `json:"notes,omitempty" db:"notes"`
	LoggedAt        time.Time `json:"logged_at" db:"logged_at"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Meal is a logged feeding.
type Meal struct {
	ID          string    `json:"id" db:"id"`
	PetID       string    `json:"pet_id" db:"pet_id"`
	LoggedBy    string    `json:"logged_by" db:"logged_by"`
	Food        string    `json:"food" db:"food"`
	MealType    string    `json:"meal_type" db:"meal_type"`
	AmountGrams float64   `json:"amount_grams,omitempty" db:"amount_grams"`
	Notes       string    `json:"notes,omitempty" db:"notes"`
	LoggedAt    time.Time `json:"logged_at" db:"logged_at"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Mood is a logged mood observation.
type Mood struct {
	ID        string    `json:"id" db:"id"`
	PetID     string    `json:"pet_id" db:"pet_id"`
	LoggedBy  string    `json:"logged_by" db:"logged_by"`
	Mood      string    `json:"mood" db:"mood"`
	Notes     string    `json:"notes,omitempty" db:"notes"`
	LoggedAt  time.Time `json:"logged_at" db:"logged_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HealthRecord is a medical history entry.
type HealthRecord struct {
	ID          string     `json:"id" db:"id"`
	PetID       string     `json:"pet_id" db:"pet_id"`
	Kind        string     `json:"kind" db:"kind"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description,omitempty" db:"description"`
	RecordedOn  date.Date  `json:"recorded_on" db:"recorded_on"`
	NextDueOn   *date.Date `json:"next_due_on,omitempty" db:"next_due_on"`
	Vet         string     `json:"vet,omitempty" db:"vet"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// LogKind names the three log tables that feed the streak.
type LogKind string

const (
	LogActivity LogKind = "activities"
	LogMeal     LogKind = "meals"
	LogMood     LogKind = "moods"
)

// Streak is the derived consecutive-day logging summary of a pet.
type Streak struct {
	PetID        string     `json:"pet_id"`
	Current      int        `json:"current"`
	Longest      int        `json:"longest"`
	LastLoggedOn *date.Date `json:"last_logged_on,omitempty"`
	LoggedToday  bool       `json:"logged_today"`
	TimeZone     string     `json:"time_zone"`
}
