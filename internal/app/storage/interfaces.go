package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pawmate/pawmate/internal/app/domain/booking"
	"github.com/pawmate/pawmate/internal/app/domain/chat"
	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/domain/feed"
	"github.com/pawmate/pawmate/internal/app/domain/notification"
	"github.com/pawmate/pawmate/internal/app/domain/payment"
	"github.com/pawmate/pawmate/internal/app/domain/pet"
	"github.com/pawmate/pawmate/internal/app/domain/scan"
	"github.com/pawmate/pawmate/internal/app/domain/sitter"
	"github.com/pawmate/pawmate/internal/app/domain/user"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness rule.
	ErrConflict = errors.New("record conflicts with existing data")
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
}

// PetStore persists pets, their care logs and health records.
type PetStore interface {
	CreatePet(ctx context.Context, p pet.Pet) (pet.Pet, error)
	UpdatePet(ctx context.Context, p pet.Pet) (pet.Pet, error)
	GetPet(ctx context.Context, id string) (pet.Pet, error)
	ListPets(ctx context.Context, ownerID string) ([]pet.Pet, error)
	DeletePet(ctx context.Context, id string) error
	// ListStreakingPets returns pets with a running streak whose last log is before day.
	ListStreakingPets(ctx context.Context, day date.Date) ([]pet.Pet, error)

	CreateActivity(ctx context.Context, a pet.Activity) (pet.Activity, error)
	ListActivities(ctx context.Context, petID string) ([]pet.Activity, error)
	CreateMeal(ctx context.Context, m pet.Meal) (pet.Meal, error)
	ListMeals(ctx context.Context, petID string) ([]pet.Meal, error)
	CreateMood(ctx context.Context, m pet.Mood) (pet.Mood, error)
	ListMoods(ctx context.Context, petID string) ([]pet.Mood, error)
	DeleteLog(ctx context.Context, kind pet.LogKind, petID, id string) error
	// LogTimes returns logged_at of every activity, meal and mood of a pet.
	LogTimes(ctx context.Context, petID string) ([]time.Time, error)

	CreateHealthRecord(ctx context.Context, rec pet.HealthRecord) (pet.HealthRecord, error)
	UpdateHealthRecord(ctx context.Context, rec pet.HealthRecord) (pet.HealthRecord, error)
	GetHealthRecord(ctx context.Context, id string) (pet.HealthRecord, error)
	ListHealthRecords(ctx context.Context, petID string) ([]pet.HealthRecord, error)
	DeleteHealthRecord(ctx context.Context, id string) error
}

// SitterStore persists sitter profiles, availability and reviews.
type SitterStore interface {
	CreateSitter(ctx context.Context, p sitter.Profile) (sitter.Profile, error)
	UpdateSitter(ctx context.Context, p sitter.Profile) (sitter.Profile, error)
	GetSitter(ctx context.Context, id string) (sitter.Profile, error)
	GetSitterByUser(ctx context.Context, userID string) (sitter.Profile, error)
	SearchSitters(ctx context.Context, filter sitter.SearchFilter) ([]sitter.Profile, error)
	ListSittersByStatus(ctx context.Context, status sitter.Status) ([]sitter.Profile, error)

	UpsertAvailability(ctx context.Context, days []sitter.Availability) error
	ListAvailability(ctx context.Context, sitterID string, from, to date.Date) ([]sitter.Availability, error)

	CreateReview(ctx context.Context, r sitter.Review) (sitter.Review, error)
	ListReviews(ctx context.Context, sitterID string) ([]sitter.Review, error)
}

// BookingStore persists bookings.
type BookingStore interface {
	CreateBooking(ctx context.Context, b booking.Booking) (booking.Booking, error)
	// TransitionBooking sets the status of booking id to `to` only while it
	// is still `from`; otherwise it returns ErrConflict.
	TransitionBooking(ctx context.Context, id string, from, to booking.Status) (booking.Booking, error)
	GetBooking(ctx context.Context, id string) (booking.Booking, error)
	ListBookings(ctx context.Context, filter booking.Filter) ([]booking.Booking, error)
}

// PaymentStore persists payment methods and charges.
type PaymentStore interface {
	CreatePaymentMethod(ctx context.Context, m payment.Method) (payment.Method, error)
	GetPaymentMethod(ctx context.Context, id string) (payment.Method, error)
	ListPaymentMethods(ctx context.Context, userID string) ([]payment.Method, error)
	DeletePaymentMethod(ctx context.Context, id string) error
	SetDefaultPaymentMethod(ctx context.Context, userID, id string) error

	CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error)
	ListPaymentsByUser(ctx context.Context, userID string) ([]payment.Payment, error)
	ListPaymentsByBooking(ctx context.Context, bookingID string) ([]payment.Payment, error)
}

// FeedStore persists posts, media, comments and likes.
type FeedStore interface {
	CreatePost(ctx context.Context, p feed.Post) (feed.Post, error)
	UpdatePost(ctx context.Context, p feed.Post) (feed.Post, error)
	GetPost(ctx context.Context, id string) (feed.Post, error)
	ListPosts(ctx context.Context, filter feed.Filter) ([]feed.Post, error)
	DeletePost(ctx context.Context, id string) error

	AddMedia(ctx context.Context, m feed.Media) (feed.Media, error)

	CreateComment(ctx context.Context, c feed.Comment) (feed.Comment, error)
	GetComment(ctx context.Context, id string) (feed.Comment, error)
	ListComments(ctx context.Context, postID string) ([]feed.Comment, error)
	DeleteComment(ctx context.Context, id string) error

	// Like records a like and reports whether it was new.
	Like(ctx context.Context, postID, userID string) (bool, error)
	Unlike(ctx context.Context, postID, userID string) error
	LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
}

// ChatStore persists chat messages.
type ChatStore interface {
	CreateMessage(ctx context.Context, m chat.Message) (chat.Message, error)
	// ListMessages returns messages newest first, strictly older than before when set.
	ListMessages(ctx context.Context, roomID string, before time.Time, limit int) ([]chat.Message, error)
}

// NotificationStore persists user notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error)
	GetNotification(ctx context.Context, id string) (notification.Notification, error)
	ListNotifications(ctx context.Context, userID string, filter notification.Filter) ([]notification.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id string, at time.Time) (notification.Notification, error)
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error)
	DeleteNotification(ctx context.Context, id string) error
}

// ScanStore persists scan results.
type ScanStore interface {
	CreateScan(ctx context.Context, s scan.Scan) (scan.Scan, error)
	GetScan(ctx context.Context, id string) (scan.Scan, error)
	ListScans(ctx context.Context, petID string) ([]scan.Scan, error)
}
