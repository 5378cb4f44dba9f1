package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pawmate/pawmate/internal/app/domain/booking"
	"github.com/pawmate/pawmate/internal/app/domain/chat"
	"github.com/pawmate/pawmate/internal/app/domain/feed"
	"github.com/pawmate/pawmate/internal/app/domain/notification"
	"github.com/pawmate/pawmate/internal/app/domain/payment"
	"github.com/pawmate/pawmate/internal/app/domain/pet"
	"github.com/pawmate/pawmate/internal/app/domain/scan"
	"github.com/pawmate/pawmate/internal/app/domain/sitter"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is intended for tests and local development.
type Store struct {
	mu      sync.RWMutex
	lastNow time.Time

	users        map[string]user.User
	usersByEmail map[string]string

	pets          map[string]pet.Pet
	activities    map[string]pet.Activity
	meals         map[string]pet.Meal
	moods         map[string]pet.Mood
	healthRecords map[string]pet.HealthRecord

	sitters      map[string]sitter.Profile
	availability map[string]map[string]sitter.Availability
	reviews      map[string]sitter.Review

	bookings map[string]booking.Booking

	methods  map[string]payment.Method
	payments map[string]payment.Payment

	posts    map[string]feed.Post
	media    map[string][]feed.Media
	comments map[string]feed.Comment
	likes    map[string]map[string]bool

	messages      map[string][]chat.Message
	notifications map[string]notification.Notification
	scans         map[string]scan.Scan
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.PetStore = (*Store)(nil)
var _ storage.SitterStore = (*Store)(nil)
var _ storage.BookingStore = (*Store)(nil)
var _ storage.PaymentStore = (*Store)(nil)
var _ storage.FeedStore = (*Store)(nil)
var _ storage.ChatStore = (*Store)(nil)
var _ storage.NotificationStore = (*Store)(nil)
var _ storage.ScanStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:         make(map[string]user.User),
		usersByEmail:  make(map[string]string),
		pets:          make(map[string]pet.Pet),
		activities:    make(map[string]pet.Activity),
		meals:         make(map[string]pet.Meal),
		moods:         make(map[string]pet.Mood),
		healthRecords: make(map[string]pet.HealthRecord),
		sitters:       make(map[string]sitter.Profile),
		availability:  make(map[string]map[string]sitter.Availability),
		reviews:       make(map[string]sitter.Review),
		bookings:      make(map[string]booking.Booking),
		methods:       make(map[string]payment.Method),
		payments:      make(map[string]payment.Payment),
		posts:         make(map[string]feed.Post),
		media:         make(map[string][]feed.Media),
		comments:      make(map[string]feed.Comment),
		likes:         make(map[string]map[string]bool),
		messages:      make(map[string][]chat.Message),
		notifications: make(map[string]notification.Notification),
		scans:         make(map[string]scan.Scan),
	}
}

// nowLocked returns a strictly increasing UTC timestamp so creation order is
// total even when the clock does not advance between writes.
func (s *Store) nowLocked() time.Time {
	now := time.Now().UTC()
	if !now.After(s.lastNow) {
		now = s.lastNow.Add(time.Microsecond)
	}
	s.lastNow = now
	return now
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// page applies offset/limit to an already ordered slice.
func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// collect returns the map values accepted by keep, sorted with less.
func collect[T any](m map[string]T, keep func(T) bool, less func(a, b T) bool) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
