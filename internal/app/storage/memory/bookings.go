package memory

import (
	"context"

	"github.com/pawmate/pawmate/internal/app/domain/booking"
	"github.com/pawmate/pawmate/internal/app/storage"
)

func (s *Store) CreateBooking(_ context.Context, b booking.Booking) (booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.ID = newID(b.ID)
	now := s.nowLocked()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.bookings[b.ID] = b
	return b, nil
}

func (s *Store) TransitionBooking(_ context.Context, id string, from, to booking.Status) (booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return booking.Booking{}, storage.ErrNotFound
	}
	if b.Status != from {
		return booking.Booking{}, storage.ErrConflict
	}
	b.Status = to
	b.UpdatedAt = s.nowLocked()
	s.bookings[id] = b
	return b, nil
}

func (s *Store) GetBooking(_ context.Context, id string) (booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return booking.Booking{}, storage.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListBookings(_ context.Context, filter booking.Filter) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return collect(s.bookings,
		func(b booking.Booking) bool {
			switch {
			case filter.OwnerID != "" && b.OwnerID != filter.OwnerID:
				return false
			case filter.SitterID != "" && b.SitterID != filter.SitterID:
				return false
			case filter.PetID != "" && b.PetID != filter.PetID:
				return false
			case filter.Status != "" && b.Status != filter.Status:
				return false
			case !filter.EndBefore.IsZero() && !b.EndDate.Before(filter.EndBefore):
				return false
			case !filter.Covering.IsZero() && !b.Covers(filter.Covering):
				return false
			}
			return true
		},
		func(a, b booking.Booking) bool { return a.CreatedAt.After(b.CreatedAt) },
	), nil
}
