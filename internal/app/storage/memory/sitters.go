package memory

import (
	"context"
	"strings"

	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/domain/sitter"
	"github.com/pawmate/pawmate/internal/app/storage"
)

func cloneProfile(p sitter.Profile) sitter.Profile {
	p.Services = append([]string(nil), p.Services...)
	return p
}

func (s *Store) CreateSitter(_ context.Context, p sitter.Profile) (sitter.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sitters {
		if existing.UserID == p.UserID {
			return sitter.Profile{}, storage.ErrConflict
		}
	}
	p.ID = newID(p.ID)
	now := s.nowLocked()
	p.CreatedAt = now
	p.UpdatedAt = now
	p = cloneProfile(p)
	s.sitters[p.ID] = p
	return cloneProfile(p), nil
}

func (s *Store) UpdateSitter(_ context.Context, p sitter.Profile) (sitter.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.sitters[p.ID]
	if !ok {
		return sitter.Profile{}, storage.ErrNotFound
	}
	p.UserID = original.UserID
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = s.nowLocked()
	p = cloneProfile(p)
	s.sitters[p.ID] = p
	return cloneProfile(p), nil
}

func (s *Store) GetSitter(_ context.Context, id string) (sitter.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.sitters[id]
	if !ok {
		return sitter.Profile{}, storage.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (s *Store) GetSitterByUser(_ context.Context, userID string) (sitter.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.sitters {
		if p.UserID == userID {
			return cloneProfile(p), nil
		}
	}
	return sitter.Profile{}, storage.ErrNotFound
}

func (s *Store) SearchSitters(_ context.Context, filter sitter.SearchFilter) ([]sitter.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := collect(s.sitters,
		func(p sitter.Profile) bool {
			if p.Status != sitter.StatusApproved {
				return false
			}
			if filter.City != "" && !strings.EqualFold(p.City, filter.City) {
				return false
			}
			if filter.MinRating > 0 && p.Rating < filter.MinRating {
				return false
			}
			if filter.MaxDailyRate > 0 && p.DailyRateCents > filter.MaxDailyRate {
				return false
			}
			return true
		},
		func(a, b sitter.Profile) bool {
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			return a.CreatedAt.Before(b.CreatedAt)
		},
	)
	out := page(matches, filter.Limit, filter.Offset)
	for i := range out {
		out[i] = cloneProfile(out[i])
	}
	return out, nil
}

func (s *Store) ListSittersByStatus(_ context.Context, status sitter.Status) ([]sitter.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := collect(s.sitters,
		func(p sitter.Profile) bool { return status == "" || p.Status == status },
		func(a, b sitter.Profile) bool { return a.CreatedAt.Before(b.CreatedAt) },
	)
	for i := range out {
		out[i] = cloneProfile(out[i])
	}
	return out, nil
}

func (s *Store) UpsertAvailability(_ context.Context, days []sitter.Availability) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, day := range days {
		if _, ok := s.sitters[day.SitterID]; !ok {
			return storage.ErrNotFound
		}
	}
	for _, day := range days {
		bySitter, ok := s.availability[day.SitterID]
		if !ok {
			bySitter = make(map[string]sitter.Availability)
			s.availability[day.SitterID] = bySitter
		}
		bySitter[day.Date.String()] = day
	}
	return nil
}

func (s *Store) ListAvailability(_ context.Context, sitterID string, from, to date.Date) ([]sitter.Availability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return collect(s.availability[sitterID],
		func(a sitter.Availability) bool { return !a.Date.Before(from) && !a.Date.After(to) },
		func(a, b sitter.Availability) bool { return a.Date.Before(b.Date) },
	), nil
}

func (s *Store) CreateReview(_ context.Context, r sitter.Review) (sitter.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.reviews {
		if existing.BookingID == r.BookingID {
			return sitter.Review{}, storage.ErrConflict
		}
	}
	r.ID = newID(r.ID)
	r.CreatedAt = s.nowLocked()
	s.reviews[r.ID] = r
	return r, nil
}

func (s *Store) ListReviews(_ context.Context, sitterID string) ([]sitter.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return collect(s.reviews,
		func(r sitter.Review) bool { return r.SitterID == sitterID },
		func(a, b sitter.Review) bool { return a.CreatedAt.After(b.CreatedAt) },
	), nil
}
