package memory

import (
	"context"

	"github.com/pawmate/pawmate/internal/app/domain/payment"
	"github.com/pawmate/pawmate/internal/app/storage"
)

func (s *Store) CreatePaymentMethod(_ context.Context, m payment.Method) (payment.Method, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = newID(m.ID)
	m.CreatedAt = s.nowLocked()
	if m.IsDefault {
		s.clearDefaultLocked(m.UserID)
	}
	s.methods[m.ID] = m
	return m, nil
}

func (s *Store) GetPaymentMethod(_ context.Context, id string) (payment.Method, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.methods[id]
	if !ok {
		return payment.Method{}, storage.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListPaymentMethods(_ context.Context, userID string) ([]payment.Method, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return collect(s.methods,
		func(m payment.Method) bool { return m.UserID == userID },
		func(a, b payment.Method) bool { return a.CreatedAt.Before(b.CreatedAt) },
	), nil
}

func (s *Store) DeletePaymentMethod(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.methods[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.methods, id)
	return nil
}

func (s *Store) SetDefaultPaymentMethod(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.methods[id]
	if !ok || m.UserID != userID {
		return storage.ErrNotFound
	}
	s.clearDefaultLocked(userID)
	m.IsDefault = true
	s.methods[id] = m
	return nil
}

func (s *Store) clearDefaultLocked(userID string) {
	for id, m := range s.methods {
		if m.UserID == userID && m.IsDefault {
			m.IsDefault = false
			s.methods[id] = m
		}
	}
}

func (s *Store) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Status == payment.StatusSucceeded {
		for _, existing := range s.payments {
			if existing.BookingID == p.BookingID && existing.Status == payment.StatusSucceeded {
				return payment.Payment{}, storage.ErrConflict
			}
		}
	}
	p.ID = newID(p.ID)
	p.CreatedAt = s.nowLocked()
	s.payments[p.ID] = p
	return p, nil
}

func (s *Store) ListPaymentsByUser(_ context.Context, userID string) ([]payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return collect(s.payments,
		func(p payment.Payment) bool { return p.PayerID == userID },
		func(a, b payment.Payment) bool { return a.CreatedAt.After(b.CreatedAt) },
	), nil
}

func (s *Store) ListPaymentsByBooking(_ context.Context, bookingID string) ([]payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return collect(s.payments,
		func(p payment.Payment) bool { return p.BookingID == bookingID },
		func(a, b payment.Payment) bool { return a.CreatedAt.After(b.CreatedAt) },
	), nil
}
