package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/pawmate/pawmate/internal/app/domain/booking"
	"github.com/pawmate/pawmate/internal/app/storage"
)

const bookingColumns = `id, owner_id, sitter_id, pet_id, start_date, end_date, status, price_cents, notes, created_at, updated_at`

func (s *Store) CreateBooking(ctx context.Context, b booking.Booking) (booking.Booking, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = now()
	b.UpdatedAt = b.CreatedAt
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES (:id, :owner_id, :sitter_id, :pet_id, :start_date, :end_date, :status, :price_cents, :notes, :created_at, :updated_at)
	`, b)
	if err != nil {
		return booking.Booking{}, mapErr(err)
	}
	return b, nil
}

func (s *Store) TransitionBooking(ctx context.Context, id string, from, to booking.Status) (booking.Booking, error) {
	var b booking.Booking
	err := s.db.QueryRowxContext(ctx, `
		UPDATE bookings SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+bookingColumns,
		id, string(from), string(to), now()).StructScan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the booking is gone or another request moved it first.
		if _, err := s.GetBooking(ctx, id); err != nil {
			return booking.Booking{}, err
		}
		return booking.Booking{}, storage.ErrConflict
	}
	if err != nil {
		return booking.Booking{}, mapErr(err)
	}
	return b, nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (booking.Booking, error) {
	var b booking.Booking
	if err := s.db.GetContext(ctx, &b, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id); err != nil {
		return booking.Booking{}, mapErr(err)
	}
	return b, nil
}

func (s *Store) ListBookings(ctx context.Context, filter booking.Filter) ([]booking.Booking, error) {
	var w where
	if filter.OwnerID != "" {
		w.add("owner_id = ?", filter.OwnerID)
	}
	if filter.SitterID != "" {
		w.add("sitter_id = ?", filter.SitterID)
	}
	if filter.PetID != "" {
		w.add("pet_id = ?", filter.PetID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	if !filter.EndBefore.IsZero() {
		w.add("end_date < ?", filter.EndBefore)
	}
	if !filter.Covering.IsZero() {
		w.add("? BETWEEN start_date AND end_date", filter.Covering)
	}

	var out []booking.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings` + w.String() + ` ORDER BY created_at DESC`
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), w.args...)
	return out, mapErr(err)
}
