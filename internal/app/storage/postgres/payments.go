package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/pawmate/pawmate/internal/app/domain/payment"
)

const methodColumns = `id, user_id, brand, last4, exp_month, exp_year, holder_name, is_default, created_at`

func (s *Store) CreatePaymentMethod(ctx context.Context, m payment.Method) (payment.Method, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return payment.Method{}, err
	}
	defer tx.Rollback()

	if m.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE payment_methods SET is_default = FALSE WHERE user_id = $1`, m.UserID); err != nil {
			return payment.Method{}, mapErr(err)
		}
	}
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO payment_methods (`+methodColumns+`)
		VALUES (:id, :user_id, :brand, :last4, :exp_month, :exp_year, :holder_name, :is_default, :created_at)
	`, m); err != nil {
		return payment.Method{}, mapErr(err)
	}
	return m, tx.Commit()
}

func (s *Store) GetPaymentMethod(ctx context.Context, id string) (payment.Method, error) {
	var m payment.Method
	if err := s.db.GetContext(ctx, &m, `SELECT `+methodColumns+` FROM payment_methods WHERE id = $1`, id); err != nil {
		return payment.Method{}, mapErr(err)
	}
	return m, nil
}

func (s *Store) ListPaymentMethods(ctx context.Context, userID string) ([]payment.Method, error) {
	var out []payment.Method
	err := s.db.SelectContext(ctx, &out, `SELECT `+methodColumns+` FROM payment_methods WHERE user_id = $1 ORDER BY created_at`, userID)
	return out, mapErr(err)
}

func (s *Store) DeletePaymentMethod(ctx context.Context, id string) error {
	return expectRow(s.db.ExecContext(ctx, `DELETE FROM payment_methods WHERE id = $1`, id))
}

func (s *Store) SetDefaultPaymentMethod(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE payment_methods SET is_default = FALSE WHERE user_id = $1`, userID); err != nil {
		return mapErr(err)
	}
	result, err := tx.ExecContext(ctx, `UPDATE payment_methods SET is_default = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err := expectRow(result, err); err != nil {
		return err
	}
	return tx.Commit()
}

const paymentColumns = `id, booking_id, payer_id, COALESCE(method_id::text, '') AS method_id, amount_cents, currency,
	status, reference, fail_reason, created_at`

func (s *Store) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = now()
	var methodID interface{}
	if p.MethodID != "" {
		methodID = p.MethodID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, booking_id, payer_id, method_id, amount_cents, currency, status, reference, fail_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.BookingID, p.PayerID, methodID, p.AmountCents, p.Currency, p.Status, p.Reference, p.FailReason, p.CreatedAt)
	if err != nil {
		return payment.Payment{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) ListPaymentsByUser(ctx context.Context, userID string) ([]payment.Payment, error) {
	return s.listPayments(ctx, `payer_id = $1`, userID)
}

func (s *Store) ListPaymentsByBooking(ctx context.Context, bookingID string) ([]payment.Payment, error) {
	return s.listPayments(ctx, `booking_id = $1`, bookingID)
}

func (s *Store) listPayments(ctx context.Context, cond, arg string) ([]payment.Payment, error) {
	var out []payment.Payment
	err := s.db.SelectContext(ctx, &out, `SELECT `+paymentColumns+` FROM payments WHERE `+cond+` ORDER BY created_at DESC`, arg)
	return out, mapErr(err)
}
