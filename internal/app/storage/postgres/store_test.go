package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmate/pawmate/internal/app/domain/booking"
	"github.com/pawmate/pawmate/internal/app/domain/pet"
	"github.com/pawmate/pawmate/internal/app/domain/sitter"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestGetUserMapsNoRowsToNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs("u1").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetUser(context.Background(), "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetUserScansRow(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "phone", "avatar_url", "role", "created_at", "updated_at"}).
		AddRow("u1", "ana@pawmate.app", "hash", "Ana", "", "", "sitter", created, created)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE lower(email) = lower($1)`)).
		WithArgs("Ana@PawMate.app").
		WillReturnRows(rows)

	u, err := store.GetUserByEmail(context.Background(), "Ana@PawMate.app")
	require.NoError(t, err)
	assert.Equal(t, user.RoleSitter, u.Role)
	assert.Equal(t, created, u.CreatedAt)
}

func TestCreateUserMapsUniqueViolationToConflict(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	_, err := store.CreateUser(context.Background(), user.User{Email: "ana@pawmate.app", Role: user.RoleOwner})
	assert.ErrorIs(t, err, storage.ErrConflict)
	assert.Contains(t, err.Error(), "users_email_key")
}

func TestSearchSittersBuildsFilteredQuery(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "bio", "city", "experience_years", "daily_rate_cents",
		"services", "status", "rating", "review_count", "created_at", "updated_at"}).
		AddRow("s1", "u1", "", "Lisbon", 3, int64(3500), "{boarding,dog_walking}", "approved", 4.5, 2, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM sitter_profiles WHERE status = $1 AND lower(city) = lower($2) AND rating >= $3 ORDER BY rating DESC, created_at LIMIT $4`)).
		WithArgs("approved", "lisbon", 4.0, 10).
		WillReturnRows(rows)

	out, err := store.SearchSitters(context.Background(), sitter.SearchFilter{City: "lisbon", MinRating: 4, Limit: 10})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []string{"boarding", "dog_walking"}, out[0].Services)
	assert.Equal(t, sitter.StatusApproved, out[0].Status)
}

func TestTransitionBookingRequiresExpectedStatus(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	cols := []string{"id", "owner_id", "sitter_id", "pet_id", "start_date", "end_date", "status",
		"price_cents", "notes", "created_at", "updated_at"}

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE bookings SET status = $3, updated_at = $4`)).
		WithArgs("b1", "completed", "paid", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("b1", "o1", "s1", "p1", "2026-03-01", "2026-03-03", "paid", int64(15000), "", now, now))
	b, err := store.TransitionBooking(context.Background(), "b1", booking.StatusCompleted, booking.StatusPaid)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPaid, b.Status)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE bookings SET status = $3`)).
		WithArgs("b1", "completed", "paid", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM bookings WHERE id = $1`)).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("b1", "o1", "s1", "p1", "2026-03-01", "2026-03-03", "paid", int64(15000), "", now, now))
	_, err = store.TransitionBooking(context.Background(), "b1", booking.StatusCompleted, booking.StatusPaid)
	assert.ErrorIs(t, err, storage.ErrConflict)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE bookings SET status = $3`)).
		WithArgs("gone", "completed", "paid", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM bookings WHERE id = $1`)).
		WithArgs("gone").
		WillReturnError(sql.ErrNoRows)
	_, err = store.TransitionBooking(context.Background(), "gone", booking.StatusCompleted, booking.StatusPaid)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListMessagesUsesCursorAndLimit(t *testing.T) {
	store, mock := newMockStore(t)
	before := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "room_id", "sender_id", "body", "created_at"}).
		AddRow("m1", "dm:a:b", "a", "hello", before.Add(-time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM chat_messages WHERE room_id = $1 AND created_at < $2 ORDER BY created_at DESC LIMIT $3`)).
		WithArgs("dm:a:b", before, 50).
		WillReturnRows(rows)

	out, err := store.ListMessages(context.Background(), "dm:a:b", before, 50)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "hello", out[0].Body)
}

func TestLikeReportsExistingLike(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO post_likes`)).
		WithArgs("p1", "u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := store.Like(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestDeleteLogTargetsTableAndReportsMissing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM pet_meals WHERE id = $1 AND pet_id = $2`)).
		WithArgs("m1", "p1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteLog(context.Background(), pet.LogMeal, "p1", "m1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.DeleteLog(context.Background(), pet.LogKind("naps"), "p1", "m1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSetDefaultPaymentMethodRunsInTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE payment_methods SET is_default = FALSE WHERE user_id = $1`)).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE payment_methods SET is_default = TRUE WHERE id = $1 AND user_id = $2`)).
		WithArgs("pm2", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SetDefaultPaymentMethod(context.Background(), "u1", "pm2"))
}
