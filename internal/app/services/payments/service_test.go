package payments

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmate/pawmate/internal/app/domain/booking"
	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/domain/payment"
	"github.com/pawmate/pawmate/internal/app/domain/pet"
	"github.com/pawmate/pawmate/internal/app/domain/sitter"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/services/bookings"
	"github.com/pawmate/pawmate/internal/app/storage/memory"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/pkg/logger"
)

var (
	owner   = user.User{ID: "owner-1", Role: user.RoleOwner}
	other   = user.User{ID: "owner-2", Role: user.RoleOwner}
	sitterU = user.User{ID: "sitter-1", Role: user.RoleSitter}
	now     = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	ledger := bookings.New(store, store, store, nil, logger.NewNop())
	svc := New(store, ledger, &LedgerGateway{now: func() time.Time { return now }}, nil, logger.NewNop())
	svc.now = func() time.Time { return now }
	return svc, store
}

func seedBooking(t *testing.T, store *memory.Store, status booking.Status) booking.Booking {
	t.Helper()
	ctx := context.Background()
	p, err := store.CreatePet(ctx, pet.Pet{OwnerID: owner.ID, Name: "Rex", Species: "dog"})
	require.NoError(t, err)
	profile, err := store.GetSitterByUser(ctx, sitterU.ID)
	if err != nil {
		profile, err = store.CreateSitter(ctx, sitter.Profile{UserID: sitterU.ID, City: "Austin", DailyRateCents: 5000, Status: sitter.StatusApproved})
		require.NoError(t, err)
	}
	b, err := store.CreateBooking(ctx, booking.Booking{
		OwnerID: owner.ID, SitterID: profile.ID, PetID: p.ID,
		StartDate: date.New(2026, time.March, 1), EndDate: date.New(2026, time.March, 3),
		Status: status, PriceCents: 15000,
	})
	require.NoError(t, err)
	return b
}

func TestAddMethodStoresOnlyCardSummary(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.AddMethod(ctx, owner, CardInput{Number: "4242 4242 4242 4241", ExpMonth: 12, ExpYear: 2030})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "luhn failure")
	_, err = svc.AddMethod(ctx, owner, CardInput{Number: "4242424242424242", ExpMonth: 1, ExpYear: 2026})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "expired")

	visa, err := svc.AddMethod(ctx, owner, CardInput{Number: "4242-4242-4242-4242", ExpMonth: 12, ExpYear: 2030, HolderName: "Ann Owner"})
	require.NoError(t, err)
	assert.Equal(t, "visa", visa.Brand)
	assert.Equal(t, "4242", visa.Last4)
	assert.True(t, visa.IsDefault)

	mc, err := svc.AddMethod(ctx, owner, CardInput{Number: "5555555555554444", ExpMonth: 6, ExpYear: 2031})
	require.NoError(t, err)
	assert.Equal(t, "mastercard", mc.Brand)
	assert.False(t, mc.IsDefault)

	_, err = svc.SetDefault(ctx, other, mc.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = svc.SetDefault(ctx, owner, mc.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMethod(ctx, owner, mc.ID))
	methods, err := svc.ListMethods(ctx, owner)
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.True(t, methods[0].IsDefault, "remaining card promoted to default")
}

func TestPayBooking(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	pending := seedBooking(t, store, booking.StatusAccepted)
	completed := seedBooking(t, store, booking.StatusCompleted)

	_, err := svc.PayBooking(ctx, owner, completed.ID, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "no method on file")

	_, err = svc.AddMethod(ctx, owner, CardInput{Number: "4242424242424242", ExpMonth: 12, ExpYear: 2030})
	require.NoError(t, err)

	_, err = svc.PayBooking(ctx, owner, pending.ID, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	_, err = svc.PayBooking(ctx, other, completed.ID, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	paid, err := svc.PayBooking(ctx, owner, completed.ID, "")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSucceeded, paid.Status)
	assert.Equal(t, int64(15000), paid.AmountCents)
	assert.Equal(t, payment.Currency, paid.Currency)
	assert.NotEmpty(t, paid.Reference)

	b, err := store.GetBooking(ctx, completed.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPaid, b.Status)

	_, err = svc.PayBooking(ctx, owner, completed.ID, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	forSitter, err := svc.ListBookingPayments(ctx, sitterU, completed.ID)
	require.NoError(t, err)
	assert.Len(t, forSitter, 1)
	mine, err := svc.ListPayments(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestDeclinedChargeIsRecorded(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	completed := seedBooking(t, store, booking.StatusCompleted)

	m, err := svc.AddMethod(ctx, owner, CardInput{Number: "4242424242424242", ExpMonth: 3, ExpYear: 2026})
	require.NoError(t, err)

	svc.gateway = &LedgerGateway{now: func() time.Time { return now.AddDate(0, 1, 0) }}
	_, err = svc.PayBooking(ctx, owner, completed.ID, m.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePayment))
	assert.ErrorIs(t, err, ErrDeclined)

	attempts, err := svc.ListBookingPayments(ctx, owner, completed.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, payment.StatusFailed, attempts[0].Status)
	assert.Contains(t, attempts[0].FailReason, "expired")

	b, _ := store.GetBooking(ctx, completed.ID)
	assert.Equal(t, booking.StatusCompleted, b.Status)
}

type countingGateway struct {
	charges atomic.Int32
}

func (g *countingGateway) Charge(context.Context, Charge) (string, error) {
	g.charges.Add(1)
	return "ch_test", nil
}

func TestConcurrentPaymentsChargeOnce(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	gateway := &countingGateway{}
	svc.gateway = gateway
	completed := seedBooking(t, store, booking.StatusCompleted)
	_, err := svc.AddMethod(ctx, owner, CardInput{Number: "4242424242424242", ExpMonth: 12, ExpYear: 2030})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.PayBooking(ctx, owner, completed.ID, ""); err == nil {
				succeeded.Add(1)
			} else {
				assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "%v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(1), gateway.charges.Load())
	attempts, err := svc.ListBookingPayments(ctx, owner, completed.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}
