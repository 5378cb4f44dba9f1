package pets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmate/pawmate/internal/app/domain/booking"
	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/domain/notification"
	"github.com/pawmate/pawmate/internal/app/domain/pet"
	"github.com/pawmate/pawmate/internal/app/domain/sitter"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/storage/memory"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/pkg/logger"
	"github.com/pawmate/pawmate/pkg/testutil"
)

var (
	owner    = user.User{ID: "owner-1", Role: user.RoleOwner}
	stranger = user.User{ID: "owner-2", Role: user.RoleOwner}
	sitterU  = user.User{ID: "sitter-1", Role: user.RoleSitter}
	admin    = user.User{ID: "admin-1", Role: user.RoleAdmin}
)

func newService(t *testing.T, now time.Time) (*Service, *memory.Store, *testutil.Notifier) {
	t.Helper()
	store := memory.New()
	rec := &testutil.Notifier{}
	svc := New(store, store, store, rec, logger.NewNop())
	svc.now = func() time.Time { return now }
	return svc, store, rec
}

func TestPetCRUDAndAccess(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t, time.Now().UTC())

	_, err := svc.Create(ctx, owner, Input{Name: "Rex", Species: "dinosaur"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	rex, err := svc.Create(ctx, owner, Input{Name: " Rex ", Species: "Dog", WeightKg: 12.5})
	require.NoError(t, err)
	assert.Equal(t, "Rex", rex.Name)
	assert.Equal(t, "dog", rex.Species)

	_, err = svc.Get(ctx, stranger, rex.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = svc.Get(ctx, admin, rex.ID)
	assert.NoError(t, err)

	name := "Rexy"
	updated, err := svc.Update(ctx, owner, rex.ID, Patch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Rexy", updated.Name)

	list, err := svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, owner, rex.ID))
	_, err = svc.Get(ctx, owner, rex.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestLogsUpdateStreak(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	svc, store, _ := newService(t, now)

	rex, err := svc.Create(ctx, owner, Input{Name: "Rex", Species: "dog"})
	require.NoError(t, err)

	_, err = svc.LogActivity(ctx, owner, rex.ID, pet.Activity{Kind: "walk", DurationMinutes: 30, LoggedAt: now.Add(-48 * time.Hour)})
	require.NoError(t, err)
	_, err = svc.LogMeal(ctx, owner, rex.ID, pet.Meal{Food: "kibble", MealType: "dinner", LoggedAt: now.Add(-24 * time.Hour)})
	require.NoError(t, err)
	mood, err := svc.LogMood(ctx, owner, rex.ID, pet.Mood{Mood: "happy"})
	require.NoError(t, err)
	assert.Equal(t, now, mood.LoggedAt)

	_, err = svc.LogMood(ctx, owner, rex.ID, pet.Mood{Mood: "happy", LoggedAt: now.Add(time.Hour)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	cached, err := store.GetPet(ctx, rex.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, cached.Streak)
	assert.Equal(t, 3, cached.LongestStreak)
	require.NotNil(t, cached.LastLoggedOn)
	assert.Equal(t, "2026-03-10", cached.LastLoggedOn.String())

	streak, err := svc.Streak(ctx, owner, rex.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 3, streak.Current)
	assert.True(t, streak.LoggedToday)
	assert.Equal(t, "UTC", streak.TimeZone)

	_, err = svc.Streak(ctx, owner, rex.ID, "Mars/Olympus")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	require.NoError(t, svc.DeleteLog(ctx, owner, pet.LogMood, rex.ID, mood.ID))
	cached, _ = store.GetPet(ctx, rex.ID)
	assert.Equal(t, 2, cached.Streak)
}

func TestSitterWithActiveBookingHasCareAccess(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	svc, store, rec := newService(t, now)

	rex, err := svc.Create(ctx, owner, Input{Name: "Rex", Species: "dog"})
	require.NoError(t, err)

	_, err = svc.LogActivity(ctx, sitterU, rex.ID, pet.Activity{Kind: "walk"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	profile, err := store.CreateSitter(ctx, sitter.Profile{UserID: sitterU.ID, City: "Austin", Status: sitter.StatusApproved})
	require.NoError(t, err)
	_, err = store.CreateBooking(ctx, booking.Booking{
		OwnerID:   owner.ID,
		SitterID:  profile.ID,
		PetID:     rex.ID,
		StartDate: date.New(2026, time.March, 9),
		EndDate:   date.New(2026, time.March, 11),
		Status:    booking.StatusAccepted,
	})
	require.NoError(t, err)

	_, err = svc.LogActivity(ctx, sitterU, rex.ID, pet.Activity{Kind: "walk", DurationMinutes: 20})
	require.NoError(t, err)
	require.Len(t, rec.Sent(), 1)
	assert.Equal(t, owner.ID, rec.Sent()[0].UserID)
	assert.Equal(t, notification.KindCareLog, rec.Sent()[0].Kind)

	name := "Sneaky"
	_, err = svc.Update(ctx, sitterU, rex.ID, Patch{Name: &name})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestHealthRecords(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	svc, _, _ := newService(t, now)
	rex, err := svc.Create(ctx, owner, Input{Name: "Rex", Species: "dog"})
	require.NoError(t, err)

	due := date.New(2027, time.March, 1)
	rec, err := svc.AddHealthRecord(ctx, owner, rex.ID, pet.HealthRecord{Kind: "vaccination", Title: "Rabies", NextDueOn: &due})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", rec.RecordedOn.String())

	early := date.New(2020, time.January, 1)
	_, err = svc.UpdateHealthRecord(ctx, owner, rex.ID, rec.ID, HealthPatch{NextDueOn: &early})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	vet := "Dr. Paws"
	updated, err := svc.UpdateHealthRecord(ctx, owner, rex.ID, rec.ID, HealthPatch{Vet: &vet})
	require.NoError(t, err)
	assert.Equal(t, vet, updated.Vet)

	_, err = svc.UpdateHealthRecord(ctx, stranger, rex.ID, rec.ID, HealthPatch{Vet: &vet})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	require.NoError(t, svc.DeleteHealthRecord(ctx, owner, rex.ID, rec.ID))
	items, err := svc.ListHealthRecords(ctx, owner, rex.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSendStreakReminders(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 19, 0, 0, 0, time.UTC)
	svc, _, rec := newService(t, now)

	rex, err := svc.Create(ctx, owner, Input{Name: "Rex", Species: "dog"})
	require.NoError(t, err)
	_, err = svc.LogMood(ctx, owner, rex.ID, pet.Mood{Mood: "calm", LoggedAt: now.Add(-24 * time.Hour)})
	require.NoError(t, err)

	tom, err := svc.Create(ctx, owner, Input{Name: "Tom", Species: "cat"})
	require.NoError(t, err)
	_, err = svc.LogMood(ctx, owner, tom.ID, pet.Mood{Mood: "calm"})
	require.NoError(t, err)

	sent, err := svc.SendStreakReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, rec.Sent(), 1)
	assert.Equal(t, rex.ID, rec.Sent()[0].RefID)
	assert.Equal(t, notification.KindStreakReminder, rec.Sent()[0].Kind)
}
