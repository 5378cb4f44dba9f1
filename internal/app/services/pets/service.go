package pets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pawmate/pawmate/internal/app/domain/booking"
	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/domain/notification"
	"github.com/pawmate/pawmate/internal/app/domain/pet"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/services/notifications"
	"github.com/pawmate/pawmate/internal/app/storage"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/pkg/logger"
)

// Access is the level of access a caller needs on a pet.
type Access int

const (
	// AccessCare allows reading the pet and adding logs.
	AccessCare Access = iota
	// AccessManage allows editing and deleting.
	AccessManage
)

// clockSkew is how far in the future a logged_at may be.
const clockSkew = time.Minute

// Service manages pets, their care logs and health history.
type Service struct {
	pets     storage.PetStore
	bookings storage.BookingStore
	sitters  storage.SitterStore
	notifier notifications.Notifier
	log      *logger.Logger
	now      func() time.Time
}

// New constructs a pet service.
func New(pets storage.PetStore, bookings storage.BookingStore, sitters storage.SitterStore, notifier notifications.Notifier, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("pets")
	}
	if notifier == nil {
		notifier = notifications.Discard{}
	}
	return &Service{
		pets:     pets,
		bookings: bookings,
		sitters:  sitters,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Authorize loads a pet and checks that actor has the requested access.
// Owners and admins have full access. A sitter with an accepted booking
// covering today has care access.
func (s *Service) Authorize(ctx context.Context, actor user.User, petID string, access Access) (pet.Pet, error) {
	p, err := s.pets.GetPet(ctx, petID)
	if err != nil {
		return pet.Pet{}, storage.AsServiceError(err, "pet", petID)
	}
	if p.OwnerID == actor.ID || actor.IsAdmin() {
		return p, nil
	}
	if access == AccessCare && actor.Role == user.RoleSitter {
		caring, err := s.caringFor(ctx, actor, petID)
		if err != nil {
			return pet.Pet{}, err
		}
		if caring {
			return p, nil
		}
	}
	// Pets of other users are reported as missing.
	return pet.Pet{}, apperrors.NotFound("pet", petID)
}

func (s *Service) caringFor(ctx context.Context, actor user.User, petID string) (bool, error) {
	if s.sitters == nil || s.bookings == nil {
		return false, nil
	}
	profile, err := s.sitters.GetSitterByUser(ctx, actor.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storage.AsServiceError(err, "sitter", "")
	}
	active, err := s.bookings.ListBookings(ctx, booking.Filter{
		SitterID: profile.ID,
		PetID:    petID,
		Status:   booking.StatusAccepted,
		Covering: date.In(s.now(), time.UTC),
	})
	if err != nil {
		return false, storage.AsServiceError(err, "booking", "")
	}
	return len(active) > 0, nil
}

// Input holds the editable fields of a pet.
type Input struct {
	Name      string
	Species   string
	Breed     string
	Gender    string
	BirthDate *date.Date
	WeightKg  float64
	PhotoURL  string
	Notes     string
}

// Patch carries optional pet changes.
type Patch struct {
	Name      *string
	Species   *string
	Breed     *string
	Gender    *string
	BirthDate *date.Date
	WeightKg  *float64
	PhotoURL  *string
	Notes     *string
}

// Create registers a pet owned by actor.
func (s *Service) Create(ctx context.Context, actor user.User, in Input) (pet.Pet, error) {
	p := pet.Pet{
		OwnerID:   actor.ID,
		Name:      strings.TrimSpace(in.Name),
		Species:   strings.ToLower(strings.TrimSpace(in.Species)),
		Breed:     strings.TrimSpace(in.Breed),
		Gender:    strings.ToLower(strings.TrimSpace(in.Gender)),
		BirthDate: in.BirthDate,
		WeightKg:  in.WeightKg,
		PhotoURL:  strings.TrimSpace(in.PhotoURL),
		Notes:     strings.TrimSpace(in.Notes),
	}
	if err := s.validatePet(p); err != nil {
		return pet.Pet{}, err
	}
	created, err := s.pets.CreatePet(ctx, p)
	if err != nil {
		return pet.Pet{}, storage.AsServiceError(err, "pet", "")
	}
	s.log.WithContext(ctx).WithField("pet_id", created.ID).Info("pet created")
	return created, nil
}

// Get returns a pet the caller may see.
func (s *Service) Get(ctx context.Context, actor user.User, id string) (pet.Pet, error) {
	return s.Authorize(ctx, actor, id, AccessCare)
}

// List returns the caller's pets.
func (s *Service) List(ctx context.Context, actor user.User) ([]pet.Pet, error) {
	items, err := s.pets.ListPets(ctx, actor.ID)
	if err != nil {
		return nil, storage.AsServiceError(err, "pet", "")
	}
	return items, nil
}

// Update applies a patch to a pet.
func (s *Service) Update(ctx context.Context, actor user.User, id string, patch Patch) (pet.Pet, error) {
	p, err := s.Authorize(ctx, actor, id, AccessManage)
	if err != nil {
		return pet.Pet{}, err
	}
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Species != nil {
		p.Species = strings.ToLower(strings.TrimSpace(*patch.Species))
	}
	if patch.Breed != nil {
		p.Breed = strings.TrimSpace(*patch.Breed)
	}
	if patch.Gender != nil {
		p.Gender = strings.ToLower(strings.TrimSpace(*patch.Gender))
	}
	if patch.BirthDate != nil {
		p.BirthDate = patch.BirthDate
	}
	if patch.WeightKg != nil {
		p.WeightKg = *patch.WeightKg
	}
	if patch.PhotoURL != nil {
		p.PhotoURL = strings.TrimSpace(*patch.PhotoURL)
	}
	if patch.Notes != nil {
		p.Notes = strings.TrimSpace(*patch.Notes)
	}
	if err := s.validatePet(p); err != nil {
		return pet.Pet{}, err
	}
	updated, err := s.pets.UpdatePet(ctx, p)
	if err != nil {
		return pet.Pet{}, storage.AsServiceError(err, "pet", id)
	}
	return updated, nil
}

// Delete removes a pet with its logs and records.
func (s *Service) Delete(ctx context.Context, actor user.User, id string) error {
	if _, err := s.Authorize(ctx, actor, id, AccessManage); err != nil {
		return err
	}
	if err := s.pets.DeletePet(ctx, id); err != nil {
		return storage.AsServiceError(err, "pet", id)
	}
	s.log.WithContext(ctx).WithField("pet_id", id).Info("pet deleted")
	return nil
}

func (s *Service) validatePet(p pet.Pet) error {
	switch {
	case p.Name == "":
		return apperrors.InvalidInput("name is required")
	case len(p.Name) > 80:
		return apperrors.InvalidInput("name must be at most 80 characters")
	case !oneOf(p.Species, pet.Species):
		return apperrors.InvalidInput("species must be one of %s", strings.Join(pet.Species, ", "))
	case p.Gender != "" && p.Gender != "male" && p.Gender != "female":
		return apperrors.InvalidInput("gender must be male or female")
	case p.WeightKg < 0 || p.WeightKg > 200:
		return apperrors.InvalidInput("weight_kg must be between 0 and 200")
	case p.BirthDate != nil && p.BirthDate.After(date.In(s.now(), time.UTC)):
		return apperrors.InvalidInput("birth_date cannot be in the future")
	}
	return nil
}

// LogActivity records an activity and refreshes the streak.
func (s *Service) LogActivity(ctx context.Context, actor user.User, petID string, a pet.Activity) (pet.Activity, error) {
	p, err := s.Authorize(ctx, actor, petID, AccessCare)
	if err != nil {
		return pet.Activity{}, err
	}
	a.Kind = strings.ToLower(strings.TrimSpace(a.Kind))
	if !oneOf(a.Kind, pet.ActivityKinds) {
		return pet.Activity{}, apperrors.InvalidInput("kind must be one of %s", strings.Join(pet.ActivityKinds, ", "))
	}
	if a.DurationMinutes < 0 || a.DurationMinutes > 24*60 {
		return pet.Activity{}, apperrors.InvalidInput("duration_minutes must be between 0 and 1440")
	}
	if a.DistanceKm < 0 {
		return pet.Activity{}, apperrors.InvalidInput("distance_km cannot be negative")
	}
	if a.LoggedAt, err = s.loggedAt(a.LoggedAt); err != nil {
		return pet.Activity{}, err
	}
	a.ID, a.PetID, a.LoggedBy = "", petID, actor.ID
	a.Notes = strings.TrimSpace(a.Notes)

	created, err := s.pets.CreateActivity(ctx, a)
	if err != nil {
		return pet.Activity{}, storage.AsServiceError(err, "activity", "")
	}
	s.afterLog(ctx, actor, p, "activity")
	return created, nil
}

// LogMeal records a meal and refreshes the streak.
func (s *Service) LogMeal(ctx context.Context, actor user.User, petID string, m pet.Meal) (pet.Meal, error) {
	p, err := s.Authorize(ctx, actor, petID, AccessCare)
	if err != nil {
		return pet.Meal{}, err
	}
	m.Food = strings.TrimSpace(m.Food)
	m.MealType = strings.ToLower(strings.TrimSpace(m.MealType))
	if m.Food == "" {
		return pet.Meal{}, apperrors.InvalidInput("food is required")
	}
	if !oneOf(m.MealType, pet.MealTypes) {
		return pet.Meal{}, apperrors.InvalidInput("meal_type must be one of %s", strings.Join(pet.MealTypes, ", "))
	}
	if m.AmountGrams < 0 {
		return pet.Meal{}, apperrors.InvalidInput("amount_grams cannot be negative")
	}
	if m.LoggedAt, err = s.loggedAt(m.LoggedAt); err != nil {
		return pet.Meal{}, err
	}
	m.ID, m.PetID, m.LoggedBy = "", petID, actor.ID
	m.Notes = strings.TrimSpace(m.Notes)

	created, err := s.pets.CreateMeal(ctx, m)
	if err != nil {
		return pet.Meal{}, storage.AsServiceError(err, "meal", "")
	}
	s.afterLog(ctx, actor, p, "meal")
	return created, nil
}

// LogMood records a mood observation and refreshes the streak.
func (s *Service) LogMood(ctx context.Context, actor user.User, petID string, m pet.Mood) (pet.Mood, error) {
	p, err := s.Authorize(ctx, actor, petID, AccessCare)
	if err != nil {
		return pet.Mood{}, err
	}
	m.Mood = strings.ToLower(strings.TrimSpace(m.Mood))
	if !oneOf(m.Mood, pet.Moods) {
		return pet.Mood{}, apperrors.InvalidInput("mood must be one of %s", strings.Join(pet.Moods, ", "))
	}
	if m.LoggedAt, err = s.loggedAt(m.LoggedAt); err != nil {
		return pet.Mood{}, err
	}
	m.ID, m.PetID, m.LoggedBy = "", petID, actor.ID
	m.Notes = strings.TrimSpace(m.Notes)

	created, err := s.pets.CreateMood(ctx, m)
	if err != nil {
		return pet.Mood{}, storage.AsServiceError(err, "mood", "")
	}
	s.afterLog(ctx, actor, p, "mood")
	return created, nil
}

func (s *Service) ListActivities(ctx context.Context, actor user.User, petID string) ([]pet.Activity, error) {
	if _, err := s.Authorize(ctx, actor, petID, AccessCare); err != nil {
		return nil, err
	}
	items, err := s.pets.ListActivities(ctx, petID)
	return items, storage.AsServiceError(err, "activity", "")
}

func (s *Service) ListMeals(ctx context.Context, actor user.User, petID string) ([]pet.Meal, error) {
	if _, err := s.Authorize(ctx, actor, petID, AccessCare); err != nil {
		return nil, err
	}
	items, err := s.pets.ListMeals(ctx, petID)
	return items, storage.AsServiceError(err, "meal", "")
}

func (s *Service) ListMoods(ctx context.Context, actor user.User, petID string) ([]pet.Mood, error) {
	if _, err := s.Authorize(ctx, actor, petID, AccessCare); err != nil {
		return nil, err
	}
	items, err := s.pets.ListMoods(ctx, petID)
	return items, storage.AsServiceError(err, "mood", "")
}

// DeleteLog removes an activity, meal or mood entry and refreshes the streak.
func (s *Service) DeleteLog(ctx context.Context, actor user.User, kind pet.LogKind, petID, id string) error {
	switch kind {
	case pet.LogActivity, pet.LogMeal, pet.LogMood:
	default:
		return apperrors.InvalidInput("unknown log kind %q", kind)
	}
	if _, err := s.Authorize(ctx, actor, petID, AccessManage); err != nil {
		return err
	}
	if err := s.pets.DeleteLog(ctx, kind, petID, id); err != nil {
		return storage.AsServiceError(err, strings.TrimSuffix(string(kind), "s"), id)
	}
	s.refreshStreak(ctx, petID)
	return nil
}

func (s *Service) loggedAt(t time.Time) (time.Time, error) {
	now := s.now()
	if t.IsZero() {
		return now, nil
	}
	if t.After(now.Add(clockSkew)) {
		return time.Time{}, apperrors.InvalidInput("logged_at cannot be in the future")
	}
	return t.UTC(), nil
}

// afterLog refreshes the streak and tells the owner when someone else logged.
func (s *Service) afterLog(ctx context.Context, actor user.User, p pet.Pet, what string) {
	s.refreshStreak(ctx, p.ID)
	if actor.ID == p.OwnerID {
		return
	}
	s.notifier.Notify(ctx, notification.Notification{
		UserID: p.OwnerID,
		Kind:   notification.KindCareLog,
		Title:  fmt.Sprintf("New %s logged for %s", what, p.Name),
		RefID:  p.ID,
	})
}

// refreshStreak recomputes the cached streak columns in UTC. Failures are
// logged; the log entry itself has already been stored.
func (s *Service) refreshStreak(ctx context.Context, petID string) {
	log := s.log.WithContext(ctx).WithField("pet_id", petID)
	times, err := s.pets.LogTimes(ctx, petID)
	if err != nil {
		log.WithError(err).Error("load log times")
		return
	}
	p, err := s.pets.GetPet(ctx, petID)
	if err != nil {
		log.WithError(err).Error("load pet for streak")
		return
	}
	summary := ComputeStreak(times, time.UTC, date.In(s.now(), time.UTC))
	p.Streak = summary.Current
	p.LongestStreak = summary.Longest
	p.LastLoggedOn = summary.Last
	if _, err := s.pets.UpdatePet(ctx, p); err != nil {
		log.WithError(err).Error("save streak")
	}
}

// Streak computes the streak of a pet in the named IANA zone (UTC when empty).
func (s *Service) Streak(ctx context.Context, actor user.User, petID, tz string) (pet.Streak, error) {
	if _, err := s.Authorize(ctx, actor, petID, AccessCare); err != nil {
		return pet.Streak{}, err
	}
	loc := time.UTC
	if tz = strings.TrimSpace(tz); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return pet.Streak{}, apperrors.InvalidInput("unknown time zone %q", tz)
		}
		loc = parsed
	}
	times, err := s.pets.LogTimes(ctx, petID)
	if err != nil {
		return pet.Streak{}, storage.AsServiceError(err, "pet", petID)
	}
	summary := ComputeStreak(times, loc, date.In(s.now(), loc))
	return pet.Streak{
		PetID:        petID,
		Current:      summary.Current,
		Longest:      summary.Longest,
		LastLoggedOn: summary.Last,
		LoggedToday:  summary.LoggedToday,
		TimeZone:     loc.String(),
	}, nil
}

// SendStreakReminders notifies owners whose pets logged yesterday but not yet
// today, so the streak is about to break. It returns how many were sent.
func (s *Service) SendStreakReminders(ctx context.Context) (int, error) {
	today := date.In(s.now(), time.UTC)
	candidates, err := s.pets.ListStreakingPets(ctx, today)
	if err != nil {
		return 0, storage.AsServiceError(err, "pet", "")
	}
	sent := 0
	for _, p := range candidates {
		if p.LastLoggedOn == nil || !p.LastLoggedOn.Equal(today.AddDays(-1)) {
			continue
		}
		s.notifier.Notify(ctx, notification.Notification{
			UserID: p.OwnerID,
			Kind:   notification.KindStreakReminder,
			Title:  fmt.Sprintf("Keep %s's %d-day streak going", p.Name, p.Streak),
			Body:   "Log an activity, meal or mood today.",
			RefID:  p.ID,
		})
		sent++
	}
	s.log.WithField("sent", sent).Info("streak reminders sent")
	return sent, nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
