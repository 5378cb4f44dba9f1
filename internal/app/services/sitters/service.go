package sitters

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pawmate/pawmate/internal/app/domain/booking"
	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/domain/notification"
	"github.com/pawmate/pawmate/internal/app/domain/sitter"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/services/notifications"
	"github.com/pawmate/pawmate/internal/app/storage"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/pkg/logger"
)

const (
	maxAvailabilitySpan = 366
	defaultSearchLimit  = 20
	maxSearchLimit      = 100
)

// Service manages sitter profiles, availability and reviews.
type Service struct {
	sitters  storage.SitterStore
	bookings storage.BookingStore
	notifier notifications.Notifier
	log      *logger.Logger
	now      func() time.Time
}

// New constructs a sitter service.
func New(sitters storage.SitterStore, bookings storage.BookingStore, notifier notifications.Notifier, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("sitters")
	}
	if notifier == nil {
		notifier = notifications.Discard{}
	}
	return &Service{
		sitters:  sitters,
		bookings: bookings,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ProfileInput holds the editable fields of a sitter profile.
type ProfileInput struct {
	Bio             *string
	City            *string
	ExperienceYears *int
	DailyRateCents  *int64
	Services        []string
}

// CreateProfile opens a pending profile for a user with the sitter role.
func (s *Service) CreateProfile(ctx context.Context, actor user.User, in ProfileInput) (sitter.Profile, error) {
	if actor.Role != user.RoleSitter {
		return sitter.Profile{}, apperrors.Forbidden("only users with the sitter role can create a sitter profile")
	}
	p := sitter.Profile{UserID: actor.ID, Status: sitter.StatusPending, Services: []string{}}
	apply(&p, in)
	if err := validateProfile(p); err != nil {
		return sitter.Profile{}, err
	}
	created, err := s.sitters.CreateSitter(ctx, p)
	if errors.Is(err, storage.ErrConflict) {
		return sitter.Profile{}, apperrors.Conflict("user already has a sitter profile")
	}
	if err != nil {
		return sitter.Profile{}, storage.AsServiceError(err, "sitter", "")
	}
	s.log.WithContext(ctx).WithField("sitter_id", created.ID).Info("sitter profile created")
	return created, nil
}

// Get returns a profile. Profiles that are not approved are visible only to
// their owner and admins.
func (s *Service) Get(ctx context.Context, actor user.User, id string) (sitter.Profile, error) {
	p, err := s.sitters.GetSitter(ctx, id)
	if err != nil {
		return sitter.Profile{}, storage.AsServiceError(err, "sitter", id)
	}
	if p.Status != sitter.StatusApproved && p.UserID != actor.ID && !actor.IsAdmin() {
		return sitter.Profile{}, apperrors.NotFound("sitter", id)
	}
	return p, nil
}

// GetByUser returns the profile owned by userID.
func (s *Service) GetByUser(ctx context.Context, userID string) (sitter.Profile, error) {
	p, err := s.sitters.GetSitterByUser(ctx, userID)
	if err != nil {
		return sitter.Profile{}, storage.AsServiceError(err, "sitter profile for user", userID)
	}
	return p, nil
}

// UpdateProfile edits the caller's profile. A rejected profile goes back to
// pending review.
func (s *Service) UpdateProfile(ctx context.Context, actor user.User, in ProfileInput) (sitter.Profile, error) {
	p, err := s.GetByUser(ctx, actor.ID)
	if err != nil {
		return sitter.Profile{}, err
	}
	apply(&p, in)
	if err := validateProfile(p); err != nil {
		return sitter.Profile{}, err
	}
	if p.Status == sitter.StatusRejected {
		p.Status = sitter.StatusPending
	}
	updated, err := s.sitters.UpdateSitter(ctx, p)
	if err != nil {
		return sitter.Profile{}, storage.AsServiceError(err, "sitter", p.ID)
	}
	return updated, nil
}

// Search lists approved sitters ordered by rating.
func (s *Service) Search(ctx context.Context, filter sitter.SearchFilter) ([]sitter.Profile, error) {
	filter.City = strings.TrimSpace(filter.City)
	if filter.MinRating < 0 || filter.MinRating > 5 {
		return nil, apperrors.InvalidInput("min_rating must be between 0 and 5")
	}
	if filter.MaxDailyRate < 0 {
		return nil, apperrors.InvalidInput("max_daily_rate cannot be negative")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultSearchLimit
	}
	if filter.Limit > maxSearchLimit {
		filter.Limit = maxSearchLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	items, err := s.sitters.SearchSitters(ctx, filter)
	if err != nil {
		return nil, storage.AsServiceError(err, "sitter", "")
	}
	return items, nil
}

// ListByStatus lists profiles for admin review.
func (s *Service) ListByStatus(ctx context.Context, actor user.User, status string) ([]sitter.Profile, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("admin role required")
	}
	st := sitter.Status(strings.ToLower(strings.TrimSpace(status)))
	switch st {
	case "", sitter.StatusPending, sitter.StatusApproved, sitter.StatusRejected:
	default:
		return nil, apperrors.InvalidInput("unknown sitter status %q", status)
	}
	items, err := s.sitters.ListSittersByStatus(ctx, st)
	if err != nil {
		return nil, storage.AsServiceError(err, "sitter", "")
	}
	return items, nil
}

// Approve publishes a profile in search.
func (s *Service) Approve(ctx context.Context, actor user.User, id string) (sitter.Profile, error) {
	return s.review(ctx, actor, id, sitter.StatusApproved, "")
}

// Reject hides a profile; reason is passed on to the sitter.
func (s *Service) Reject(ctx context.Context, actor user.User, id, reason string) (sitter.Profile, error) {
	return s.review(ctx, actor, id, sitter.StatusRejected, strings.TrimSpace(reason))
}

func (s *Service) review(ctx context.Context, actor user.User, id string, status sitter.Status, reason string) (sitter.Profile, error) {
	if !actor.IsAdmin() {
		return sitter.Profile{}, apperrors.Forbidden("admin role required")
	}
	p, err := s.sitters.GetSitter(ctx, id)
	if err != nil {
		return sitter.Profile{}, storage.AsServiceError(err, "sitter", id)
	}
	if p.Status == status {
		return p, nil
	}
	p.Status = status
	updated, err := s.sitters.UpdateSitter(ctx, p)
	if err != nil {
		return sitter.Profile{}, storage.AsServiceError(err, "sitter", id)
	}

	s.log.WithContext(ctx).
		WithField("sitter_id", id).
		WithField("status", status).
		WithField("admin_id", actor.ID).
		Info("sitter profile reviewed")
	s.notifier.Notify(ctx, notification.Notification{
		UserID: p.UserID,
		Kind:   notification.KindSitterStatus,
		Title:  fmt.Sprintf("Your sitter profile was %s", status),
		Body:   reason,
		RefID:  p.ID,
	})
	return updated, nil
}

// SetAvailability upserts the caller's availability for the given days.
func (s *Service) SetAvailability(ctx context.Context, actor user.User, days []sitter.Availability) ([]sitter.Availability, error) {
	p, err := s.GetByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, apperrors.InvalidInput("at least one day is required")
	}
	if len(days) > maxAvailabilitySpan {
		return nil, apperrors.InvalidInput("at most %d days per request", maxAvailabilitySpan)
	}
	today := date.In(s.now(), time.UTC)
	seen := make(map[string]bool, len(days))
	for i := range days {
		d := &days[i]
		switch {
		case d.Date.IsZero():
			return nil, apperrors.InvalidInput("date is required")
		case d.Date.Before(today):
			return nil, apperrors.InvalidInput("date %s is in the past", d.Date)
		case seen[d.Date.String()]:
			return nil, apperrors.InvalidInput("date %s listed twice", d.Date)
		}
		seen[d.Date.String()] = true
		d.SitterID = p.ID
		d.Note = strings.TrimSpace(d.Note)
	}
	if err := s.sitters.UpsertAvailability(ctx, days); err != nil {
		return nil, storage.AsServiceError(err, "sitter", p.ID)
	}
	return days, nil
}

// Availability lists a sitter's availability between from and to inclusive.
// Zero bounds default to today and 30 days later.
func (s *Service) Availability(ctx context.Context, sitterID string, from, to date.Date) ([]sitter.Availability, error) {
	if from.IsZero() {
		from = date.In(s.now(), time.UTC)
	}
	if to.IsZero() {
		to = from.AddDays(30)
	}
	if to.Before(from) {
		return nil, apperrors.InvalidInput("to must not be before from")
	}
	if from.DaysUntil(to)+1 > maxAvailabilitySpan {
		return nil, apperrors.InvalidInput("range must span at most %d days", maxAvailabilitySpan)
	}
	if _, err := s.sitters.GetSitter(ctx, sitterID); err != nil {
		return nil, storage.AsServiceError(err, "sitter", sitterID)
	}
	items, err := s.sitters.ListAvailability(ctx, sitterID, from, to)
	if err != nil {
		return nil, storage.AsServiceError(err, "availability", sitterID)
	}
	return items, nil
}

// AddReview rates the sitter of a finished booking and refreshes the
// sitter's rating.
func (s *Service) AddReview(ctx context.Context, actor user.User, bookingID string, rating int, comment string) (sitter.Review, error) {
	if rating < 1 || rating > 5 {
		return sitter.Review{}, apperrors.InvalidInput("rating must be between 1 and 5")
	}
	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return sitter.Review{}, storage.AsServiceError(err, "booking", bookingID)
	}
	if b.OwnerID != actor.ID {
		return sitter.Review{}, apperrors.Forbidden("only the booking owner can review it")
	}
	if b.Status != booking.StatusCompleted && b.Status != booking.StatusPaid {
		return sitter.Review{}, apperrors.Conflict("booking %s is %s; only completed bookings can be reviewed", b.ID, b.Status)
	}

	review, err := s.sitters.CreateReview(ctx, sitter.Review{
		SitterID:   b.SitterID,
		BookingID:  b.ID,
		ReviewerID: actor.ID,
		Rating:     rating,
		Comment:    strings.TrimSpace(comment),
	})
	if errors.Is(err, storage.ErrConflict) {
		return sitter.Review{}, apperrors.Conflict("booking %s has already been reviewed", b.ID)
	}
	if err != nil {
		return sitter.Review{}, storage.AsServiceError(err, "review", "")
	}

	profile, err := s.refreshRating(ctx, b.SitterID)
	if err != nil {
		return sitter.Review{}, err
	}
	s.notifier.Notify(ctx, notification.Notification{
		UserID: profile.UserID,
		Kind:   notification.KindReview,
		Title:  fmt.Sprintf("You received a %d-star review", rating),
		Body:   review.Comment,
		RefID:  b.ID,
	})
	return review, nil
}

// Reviews lists a sitter's reviews, newest first.
func (s *Service) Reviews(ctx context.Context, sitterID string) ([]sitter.Review, error) {
	items, err := s.sitters.ListReviews(ctx, sitterID)
	if err != nil {
		return nil, storage.AsServiceError(err, "review", "")
	}
	return items, nil
}

func (s *Service) refreshRating(ctx context.Context, sitterID string) (sitter.Profile, error) {
	reviews, err := s.sitters.ListReviews(ctx, sitterID)
	if err != nil {
		return sitter.Profile{}, storage.AsServiceError(err, "review", "")
	}
	p, err := s.sitters.GetSitter(ctx, sitterID)
	if err != nil {
		return sitter.Profile{}, storage.AsServiceError(err, "sitter", sitterID)
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	p.ReviewCount = len(reviews)
	p.Rating = 0
	if len(reviews) > 0 {
		p.Rating = math.Round(float64(total)/float64(len(reviews))*100) / 100
	}
	updated, err := s.sitters.UpdateSitter(ctx, p)
	if err != nil {
		return sitter.Profile{}, storage.AsServiceError(err, "sitter", sitterID)
	}
	return updated, nil
}

func apply(p *sitter.Profile, in ProfileInput) {
	if in.Bio != nil {
		p.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.City != nil {
		p.City = strings.TrimSpace(*in.City)
	}
	if in.ExperienceYears != nil {
		p.ExperienceYears = *in.ExperienceYears
	}
	if in.DailyRateCents != nil {
		p.DailyRateCents = *in.DailyRateCents
	}
	if in.Services != nil {
		services := make([]string, 0, len(in.Services))
		seen := map[string]bool{}
		for _, svc := range in.Services {
			svc = strings.ToLower(strings.TrimSpace(svc))
			if svc != "" && !seen[svc] {
				seen[svc] = true
				services = append(services, svc)
			}
		}
		p.Services = services
	}
}

func validateProfile(p sitter.Profile) error {
	switch {
	case p.City == "":
		return apperrors.InvalidInput("city is required")
	case p.ExperienceYears < 0 || p.ExperienceYears > 80:
		return apperrors.InvalidInput("experience_years must be between 0 and 80")
	case p.DailyRateCents <= 0:
		return apperrors.InvalidInput("daily_rate_cents must be positive")
	case len(p.Bio) > 2000:
		return apperrors.InvalidInput("bio must be at most 2000 characters")
	}
	for _, svc := range p.Services {
		if !known(svc) {
			return apperrors.InvalidInput("unknown service %q", svc)
		}
	}
	return nil
}

func known(svc string) bool {
	for _, s := range sitter.Services {
		if s == svc {
			return true
		}
	}
	return false
}
