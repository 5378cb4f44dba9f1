package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pawmate/pawmate/internal/app/domain/booking"
	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/domain/notification"
	"github.com/pawmate/pawmate/internal/app/domain/sitter"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/metrics"
	"github.com/pawmate/pawmate/internal/app/services/notifications"
	"github.com/pawmate/pawmate/internal/app/storage"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/pkg/logger"
)

// MaxDays is the longest booking that can be requested.
const MaxDays = 60

// Role selects which side of the bookings a listing shows.
type Role string

const (
	AsOwner  Role = "owner"
	AsSitter Role = "sitter"
)

// Service manages bookings and their status workflow.
type Service struct {
	bookings storage.BookingStore
	pets     storage.PetStore
	sitters  storage.SitterStore
	notifier notifications.Notifier
	log      *logger.Logger
	now      func() time.Time
}

// New constructs a booking service.
func New(bookings storage.BookingStore, pets storage.PetStore, sitters storage.SitterStore, notifier notifications.Notifier, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("bookings")
	}
	if notifier == nil {
		notifier = notifications.Discard{}
	}
	return &Service{
		bookings: bookings,
		pets:     pets,
		sitters:  sitters,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Request describes a booking an owner wants to make.
type Request struct {
	SitterID  string
	PetID     string
	StartDate date.Date
	EndDate   date.Date
	Notes     string
}

// Create books an approved sitter for one of the caller's pets.
func (s *Service) Create(ctx context.Context, actor user.User, req Request) (booking.Booking, error) {
	today := s.today()
	switch {
	case req.StartDate.IsZero() || req.EndDate.IsZero():
		return booking.Booking{}, apperrors.InvalidInput("start_date and end_date are required")
	case req.EndDate.Before(req.StartDate):
		return booking.Booking{}, apperrors.InvalidInput("end_date must not be before start_date")
	case req.StartDate.Before(today):
		return booking.Booking{}, apperrors.InvalidInput("start_date cannot be in the past")
	case req.StartDate.DaysUntil(req.EndDate)+1 > MaxDays:
		return booking.Booking{}, apperrors.InvalidInput("bookings can span at most %d days", MaxDays)
	}

	p, err := s.pets.GetPet(ctx, req.PetID)
	if err != nil {
		return booking.Booking{}, storage.AsServiceError(err, "pet", req.PetID)
	}
	if p.OwnerID != actor.ID {
		return booking.Booking{}, apperrors.NotFound("pet", req.PetID)
	}

	profile, err := s.sitters.GetSitter(ctx, req.SitterID)
	if err != nil {
		return booking.Booking{}, storage.AsServiceError(err, "sitter", req.SitterID)
	}
	if profile.Status != sitter.StatusApproved {
		return booking.Booking{}, apperrors.NotFound("sitter", req.SitterID)
	}
	if profile.UserID == actor.ID {
		return booking.Booking{}, apperrors.InvalidInput("you cannot book yourself")
	}

	days, err := s.sitters.ListAvailability(ctx, profile.ID, req.StartDate, req.EndDate)
	if err != nil {
		return booking.Booking{}, storage.AsServiceError(err, "availability", profile.ID)
	}
	for _, d := range days {
		if !d.Available {
			return booking.Booking{}, apperrors.Conflict("sitter is unavailable on %s", d.Date).
				WithDetails("date", d.Date.String())
		}
	}

	b := booking.Booking{
		OwnerID:   actor.ID,
		SitterID:  profile.ID,
		PetID:     p.ID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    booking.StatusPending,
		Notes:     strings.TrimSpace(req.Notes),
	}
	b.PriceCents = int64(b.Days()) * profile.DailyRateCents

	created, err := s.bookings.CreateBooking(ctx, b)
	if err != nil {
		return booking.Booking{}, storage.AsServiceError(err, "booking", "")
	}
	metrics.RecordBookingTransition(string(created.Status))
	s.log.WithContext(ctx).
		WithField("booking_id", created.ID).
		WithField("sitter_id", profile.ID).
		WithField("price_cents", created.PriceCents).
		Info("booking requested")
	s.notifier.Notify(ctx, notification.Notification{
		UserID: profile.UserID,
		Kind:   notification.KindBooking,
		Title:  fmt.Sprintf("New booking request for %s", p.Name),
		Body:   fmt.Sprintf("%s to %s", created.StartDate, created.EndDate),
		RefID:  created.ID,
	})
	return created, nil
}

// Get returns a booking visible to the caller.
func (s *Service) Get(ctx context.Context, actor user.User, id string) (booking.Booking, error) {
	b, err := s.Lookup(ctx, id)
	if err != nil {
		return booking.Booking{}, err
	}
	if actor.IsAdmin() || b.OwnerID == actor.ID {
		return b, nil
	}
	sitterUser, err := s.sitterUserID(ctx, b)
	if err != nil {
		return booking.Booking{}, err
	}
	if sitterUser != actor.ID {
		return booking.Booking{}, apperrors.NotFound("booking", id)
	}
	return b, nil
}

// Lookup loads a booking without access checks.
func (s *Service) Lookup(ctx context.Context, id string) (booking.Booking, error) {
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return booking.Booking{}, storage.AsServiceError(err, "booking", id)
	}
	return b, nil
}

// List returns the caller's bookings as owner or sitter, newest first.
func (s *Service) List(ctx context.Context, actor user.User, as Role, status string) ([]booking.Booking, error) {
	filter := booking.Filter{}
	if status = strings.TrimSpace(status); status != "" {
		st, ok := booking.ParseStatus(status)
		if !ok {
			return nil, apperrors.InvalidInput("unknown booking status %q", status)
		}
		filter.Status = st
	}
	switch as {
	case "", AsOwner:
		filter.OwnerID = actor.ID
	case AsSitter:
		profile, err := s.sitters.GetSitterByUser(ctx, actor.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return []booking.Booking{}, nil
		}
		if err != nil {
			return nil, storage.AsServiceError(err, "sitter", "")
		}
		filter.SitterID = profile.ID
	default:
		return nil, apperrors.InvalidInput("as must be owner or sitter")
	}
	items, err := s.bookings.ListBookings(ctx, filter)
	if err != nil {
		return nil, storage.AsServiceError(err, "booking", "")
	}
	return items, nil
}

// Accept confirms a pending booking. It fails when the sitter already has an
// accepted booking overlapping the range.
func (s *Service) Accept(ctx context.Context, actor user.User, id string) (booking.Booking, error) {
	b, err := s.asSitter(ctx, actor, id)
	if err != nil {
		return booking.Booking{}, err
	}
	if !booking.CanTransition(b.Status, booking.StatusAccepted) {
		return booking.Booking{}, invalidTransition(b, booking.StatusAccepted)
	}
	accepted, err := s.bookings.ListBookings(ctx, booking.Filter{SitterID: b.SitterID, Status: booking.StatusAccepted})
	if err != nil {
		return booking.Booking{}, storage.AsServiceError(err, "booking", "")
	}
	for _, other := range accepted {
		if other.ID != b.ID && date.Overlaps(b.StartDate, b.EndDate, other.StartDate, other.EndDate) {
			return booking.Booking{}, apperrors.Conflict("overlaps accepted booking %s", other.ID).
				WithDetails("booking_id", other.ID)
		}
	}
	return s.transition(ctx, b, booking.StatusAccepted, b.OwnerID, "Your booking was accepted")
}

// Decline refuses a pending booking.
func (s *Service) Decline(ctx context.Context, actor user.User, id string) (booking.Booking, error) {
	b, err := s.asSitter(ctx, actor, id)
	if err != nil {
		return booking.Booking{}, err
	}
	return s.transition(ctx, b, booking.StatusDeclined, b.OwnerID, "Your booking was declined")
}

// Complete marks an accepted booking as done. It cannot happen before the
// booking starts.
func (s *Service) Complete(ctx context.Context, actor user.User, id string) (booking.Booking, error) {
	b, err := s.asSitter(ctx, actor, id)
	if err != nil {
		return booking.Booking{}, err
	}
	if b.Status == booking.StatusAccepted && s.today().Before(b.StartDate) {
		return booking.Booking{}, apperrors.Conflict("booking %s has not started yet", b.ID)
	}
	return s.transition(ctx, b, booking.StatusCompleted, b.OwnerID, "Your booking is complete; payment is due")
}

// Cancel withdraws a pending or accepted booking. Only the owner can cancel.
func (s *Service) Cancel(ctx context.Context, actor user.User, id string) (booking.Booking, error) {
	b, err := s.Lookup(ctx, id)
	if err != nil {
		return booking.Booking{}, err
	}
	if b.OwnerID != actor.ID {
		if _, err := s.Get(ctx, actor, id); err != nil {
			return booking.Booking{}, err
		}
		return booking.Booking{}, apperrors.Forbidden("only the owner can cancel a booking")
	}
	sitterUser, err := s.sitterUserID(ctx, b)
	if err != nil {
		return booking.Booking{}, err
	}
	return s.transition(ctx, b, booking.StatusCancelled, sitterUser, "A booking was cancelled")
}

// ClaimPayment moves a completed booking to paid before it is charged, so
// that of two concurrent payers only one reaches the gateway. The charge
// outcome is reported back with ReleasePayment or ConfirmPayment.
func (s *Service) ClaimPayment(ctx context.Context, id string) (booking.Booking, error) {
	b, err := s.Lookup(ctx, id)
	if err != nil {
		return booking.Booking{}, err
	}
	return s.move(ctx, b, booking.StatusPaid)
}

// ReleasePayment returns a claimed booking to completed after its charge
// failed.
func (s *Service) ReleasePayment(ctx context.Context, id string) error {
	if _, err := s.bookings.TransitionBooking(ctx, id, booking.StatusPaid, booking.StatusCompleted); err != nil {
		return storage.AsServiceError(err, "booking", id)
	}
	metrics.RecordBookingTransition(string(booking.StatusCompleted))
	s.log.WithContext(ctx).WithField("booking_id", id).Warn("payment claim released")
	return nil
}

// ConfirmPayment tells the sitter that a claimed booking was charged.
func (s *Service) ConfirmPayment(ctx context.Context, b booking.Booking) error {
	sitterUser, err := s.sitterUserID(ctx, b)
	if err != nil {
		return err
	}
	s.notify(ctx, b, sitterUser, "A booking was paid")
	return nil
}

// CompleteEnded completes accepted bookings whose end date is before today
// and asks their owners to pay. It returns how many were completed.
func (s *Service) CompleteEnded(ctx context.Context) (int, error) {
	ended, err := s.bookings.ListBookings(ctx, booking.Filter{Status: booking.StatusAccepted, EndBefore: s.today()})
	if err != nil {
		return 0, storage.AsServiceError(err, "booking", "")
	}
	completed := 0
	for _, b := range ended {
		if _, err := s.transition(ctx, b, booking.StatusCompleted, b.OwnerID, "Your booking has ended; payment is due"); err != nil {
			s.log.WithContext(ctx).WithError(err).WithField("booking_id", b.ID).Error("complete ended booking")
			continue
		}
		completed++
	}
	if completed > 0 {
		s.log.WithField("completed", completed).Info("ended bookings completed")
	}
	return completed, nil
}

// Participants returns the owner and the sitter's user id of a booking.
func (s *Service) Participants(ctx context.Context, id string) (string, string, error) {
	b, err := s.Lookup(ctx, id)
	if err != nil {
		return "", "", err
	}
	sitterUser, err := s.sitterUserID(ctx, b)
	if err != nil {
		return "", "", err
	}
	return b.OwnerID, sitterUser, nil
}

func (s *Service) asSitter(ctx context.Context, actor user.User, id string) (booking.Booking, error) {
	b, err := s.Get(ctx, actor, id)
	if err != nil {
		return booking.Booking{}, err
	}
	sitterUser, err := s.sitterUserID(ctx, b)
	if err != nil {
		return booking.Booking{}, err
	}
	if sitterUser != actor.ID {
		return booking.Booking{}, apperrors.Forbidden("only the sitter can do that")
	}
	return b, nil
}

func (s *Service) transition(ctx context.Context, b booking.Booking, to booking.Status, notify, title string) (booking.Booking, error) {
	updated, err := s.move(ctx, b, to)
	if err != nil {
		return booking.Booking{}, err
	}
	s.notify(ctx, updated, notify, title)
	return updated, nil
}

// move changes the status only if nobody else changed it since b was read.
func (s *Service) move(ctx context.Context, b booking.Booking, to booking.Status) (booking.Booking, error) {
	if !booking.CanTransition(b.Status, to) {
		return booking.Booking{}, invalidTransition(b, to)
	}
	updated, err := s.bookings.TransitionBooking(ctx, b.ID, b.Status, to)
	if errors.Is(err, storage.ErrConflict) {
		current, getErr := s.bookings.GetBooking(ctx, b.ID)
		if getErr != nil {
			return booking.Booking{}, storage.AsServiceError(getErr, "booking", b.ID)
		}
		return booking.Booking{}, invalidTransition(current, to)
	}
	if err != nil {
		return booking.Booking{}, storage.AsServiceError(err, "booking", b.ID)
	}
	metrics.RecordBookingTransition(string(to))
	s.log.WithContext(ctx).
		WithField("booking_id", b.ID).
		WithField("from", b.Status).
		WithField("to", to).
		Info("booking status changed")
	return updated, nil
}

func (s *Service) notify(ctx context.Context, b booking.Booking, userID, title string) {
	s.notifier.Notify(ctx, notification.Notification{
		UserID: userID,
		Kind:   notification.KindBooking,
		Title:  title,
		Body:   fmt.Sprintf("%s to %s", b.StartDate, b.EndDate),
		RefID:  b.ID,
	})
}

func (s *Service) sitterUserID(ctx context.Context, b booking.Booking) (string, error) {
	profile, err := s.sitters.GetSitter(ctx, b.SitterID)
	if err != nil {
		return "", storage.AsServiceError(err, "sitter", b.SitterID)
	}
	return profile.UserID, nil
}

func (s *Service) today() date.Date {
	return date.In(s.now(), time.UTC)
}

func invalidTransition(b booking.Booking, to booking.Status) error {
	return apperrors.Conflict("booking %s cannot move from %s to %s", b.ID, b.Status, to).
		WithDetails("status", string(b.Status))
}
