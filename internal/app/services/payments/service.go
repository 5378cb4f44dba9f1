package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pawmate/pawmate/internal/app/domain/booking"
	"github.com/pawmate/pawmate/internal/app/domain/notification"
	"github.com/pawmate/pawmate/internal/app/domain/payment"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/metrics"
	"github.com/pawmate/pawmate/internal/app/services/notifications"
	"github.com/pawmate/pawmate/internal/app/storage"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/pkg/logger"
)

// BookingLedger is the part of the booking service payments depend on.
type BookingLedger interface {
	Get(ctx context.Context, actor user.User, id string) (booking.Booking, error)
	ClaimPayment(ctx context.Context, id string) (booking.Booking, error)
	ReleasePayment(ctx context.Context, id string) error
	ConfirmPayment(ctx context.Context, b booking.Booking) error
}

// CardInput is a card as entered by the user. Only brand, last four digits
// and expiry are persisted.
type CardInput struct {
	Number     string `validate:"required,credit_card"`
	ExpMonth   int    `validate:"min=1,max=12"`
	ExpYear    int    `validate:"min=2000,max=2100"`
	HolderName string `validate:"max=120"`
}

// Service manages payment methods and booking payments.
type Service struct {
	store    storage.PaymentStore
	bookings BookingLedger
	gateway  Gateway
	notifier notifications.Notifier
	validate *validator.Validate
	log      *logger.Logger
	now      func() time.Time
}

// New constructs a payment service. A nil gateway uses the ledger gateway.
func New(store storage.PaymentStore, bookings BookingLedger, gateway Gateway, notifier notifications.Notifier, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("payments")
	}
	if gateway == nil {
		gateway = NewLedgerGateway()
	}
	if notifier == nil {
		notifier = notifications.Discard{}
	}
	return &Service{
		store:    store,
		bookings: bookings,
		gateway:  gateway,
		notifier: notifier,
		validate: validator.New(),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddMethod stores a card for the caller. The first card becomes the default.
func (s *Service) AddMethod(ctx context.Context, actor user.User, card CardInput) (payment.Method, error) {
	card.Number = strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, card.Number)
	card.HolderName = strings.TrimSpace(card.HolderName)
	if err := s.validate.Struct(card); err != nil {
		return payment.Method{}, apperrors.InvalidInput("invalid card: %s", describe(err))
	}
	m := payment.Method{
		UserID:     actor.ID,
		Brand:      brand(card.Number),
		Last4:      card.Number[len(card.Number)-4:],
		ExpMonth:   card.ExpMonth,
		ExpYear:    card.ExpYear,
		HolderName: card.HolderName,
	}
	if m.Expired(s.now()) {
		return payment.Method{}, apperrors.InvalidInput("card is expired")
	}
	existing, err := s.store.ListPaymentMethods(ctx, actor.ID)
	if err != nil {
		return payment.Method{}, storage.AsServiceError(err, "payment method", "")
	}
	m.IsDefault = len(existing) == 0

	created, err := s.store.CreatePaymentMethod(ctx, m)
	if err != nil {
		return payment.Method{}, storage.AsServiceError(err, "payment method", "")
	}
	s.log.WithContext(ctx).
		WithField("method_id", created.ID).
		WithField("brand", created.Brand).
		Info("payment method added")
	return created, nil
}

// ListMethods returns the caller's payment methods.
func (s *Service) ListMethods(ctx context.Context, actor user.User) ([]payment.Method, error) {
	items, err := s.store.ListPaymentMethods(ctx, actor.ID)
	if err != nil {
		return nil, storage.AsServiceError(err, "payment method", "")
	}
	return items, nil
}

// DeleteMethod removes a card. Deleting the default promotes the oldest
// remaining card.
func (s *Service) DeleteMethod(ctx context.Context, actor user.User, id string) error {
	m, err := s.method(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.store.DeletePaymentMethod(ctx, id); err != nil {
		return storage.AsServiceError(err, "payment method", id)
	}
	if !m.IsDefault {
		return nil
	}
	remaining, err := s.store.ListPaymentMethods(ctx, actor.ID)
	if err != nil {
		return storage.AsServiceError(err, "payment method", "")
	}
	if len(remaining) > 0 {
		return storage.AsServiceError(s.store.SetDefaultPaymentMethod(ctx, actor.ID, remaining[0].ID), "payment method", remaining[0].ID)
	}
	return nil
}

// SetDefault makes a card the caller's default.
func (s *Service) SetDefault(ctx context.Context, actor user.User, id string) (payment.Method, error) {
	m, err := s.method(ctx, actor, id)
	if err != nil {
		return payment.Method{}, err
	}
	if err := s.store.SetDefaultPaymentMethod(ctx, actor.ID, id); err != nil {
		return payment.Method{}, storage.AsServiceError(err, "payment method", id)
	}
	m.IsDefault = true
	return m, nil
}

// PayBooking charges the owner of a completed booking. methodID may be empty
// to use the default card. A declined charge is recorded as failed.
func (s *Service) PayBooking(ctx context.Context, actor user.User, bookingID, methodID string) (payment.Payment, error) {
	b, err := s.bookings.Get(ctx, actor, bookingID)
	if err != nil {
		return payment.Payment{}, err
	}
	if b.OwnerID != actor.ID {
		return payment.Payment{}, apperrors.Forbidden("only the booking owner can pay")
	}
	switch b.Status {
	case booking.StatusCompleted:
	case booking.StatusPaid:
		return payment.Payment{}, apperrors.Conflict("booking %s is already paid", b.ID)
	default:
		return payment.Payment{}, apperrors.Conflict("booking %s is %s; only completed bookings can be paid", b.ID, b.Status)
	}

	m, err := s.payWith(ctx, actor, methodID)
	if err != nil {
		return payment.Payment{}, err
	}

	p := payment.Payment{
		BookingID:   b.ID,
		PayerID:     actor.ID,
		MethodID:    m.ID,
		AmountCents: b.PriceCents,
		Currency:    payment.Currency,
	}
	log := s.log.WithContext(ctx).WithField("booking_id", b.ID).WithField("method_id", m.ID)

	// Only the caller that wins the claim is charged.
	claimed, err := s.bookings.ClaimPayment(ctx, b.ID)
	if err != nil {
		return payment.Payment{}, err
	}

	ref, chargeErr := s.gateway.Charge(ctx, Charge{BookingID: b.ID, Method: m, AmountCents: p.AmountCents, Currency: p.Currency})
	if chargeErr != nil {
		if err := s.bookings.ReleasePayment(ctx, b.ID); err != nil {
			log.WithError(err).Error("release payment claim")
		}
		p.Status = payment.StatusFailed
		p.FailReason = chargeErr.Error()
		if _, err := s.store.CreatePayment(ctx, p); err != nil {
			log.WithError(err).Error("record failed payment")
		}
		metrics.RecordPayment(string(p.Status), 0)
		log.WithError(chargeErr).Warn("charge failed")
		return payment.Payment{}, apperrors.PaymentFailed("payment was declined", chargeErr)
	}

	p.Status = payment.StatusSucceeded
	p.Reference = ref
	created, err := s.store.CreatePayment(ctx, p)
	if errors.Is(err, storage.ErrConflict) {
		log.WithField("reference", ref).Error("booking already has a settled payment")
		return payment.Payment{}, apperrors.Conflict("booking %s is already paid", b.ID)
	}
	if err != nil {
		log.WithError(err).WithField("reference", ref).Error("record settled payment")
		return payment.Payment{}, storage.AsServiceError(err, "payment", "")
	}
	if err := s.bookings.ConfirmPayment(ctx, claimed); err != nil {
		log.WithError(err).Warn("notify sitter of payment")
	}

	metrics.RecordPayment(string(created.Status), created.AmountCents)
	log.WithField("payment_id", created.ID).WithField("amount_cents", created.AmountCents).Info("booking paid")
	s.notifier.Notify(ctx, notification.Notification{
		UserID: actor.ID,
		Kind:   notification.KindPayment,
		Title:  fmt.Sprintf("Payment of %s received", formatCents(created.AmountCents)),
		Body:   fmt.Sprintf("%s ending in %s", m.Brand, m.Last4),
		RefID:  created.ID,
	})
	return created, nil
}

// ListPayments returns the caller's payments, newest first.
func (s *Service) ListPayments(ctx context.Context, actor user.User) ([]payment.Payment, error) {
	items, err := s.store.ListPaymentsByUser(ctx, actor.ID)
	if err != nil {
		return nil, storage.AsServiceError(err, "payment", "")
	}
	return items, nil
}

// ListBookingPayments returns the payment attempts for a booking the caller
// takes part in.
func (s *Service) ListBookingPayments(ctx context.Context, actor user.User, bookingID string) ([]payment.Payment, error) {
	if _, err := s.bookings.Get(ctx, actor, bookingID); err != nil {
		return nil, err
	}
	items, err := s.store.ListPaymentsByBooking(ctx, bookingID)
	if err != nil {
		return nil, storage.AsServiceError(err, "payment", "")
	}
	return items, nil
}

func (s *Service) payWith(ctx context.Context, actor user.User, methodID string) (payment.Method, error) {
	if methodID != "" {
		return s.method(ctx, actor, methodID)
	}
	methods, err := s.store.ListPaymentMethods(ctx, actor.ID)
	if err != nil {
		return payment.Method{}, storage.AsServiceError(err, "payment method", "")
	}
	for _, m := range methods {
		if m.IsDefault {
			return m, nil
		}
	}
	return payment.Method{}, apperrors.InvalidInput("no payment method on file")
}

func (s *Service) method(ctx context.Context, actor user.User, id string) (payment.Method, error) {
	m, err := s.store.GetPaymentMethod(ctx, id)
	if err != nil {
		return payment.Method{}, storage.AsServiceError(err, "payment method", id)
	}
	if m.UserID != actor.ID {
		return payment.Method{}, apperrors.NotFound("payment method", id)
	}
	return m, nil
}

func brand(number string) string {
	switch {
	case strings.HasPrefix(number, "4"):
		return "visa"
	case hasPrefixIn(number, 51, 55, 2) || hasPrefixIn(number, 2221, 2720, 4):
		return "mastercard"
	case strings.HasPrefix(number, "34") || strings.HasPrefix(number, "37"):
		return "amex"
	case strings.HasPrefix(number, "6011") || strings.HasPrefix(number, "65"):
		return "discover"
	}
	return "card"
}

func hasPrefixIn(number string, lo, hi, digits int) bool {
	if len(number) < digits {
		return false
	}
	n := 0
	for _, r := range number[:digits] {
		n = n*10 + int(r-'0')
	}
	return n >= lo && n <= hi
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return strings.Join(fields, ", ")
}
