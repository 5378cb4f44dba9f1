package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pawmate/pawmate/internal/app/services/accounts"
	"github.com/pawmate/pawmate/internal/app/services/bookings"
	"github.com/pawmate/pawmate/internal/app/services/chat"
	"github.com/pawmate/pawmate/internal/app/services/feed"
	"github.com/pawmate/pawmate/internal/app/services/jobs"
	"github.com/pawmate/pawmate/internal/app/services/notifications"
	"github.com/pawmate/pawmate/internal/app/services/payments"
	"github.com/pawmate/pawmate/internal/app/services/pets"
	"github.com/pawmate/pawmate/internal/app/services/scans"
	"github.com/pawmate/pawmate/internal/app/services/sitters"
	"github.com/pawmate/pawmate/internal/app/storage"
	"github.com/pawmate/pawmate/internal/app/storage/memory"
	"github.com/pawmate/pawmate/internal/app/system"
	"github.com/pawmate/pawmate/internal/config"
	"github.com/pawmate/pawmate/internal/httputil"
	"github.com/pawmate/pawmate/internal/middleware"
	"github.com/pawmate/pawmate/internal/platform/blob"
	"github.com/pawmate/pawmate/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users         storage.UserStore
	Pets          storage.PetStore
	Sitters       storage.SitterStore
	Bookings      storage.BookingStore
	Payments      storage.PaymentStore
	Feed          storage.FeedStore
	Chat          storage.ChatStore
	Notifications storage.NotificationStore
	Scans         storage.ScanStore
}

// AllStores is implemented by a backend serving every store.
type AllStores interface {
	storage.UserStore
	storage.PetStore
	storage.SitterStore
	storage.BookingStore
	storage.PaymentStore
	storage.FeedStore
	storage.ChatStore
	storage.NotificationStore
	storage.ScanStore
}

// StoresFrom uses one backend for every store.
func StoresFrom(s AllStores) Stores {
	return Stores{
		Users:         s,
		Pets:          s,
		Sitters:       s,
		Bookings:      s,
		Payments:      s,
		Feed:          s,
		Chat:          s,
		Notifications: s,
		Scans:         s,
	}
}

func (s *Stores) fillDefaults() {
	var mem *memory.Store
	fallback := func() *memory.Store {
		if mem == nil {
			mem = memory.New()
		}
		return mem
	}
	if s.Users == nil {
		s.Users = fallback()
	}
	if s.Pets == nil {
		s.Pets = fallback()
	}
	if s.Sitters == nil {
		s.Sitters = fallback()
	}
	if s.Bookings == nil {
		s.Bookings = fallback()
	}
	if s.Payments == nil {
		s.Payments = fallback()
	}
	if s.Feed == nil {
		s.Feed = fallback()
	}
	if s.Chat == nil {
		s.Chat = fallback()
	}
	if s.Notifications == nil {
		s.Notifications = fallback()
	}
	if s.Scans == nil {
		s.Scans = fallback()
	}
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Config        config.Config
	Blobs         blob.Store
	Accounts      *accounts.Service
	Pets          *pets.Service
	Sitters       *sitters.Service
	Bookings      *bookings.Service
	Payments      *payments.Service
	Feed          *feed.Service
	Chat          *chat.Service
	Notifications *notifications.Service
	Scans         *scans.Service
	Jobs          *jobs.Scheduler
	RateLimiter   *middleware.RateLimiter
	AuthFailures  *middleware.RateLimiter
}

// Clients get authFailureBurst rejected credentials, refilled at
// authFailureRate per second, before they are throttled by IP.
const (
	authFailureRate  = 1
	authFailureBurst = 10
)

// New builds a fully initialised application. blobs may be nil, in which
// case media is kept under the configured local directory.
func New(ctx context.Context, cfg config.Config, stores Stores, blobs blob.Store, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	stores.fillDefaults()

	if blobs == nil {
		local, err := blob.NewLocal(cfg.Media.LocalDir, cfg.Media.PublicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("local media store: %w", err)
		}
		blobs = local
	}

	manager := system.NewManager()

	notifySvc := notifications.New(stores.Notifications, log.Component("notifications"))
	tokens := accounts.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	accountSvc := accounts.New(stores.Users, tokens, log.Component("accounts"),
		accounts.WithAdminEmails(cfg.Auth.IsAdminEmail))
	petSvc := pets.New(stores.Pets, stores.Bookings, stores.Sitters, notifySvc, log.Component("pets"))
	sitterSvc := sitters.New(stores.Sitters, stores.Bookings, notifySvc, log.Component("sitters"))
	bookingSvc := bookings.New(stores.Bookings, stores.Pets, stores.Sitters, notifySvc, log.Component("bookings"))
	paymentSvc := payments.New(stores.Payments, bookingSvc, payments.NewLedgerGateway(), notifySvc, log.Component("payments"))
	feedSvc := feed.New(stores.Feed, stores.Pets, blobs, notifySvc, log.Component("feed"))

	broker, err := chatBroker(ctx, cfg.Redis, log)
	if err != nil {
		return nil, err
	}
	hub := chat.NewHub(broker, log.Component("chat-hub"))
	chatSvc := chat.New(stores.Chat, stores.Users, bookingSvc, hub, notifySvc, log.Component("chat"))

	classifier := newClassifier(cfg.Scan, log)
	scanSvc := scans.New(stores.Scans, petSvc, blobs, classifier, log.Component("scans"), scans.WithTimeout(cfg.Scan.Timeout))

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log.Component("ratelimit"))
	authFailures := middleware.NewRateLimiter(authFailureRate, authFailureBurst, log.Component("auth-failures"))

	services := []system.Service{hub, limiter, system.Func{
		ServiceName: "auth-failure-limiter",
		OnStart:     authFailures.Start,
		OnStop:      authFailures.Stop,
	}}

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log.Component("jobs"))
		if err := jobs.Register(scheduler, cfg.Jobs, bookingSvc, petSvc); err != nil {
			return nil, fmt.Errorf("register jobs: %w", err)
		}
		services = append(services, scheduler)
	} else {
		log.Warn("background jobs disabled")
	}

	if closer, ok := blobs.(io.Closer); ok {
		services = append(services, system.Func{
			ServiceName: "media",
			OnStop:      func(context.Context) error { return closer.Close() },
		})
	}

	for _, svc := range services {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:       manager,
		log:           log,
		Config:        cfg,
		Blobs:         blobs,
		Accounts:      accountSvc,
		Pets:          petSvc,
		Sitters:       sitterSvc,
		Bookings:      bookingSvc,
		Payments:      paymentSvc,
		Feed:          feedSvc,
		Chat:          chatSvc,
		Notifications: notifySvc,
		Scans:         scanSvc,
		Jobs:          scheduler,
		RateLimiter:   limiter,
		AuthFailures:  authFailures,
	}, nil
}

func chatBroker(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (chat.Broker, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		log.Info("redis not configured; chat fan-out is local to this instance")
		return chat.NewLocalBroker(), nil
	}
	broker, err := chat.NewRedisBroker(ctx, cfg.URL, log.Component("chat-redis"))
	if err != nil {
		return nil, fmt.Errorf("connect chat broker: %w", err)
	}
	return broker, nil
}

func newClassifier(cfg config.ScanConfig, log *logger.Logger) scans.Classifier {
	switch cfg.Provider {
	case "openai":
		return scans.NewOpenAIClassifier(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	case "http":
		client := httputil.NewClient(httputil.ClientConfig{
			BaseURL:    cfg.InferenceURL,
			Token:      cfg.InferenceKey,
			Timeout:    cfg.Timeout,
			MaxRetries: -1,
		})
		return scans.NewHTTPClassifier(client, scans.HTTPClassifierConfig{
			LabelPath:      cfg.LabelPath,
			ConfidencePath: cfg.ConfidencePath,
			FindingsPath:   cfg.FindingsPath,
		})
	default:
		log.Warn("no scan classifier configured; image analysis disabled")
		return nil
	}
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Services lists registered lifecycle services in start order.
func (a *Application) Services() []string {
	return a.manager.Names()
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
