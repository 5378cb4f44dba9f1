// Package httpapi exposes the application services over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	app "github.com/pawmate/pawmate/internal/app"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/metrics"
	"github.com/pawmate/pawmate/internal/app/system"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/internal/httputil"
	"github.com/pawmate/pawmate/internal/middleware"
	"github.com/pawmate/pawmate/pkg/logger"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options configures the handler.
type Options struct {
	// AuditLogPath appends audit entries as JSONL when set.
	AuditLogPath string
	// AuditSize bounds the in-memory audit log.
	AuditSize int
	// DB is checked by /healthz when set.
	DB Pinger
	// AllowedOrigins feeds the CORS middleware.
	AllowedOrigins []string
}

type handler struct {
	app      *app.Application
	log      *logger.Logger
	validate *validator.Validate
	audit    *auditLog
	db       Pinger
	started  time.Time
	upgrader websocket.Upgrader
}

var publicPaths = []string{"/healthz", "/metrics", "/media", "/v1/auth"}

// NewHandler returns the full middleware chain and router. Call it before
// application.Start so the audit sink joins the lifecycle.
func NewHandler(application *app.Application, opts Options, log *logger.Logger) (http.Handler, error) {
	if log == nil {
		log = logger.NewDefault("http")
	}
	sink, err := newFileAuditSink(opts.AuditLogPath)
	if err != nil {
		return nil, err
	}
	var auditSinkImpl auditSink
	if sink != nil {
		auditSinkImpl = sink
		closer := system.Func{
			ServiceName: "audit-log",
			OnStop:      func(context.Context) error { return sink.Close() },
		}
		if err := application.Attach(closer); err != nil {
			_ = sink.Close()
			return nil, err
		}
	}
	cors := middleware.NewCORSMiddleware(opts.AllowedOrigins)
	h := &handler{
		app:      application,
		log:      log,
		validate: newValidator(),
		audit:    newAuditLog(opts.AuditSize, auditSinkImpl),
		db:       opts.DB,
		started:  time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || cors.Allows(origin)
			},
		},
	}

	router := h.routes()

	var chain http.Handler = router
	chain = h.auditMiddleware(chain)
	chain = application.RateLimiter.Handler(chain)
	chain = middleware.NewAuthMiddleware(application.Accounts, log, publicPaths).
		WithFailureLimiter(application.AuthFailures).
		Handler(chain)
	chain = cors.Handler(chain)
	chain = metrics.InstrumentHandler(chain)
	chain = middleware.Recovery(log)(chain)
	chain = middleware.NewTracingMiddleware(log).Handler(chain)
	return chain, nil
}

func (h *handler) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httputil.WriteError(w, req, apperrors.NotFound("route", req.URL.Path))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorBody{Error: httputil.ErrorDetail{
			Code:    "METHOD_NOT_ALLOWED",
			Message: req.Method + " is not allowed on " + req.URL.Path,
		}})
	})

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.PathPrefix("/media/").HandlerFunc(h.media).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	v1.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	v1.HandleFunc("/me", h.me).Methods(http.MethodGet)
	v1.HandleFunc("/me", h.updateMe).Methods(http.MethodPatch)
	v1.HandleFunc("/me/password", h.changePassword).Methods(http.MethodPost)
	v1.HandleFunc("/users/{id}", h.getUser).Methods(http.MethodGet)

	v1.HandleFunc("/pets", h.listPets).Methods(http.MethodGet)
	v1.HandleFunc("/pets", h.createPet).Methods(http.MethodPost)
	v1.HandleFunc("/pets/{pet}", h.getPet).Methods(http.MethodGet)
	v1.HandleFunc("/pets/{pet}", h.updatePet).Methods(http.MethodPatch)
	v1.HandleFunc("/pets/{pet}", h.deletePet).Methods(http.MethodDelete)
	v1.HandleFunc("/pets/{pet}/activities", h.listActivities).Methods(http.MethodGet)
	v1.HandleFunc("/pets/{pet}/activities", h.logActivity).Methods(http.MethodPost)
	v1.HandleFunc("/pets/{pet}/meals", h.listMeals).Methods(http.MethodGet)
	v1.HandleFunc("/pets/{pet}/meals", h.logMeal).Methods(http.MethodPost)
	v1.HandleFunc("/pets/{pet}/moods", h.listMoods).Methods(http.MethodGet)
	v1.HandleFunc("/pets/{pet}/moods", h.logMood).Methods(http.MethodPost)
	v1.HandleFunc("/pets/{pet}/{kind:activities|meals|moods}/{id}", h.deleteLog).Methods(http.MethodDelete)
	v1.HandleFunc("/pets/{pet}/health-records", h.listHealthRecords).Methods(http.MethodGet)
	v1.HandleFunc("/pets/{pet}/health-records", h.addHealthRecord).Methods(http.MethodPost)
	v1.HandleFunc("/pets/{pet}/health-records/{id}", h.updateHealthRecord).Methods(http.MethodPatch)
	v1.HandleFunc("/pets/{pet}/health-records/{id}", h.deleteHealthRecord).Methods(http.MethodDelete)
	v1.HandleFunc("/pets/{pet}/streak", h.streak).Methods(http.MethodGet)
	v1.HandleFunc("/pets/{pet}/scans", h.listScans).Methods(http.MethodGet)
	v1.HandleFunc("/pets/{pet}/scans", h.createScan).Methods(http.MethodPost)
	v1.HandleFunc("/scans/{id}", h.getScan).Methods(http.MethodGet)

	v1.HandleFunc("/sitters", h.searchSitters).Methods(http.MethodGet)
	v1.HandleFunc("/sitters", h.createSitter).Methods(http.MethodPost)
	v1.HandleFunc("/sitters/me", h.mySitterProfile).Methods(http.MethodGet)
	v1.HandleFunc("/sitters/me", h.updateSitter).Methods(http.MethodPatch)
	v1.HandleFunc("/sitters/me/availability", h.setAvailability).Methods(http.MethodPut)
	v1.HandleFunc("/sitters/{id}", h.getSitter).Methods(http.MethodGet)
	v1.HandleFunc("/sitters/{id}/availability", h.availability).Methods(http.MethodGet)
	v1.HandleFunc("/sitters/{id}/reviews", h.reviews).Methods(http.MethodGet)

	v1.HandleFunc("/bookings", h.listBookings).Methods(http.MethodGet)
	v1.HandleFunc("/bookings", h.createBooking).Methods(http.MethodPost)
	v1.HandleFunc("/bookings/{id}", h.getBooking).Methods(http.MethodGet)
	v1.HandleFunc("/bookings/{id}/{action:accept|decline|cancel|complete}", h.transitionBooking).Methods(http.MethodPost)
	v1.HandleFunc("/bookings/{id}/pay", h.payBooking).Methods(http.MethodPost)
	v1.HandleFunc("/bookings/{id}/review", h.reviewBooking).Methods(http.MethodPost)
	v1.HandleFunc("/bookings/{id}/payments", h.bookingPayments).Methods(http.MethodGet)

	v1.HandleFunc("/payment-methods", h.listPaymentMethods).Methods(http.MethodGet)
	v1.HandleFunc("/payment-methods", h.addPaymentMethod).Methods(http.MethodPost)
	v1.HandleFunc("/payment-methods/{id}", h.deletePaymentMethod).Methods(http.MethodDelete)
	v1.HandleFunc("/payment-methods/{id}/default", h.setDefaultPaymentMethod).Methods(http.MethodPost)
	v1.HandleFunc("/payments", h.listPayments).Methods(http.MethodGet)

	v1.HandleFunc("/posts", h.listPosts).Methods(http.MethodGet)
	v1.HandleFunc("/posts", h.createPost).Methods(http.MethodPost)
	v1.HandleFunc("/posts/{id}", h.getPost).Methods(http.MethodGet)
	v1.HandleFunc("/posts/{id}", h.updatePost).Methods(http.MethodPatch)
	v1.HandleFunc("/posts/{id}", h.deletePost).Methods(http.MethodDelete)
	v1.HandleFunc("/posts/{id}/media", h.attachMedia).Methods(http.MethodPost)
	v1.HandleFunc("/posts/{id}/comments", h.listComments).Methods(http.MethodGet)
	v1.HandleFunc("/posts/{id}/comments", h.addComment).Methods(http.MethodPost)
	v1.HandleFunc("/posts/{id}/comments/{comment}", h.deleteComment).Methods(http.MethodDelete)
	v1.HandleFunc("/posts/{id}/like", h.like).Methods(http.MethodPost)
	v1.HandleFunc("/posts/{id}/like", h.unlike).Methods(http.MethodDelete)

	v1.HandleFunc("/chat/direct/{user}", h.directRoom).Methods(http.MethodGet)
	v1.HandleFunc("/chat/rooms/{room}/messages", h.history).Methods(http.MethodGet)
	v1.HandleFunc("/chat/rooms/{room}/messages", h.sendMessage).Methods(http.MethodPost)
	v1.HandleFunc("/chat/ws/{room}", h.chatSocket).Methods(http.MethodGet)

	v1.HandleFunc("/notifications", h.listNotifications).Methods(http.MethodGet)
	v1.HandleFunc("/notifications/unread-count", h.unreadCount).Methods(http.MethodGet)
	v1.HandleFunc("/notifications/read-all", h.markAllRead).Methods(http.MethodPost)
	v1.HandleFunc("/notifications/{id}/read", h.markRead).Methods(http.MethodPost)
	v1.HandleFunc("/notifications/{id}", h.deleteNotification).Methods(http.MethodDelete)

	admin := v1.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireRole(user.RoleAdmin))
	admin.HandleFunc("/sitters", h.adminSitters).Methods(http.MethodGet)
	admin.HandleFunc("/sitters/{id}/{action:approve|reject}", h.adminReviewSitter).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}/role", h.adminSetRole).Methods(http.MethodPatch)
	admin.HandleFunc("/audit", h.adminAudit).Methods(http.MethodGet)
	admin.HandleFunc("/jobs", h.adminJobs).Methods(http.MethodGet)
	admin.HandleFunc("/jobs/{name}/run", h.adminRunJob).Methods(http.MethodPost)

	return r
}
