// Package middleware provides the HTTP middleware of the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pawmate/pawmate/internal/app/domain/user"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/internal/httputil"
	"github.com/pawmate/pawmate/pkg/logger"
)

type ctxKey struct{}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, u user.User) context.Context {
	ctx = logger.WithUserID(ctx, u.ID)
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFrom returns the authenticated user, if any.
func UserFrom(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(user.User)
	return u, ok
}

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (user.User, error)
}

// AuthMiddleware authenticates requests. Paths matching one of the public
// prefixes pass through without a token; a valid token sent to them is still
// honoured and an invalid one is ignored.
type AuthMiddleware struct {
	auth     Authenticator
	log      *logger.Logger
	public   []string
	failures *RateLimiter
}

// NewAuthMiddleware creates the middleware.
func NewAuthMiddleware(auth Authenticator, log *logger.Logger, publicPrefixes []string) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &AuthMiddleware{auth: auth, log: log, public: publicPrefixes}
}

// WithFailureLimiter throttles clients by IP once they spend rl's budget on
// rejected credentials. Throttled clients get 429 before their token is
// checked, except on public paths where the token is skipped.
func (m *AuthMiddleware) WithFailureLimiter(rl *RateLimiter) *AuthMiddleware {
	m.failures = rl
	return m
}

func (m *AuthMiddleware) isPublic(path string) bool {
	for _, prefix := range m.public {
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		public := m.isPublic(r.URL.Path)
		token, err := tokenFrom(r)
		if err == nil && token == "" {
			if public || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			m.reject(w, r, apperrors.Unauthorized("missing bearer token"))
			return
		}
		if err != nil {
			m.fail(w, r, public, next, err)
			return
		}

		if m.failures != nil && m.failures.exhausted(failureKey(r)) {
			if public {
				next.ServeHTTP(w, r)
				return
			}
			m.throttle(w, r)
			return
		}
		u, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			m.fail(w, r, public, next, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// fail counts a rejected credential against the client and either rejects
// the request or, on public paths, serves it anonymously.
func (m *AuthMiddleware) fail(w http.ResponseWriter, r *http.Request, public bool, next http.Handler, err error) {
	if m.failures != nil {
		m.failures.allow(failureKey(r))
	}
	if public {
		m.log.WithContext(r.Context()).WithError(err).WithField("path", r.URL.Path).
			Debug("ignoring invalid credentials on public path")
		next.ServeHTTP(w, r)
		return
	}
	m.reject(w, r, err)
}

func (m *AuthMiddleware) throttle(w http.ResponseWriter, r *http.Request) {
	m.log.WithContext(r.Context()).WithFields(map[string]interface{}{
		"key":  failureKey(r),
		"path": r.URL.Path,
	}).Warn("too many failed authentications")
	w.Header().Set("Retry-After", "1")
	httputil.WriteError(w, r, apperrors.RateLimitExceeded(int(m.failures.rate), "1s"))
}

func failureKey(r *http.Request) string {
	return "auth-failure:" + clientIP(r)
}

// tokenFrom reads the Authorization header, falling back to the token query
// parameter browsers must use for websocket upgrades.
func tokenFrom(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return strings.TrimSpace(r.URL.Query().Get("token")), nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.Unauthorized("invalid Authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	m.log.WithContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
	}).Debug("authentication failed")
	httputil.WriteError(w, r, err)
}

// RequireRole rejects callers whose role is not one of roles.
func RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFrom(r.Context())
			if !ok {
				httputil.WriteError(w, r, apperrors.Unauthorized(""))
				return
			}
			for _, role := range roles {
				if u.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			httputil.WriteError(w, r, apperrors.Forbidden("requires role %s", roles[0]))
		})
	}
}
