package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pawmate/pawmate/internal/app/domain/user"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/internal/httputil"
	"github.com/pawmate/pawmate/pkg/logger"
)

type staticAuth map[string]user.User

func (a staticAuth) Authenticate(_ context.Context, token string) (user.User, error) {
	u, ok := a[token]
	if !ok {
		return user.User{}, apperrors.InvalidToken(nil)
	}
	return u, nil
}

var testUsers = staticAuth{
	"owner-token": {ID: "u1", Role: user.RoleOwner},
	"admin-token": {ID: "u2", Role: user.RoleAdmin},
}

func whoAmI(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFrom(r.Context())
	if !ok {
		w.Write([]byte("anonymous"))
		return
	}
	w.Write([]byte(u.ID))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) httputil.ErrorDetail {
	t.Helper()
	var body httputil.ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return body.Error
}

func TestAuthMiddleware(t *testing.T) {
	mw := NewAuthMiddleware(testUsers, logger.NewNop(), []string{"/healthz", "/v1/auth"})
	handler := mw.Handler(http.HandlerFunc(whoAmI))

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
		wantCode   string
	}{
		{name: "bearer token", path: "/v1/pets", header: "Bearer owner-token", wantStatus: 200, wantBody: "u1"},
		{name: "lowercase scheme", path: "/v1/pets", header: "bearer admin-token", wantStatus: 200, wantBody: "u2"},
		{name: "query token", path: "/v1/chat/ws/dm:a:b?token=owner-token", wantStatus: 200, wantBody: "u1"},
		{name: "missing token", path: "/v1/pets", wantStatus: 401, wantCode: "UNAUTHORIZED"},
		{name: "bad scheme", path: "/v1/pets", header: "Basic abc", wantStatus: 401, wantCode: "UNAUTHORIZED"},
		{name: "unknown token", path: "/v1/pets", header: "Bearer nope", wantStatus: 401, wantCode: "INVALID_TOKEN"},
		{name: "public path", path: "/v1/auth/login", wantStatus: 200, wantBody: "anonymous"},
		{name: "public exact", path: "/healthz", wantStatus: 200, wantBody: "anonymous"},
		{name: "public with valid token", path: "/v1/auth/login", header: "Bearer owner-token", wantStatus: 200, wantBody: "u1"},
		{name: "public ignores unknown token", path: "/v1/auth/login", header: "Bearer expired", wantStatus: 200, wantBody: "anonymous"},
		{name: "public ignores bad scheme", path: "/healthz", header: "Basic abc", wantStatus: 200, wantBody: "anonymous"},
		{name: "prefix is not a match", path: "/v1/authors", wantStatus: 401, wantCode: "UNAUTHORIZED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantBody != "" && rr.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rr.Body.String(), tt.wantBody)
			}
			if tt.wantCode != "" {
				if got := decodeError(t, rr).Code; got != tt.wantCode {
					t.Errorf("code = %s, want %s", got, tt.wantCode)
				}
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(user.RoleAdmin)(http.HandlerFunc(whoAmI))

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/audit", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req.WithContext(WithUser(req.Context(), testUsers["owner-token"])))
	if rr.Code != http.StatusForbidden {
		t.Errorf("owner status = %d, want 403", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req.WithContext(WithUser(req.Context(), testUsers["admin-token"])))
	if rr.Code != http.StatusOK || rr.Body.String() != "u2" {
		t.Errorf("admin got %d %q", rr.Code, rr.Body.String())
	}
}

func TestCORS(t *testing.T) {
	mw := NewCORSMiddleware([]string{"https://app.pawmate.app", "https://*.pawmate.dev"})
	handler := mw.Handler(http.HandlerFunc(whoAmI))

	cases := map[string]bool{
		"https://app.pawmate.app":     true,
		"https://staging.pawmate.dev": true,
		"https://evilpawmate.app":     false,
		"https://pawmate.dev":         false,
		"http://staging.pawmate.dev":  false,
	}
	for origin, allowed := range cases {
		req := httptest.NewRequest(http.MethodOptions, "/v1/pets", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "POST")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Errorf("%s: preflight status = %d, want 204", origin, rr.Code)
		}
		got := rr.Header().Get("Access-Control-Allow-Origin") == origin
		if got != allowed {
			t.Errorf("%s: allowed = %v, want %v", origin, got, allowed)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, logger.NewNop())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	handler := rl.Handler(http.HandlerFunc(whoAmI))

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/feed", nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := do("10.0.0.1:5000"); code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, code)
		}
	}
	if code := do("10.0.0.1:5001"); code != http.StatusTooManyRequests {
		t.Errorf("burst exceeded status = %d, want 429", code)
	}
	if code := do("10.0.0.2:5000"); code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", code)
	}

	now = now.Add(time.Second)
	if code := do("10.0.0.1:5000"); code != http.StatusOK {
		t.Errorf("after refill status = %d, want 200", code)
	}

	now = now.Add(time.Hour)
	if removed := rl.Cleanup(); removed != 2 {
		t.Errorf("Cleanup() removed %d, want 2", removed)
	}
}

func TestAuthFailureLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 3, logger.NewNop())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	handler := NewAuthMiddleware(testUsers, logger.NewNop(), []string{"/v1/auth"}).
		WithFailureLimiter(rl).
		Handler(http.HandlerFunc(whoAmI))

	do := func(remote, path, token string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = remote
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := do("10.0.0.1:1", "/v1/pets", "owner-token"); code != http.StatusOK {
		t.Fatalf("valid token status = %d, want 200", code)
	}
	for i := 0; i < 3; i++ {
		if code := do("10.0.0.1:1", "/v1/pets", "guess"); code != http.StatusUnauthorized {
			t.Fatalf("guess %d status = %d, want 401", i, code)
		}
	}
	if code := do("10.0.0.1:1", "/v1/pets", "guess"); code != http.StatusTooManyRequests {
		t.Errorf("throttled guess status = %d, want 429", code)
	}
	if code := do("10.0.0.1:1", "/v1/pets", "owner-token"); code != http.StatusTooManyRequests {
		t.Errorf("throttled valid token status = %d, want 429", code)
	}
	if code := do("10.0.0.1:1", "/v1/auth/login", "guess"); code != http.StatusOK {
		t.Errorf("throttled public path status = %d, want 200", code)
	}
	if code := do("10.0.0.2:1", "/v1/pets", "owner-token"); code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", code)
	}

	now = now.Add(time.Second)
	if code := do("10.0.0.1:1", "/v1/pets", "owner-token"); code != http.StatusOK {
		t.Errorf("after refill status = %d, want 200", code)
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, 1, logger.NewNop())
	if err := rl.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := rl.Stop(context.Background()); err != nil {
			t.Fatalf("Stop() #%d error = %v", i+1, err)
		}
	}
}

func TestTracingAndRecovery(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	handler := NewTracingMiddleware(logger.NewNop()).Handler(Recovery(logger.NewNop())(panicking))

	req := httptest.NewRequest(http.MethodGet, "/v1/pets", nil)
	req.Header.Set(httputil.TraceHeader, "trace-abc")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if rr.Header().Get(httputil.TraceHeader) != "trace-abc" {
		t.Errorf("trace header = %q", rr.Header().Get(httputil.TraceHeader))
	}
	detail := decodeError(t, rr)
	if detail.Code != "INTERNAL" || detail.TraceID != "trace-abc" {
		t.Errorf("error = %+v", detail)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/pets", nil))
	if rr.Header().Get(httputil.TraceHeader) == "" {
		t.Error("trace id not generated")
	}
}
