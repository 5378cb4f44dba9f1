package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/pawmate/pawmate/internal/app"
	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/services/accounts"
	"github.com/pawmate/pawmate/internal/config"
	"github.com/pawmate/pawmate/internal/httputil"
	"github.com/pawmate/pawmate/pkg/logger"
)

const adminEmail = "admin@pawmate.app"

type testAPI struct {
	t       *testing.T
	handler http.Handler
	app     *app.Application
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret-0123456789"
	cfg.Auth.AdminEmails = []string{adminEmail}
	cfg.Media.LocalDir = t.TempDir()
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 1000

	application, err := app.New(context.Background(), cfg, app.Stores{}, nil, logger.NewNop())
	require.NoError(t, err)
	handler, err := NewHandler(application, Options{AllowedOrigins: cfg.CORS.AllowedOrigins}, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, application.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = application.Stop(ctx)
	})
	return &testAPI{t: t, handler: handler, app: application}
}

func (a *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// call performs a request, asserts the status and decodes the body into out.
func (a *testAPI) call(method, path, token string, body interface{}, want int, out interface{}) {
	a.t.Helper()
	rec := a.do(method, path, token, body)
	require.Equalf(a.t, want, rec.Code, "%s %s: %s", method, path, rec.Body.String())
	if out != nil {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), out))
	}
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

func (a *testAPI) register(email, name, role string) session {
	a.t.Helper()
	var s session
	a.call(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": email, "password": "correct-horse", "full_name": name, "role": role,
	}, http.StatusCreated, &s)
	require.NotEmpty(a.t, s.Token)
	return s
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httputil.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error.Code
}

func TestAuthAndProfile(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	owner := api.register("Owner@Example.com", "Olive", "")
	assert.Equal(t, "owner", owner.User.Role)

	rec = api.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": "owner@example.com", "password": "correct-horse", "full_name": "Dup",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": "mallory@example.com", "password": "correct-horse", "full_name": "M", "role": "admin",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var login session
	api.call(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "owner@example.com", "password": "correct-horse",
	}, http.StatusOK, &login)
	assert.Equal(t, owner.User.ID, login.User.ID)

	rec = api.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "owner@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var me map[string]interface{}
	api.call(http.MethodPatch, "/v1/me", login.Token, map[string]string{"full_name": "Olive Oak"}, http.StatusOK, &me)
	assert.Equal(t, "Olive Oak", me["full_name"])

	api.call(http.MethodPost, "/v1/me/password", login.Token, map[string]string{
		"old_password": "correct-horse", "new_password": "battery-staple",
	}, http.StatusNoContent, nil)

	var public map[string]interface{}
	api.call(http.MethodGet, "/v1/users/"+owner.User.ID, login.Token, nil, http.StatusOK, &public)
	_, hasEmail := public["email"]
	assert.False(t, hasEmail)
}

func expiredToken(t *testing.T, userID string) string {
	t.Helper()
	past := time.Now().Add(-48 * time.Hour)
	claims := &accounts.Claims{
		UserID: userID,
		Role:   "owner",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    "pawmate",
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(24 * time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-0123456789"))
	require.NoError(t, err)
	return signed
}

func TestExpiredTokenOnPublicPaths(t *testing.T) {
	api := newTestAPI(t)
	owner := api.register("owner@example.com", "Olive", "")
	stale := expiredToken(t, owner.User.ID)

	var login session
	api.call(http.MethodPost, "/v1/auth/login", stale, map[string]string{
		"email": "owner@example.com", "password": "correct-horse",
	}, http.StatusOK, &login)
	assert.Equal(t, owner.User.ID, login.User.ID)

	api.call(http.MethodPost, "/v1/auth/register", stale, map[string]string{
		"email": "second@example.com", "password": "correct-horse", "full_name": "Sam",
	}, http.StatusCreated, nil)

	rec := api.do(http.MethodGet, "/healthz", stale, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/v1/me", stale, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, rec))
}

func TestFailedAuthenticationIsThrottled(t *testing.T) {
	api := newTestAPI(t)
	owner := api.register("owner@example.com", "Olive", "")

	for i := 0; i < 10; i++ {
		rec := api.do(http.MethodGet, "/v1/me", "forged-token", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i)
	}

	rec := api.do(http.MethodGet, "/v1/me", "forged-token", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", errorCode(t, rec))

	// The client is throttled by IP, so even a valid token waits for a refill.
	rec = api.do(http.MethodGet, "/v1/me", owner.Token, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Logging in again still works.
	api.call(http.MethodPost, "/v1/auth/login", "forged-token", map[string]string{
		"email": "owner@example.com", "password": "correct-horse",
	}, http.StatusOK, nil)
}

func TestRequestValidation(t *testing.T) {
	api := newTestAPI(t)
	owner := api.register("owner@example.com", "Olive", "")

	rec := api.do(http.MethodPost, "/v1/pets", owner.Token, map[string]interface{}{"name": "Rex", "species": "dog", "color": "brown"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, rec))

	rec = api.do(http.MethodPost, "/v1/pets", owner.Token, map[string]interface{}{"species": "dog"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPatch, "/v1/me", owner.Token, map[string]string{"avatar_url": strings.Repeat("x", 3000)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body httputil.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]interface{}{"avatar_url": "max"}, body.Error.Details["fields"])
	assert.Contains(t, body.Error.Message, "avatar_url failed max")

	rec = api.do(http.MethodGet, "/v1/nowhere", owner.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPut, "/v1/pets", owner.Token, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPetLogsAndStreak(t *testing.T) {
	api := newTestAPI(t)
	owner := api.register("owner@example.com", "Olive", "")
	stranger := api.register("eve@example.com", "Eve", "")

	var p struct {
		ID string `json:"id"`
	}
	api.call(http.MethodPost, "/v1/pets", owner.Token, map[string]interface{}{
		"name": "Rex", "species": "dog", "weight_kg": 12.5,
	}, http.StatusCreated, &p)

	rec := api.do(http.MethodGet, "/v1/pets/"+p.ID, stranger.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	api.call(http.MethodPost, "/v1/pets/"+p.ID+"/activities", owner.Token, map[string]interface{}{
		"kind": "walk", "duration_minutes": 30,
	}, http.StatusCreated, nil)
	api.call(http.MethodPost, "/v1/pets/"+p.ID+"/meals", owner.Token, map[string]interface{}{
		"food": "kibble", "meal_type": "breakfast",
	}, http.StatusCreated, nil)
	var mood struct {
		ID string `json:"id"`
	}
	api.call(http.MethodPost, "/v1/pets/"+p.ID+"/moods", owner.Token, map[string]interface{}{
		"mood": "happy",
	}, http.StatusCreated, &mood)

	var streak struct {
		Current     int  `json:"current"`
		LoggedToday bool `json:"logged_today"`
	}
	api.call(http.MethodGet, "/v1/pets/"+p.ID+"/streak?tz=UTC", owner.Token, nil, http.StatusOK, &streak)
	assert.Equal(t, 1, streak.Current)
	assert.True(t, streak.LoggedToday)

	rec = api.do(http.MethodGet, "/v1/pets/"+p.ID+"/streak?tz=Mars/Olympus", owner.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	api.call(http.MethodDelete, "/v1/pets/"+p.ID+"/moods/"+mood.ID, owner.Token, nil, http.StatusNoContent, nil)
	var moods []interface{}
	api.call(http.MethodGet, "/v1/pets/"+p.ID+"/moods", owner.Token, nil, http.StatusOK, &moods)
	assert.Empty(t, moods)

	var rec2 struct {
		ID string `json:"id"`
	}
	api.call(http.MethodPost, "/v1/pets/"+p.ID+"/health-records", owner.Token, map[string]interface{}{
		"kind": "vaccination", "title": "Rabies", "recorded_on": date.Today(time.UTC).String(),
	}, http.StatusCreated, &rec2)
	var updated map[string]interface{}
	api.call(http.MethodPatch, "/v1/pets/"+p.ID+"/health-records/"+rec2.ID, owner.Token, map[string]interface{}{
		"vet": "Dr. Paws",
	}, http.StatusOK, &updated)
	assert.Equal(t, "Dr. Paws", updated["vet"])

	api.call(http.MethodDelete, "/v1/pets/"+p.ID, owner.Token, nil, http.StatusNoContent, nil)
	rec = api.do(http.MethodGet, "/v1/pets/"+p.ID, owner.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScanWithoutClassifier(t *testing.T) {
	api := newTestAPI(t)
	owner := api.register("owner@example.com", "Olive", "")
	var p struct {
		ID string `json:"id"`
	}
	api.call(http.MethodPost, "/v1/pets", owner.Token, map[string]interface{}{"name": "Rex", "species": "dog"}, http.StatusCreated, &p)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("kind", "fur"))
	part, err := mw.CreateFormFile("image", "fur.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("not really a png"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/pets/"+p.ID+"/scans", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+owner.Token)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())

	rec = api.do(http.MethodPost, "/v1/pets/"+p.ID+"/scans", owner.Token, map[string]string{"kind": "fur"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketplaceFlow(t *testing.T) {
	api := newTestAPI(t)
	admin := api.register(adminEmail, "Ada", "admin")
	owner := api.register("owner@example.com", "Olive", "")
	sitterUser := api.register("sam@example.com", "Sam", "sitter")

	var profile struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	api.call(http.MethodPost, "/v1/sitters", sitterUser.Token, map[string]interface{}{
		"city": "Lisbon", "daily_rate_cents": 2500, "services": []string{"boarding"},
	}, http.StatusCreated, &profile)
	assert.Equal(t, "pending", profile.Status)

	rec := api.do(http.MethodPost, "/v1/sitters", owner.Token, map[string]interface{}{"city": "Lisbon", "daily_rate_cents": 100})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var listed []interface{}
	api.call(http.MethodGet, "/v1/sitters?city=Lisbon", owner.Token, nil, http.StatusOK, &listed)
	assert.Empty(t, listed)

	rec = api.do(http.MethodGet, "/v1/admin/sitters", owner.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var pending []map[string]interface{}
	api.call(http.MethodGet, "/v1/admin/sitters?status=pending", admin.Token, nil, http.StatusOK, &pending)
	require.Len(t, pending, 1)
	api.call(http.MethodPost, "/v1/admin/sitters/"+profile.ID+"/approve", admin.Token, nil, http.StatusOK, &profile)
	assert.Equal(t, "approved", profile.Status)

	api.call(http.MethodGet, "/v1/sitters?city=lisbon", owner.Token, nil, http.StatusOK, &listed)
	assert.Len(t, listed, 1)

	today := date.Today(time.UTC)
	api.call(http.MethodPut, "/v1/sitters/me/availability", sitterUser.Token, map[string]interface{}{
		"days": []map[string]interface{}{{"date": today.AddDays(3).String(), "available": false}},
	}, http.StatusOK, nil)

	var p struct {
		ID string `json:"id"`
	}
	api.call(http.MethodPost, "/v1/pets", owner.Token, map[string]interface{}{"name": "Rex", "species": "dog"}, http.StatusCreated, &p)

	rec = api.do(http.MethodPost, "/v1/bookings", owner.Token, map[string]interface{}{
		"sitter_id": profile.ID, "pet_id": p.ID,
		"start_date": today.AddDays(2).String(), "end_date": today.AddDays(4).String(),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	var b struct {
		ID         string `json:"id"`
		Status     string `json:"status"`
		PriceCents int64  `json:"price_cents"`
	}
	api.call(http.MethodPost, "/v1/bookings", owner.Token, map[string]interface{}{
		"sitter_id": profile.ID, "pet_id": p.ID,
		"start_date": today.String(), "end_date": today.AddDays(1).String(),
	}, http.StatusCreated, &b)
	assert.Equal(t, "pending", b.Status)
	assert.Equal(t, int64(5000), b.PriceCents)

	rec = api.do(http.MethodPost, "/v1/bookings/"+b.ID+"/accept", owner.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	api.call(http.MethodPost, "/v1/bookings/"+b.ID+"/accept", sitterUser.Token, nil, http.StatusOK, &b)
	assert.Equal(t, "accepted", b.Status)

	rec = api.do(http.MethodPost, "/v1/bookings/"+b.ID+"/pay", owner.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	api.call(http.MethodPost, "/v1/bookings/"+b.ID+"/complete", sitterUser.Token, nil, http.StatusOK, &b)
	assert.Equal(t, "completed", b.Status)

	rec = api.do(http.MethodPost, "/v1/payment-methods", owner.Token, map[string]interface{}{
		"number": "1234", "exp_month": 12, "exp_year": today.Time().Year() + 2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var method struct {
		ID        string `json:"id"`
		Last4     string `json:"last4"`
		IsDefault bool   `json:"is_default"`
	}
	api.call(http.MethodPost, "/v1/payment-methods", owner.Token, map[string]interface{}{
		"number": "4242424242424242", "exp_month": 12, "exp_year": today.Time().Year() + 2,
	}, http.StatusCreated, &method)
	assert.Equal(t, "4242", method.Last4)
	assert.True(t, method.IsDefault)

	var pay struct {
		Status      string `json:"status"`
		AmountCents int64  `json:"amount_cents"`
	}
	api.call(http.MethodPost, "/v1/bookings/"+b.ID+"/pay", owner.Token, map[string]string{"method_id": method.ID}, http.StatusCreated, &pay)
	assert.Equal(t, "succeeded", pay.Status)
	assert.Equal(t, int64(5000), pay.AmountCents)

	rec = api.do(http.MethodPost, "/v1/bookings/"+b.ID+"/pay", owner.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	api.call(http.MethodGet, "/v1/bookings/"+b.ID, owner.Token, nil, http.StatusOK, &b)
	assert.Equal(t, "paid", b.Status)

	api.call(http.MethodPost, "/v1/bookings/"+b.ID+"/review", owner.Token, map[string]interface{}{
		"rating": 5, "comment": "Great with Rex",
	}, http.StatusCreated, nil)
	var sitterView struct {
		Rating      float64 `json:"rating"`
		ReviewCount int     `json:"review_count"`
	}
	api.call(http.MethodGet, "/v1/sitters/"+profile.ID, owner.Token, nil, http.StatusOK, &sitterView)
	assert.Equal(t, 5.0, sitterView.Rating)
	assert.Equal(t, 1, sitterView.ReviewCount)

	var unread map[string]int
	api.call(http.MethodGet, "/v1/notifications/unread-count", sitterUser.Token, nil, http.StatusOK, &unread)
	assert.Positive(t, unread["unread"])
	api.call(http.MethodPost, "/v1/notifications/read-all", sitterUser.Token, nil, http.StatusOK, nil)
	api.call(http.MethodGet, "/v1/notifications/unread-count", sitterUser.Token, nil, http.StatusOK, &unread)
	assert.Zero(t, unread["unread"])

	var audit []auditEntry
	api.call(http.MethodGet, "/v1/admin/audit?limit=5", admin.Token, nil, http.StatusOK, &audit)
	require.Len(t, audit, 5)
	assert.Equal(t, "/v1/notifications/read-all", audit[0].Path)
	assert.Equal(t, sitterUser.User.ID, audit[0].User)
}

func TestFeedAndChat(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register("alice@example.com", "Alice", "")
	bob := api.register("bob@example.com", "Bob", "")

	var post struct {
		ID        string `json:"id"`
		LikeCount int    `json:"like_count"`
		LikedByMe bool   `json:"liked_by_me"`
	}
	api.call(http.MethodPost, "/v1/posts", alice.Token, map[string]string{"content": "Morning walk"}, http.StatusCreated, &post)
	api.call(http.MethodPost, "/v1/posts/"+post.ID+"/like", bob.Token, nil, http.StatusOK, &post)
	assert.Equal(t, 1, post.LikeCount)
	assert.True(t, post.LikedByMe)
	api.call(http.MethodPost, "/v1/posts/"+post.ID+"/comments", bob.Token, map[string]string{"content": "Cute!"}, http.StatusCreated, nil)

	rec := api.do(http.MethodPatch, "/v1/posts/"+post.ID, bob.Token, map[string]string{"content": "hijacked"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var comments []interface{}
	api.call(http.MethodGet, "/v1/posts/"+post.ID+"/comments", alice.Token, nil, http.StatusOK, &comments)
	assert.Len(t, comments, 1)

	var room struct {
		Room    string   `json:"room"`
		Members []string `json:"members"`
	}
	api.call(http.MethodGet, "/v1/chat/direct/"+bob.User.ID, alice.Token, nil, http.StatusOK, &room)
	assert.ElementsMatch(t, []string{alice.User.ID, bob.User.ID}, room.Members)

	srv := httptest.NewServer(api.handler)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/chat/ws/" + room.Room + "?token=" + bob.Token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var frame struct {
		Type    string `json:"type"`
		Message struct {
			Body string `json:"body"`
		} `json:"message"`
	}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "connected", frame.Type)

	api.call(http.MethodPost, "/v1/chat/rooms/"+room.Room+"/messages", alice.Token, map[string]string{"body": "hi Bob"}, http.StatusCreated, nil)
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "message", frame.Type)
	assert.Equal(t, "hi Bob", frame.Message.Body)

	carol := api.register("carol@example.com", "Carol", "")
	rec = api.do(http.MethodGet, "/v1/chat/rooms/"+room.Room+"/messages", carol.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, resp, err := websocket.DefaultDialer.Dial(strings.Replace(wsURL, bob.Token, carol.Token, 1), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	var health struct {
		Status   string   `json:"status"`
		Services []string `json:"services"`
	}
	api.call(http.MethodGet, "/healthz", "", nil, http.StatusOK, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Contains(t, health.Services, "jobs")

	rec := api.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pawmate_http_requests_total")

	rec = api.do(http.MethodGet, "/media/does-not-exist.png", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminJobs(t *testing.T) {
	api := newTestAPI(t)
	admin := api.register(adminEmail, "Ada", "admin")

	var jobs []struct {
		Name string `json:"name"`
	}
	api.call(http.MethodGet, "/v1/admin/jobs", admin.Token, nil, http.StatusOK, &jobs)
	assert.Len(t, jobs, 2)

	var run map[string]interface{}
	api.call(http.MethodPost, "/v1/admin/jobs/complete-bookings/run", admin.Token, nil, http.StatusOK, &run)
	assert.Equal(t, float64(0), run["count"])

	rec := api.do(http.MethodPost, "/v1/admin/jobs/nope/run", admin.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
