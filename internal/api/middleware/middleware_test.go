package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/schoolhub/membership/internal/tenant"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2, time.Minute)
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Limit(http.HandlerFunc(ok))

	hit := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, hit("1.1.1.1"))
	assert.Equal(t, http.StatusOK, hit("1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("1.1.1.1"))
	assert.Equal(t, http.StatusOK, hit("2.2.2.2"))

	now = now.Add(30 * time.Second)
	assert.Equal(t, http.StatusOK, hit("1.1.1.1"))
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example.com"})(http.HandlerFunc(ok))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)

	h = CORS([]string{"*"})(http.HandlerFunc(ok))
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://any.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestSchoolScope(t *testing.T) {
	var seen string
	r := chi.NewRouter()
	r.With(SchoolScope).Get("/schools/{schoolID}", func(w http.ResponseWriter, r *http.Request) {
		seen = tenant.SchoolIDFromContext(r.Context())
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/schools/abc123", nil))
	assert.Equal(t, "abc123", seen)
}

func TestLoggingKeepsStatus(t *testing.T) {
	h := Logging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brew", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
