package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/pkg/utils"
)

type fakeSessions map[string]string

func (f fakeSessions) ValidateSession(_ context.Context, token string) (string, bool, error) {
	if token == "broken" {
		return "", false, errors.New("redis down")
	}
	s, ok := f[token]
	return s, ok, nil
}

type countingUsers struct{ calls atomic.Int32 }

func (c *countingUsers) GetOrCreateBySubject(_ context.Context, subject string) (*models.User, error) {
	c.calls.Add(1)
	return &models.User{ID: 7, Subject: subject}, nil
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

func doRequest(h http.Handler, method, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/posts", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireUser(t *testing.T) {
	users := &countingUsers{}
	auth, err := NewAuth(fakeSessions{"good": "auth0|1"}, users)
	require.NoError(t, err)

	var seen *models.User
	h := auth.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	assert.Equal(t, http.StatusUnauthorized, doRequest(h, http.MethodGet, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(h, http.MethodGet, "Bearer nope").Code)
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(h, http.MethodGet, "Bearer broken").Code)

	assert.Equal(t, http.StatusNoContent, doRequest(h, http.MethodGet, "Bearer good").Code)
	require.NotNil(t, seen)
	assert.Equal(t, int64(7), seen.ID)

	assert.Equal(t, http.StatusNoContent, doRequest(h, http.MethodGet, "bearer good").Code)
	assert.Equal(t, int32(1), users.calls.Load(), "second request should hit the subject cache")
}

func TestRequireOperator(t *testing.T) {
	hash, err := utils.HashToken("op-token")
	require.NoError(t, err)
	h := RequireOperator(hash)(okHandler)

	assert.Equal(t, http.StatusUnauthorized, doRequest(h, http.MethodPost, "").Code)
	assert.Equal(t, http.StatusForbidden, doRequest(h, http.MethodPost, "Bearer wrong").Code)
	assert.Equal(t, http.StatusNoContent, doRequest(h, http.MethodPost, "Bearer op-token").Code)

	disabled := RequireOperator("")(okHandler)
	assert.Equal(t, http.StatusUnauthorized, doRequest(disabled, http.MethodPost, "Bearer op-token").Code)
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(0.001, 2)
	h := limiter.Middleware(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, doRequest(h, http.MethodGet, "").Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestIPRateLimiter_SweepsIdleBuckets(t *testing.T) {
	limiter := NewIPRateLimiter(1, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.get("198.51.100.1")
	now = now.Add(limiterTTL + limiterSweepPeriod + time.Second)
	limiter.get("198.51.100.2")

	assert.Len(t, limiter.entries, 1)
}

func TestRedisRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := RedisRateLimit(client)(okHandler)
	for i := 0; i < RateLimitMaxRequests; i++ {
		require.Equal(t, http.StatusNoContent, doRequest(h, http.MethodGet, "").Code)
	}
	rec := doRequest(h, http.MethodGet, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	mr.FastForward(RateLimitWindow + time.Second)
	assert.Equal(t, http.StatusNoContent, doRequest(h, http.MethodGet, "").Code)

	mr.Close()
	assert.Equal(t, http.StatusNoContent, doRequest(h, http.MethodGet, "").Code, "fails open")
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set("Origin", "https://APP.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://APP.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	rec := doRequest(SecurityHeaders(okHandler), http.MethodGet, "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
