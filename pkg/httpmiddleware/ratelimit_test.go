package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limited(t *testing.T, max int) http.Handler {
	t.Helper()
	return RateLimit(RateLimitConfig{Max: max, Window: time.Minute})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
}

func catalogRequest(session, remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	req.RemoteAddr = remoteAddr
	if session != "" {
		req.Header.Set("X-Session-ID", session)
	}
	return req
}

func TestRateLimit_BudgetAndHeaders(t *testing.T) {
	handler := limited(t, 3)

	for i := range 3 {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, catalogRequest("shopper-1", "192.0.2.1:40000"))

		require.Equal(t, http.StatusOK, w.Code, "request %d within budget", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, catalogRequest("shopper-1", "192.0.2.1:40000"))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_SessionsBehindOneIPAreIndependent(t *testing.T) {
	handler := limited(t, 1)

	// Two shoppers on the same NAT each get their own budget.
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, catalogRequest("shopper-a", "198.51.100.7:1111"))
	assert.Equal(t, http.StatusOK, w1.Code)

	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, catalogRequest("shopper-b", "198.51.100.7:1111"))
	assert.Equal(t, http.StatusOK, w2.Code)

	// The first shopper's budget is spent regardless of port.
	w3 := httptest.NewRecorder()
	handler.ServeHTTP(w3, catalogRequest("shopper-a", "198.51.100.7:2222"))
	assert.Equal(t, http.StatusTooManyRequests, w3.Code)
}

func TestRateLimit_SessionlessFallsBackToIP(t *testing.T) {
	handler := limited(t, 1)

	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, catalogRequest("", "203.0.113.9:1234"))
	assert.Equal(t, http.StatusOK, w1.Code)

	// Same IP, different port: still one client.
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, catalogRequest("", "203.0.113.9:5678"))
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)

	// Different IP is a different client.
	w3 := httptest.NewRecorder()
	handler.ServeHTTP(w3, catalogRequest("", "203.0.113.10:1234"))
	assert.Equal(t, http.StatusOK, w3.Code)
}

func TestRateLimit_ForwardedForIdentifiesClient(t *testing.T) {
	handler := limited(t, 1)

	req1 := catalogRequest("", "10.0.0.1:1111")
	req1.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)

	// Same first hop through a different proxy instance: same client.
	req2 := catalogRequest("", "10.0.0.2:2222")
	req2.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	handler := RateLimit(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-API-Key")
		},
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	admin := func(key string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
		req.Header.Set("X-API-Key", key)
		return req
	}

	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, admin("key-a"))
	assert.Equal(t, http.StatusOK, w1.Code)

	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, admin("key-a"))
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)

	w3 := httptest.NewRecorder()
	handler.ServeHTTP(w3, admin("key-b"))
	assert.Equal(t, http.StatusOK, w3.Code)
}

func TestLimiter_Evict(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 5, Window: time.Minute})
	now := time.Now()

	_, _, ok := l.take("s:stale", now)
	require.True(t, ok)
	_, _, ok = l.take("s:fresh", now.Add(90*time.Second))
	require.True(t, ok)

	l.evict(now.Add(3 * time.Minute))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.clients, "s:stale")
	assert.Contains(t, l.clients, "s:fresh")
}
