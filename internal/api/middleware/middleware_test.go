package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
)

func TestAuth(t *testing.T) {
	var got domain.Actor
	h := Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		got, ok = GetActor(r.Context())
		require.True(t, ok)
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		userID string
		role   string
		status int
	}{
		{"valid", "u-1", "teacher", http.StatusOK},
		{"missing user", "", "ADMIN", http.StatusUnauthorized},
		{"missing role", "u-1", "", http.StatusUnauthorized},
		{"unknown role", "u-1", "GUEST", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set(HeaderUserID, tt.userID)
			r.Header.Set(HeaderUserRole, tt.role)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, r)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
	assert.Equal(t, domain.Actor{UserID: "u-1", Role: domain.RoleTeacher}, got)
}

type observed struct {
	method, route string
	status        int
}

type fakeHTTPMetrics struct {
	mu  sync.Mutex
	got []observed
}

func (f *fakeHTTPMetrics) ObserveHTTPRequest(method, route string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, observed{method, route, status})
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	m := &fakeHTTPMetrics{}
	r := mux.NewRouter()
	r.Use(MetricsMiddleware(m))
	r.HandleFunc("/api/v1/bookings/{bookingId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodGet)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bookings/abc", nil))

	require.Len(t, m.got, 1)
	assert.Equal(t, observed{http.MethodGet, "/api/v1/bookings/{bookingId}", http.StatusNotFound}, m.got[0])
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	h := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(addr string) int {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000"), "other clients have their own bucket")
}

func TestRateLimiterCleanupEvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(0.001, 1).WithIdleTTL(time.Minute)
	limiter.now = func() time.Time { return now }

	h := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	send := func(addr string) int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	require.Equal(t, http.StatusOK, send("10.0.0.2:1000"))
	require.Equal(t, 2, limiter.Len())

	now = now.Add(50 * time.Second)
	require.Equal(t, http.StatusTooManyRequests, send("10.0.0.2:1001"), "a rejected request still counts as activity")

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, limiter.Cleanup())
	assert.Equal(t, 1, limiter.Len())
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.2:1002"), "active client keeps its bucket")
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1001"), "evicted client starts with a fresh bucket")
}

func TestRateLimiterRunCleanupStops(t *testing.T) {
	limiter := NewRateLimiter(1, 1).WithIdleTTL(time.Nanosecond)
	limiter.getLimiter("ip:10.0.0.1")

	stopCh := make(chan struct{})
	done := make(chan struct{})
	go func() {
		limiter.RunCleanup(time.Millisecond, stopCh)
		close(done)
	}()

	assert.Eventually(t, func() bool { return limiter.Len() == 0 }, time.Second, time.Millisecond)
	close(stopCh)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	h := NewRateLimiter(0, 1).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

type lines struct {
	mu  sync.Mutex
	out []string
}

func (l *lines) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = append(l.out, fmt.Sprintf(format, v...))
}

func TestRequestID(t *testing.T) {
	log := &lines{}
	var seen string
	h := RequestID(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(HeaderRequestID))
	require.Len(t, log.out, 1)
	assert.Contains(t, log.out[0], "status=201")

	const incoming = "3f1c2e1e-5a4b-4c8e-9f53-1c1f3f5e2a10"
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, incoming)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, incoming, seen)
}
