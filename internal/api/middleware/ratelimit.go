package middleware

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/m04kA/SMC-EduBookingService/internal/api/handlers"
)

const (
	defaultBurst       = 5
	defaultIdleTTL     = 10 * time.Minute
	msgTooManyRequests = "слишком много запросов"
)

// RateLimiter ограничение частоты запросов на клиента.
// Ключ клиента: пользователь из Auth, иначе IP адрес.
// Клиенты, не обращавшиеся дольше idleTTL, удаляются при очистке.
type RateLimiter struct {
	limiters sync.Map // map[string]*clientLimiter
	rps      float64
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nano
}

// NewRateLimiter rps <= 0 отключает ограничение
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = defaultBurst
	}
	return &RateLimiter{rps: rps, burst: burst, idleTTL: defaultIdleTTL, now: time.Now}
}

// WithIdleTTL задает время простоя, после которого клиент забывается
func (l *RateLimiter) WithIdleTTL(ttl time.Duration) *RateLimiter {
	if ttl > 0 {
		l.idleTTL = ttl
	}
	return l
}

// RunCleanup периодически удаляет простаивающих клиентов до закрытия stopCh
func (l *RateLimiter) RunCleanup(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-stopCh:
			return
		}
	}
}

// Cleanup удаляет клиентов без запросов дольше idleTTL и возвращает их число
func (l *RateLimiter) Cleanup() int {
	deadline := l.now().Add(-l.idleTTL).UnixNano()
	removed := 0
	l.limiters.Range(func(key, value any) bool {
		if value.(*clientLimiter).lastSeen.Load() < deadline {
			l.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Len число отслеживаемых клиентов
func (l *RateLimiter) Len() int {
	n := 0
	l.limiters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Middleware отвечает 429, когда клиент превысил лимит
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.rps > 0 && !l.getLimiter(clientKey(r)).Allow() {
			handlers.RespondTooManyRequests(w, msgTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) getLimiter(key string) *rate.Limiter {
	now := l.now().UnixNano()
	if v, ok := l.limiters.Load(key); ok {
		entry := v.(*clientLimiter)
		entry.lastSeen.Store(now)
		return entry.limiter
	}

	entry := &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
	entry.lastSeen.Store(now)
	actual, loaded := l.limiters.LoadOrStore(key, entry)
	if loaded {
		entry = actual.(*clientLimiter)
		entry.lastSeen.Store(now)
	}
	return entry.limiter
}

func clientKey(r *http.Request) string {
	if userID, ok := GetUserID(r.Context()); ok && userID != "" {
		return "user:" + userID
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return "ip:" + host
	}
	return "unknown"
}
