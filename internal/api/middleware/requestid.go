package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const HeaderRequestID = "X-Request-ID"

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
}

// RequestID присваивает запросу идентификатор (или берет присланный) и пишет access log
func RequestID(logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, id)

			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))

			logger.Info("http request_id=%s method=%s path=%s status=%d dur=%s",
				id, r.Method, r.URL.Path, rec.status, time.Since(start))
		})
	}
}

// GetRequestID идентификатор текущего запроса
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
