// Package middleware HTTP middleware сервиса.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/m04kA/SMC-EduBookingService/internal/api/handlers"
	"github.com/m04kA/SMC-EduBookingService/internal/domain"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	msgMissingUser = "отсутствует ID пользователя"
	msgInvalidRole = "некорректная роль пользователя"
)

type ctxKey int

const (
	actorKey ctxKey = iota
	requestIDKey
)

// Auth читает пользователя из заголовков, выставленных шлюзом.
// Без корректных заголовков запрос отклоняется с 401.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID == "" {
			handlers.RespondUnauthorized(w, msgMissingUser)
			return
		}

		role, err := domain.ParseRole(r.Header.Get(HeaderUserRole))
		if err != nil {
			handlers.RespondUnauthorized(w, msgInvalidRole)
			return
		}

		ctx := WithActor(r.Context(), domain.Actor{UserID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithActor кладет актора в контекст
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor достает актора, положенного Auth
func GetActor(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok
}

// GetUserID ID пользователя из контекста
func GetUserID(ctx context.Context) (string, bool) {
	actor, ok := GetActor(ctx)
	return actor.UserID, ok
}
