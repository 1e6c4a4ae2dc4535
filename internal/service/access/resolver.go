// Package access определяет область видимости бронирований для аутентифицированного пользователя.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	profileRepo "github.com/m04kA/SMC-EduBookingService/internal/infra/storage/profile"
)

var (
	// ErrNoProfile у студента или преподавателя нет соответствующего профиля
	ErrNoProfile = errors.New("access: user has no profile for role")

	// ErrInternal возвращается при ошибках хранилища
	ErrInternal = errors.New("access: internal error")
)

// ProfileRepository интерфейс репозитория профилей
type ProfileRepository interface {
	GetStudentIDByUserID(ctx context.Context, userID string) (string, error)
	GetTeacherIDByUserID(ctx context.Context, userID string) (string, error)
}

// Resolver сопоставляет актора с профилем
type Resolver struct {
	profiles ProfileRepository
}

func NewResolver(profiles ProfileRepository) *Resolver {
	return &Resolver{profiles: profiles}
}

// Resolve возвращает область видимости актора
func (r *Resolver) Resolve(ctx context.Context, actor domain.Actor) (domain.Scope, error) {
	var (
		lookup func(ctx context.Context, userID string) (string, error)
		scope  func(id string) domain.Scope
	)

	switch actor.Role {
	case domain.RoleAdmin:
		return domain.AdminScope(), nil
	case domain.RoleStudent:
		lookup, scope = r.profiles.GetStudentIDByUserID, domain.StudentScope
	case domain.RoleTeacher:
		lookup, scope = r.profiles.GetTeacherIDByUserID, domain.TeacherScope
	default:
		return domain.Scope{}, fmt.Errorf("%w: %q", domain.ErrInvalidRole, actor.Role)
	}

	id, err := lookup(ctx, actor.UserID)
	if errors.Is(err, profileRepo.ErrProfileNotFound) {
		return domain.Scope{}, fmt.Errorf("%w: user=%s role=%s", ErrNoProfile, actor.UserID, actor.Role)
	}
	if err != nil {
		return domain.Scope{}, fmt.Errorf("%w: Resolve - profile lookup: %v", ErrInternal, err)
	}

	return scope(id), nil
}
