package bookings

import (
	"context"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	List(ctx context.Context, filter domain.BookingFilter) ([]*domain.Booking, int, error)
	Delete(ctx context.Context, id string) error
}

// ScopeResolver определяет область видимости актора
type ScopeResolver interface {
	Resolve(ctx context.Context, actor domain.Actor) (domain.Scope, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
