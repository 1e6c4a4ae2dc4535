package update_booking

import (
	"context"
	"time"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error)
	LockTeacher(ctx context.Context, teacherID string) error
	Update(ctx context.Context, booking *domain.Booking) error
}

// CourseRepository интерфейс репозитория курсов
type CourseRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Course, error)
}

// ConflictChecker проверка пересечений с расписанием преподавателя
type ConflictChecker interface {
	CheckConflict(ctx context.Context, teacherID string, interval domain.TimeInterval, excludeBookingID string) (*domain.Booking, error)
}

// ScopeResolver определяет область видимости актора
type ScopeResolver interface {
	Resolve(ctx context.Context, actor domain.Actor) (domain.Scope, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics доменные счетчики
type Metrics interface {
	IncBookingConflict()
}

// Publisher публикация событий после фиксации транзакции
type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

// TimeProvider интерфейс для получения текущего времени
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now().UTC()
}
