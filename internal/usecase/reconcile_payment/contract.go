package reconcile_payment

import (
	"context"
	"time"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
)

// PaymentRepository интерфейс репозитория платежей
type PaymentRepository interface {
	GetByExternalReference(ctx context.Context, externalReferenceID string) (*domain.Payment, error)
	ApplyTransition(ctx context.Context, externalReferenceID string, tr domain.PaymentTransition, at time.Time) (*domain.Payment, error)
}

// EnrollmentRepository интерфейс репозитория записей на курс
type EnrollmentRepository interface {
	Activate(ctx context.Context, courseID, studentID string, at time.Time) (*domain.CourseEnrollment, bool, error)
	EnsureExists(ctx context.Context, courseID, studentID string, at time.Time) (*domain.CourseEnrollment, bool, error)
}

// CourseRepository интерфейс репозитория курсов
type CourseRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Course, error)
}

// EventCache отметки об обработанных событиях
type EventCache interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics доменные счетчики
type Metrics interface {
	IncWebhookEvent(kind, outcome string)
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
