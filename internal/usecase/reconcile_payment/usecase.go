package reconcile_payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	"github.com/m04kA/SMC-EduBookingService/internal/infra/broker"
	courseRepo "github.com/m04kA/SMC-EduBookingService/internal/infra/storage/course"
	paymentRepo "github.com/m04kA/SMC-EduBookingService/internal/infra/storage/payment"
)

// UseCase применяет события платежного провайдера к платежам и записям на курсы
type UseCase struct {
	paymentRepo    PaymentRepository
	enrollmentRepo EnrollmentRepository
	courseRepo     CourseRepository
	cache          EventCache
	txManager      TransactionManager
	metrics        Metrics
	publisher      Publisher
	timeProvider   TimeProvider
	logger         Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	paymentRepo PaymentRepository,
	enrollmentRepo EnrollmentRepository,
	courseRepo CourseRepository,
	cache EventCache,
	txManager TransactionManager,
	metrics Metrics,
	publisher Publisher,
	logger Logger,
) *UseCase {
	return &UseCase{
		paymentRepo:    paymentRepo,
		enrollmentRepo: enrollmentRepo,
		courseRepo:     courseRepo,
		cache:          cache,
		txManager:      txManager,
		metrics:        metrics,
		publisher:      publisher,
		timeProvider:   &RealTimeProvider{},
		logger:         logger,
	}
}

// WithTimeProvider подменяет источник времени
func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute обрабатывает проверенное событие провайдера.
// Повторная доставка того же события ничего не меняет. Ошибка возвращается только
// при сбое хранилища, тогда провайдер доставит событие снова.
func (uc *UseCase) Execute(ctx context.Context, event *domain.PaymentEvent) (*Result, error) {
	uc.logger.Info("ReconcilePayment: event=%s type=%s kind=%s ref=%s",
		event.ID, event.ProviderType, event.Kind, event.ExternalReferenceID)

	result, err := uc.execute(ctx, event)
	if err != nil {
		uc.metrics.IncWebhookEvent(string(event.Kind), "error")
		return nil, err
	}

	uc.metrics.IncWebhookEvent(string(event.Kind), string(result.Outcome))
	return result, nil
}

func (uc *UseCase) execute(ctx context.Context, event *domain.PaymentEvent) (*Result, error) {
	tr, ok := domain.TransitionFor(event.Kind)
	if !ok {
		uc.logger.Info("ReconcilePayment: event=%s type=%s ignored", event.ID, event.ProviderType)
		return &Result{Outcome: OutcomeIgnored}, nil
	}
	if event.ExternalReferenceID == "" {
		return nil, fmt.Errorf("%w: event %s has no payment reference", ErrInvalidEvent, event.ID)
	}

	if event.ID != "" {
		seen, err := uc.cache.Seen(ctx, event.ID)
		if err != nil {
			uc.logger.Warn("ReconcilePayment: event cache unavailable, falling back to storage: %v", err)
		}
		if seen {
			uc.logger.Info("ReconcilePayment: event=%s already processed", event.ID)
			return &Result{Outcome: OutcomeDuplicate}, nil
		}
	}

	now := uc.timeProvider.Now()
	result := &Result{}

	err := uc.txManager.Do(ctx, func(txCtx context.Context) error {
		payment, err := uc.paymentRepo.ApplyTransition(txCtx, event.ExternalReferenceID, tr, now)
		switch {
		case err == nil:
			result.Outcome = OutcomeApplied
			result.Payment = payment
		case errors.Is(err, paymentRepo.ErrTransitionNotApplied):
			if err := uc.classifyNotApplied(txCtx, event, tr, result); err != nil {
				return err
			}
		default:
			uc.logger.Error("ReconcilePayment: failed to apply %s to ref=%s: %v", tr.Kind, event.ExternalReferenceID, err)
			return fmt.Errorf("%w: apply transition: %v", ErrInternal, err)
		}

		// Повтор checkout тоже проверяет запись на курс: payment_succeeded мог прийти раньше
		if tr.ActivatesEnrollment && (result.Outcome == OutcomeApplied || result.Outcome == OutcomeDuplicate) {
			return uc.activateEnrollment(txCtx, event, result, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("ReconcilePayment: event=%s ref=%s outcome=%s", event.ID, event.ExternalReferenceID, result.Outcome)

	uc.afterCommit(ctx, event, result)
	return result, nil
}

// classifyNotApplied объясняет, почему условное обновление не затронуло ни одной строки
func (uc *UseCase) classifyNotApplied(ctx context.Context, event *domain.PaymentEvent, tr domain.PaymentTransition, result *Result) error {
	payment, err := uc.paymentRepo.GetByExternalReference(ctx, event.ExternalReferenceID)
	if errors.Is(err, paymentRepo.ErrPaymentNotFound) {
		uc.logger.Warn("ReconcilePayment: no payment for ref=%s, event=%s dropped", event.ExternalReferenceID, event.ID)
		result.Outcome = OutcomePaymentNotFound
		return nil
	}
	if err != nil {
		uc.logger.Error("ReconcilePayment: failed to load payment ref=%s: %v", event.ExternalReferenceID, err)
		return fmt.Errorf("%w: load payment: %v", ErrInternal, err)
	}

	result.Payment = payment
	if payment.Status == tr.To {
		result.Outcome = OutcomeDuplicate
		return nil
	}

	uc.logger.Warn("ReconcilePayment: %s not applicable to payment ref=%s in status %s, skipped",
		tr.Kind, event.ExternalReferenceID, payment.Status)
	result.Outcome = OutcomePreconditionFailed
	return nil
}

// activateEnrollment активирует запись студента платежа на курс из метаданных события.
// Для повторной доставки запись только создается при отсутствии.
// Неизвестный или отсутствующий курс не мешает завершению платежа.
func (uc *UseCase) activateEnrollment(ctx context.Context, event *domain.PaymentEvent, result *Result, now time.Time) error {
	if event.CourseID == nil || *event.CourseID == "" {
		uc.logger.Warn("ReconcilePayment: event=%s has no courseId, enrollment skipped", event.ID)
		return nil
	}
	courseID := *event.CourseID
	studentID := result.Payment.StudentID

	if event.StudentID != nil && *event.StudentID != studentID {
		uc.logger.Warn("ReconcilePayment: event=%s studentId=%s differs from payment student=%s, using payment",
			event.ID, *event.StudentID, studentID)
	}

	if _, err := uc.courseRepo.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, courseRepo.ErrCourseNotFound) {
			uc.logger.Warn("ReconcilePayment: event=%s references unknown course=%s, enrollment skipped", event.ID, courseID)
			return nil
		}
		return fmt.Errorf("%w: load course: %v", ErrInternal, err)
	}

	// Повтор checkout только досоздает отсутствующую запись и не трогает существующую
	activate := uc.enrollmentRepo.Activate
	if result.Outcome == OutcomeDuplicate {
		activate = uc.enrollmentRepo.EnsureExists
	}

	enrollment, created, err := activate(ctx, courseID, studentID, now)
	if err != nil {
		uc.logger.Error("ReconcilePayment: failed to activate enrollment course=%s student=%s: %v", courseID, studentID, err)
		return fmt.Errorf("%w: activate enrollment: %v", ErrInternal, err)
	}

	result.Enrollment = enrollment
	result.Enrolled = created
	return nil
}

func (uc *UseCase) afterCommit(ctx context.Context, event *domain.PaymentEvent, result *Result) {
	if result.Outcome.cacheable() && event.ID != "" {
		if err := uc.cache.MarkProcessed(ctx, event.ID); err != nil {
			uc.logger.Warn("ReconcilePayment: failed to remember event=%s: %v", event.ID, err)
		}
	}

	if result.Outcome == OutcomeApplied && result.Payment != nil {
		change := broker.PaymentStatusChanged{
			PaymentID:           result.Payment.ID,
			ExternalReferenceID: result.Payment.ExternalReferenceID,
			StudentID:           result.Payment.StudentID,
			Status:              string(result.Payment.Status),
			EventKind:           string(event.Kind),
			OccurredAt:          result.Payment.UpdatedAt,
		}
		if err := uc.publisher.PublishJSON(ctx, broker.RoutingKeyPaymentStatusChanged, change); err != nil {
			uc.logger.Warn("ReconcilePayment: failed to publish payment status for ref=%s: %v", change.ExternalReferenceID, err)
		}
	}

	if result.Enrollment != nil && (result.Outcome == OutcomeApplied || result.Enrolled) {
		activated := broker.EnrollmentActivated{
			CourseID:  result.Enrollment.CourseID,
			StudentID: result.Enrollment.StudentID,
			Created:   result.Enrolled,
			At:        result.Enrollment.UpdatedAt,
		}
		if err := uc.publisher.PublishJSON(ctx, broker.RoutingKeyEnrollmentActivated, activated); err != nil {
			uc.logger.Warn("ReconcilePayment: failed to publish enrollment for course=%s student=%s: %v",
				activated.CourseID, activated.StudentID, err)
		}
	}
}
