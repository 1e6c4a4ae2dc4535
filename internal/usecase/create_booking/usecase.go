package create_booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	"github.com/m04kA/SMC-EduBookingService/internal/infra/broker"
	bookingRepo "github.com/m04kA/SMC-EduBookingService/internal/infra/storage/booking"
	courseRepo "github.com/m04kA/SMC-EduBookingService/internal/infra/storage/course"
	"github.com/m04kA/SMC-EduBookingService/internal/service/access"
)

// UseCase use case для создания бронирования
type UseCase struct {
	bookingRepo  BookingRepository
	courseRepo   CourseRepository
	checker      ConflictChecker
	scopes       ScopeResolver
	txManager    TransactionManager
	metrics      Metrics
	publisher    Publisher
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	courseRepo CourseRepository,
	checker ConflictChecker,
	scopes ScopeResolver,
	txManager TransactionManager,
	metrics Metrics,
	publisher Publisher,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookingRepo:  bookingRepo,
		courseRepo:   courseRepo,
		checker:      checker,
		scopes:       scopes,
		txManager:    txManager,
		metrics:      metrics,
		publisher:    publisher,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// WithTimeProvider подменяет источник времени
func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute создает бронирование.
// Проверка пересечений и вставка выполняются в одной транзакции под блокировкой
// расписания преподавателя, поэтому два пересекающихся бронирования не могут быть созданы одновременно.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*domain.Booking, error) {
	uc.logger.Info("CreateBooking: user=%s role=%s, course=%s, student=%s, teacher=%s, at=%s",
		req.Actor.UserID, req.Actor.Role, req.CourseID, req.StudentID, req.TeacherID, req.ScheduledAt.Format(time.RFC3339))

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CreateBooking: validation failed: %v", err)
		return nil, err
	}

	// 2. Права на создание для этой пары студент/преподаватель
	scope, err := uc.scopes.Resolve(ctx, req.Actor)
	if err != nil {
		if errors.Is(err, access.ErrNoProfile) {
			uc.logger.Warn("CreateBooking: user=%s has no %s profile", req.Actor.UserID, req.Actor.Role)
			return nil, ErrForbidden
		}
		uc.logger.Error("CreateBooking: failed to resolve scope: %v", err)
		return nil, fmt.Errorf("%w: failed to resolve scope: %v", ErrInternal, err)
	}
	if !scope.CanCreateFor(req.StudentID, req.TeacherID) {
		uc.logger.Warn("CreateBooking: user=%s may not book for student=%s teacher=%s",
			req.Actor.UserID, req.StudentID, req.TeacherID)
		return nil, ErrForbidden
	}

	// 3. Курс должен существовать и быть активным
	course, err := uc.courseRepo.GetByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, courseRepo.ErrCourseNotFound) {
			uc.logger.Warn("CreateBooking: course id=%s not found", req.CourseID)
			return nil, ErrCourseNotFound
		}
		uc.logger.Error("CreateBooking: failed to get course id=%s: %v", req.CourseID, err)
		return nil, fmt.Errorf("%w: failed to get course: %v", ErrInternal, err)
	}
	if !course.IsActive {
		uc.logger.Warn("CreateBooking: course id=%s is inactive", req.CourseID)
		return nil, ErrCourseNotFound
	}

	// 4. Время окончания всегда считается по длительности курса
	endTime, err := domain.EndTimeFor(req.ScheduledAt, course.DurationMinutes)
	if err != nil {
		uc.logger.Error("CreateBooking: course id=%s has invalid duration: %v", course.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	interval, err := domain.NewTimeInterval(req.ScheduledAt, endTime)
	if err != nil {
		return nil, invalidField("scheduledAt", err.Error())
	}

	now := uc.timeProvider.Now()
	booking := &domain.Booking{
		CourseID:    req.CourseID,
		StudentID:   req.StudentID,
		TeacherID:   req.TeacherID,
		ScheduledAt: interval.Start,
		EndTime:     interval.End,
		Status:      domain.InitialStatus(req.Actor.Role),
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var result *domain.Booking

	// 5. Блокировка преподавателя, проверка пересечений и вставка в одной транзакции
	err = uc.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := uc.bookingRepo.LockTeacher(txCtx, req.TeacherID); err != nil {
			uc.logger.Error("CreateBooking: failed to lock teacher=%s: %v", req.TeacherID, err)
			return fmt.Errorf("%w: failed to lock teacher: %v", ErrInternal, err)
		}

		conflict, err := uc.checker.CheckConflict(txCtx, req.TeacherID, interval, "")
		if err != nil {
			uc.logger.Error("CreateBooking: conflict check failed: %v", err)
			return fmt.Errorf("%w: conflict check failed: %v", ErrInternal, err)
		}
		if conflict != nil {
			uc.logger.Warn("CreateBooking: teacher=%s busy at %s, overlaps booking id=%s",
				req.TeacherID, interval, conflict.ID)
			return ErrConflict
		}

		created, err := uc.bookingRepo.Create(txCtx, booking)
		if err != nil {
			return uc.mapCreateError(err)
		}

		result = created
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			uc.metrics.IncBookingConflict()
		}
		return nil, err
	}

	uc.metrics.IncBookingCreated(string(result.Status))
	uc.logger.Info("CreateBooking: successfully created booking id=%s status=%s", result.ID, result.Status)

	uc.publish(ctx, result)
	return result, nil
}

func (uc *UseCase) mapCreateError(err error) error {
	switch {
	case errors.Is(err, bookingRepo.ErrOverlap):
		// Сработало ограничение исключения в БД
		uc.logger.Warn("CreateBooking: overlap rejected by storage constraint: %v", err)
		return ErrConflict
	case errors.Is(err, bookingRepo.ErrReferenceNotFound):
		uc.logger.Warn("CreateBooking: unknown student or teacher: %v", err)
		return ErrParticipantNotFound
	default:
		uc.logger.Error("CreateBooking: failed to create booking: %v", err)
		return fmt.Errorf("%w: failed to create booking: %v", ErrInternal, err)
	}
}

func (uc *UseCase) publish(ctx context.Context, b *domain.Booking) {
	event := broker.BookingChanged{
		BookingID:   b.ID,
		TeacherID:   b.TeacherID,
		StudentID:   b.StudentID,
		Status:      string(b.Status),
		ScheduledAt: b.ScheduledAt,
		EndTime:     b.EndTime,
	}
	if err := uc.publisher.PublishJSON(ctx, broker.RoutingKeyBookingCreated, event); err != nil {
		uc.logger.Warn("CreateBooking: failed to publish event for booking id=%s: %v", b.ID, err)
	}
}
