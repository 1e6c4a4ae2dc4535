package update_booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	"github.com/m04kA/SMC-EduBookingService/internal/infra/broker"
	bookingRepo "github.com/m04kA/SMC-EduBookingService/internal/infra/storage/booking"
	"github.com/m04kA/SMC-EduBookingService/internal/service/access"
)

// UseCase use case для изменения бронирования
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

// Execute применяет патч к бронированию.
// Патч принимается целиком или отклоняется целиком. Перенос и возврат в активный статус
// повторно проверяют пересечения под блокировкой расписания преподавателя.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*domain.Booking, error) {
	uc.logger.Info("UpdateBooking: user=%s role=%s, booking=%s, fields=%v",
		req.Actor.UserID, req.Actor.Role, req.BookingID, req.Patch.Fields())

	if req.Patch.IsEmpty() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, domain.ErrEmptyPatch)
	}

	// 1. Видимость проверяется до любой логики изменения
	current, err := uc.loadVisible(ctx, req)
	if err != nil {
		return nil, err
	}

	// 2. Ранний отказ по таблице прав, без блокировок
	if err := domain.AuthorizePatch(req.Actor.Role, req.Patch); err != nil {
		uc.logger.Warn("UpdateBooking: user=%s role=%s rejected: %v", req.Actor.UserID, req.Actor.Role, err)
		return nil, mapPatchError(err)
	}

	// 3. Длительность курса нужна только для переноса
	var courseDuration time.Duration
	if req.Patch.ScheduledAt != nil {
		course, err := uc.courseRepo.GetByID(ctx, current.CourseID)
		if err != nil {
			uc.logger.Error("UpdateBooking: failed to get course id=%s: %v", current.CourseID, err)
			return nil, fmt.Errorf("%w: failed to get course: %v", ErrInternal, err)
		}
		courseDuration = course.Duration()
	}

	now := uc.timeProvider.Now()
	var (
		result *domain.Booking
		change domain.BookingChange
	)

	// 4. Блокировка преподавателя берется до блокировки строки, как и при создании
	err = uc.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := uc.bookingRepo.LockTeacher(txCtx, current.TeacherID); err != nil {
			uc.logger.Error("UpdateBooking: failed to lock teacher=%s: %v", current.TeacherID, err)
			return fmt.Errorf("%w: failed to lock teacher: %v", ErrInternal, err)
		}

		booking, err := uc.bookingRepo.GetByIDForUpdate(txCtx, req.BookingID)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrBookingNotFound) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("%w: failed to lock booking: %v", ErrInternal, err)
		}

		change, err = domain.ApplyPatch(booking, req.Actor.Role, req.Patch, courseDuration, now)
		if err != nil {
			uc.logger.Warn("UpdateBooking: patch rejected for booking id=%s: %v", booking.ID, err)
			return mapPatchError(err)
		}

		if change.NeedsConflictCheck() {
			conflict, err := uc.checker.CheckConflict(txCtx, booking.TeacherID, booking.Interval(), booking.ID)
			if err != nil {
				return fmt.Errorf("%w: conflict check failed: %v", ErrInternal, err)
			}
			if conflict != nil {
				uc.logger.Warn("UpdateBooking: booking id=%s at %s overlaps booking id=%s",
					booking.ID, booking.Interval(), conflict.ID)
				return ErrConflict
			}
		}

		if err := uc.bookingRepo.Update(txCtx, booking); err != nil {
			switch {
			case errors.Is(err, bookingRepo.ErrOverlap):
				uc.logger.Warn("UpdateBooking: overlap rejected by storage constraint: %v", err)
				return ErrConflict
			case errors.Is(err, bookingRepo.ErrBookingNotFound):
				return ErrBookingNotFound
			}
			uc.logger.Error("UpdateBooking: failed to update booking id=%s: %v", booking.ID, err)
			return fmt.Errorf("%w: failed to update booking: %v", ErrInternal, err)
		}

		result = booking
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			uc.metrics.IncBookingConflict()
		}
		return nil, err
	}

	uc.logger.Info("UpdateBooking: booking id=%s updated, status=%s rescheduled=%t reactivated=%t",
		result.ID, result.Status, change.Rescheduled, change.Reactivated)

	uc.publish(ctx, result)
	return result, nil
}

func (uc *UseCase) loadVisible(ctx context.Context, req *Request) (*domain.Booking, error) {
	scope, err := uc.scopes.Resolve(ctx, req.Actor)
	if err != nil {
		if errors.Is(err, access.ErrNoProfile) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("%w: failed to resolve scope: %v", ErrInternal, err)
	}

	booking, err := uc.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			uc.logger.Warn("UpdateBooking: booking id=%s not found", req.BookingID)
			return nil, ErrBookingNotFound
		}
		uc.logger.Error("UpdateBooking: failed to get booking id=%s: %v", req.BookingID, err)
		return nil, fmt.Errorf("%w: failed to get booking: %v", ErrInternal, err)
	}

	if !scope.Visible(booking) {
		uc.logger.Warn("UpdateBooking: booking id=%s is not visible to user=%s", req.BookingID, req.Actor.UserID)
		return nil, ErrBookingNotFound
	}

	return booking, nil
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
	if err := uc.publisher.PublishJSON(ctx, broker.RoutingKeyBookingUpdated, event); err != nil {
		uc.logger.Warn("UpdateBooking: failed to publish event for booking id=%s: %v", b.ID, err)
	}
}
