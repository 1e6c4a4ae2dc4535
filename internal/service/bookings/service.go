package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-EduBookingService/internal/infra/storage/booking"
	"github.com/m04kA/SMC-EduBookingService/internal/service/access"
	"github.com/m04kA/SMC-EduBookingService/internal/service/bookings/models"
)

// Service чтение и удаление бронирований с учетом области видимости актора
type Service struct {
	bookingRepo BookingRepository
	scopes      ScopeResolver
	logger      Logger
}

// NewService создает новый экземпляр сервиса бронирований
func NewService(
	bookingRepo BookingRepository,
	scopes ScopeResolver,
	logger Logger,
) *Service {
	return &Service{
		bookingRepo: bookingRepo,
		scopes:      scopes,
		logger:      logger,
	}
}

// List возвращает страницу бронирований.
// Для студента и преподавателя фильтр по чужому профилю заменяется их собственным.
func (s *Service) List(ctx context.Context, actor domain.Actor, req *models.ListBookingsRequest) (*models.BookingListResponse, error) {
	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("List: invalid filter from user=%s: %v", actor.UserID, err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	filter = filter.Normalize()

	scope, err := s.scopes.Resolve(ctx, actor)
	if errors.Is(err, access.ErrNoProfile) {
		// Без профиля видеть нечего
		s.logger.Warn("List: user=%s role=%s has no profile", actor.UserID, actor.Role)
		return models.FromDomainPage(domain.BookingPage{Page: filter.Page, Limit: filter.Limit}, actor.Role), nil
	}
	if err != nil {
		s.logger.Error("List: failed to resolve scope for user=%s: %v", actor.UserID, err)
		return nil, fmt.Errorf("%w: List - resolve scope: %v", ErrInternal, err)
	}

	filter = scope.Apply(filter)

	bookings, total, err := s.bookingRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("List: repository error for user=%s: %v", actor.UserID, err)
		return nil, fmt.Errorf("%w: List - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("List: fetched %d of %d bookings for user=%s role=%s", len(bookings), total, actor.UserID, actor.Role)
	return models.FromDomainPage(domain.BookingPage{
		Bookings: bookings,
		Page:     filter.Page,
		Limit:    filter.Limit,
		Total:    total,
	}, actor.Role), nil
}

// GetByID получает бронирование, невидимое актору бронирование считается отсутствующим
func (s *Service) GetByID(ctx context.Context, actor domain.Actor, id string) (*models.BookingResponse, error) {
	booking, err := s.loadVisible(ctx, actor, id, "GetByID")
	if err != nil {
		return nil, err
	}
	return models.FromDomainBooking(booking, actor.Role), nil
}

// Delete удаляет бронирование. Доступно только администратору.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if _, err := s.loadVisible(ctx, actor, id, "Delete"); err != nil {
		return err
	}

	if !actor.IsAdmin() {
		s.logger.Warn("Delete: user=%s role=%s is not allowed to delete booking id=%s", actor.UserID, actor.Role, id)
		return ErrForbidden
	}

	if err := s.bookingRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			return ErrBookingNotFound
		}
		s.logger.Error("Delete: repository error for booking id=%s: %v", id, err)
		return fmt.Errorf("%w: Delete - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("Delete: booking id=%s deleted by user=%s", id, actor.UserID)
	return nil
}

// loadVisible читает бронирование и проверяет, что актор его видит
func (s *Service) loadVisible(ctx context.Context, actor domain.Actor, id, op string) (*domain.Booking, error) {
	scope, err := s.scopes.Resolve(ctx, actor)
	if errors.Is(err, access.ErrNoProfile) {
		s.logger.Warn("%s: user=%s role=%s has no profile", op, actor.UserID, actor.Role)
		return nil, ErrBookingNotFound
	}
	if err != nil {
		s.logger.Error("%s: failed to resolve scope for user=%s: %v", op, actor.UserID, err)
		return nil, fmt.Errorf("%w: %s - resolve scope: %v", ErrInternal, op, err)
	}

	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			s.logger.Warn("%s: booking id=%s not found", op, id)
			return nil, ErrBookingNotFound
		}
		s.logger.Error("%s: repository error for booking id=%s: %v", op, id, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
	}

	if !scope.Visible(booking) {
		s.logger.Warn("%s: booking id=%s is not visible to user=%s", op, id, actor.UserID)
		return nil, ErrBookingNotFound
	}

	return booking, nil
}
