// Package availability ищет пересечения с активными бронированиями преподавателя.
package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
)

// ErrInternal возвращается при ошибках хранилища
var ErrInternal = errors.New("availability: internal error")

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetBlockingByTeacher(ctx context.Context, teacherID string, interval domain.TimeInterval) ([]*domain.Booking, error)
}

// Checker проверка пересечений. Вызывается внутри транзакции бронирования
// после блокировки расписания преподавателя.
type Checker struct {
	bookingRepo BookingRepository
}

func NewChecker(bookingRepo BookingRepository) *Checker {
	return &Checker{bookingRepo: bookingRepo}
}

// CheckConflict возвращает первое активное бронирование преподавателя, пересекающееся
// с interval, или nil. excludeBookingID (может быть пустым) не учитывается, это нужно при переносе.
func (c *Checker) CheckConflict(ctx context.Context, teacherID string, interval domain.TimeInterval, excludeBookingID string) (*domain.Booking, error) {
	candidates, err := c.bookingRepo.GetBlockingByTeacher(ctx, teacherID, interval)
	if err != nil {
		return nil, fmt.Errorf("%w: CheckConflict - load teacher bookings: %v", ErrInternal, err)
	}

	// SQL фильтр предварительный, решает domain.Overlaps
	for _, b := range candidates {
		if excludeBookingID != "" && b.ID == excludeBookingID {
			continue
		}
		if !b.IsBlocking() {
			continue
		}
		if domain.Overlaps(b.Interval(), interval) {
			return b, nil
		}
	}

	return nil, nil
}
