package list_bookings

import (
	"context"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	"github.com/m04kA/SMC-EduBookingService/internal/service/bookings/models"
)

type BookingService interface {
	List(ctx context.Context, actor domain.Actor, req *models.ListBookingsRequest) (*models.BookingListResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
