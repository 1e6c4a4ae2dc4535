package delete_booking

import (
	"context"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
)

type BookingService interface {
	Delete(ctx context.Context, actor domain.Actor, id string) error
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
