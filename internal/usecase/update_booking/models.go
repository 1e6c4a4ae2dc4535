package update_booking

import "github.com/m04kA/SMC-EduBookingService/internal/domain"

// Request модель запроса на изменение бронирования
type Request struct {
	Actor     domain.Actor
	BookingID string
	Patch     domain.BookingPatch
}
