package delete_booking

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-EduBookingService/internal/api/handlers"
	"github.com/m04kA/SMC-EduBookingService/internal/api/middleware"
	"github.com/m04kA/SMC-EduBookingService/internal/service/bookings"
)

const (
	msgNotFound      = "бронирование не найдено"
	msgMissingUserID = "отсутствует ID пользователя"
	msgForbidden     = "удалять бронирования может только администратор"
)

type Handler struct {
	service BookingService
	logger  Logger
}

func NewHandler(service BookingService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle DELETE /api/v1/bookings/{bookingId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID := mux.Vars(r)["bookingId"]

	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("DELETE /bookings/{id} - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	if err := h.service.Delete(r.Context(), actor, bookingID); err != nil {
		switch {
		case errors.Is(err, bookings.ErrBookingNotFound):
			h.logger.Warn("DELETE /bookings/{id} - Booking not found: booking_id=%s", bookingID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, bookings.ErrForbidden):
			h.logger.Warn("DELETE /bookings/{id} - Forbidden: booking_id=%s, user_id=%s, role=%s",
				bookingID, actor.UserID, actor.Role)
			handlers.RespondForbidden(w, msgForbidden)

		default:
			h.logger.Error("DELETE /bookings/{id} - Failed to delete booking: booking_id=%s, error=%v", bookingID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("DELETE /bookings/{id} - Booking deleted: booking_id=%s, user_id=%s", bookingID, actor.UserID)
	handlers.RespondNoContent(w)
}
