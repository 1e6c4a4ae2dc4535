package update_booking

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-EduBookingService/internal/api/handlers"
	"github.com/m04kA/SMC-EduBookingService/internal/api/middleware"
	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	"github.com/m04kA/SMC-EduBookingService/internal/service/bookings/models"
	updateBooking "github.com/m04kA/SMC-EduBookingService/internal/usecase/update_booking"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidField       = "некорректное значение поля"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgNotFound           = "бронирование не найдено"
	msgForbidden          = "недостаточно прав для изменения бронирования"
	msgConflict           = "преподаватель занят в выбранное время"
	msgInvalidInput       = "изменение недопустимо"
)

type Handler struct {
	useCase UpdateBookingUseCase
	logger  Logger
}

func NewHandler(useCase UpdateBookingUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle PATCH /api/v1/bookings/{bookingId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID := mux.Vars(r)["bookingId"]

	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("PATCH /bookings/{id} - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req UpdateBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /bookings/{id} - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	patch, err := req.ToPatch()
	if err != nil {
		h.logger.Warn("PATCH /bookings/{id} - Invalid field: %v", err)
		handlers.RespondBadRequest(w, msgInvalidField, domain.FieldOf(err))
		return
	}

	result, err := h.useCase.Execute(r.Context(), &updateBooking.Request{
		Actor:     actor,
		BookingID: bookingID,
		Patch:     patch,
	})
	if err != nil {
		switch {
		case errors.Is(err, updateBooking.ErrBookingNotFound):
			h.logger.Warn("PATCH /bookings/{id} - Booking not found: booking_id=%s, user_id=%s", bookingID, actor.UserID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, updateBooking.ErrForbidden):
			h.logger.Warn("PATCH /bookings/{id} - Forbidden: booking_id=%s, user_id=%s, role=%s, error=%v",
				bookingID, actor.UserID, actor.Role, err)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, updateBooking.ErrConflict):
			h.logger.Warn("PATCH /bookings/{id} - Teacher busy: booking_id=%s", bookingID)
			handlers.RespondConflict(w, msgConflict)

		case errors.Is(err, updateBooking.ErrInvalidInput):
			h.logger.Warn("PATCH /bookings/{id} - Invalid change: booking_id=%s, error=%v", bookingID, err)
			handlers.RespondBadRequest(w, msgInvalidInput, domain.FieldOf(err))

		default:
			h.logger.Error("PATCH /bookings/{id} - Failed to update booking: booking_id=%s, error=%v", bookingID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /bookings/{id} - Booking updated: booking_id=%s, user_id=%s, status=%s",
		bookingID, actor.UserID, result.Status)
	handlers.RespondJSON(w, http.StatusOK, models.FromDomainBooking(result, actor.Role))
}
