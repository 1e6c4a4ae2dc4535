package list_bookings

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-EduBookingService/internal/api/handlers"
	"github.com/m04kA/SMC-EduBookingService/internal/api/middleware"
	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	"github.com/m04kA/SMC-EduBookingService/internal/service/bookings"
)

const (
	msgMissingUserID = "отсутствует ID пользователя"
	msgInvalidParams = "некорректные параметры запроса"
	msgInvalidFilter = "некорректный фильтр бронирований"
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

// Handle GET /api/v1/bookings
// Query params: status, studentId, teacherId, page, limit (опционально)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("GET /bookings - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	serviceReq, err := ToServiceRequest(r.URL.Query())
	if err != nil {
		h.logger.Warn("GET /bookings - Invalid parameters: %v", err)
		handlers.RespondBadRequest(w, msgInvalidParams, domain.FieldOf(err))
		return
	}

	result, err := h.service.List(r.Context(), actor, serviceReq)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrInvalidInput):
			h.logger.Warn("GET /bookings - Invalid filter: user_id=%s, error=%v", actor.UserID, err)
			handlers.RespondBadRequest(w, msgInvalidFilter, domain.FieldOf(err))

		default:
			h.logger.Error("GET /bookings - Failed to list bookings: user_id=%s, error=%v", actor.UserID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /bookings - Bookings retrieved successfully: user_id=%s, count=%d, total=%d",
		actor.UserID, len(result.Bookings), result.Pagination.Total)
	handlers.RespondJSON(w, http.StatusOK, result)
}
