package create_booking

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-EduBookingService/internal/api/handlers"
	"github.com/m04kA/SMC-EduBookingService/internal/api/middleware"
	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	"github.com/m04kA/SMC-EduBookingService/internal/service/bookings/models"
	createBooking "github.com/m04kA/SMC-EduBookingService/internal/usecase/create_booking"
)

const (
	msgInvalidRequestBody  = "некорректное тело запроса"
	msgInvalidScheduledAt  = "некорректное время начала, ожидается RFC 3339"
	msgMissingUserID       = "отсутствует ID пользователя"
	msgInvalidInput        = "не заполнены обязательные поля"
	msgCourseNotFound      = "курс не найден"
	msgParticipantNotFound = "студент или преподаватель не найден"
	msgForbidden           = "нельзя создать бронирование для другого пользователя"
	msgConflict            = "преподаватель занят в выбранное время"
)

type Handler struct {
	useCase CreateBookingUseCase
	logger  Logger
}

func NewHandler(useCase CreateBookingUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/bookings
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("POST /bookings - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req CreateBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /bookings - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest(actor)
	if err != nil {
		h.logger.Warn("POST /bookings - Failed to parse request: %v", err)
		handlers.RespondBadRequest(w, msgInvalidScheduledAt, domain.FieldOf(err))
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, createBooking.ErrInvalidInput):
			h.logger.Warn("POST /bookings - Validation failed: user_id=%s, error=%v", actor.UserID, err)
			handlers.RespondBadRequest(w, msgInvalidInput, domain.FieldOf(err))

		case errors.Is(err, createBooking.ErrConflict):
			// Детали чужого занятия в ответ не попадают
			h.logger.Warn("POST /bookings - Teacher busy: teacher_id=%s, at=%s", req.TeacherID, req.ScheduledAt)
			handlers.RespondConflict(w, msgConflict)

		case errors.Is(err, createBooking.ErrCourseNotFound):
			h.logger.Warn("POST /bookings - Course not found: course_id=%s", req.CourseID)
			handlers.RespondNotFound(w, msgCourseNotFound)

		case errors.Is(err, createBooking.ErrParticipantNotFound):
			h.logger.Warn("POST /bookings - Participant not found: student_id=%s, teacher_id=%s", req.StudentID, req.TeacherID)
			handlers.RespondNotFound(w, msgParticipantNotFound)

		case errors.Is(err, createBooking.ErrForbidden):
			h.logger.Warn("POST /bookings - Forbidden: user_id=%s, role=%s, student_id=%s, teacher_id=%s",
				actor.UserID, actor.Role, req.StudentID, req.TeacherID)
			handlers.RespondForbidden(w, msgForbidden)

		default:
			h.logger.Error("POST /bookings - Failed to create booking: user_id=%s, error=%v", actor.UserID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /bookings - Booking created successfully: booking_id=%s, user_id=%s, status=%s",
		result.ID, actor.UserID, result.Status)
	handlers.RespondJSON(w, http.StatusCreated, models.FromDomainBooking(result, actor.Role))
}
