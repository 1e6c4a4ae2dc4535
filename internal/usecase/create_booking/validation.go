package create_booking

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	required := []struct {
		field string
		value string
	}{
		{"courseId", req.CourseID},
		{"studentId", req.StudentID},
		{"teacherId", req.TeacherID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return invalidField(r.field, "is required")
		}
	}

	// Профили адресуются по UUID, иначе хранилище отвечает ошибкой синтаксиса
	ids := []struct {
		field string
		value string
	}{
		{"studentId", req.StudentID},
		{"teacherId", req.TeacherID},
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id.value); err != nil {
			return invalidField(id.field, "must be a UUID")
		}
	}

	if req.ScheduledAt.IsZero() {
		return invalidField("scheduledAt", "is required")
	}

	return nil
}

func invalidField(field, reason string) error {
	return domain.NewFieldError(field, fmt.Errorf("%w: %s %s", ErrInvalidInput, field, reason))
}
