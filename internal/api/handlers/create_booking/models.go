package create_booking

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	createBooking "github.com/m04kA/SMC-EduBookingService/internal/usecase/create_booking"
)

// CreateBookingRequest HTTP request model
type CreateBookingRequest struct {
	CourseID    string  `json:"courseId"`
	StudentID   string  `json:"studentId"`
	TeacherID   string  `json:"teacherId"`
	ScheduledAt string  `json:"scheduledAt"` // RFC 3339, "2025-03-10T09:00:00Z"
	Notes       *string `json:"notes,omitempty"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case.
// Время окончания не принимается от клиента.
func (r *CreateBookingRequest) ToUseCaseRequest(actor domain.Actor) (*createBooking.Request, error) {
	var scheduledAt time.Time
	if r.ScheduledAt != "" {
		t, err := time.Parse(time.RFC3339, r.ScheduledAt)
		if err != nil {
			return nil, domain.NewFieldError("scheduledAt", fmt.Errorf("expected RFC 3339: %v", err))
		}
		scheduledAt = t.UTC()
	}

	return &createBooking.Request{
		Actor:       actor,
		CourseID:    r.CourseID,
		StudentID:   r.StudentID,
		TeacherID:   r.TeacherID,
		ScheduledAt: scheduledAt,
		Notes:       r.Notes,
	}, nil
}
