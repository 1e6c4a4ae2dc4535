package create_booking

import (
	"time"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
)

// Request модель запроса на создание бронирования
type Request struct {
	Actor       domain.Actor // кто создает
	CourseID    string
	StudentID   string
	TeacherID   string
	ScheduledAt time.Time // начало занятия, конец считается по длительности курса
	Notes       *string   // опционально
}
