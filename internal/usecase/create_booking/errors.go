package create_booking

import "errors"

var (
	// ErrCourseNotFound курс не найден или не активен
	ErrCourseNotFound = errors.New("create_booking: course not found")

	// ErrParticipantNotFound студент или преподаватель не найден
	ErrParticipantNotFound = errors.New("create_booking: student or teacher not found")

	// ErrForbidden актор не может создать бронирование для этого студента или преподавателя
	ErrForbidden = errors.New("create_booking: forbidden")

	// ErrConflict время преподавателя уже занято
	ErrConflict = errors.New("create_booking: teacher is not available at this time")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("create_booking: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_booking: internal error")
)
