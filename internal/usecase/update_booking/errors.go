package update_booking

import "errors"

var (
	// ErrBookingNotFound бронирование не найдено или не видно актору
	ErrBookingNotFound = errors.New("update_booking: booking not found")

	// ErrForbidden роли не разрешено изменение
	ErrForbidden = errors.New("update_booking: forbidden")

	// ErrConflict новое время пересекается с другим занятием преподавателя
	ErrConflict = errors.New("update_booking: teacher is not available at this time")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("update_booking: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("update_booking: internal error")
)
