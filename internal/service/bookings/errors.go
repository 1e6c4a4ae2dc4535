package bookings

import "errors"

var (
	// ErrBookingNotFound бронирование не найдено или не видно актору
	ErrBookingNotFound = errors.New("booking not found")

	// ErrForbidden у актора нет прав на операцию
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("service: internal error")
)
