package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInterval конец интервала не позже начала
	ErrInvalidInterval = errors.New("domain: interval end must be after start")

	// ErrInvalidStatus неизвестный статус
	ErrInvalidStatus = errors.New("domain: invalid status")

	// ErrInvalidTransition переход статуса запрещен машиной состояний
	ErrInvalidTransition = errors.New("domain: invalid status transition")

	// ErrInvalidRole неизвестная роль
	ErrInvalidRole = errors.New("domain: invalid role")

	// ErrInvalidDuration длительность курса не положительна
	ErrInvalidDuration = errors.New("domain: course duration must be positive")

	// ErrEmptyPatch в патче нет ни одного поля
	ErrEmptyPatch = errors.New("domain: patch has no fields")

	// ErrForbidden роли не разрешено запрошенное изменение
	ErrForbidden = errors.New("domain: forbidden")
)

// FieldError ошибка валидации конкретного поля запроса
type FieldError struct {
	Field string
	Err   error
}

// NewFieldError оборачивает err с указанием поля
func NewFieldError(field string, err error) *FieldError {
	return &FieldError{Field: field, Err: err}
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// FieldOf возвращает имя поля из цепочки ошибок, если оно есть
func FieldOf(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}
