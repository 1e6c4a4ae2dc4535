package reconcile_payment

import "errors"

var (
	// ErrInvalidEvent событие без обязательных полей
	ErrInvalidEvent = errors.New("reconcile_payment: invalid event")

	// ErrInternal ошибка хранилища, провайдер должен повторить доставку
	ErrInternal = errors.New("reconcile_payment: internal error")
)
