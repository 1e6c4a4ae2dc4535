package payment

import "errors"

var (
	// ErrPaymentNotFound возвращается, когда платеж с таким external_reference_id не найден
	ErrPaymentNotFound = errors.New("payment.repository: payment not found")

	// ErrTransitionNotApplied возвращается, когда условное обновление не затронуло ни одной строки
	ErrTransitionNotApplied = errors.New("payment.repository: transition precondition not met")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("payment.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("payment.repository: failed to execute query")
)
