package booking

import "errors"

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = errors.New("booking.repository: booking not found")

	// ErrOverlap возвращается, когда ограничение исключения отклонило пересекающееся бронирование
	ErrOverlap = errors.New("booking.repository: teacher interval overlaps existing booking")

	// ErrReferenceNotFound возвращается, когда курс, студент или преподаватель не существует
	ErrReferenceNotFound = errors.New("booking.repository: referenced record not found")

	// ErrNoTransaction возвращается, когда блокировка запрошена вне транзакции
	ErrNoTransaction = errors.New("booking.repository: operation requires a transaction")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("booking.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("booking.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("booking.repository: failed to scan row")
)
