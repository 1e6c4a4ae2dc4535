// Package pgerrors разбирает коды ошибок PostgreSQL из lib/pq.
package pgerrors

import (
	"errors"

	"github.com/lib/pq"
)

const (
	CodeExclusionViolation   = "23P01"
	CodeUniqueViolation      = "23505"
	CodeForeignKeyViolation  = "23503"
	CodeInvalidTextRepr      = "22P02"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
)

// Code SQLSTATE ошибки или пустая строка, если это не ошибка PostgreSQL
func Code(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// Is проверяет, что err является ошибкой PostgreSQL с кодом code
func Is(err error, code string) bool {
	return err != nil && Code(err) == code
}
