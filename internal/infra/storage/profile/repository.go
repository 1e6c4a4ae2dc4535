// Package profile сопоставляет аутентифицированного пользователя с профилем студента или преподавателя.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-EduBookingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-EduBookingService/pkg/psqlbuilder"
)

var (
	// ErrProfileNotFound возвращается, когда у пользователя нет профиля нужного типа
	ErrProfileNotFound = errors.New("profile.repository: profile not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("profile.repository: failed to build query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("profile.repository: failed to scan row")
)

type Repository struct {
	db dbmetrics.DBExecutor
}

func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetStudentIDByUserID id профиля студента пользователя
func (r *Repository) GetStudentIDByUserID(ctx context.Context, userID string) (string, error) {
	return r.profileID(ctx, "students", userID)
}

// GetTeacherIDByUserID id профиля преподавателя пользователя
func (r *Repository) GetTeacherIDByUserID(ctx context.Context, userID string) (string, error) {
	return r.profileID(ctx, "teachers", userID)
}

func (r *Repository) profileID(ctx context.Context, table, userID string) (string, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id").
		From(table).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("%w: %s - build select query: %v", ErrBuildQuery, table, err)
	}

	var id string
	err = executor.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrProfileNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s - scan id: %v", ErrScanRow, table, err)
	}

	return id, nil
}
