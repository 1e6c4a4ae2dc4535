package course

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	"github.com/m04kA/SMC-EduBookingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-EduBookingService/pkg/psqlbuilder"
)

var (
	// ErrCourseNotFound возвращается, когда курс не найден
	ErrCourseNotFound = errors.New("course.repository: course not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("course.repository: failed to build query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("course.repository: failed to scan row")
)

// Repository курсы только читаются
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр репозитория курсов
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByID получает курс по ID (включая неактивные)
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrCourseNotFound
	}

	query, args, err := psqlbuilder.Select("id", "title", "duration_minutes", "is_active").
		From("courses").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	var c domain.Course
	err = executor.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.Title, &c.DurationMinutes, &c.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan course: %v", ErrScanRow, err)
	}

	return &c, nil
}
