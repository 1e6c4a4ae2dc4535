package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	"github.com/m04kA/SMC-EduBookingService/internal/infra/storage/pgerrors"
	"github.com/m04kA/SMC-EduBookingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-EduBookingService/pkg/psqlbuilder"
)

var (
	// ErrReferenceNotFound возвращается, когда курс или студент не существует
	ErrReferenceNotFound = errors.New("enrollment.repository: course or student not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("enrollment.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("enrollment.repository: failed to execute query")
)

const upsertSuffix = "ON CONFLICT (course_id, student_id) DO UPDATE SET is_active = TRUE, updated_at = EXCLUDED.updated_at " +
	"RETURNING course_id, student_id, is_active, enrolled_at, updated_at, (xmax = 0) AS inserted"

const insertIfAbsentSuffix = "ON CONFLICT (course_id, student_id) DO NOTHING " +
	"RETURNING course_id, student_id, is_active, enrolled_at, updated_at"

type Repository struct {
	db dbmetrics.DBExecutor
}

func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// Activate создает запись на курс или активирует существующую.
// inserted=true, если строка была создана этим вызовом.
func (r *Repository) Activate(ctx context.Context, courseID, studentID string, at time.Time) (*domain.CourseEnrollment, bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("course_enrollments").
		Columns("course_id", "student_id", "is_active", "enrolled_at", "updated_at").
		Values(courseID, studentID, true, at, at).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("%w: Activate - build upsert query: %v", ErrBuildQuery, err)
	}

	var (
		e        domain.CourseEnrollment
		inserted bool
	)
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&e.CourseID,
		&e.StudentID,
		&e.IsActive,
		&e.EnrolledAt,
		&e.UpdatedAt,
		&inserted,
	)
	if pgerrors.Is(err, pgerrors.CodeForeignKeyViolation) {
		return nil, false, fmt.Errorf("%w: Activate: %v", ErrReferenceNotFound, err)
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: Activate - execute upsert: %v", ErrExecQuery, err)
	}

	return &e, inserted, nil
}

// EnsureExists создает запись на курс, только если ее еще нет.
// Существующая строка не меняется, тогда возвращается (nil, false, nil).
func (r *Repository) EnsureExists(ctx context.Context, courseID, studentID string, at time.Time) (*domain.CourseEnrollment, bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("course_enrollments").
		Columns("course_id", "student_id", "is_active", "enrolled_at", "updated_at").
		Values(courseID, studentID, true, at, at).
		Suffix(insertIfAbsentSuffix).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("%w: EnsureExists - build insert query: %v", ErrBuildQuery, err)
	}

	var e domain.CourseEnrollment
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&e.CourseID,
		&e.StudentID,
		&e.IsActive,
		&e.EnrolledAt,
		&e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if pgerrors.Is(err, pgerrors.CodeForeignKeyViolation) {
		return nil, false, fmt.Errorf("%w: EnsureExists: %v", ErrReferenceNotFound, err)
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: EnsureExists - execute insert: %v", ErrExecQuery, err)
	}

	return &e, true, nil
}
