package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	"github.com/m04kA/SMC-EduBookingService/internal/infra/storage/pgerrors"
	"github.com/m04kA/SMC-EduBookingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-EduBookingService/pkg/psqlbuilder"
)

var bookingColumns = []string{
	"id",
	"course_id",
	"student_id",
	"teacher_id",
	"scheduled_at",
	"end_time",
	"status",
	"notes",
	"admin_notes",
	"cancel_reason",
	"cancelled_at",
	"meeting_link",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с бронированиями
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новое бронирование. ID генерируется, если не задан.
// Пересечение с другим активным бронированием преподавателя отклоняется
// ограничением исключения и возвращается как ErrOverlap.
func (r *Repository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}

	query, args, err := psqlbuilder.Insert("bookings").
		Columns(
			"id",
			"course_id",
			"student_id",
			"teacher_id",
			"scheduled_at",
			"end_time",
			"status",
			"notes",
			"admin_notes",
			"cancel_reason",
			"cancelled_at",
			"meeting_link",
		).
		Values(
			booking.ID,
			booking.CourseID,
			booking.StudentID,
			booking.TeacherID,
			booking.ScheduledAt,
			booking.EndTime,
			booking.Status,
			booking.Notes,
			booking.AdminNotes,
			booking.CancelReason,
			booking.CancelledAt,
			booking.MeetingLink,
		).
		Suffix("RETURNING created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return nil, mapWriteError("Create", err)
	}

	return booking, nil
}

// GetByID получает бронирование по ID
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate получает бронирование по ID и блокирует строку до конца транзакции
func (r *Repository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	return r.getByID(ctx, id, true)
}

func (r *Repository) getByID(ctx context.Context, id string, forUpdate bool) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	// Невалидный uuid заведомо не существует
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrBookingNotFound
	}

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"id": id})

	if forUpdate && dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	booking, err := scanBooking(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan booking: %v", ErrScanRow, err)
	}

	return booking, nil
}

// List возвращает страницу бронирований по фильтру и общее количество подходящих записей.
// Фильтр должен быть нормализован (Page, Limit > 0).
func (r *Repository) List(ctx context.Context, filter domain.BookingFilter) ([]*domain.Booking, int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	where := squirrel.And{}
	if filter.StudentID != nil {
		where = append(where, squirrel.Eq{"student_id": *filter.StudentID})
	}
	if filter.TeacherID != nil {
		where = append(where, squirrel.Eq{"teacher_id": *filter.TeacherID})
	}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"status": *filter.Status})
	}

	countQuery, countArgs, err := psqlbuilder.Select("COUNT(*)").
		From("bookings").
		Where(where).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: List - build count query: %v", ErrBuildQuery, err)
	}

	var total int
	if err := executor.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: List - execute count: %v", ErrExecQuery, err)
	}

	if total == 0 {
		return []*domain.Booking{}, 0, nil
	}

	query, args, err := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(where).
		OrderBy("scheduled_at DESC", "id").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: List - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: List - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	bookings, err := scanBookings(rows)
	if err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

// GetBlockingByTeacher получает активные (PENDING/CONFIRMED) бронирования преподавателя,
// пересекающиеся с интервалом. Внутри транзакции строки блокируются (FOR UPDATE).
func (r *Repository) GetBlockingByTeacher(ctx context.Context, teacherID string, interval domain.TimeInterval) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	statuses := make([]string, len(domain.BlockingStatuses))
	for i, s := range domain.BlockingStatuses {
		statuses[i] = string(s)
	}

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"teacher_id": teacherID}).
		Where(squirrel.Eq{"status": statuses}).
		Where(squirrel.Lt{"scheduled_at": interval.End}).
		Where(squirrel.Gt{"end_time": interval.Start}).
		OrderBy("scheduled_at ASC")

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetBlockingByTeacher - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetBlockingByTeacher - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// LockTeacher берет транзакционную advisory-блокировку на расписание преподавателя.
// Все создания и переносы бронирований одного преподавателя выполняются последовательно.
func (r *Repository) LockTeacher(ctx context.Context, teacherID string) error {
	if !dbmetrics.IsInTransaction(ctx) {
		return ErrNoTransaction
	}
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select().
		Column(squirrel.Expr("pg_advisory_xact_lock(hashtextextended(?, 0))", teacherLockKey(teacherID))).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: LockTeacher - build query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: LockTeacher - execute: %v", ErrExecQuery, err)
	}

	return nil
}

// Update сохраняет изменяемые поля бронирования
func (r *Repository) Update(ctx context.Context, booking *domain.Booking) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("scheduled_at", booking.ScheduledAt).
		Set("end_time", booking.EndTime).
		Set("status", booking.Status).
		Set("notes", booking.Notes).
		Set("admin_notes", booking.AdminNotes).
		Set("cancel_reason", booking.CancelReason).
		Set("cancelled_at", booking.CancelledAt).
		Set("meeting_link", booking.MeetingLink).
		Set("updated_at", booking.UpdatedAt).
		Where(squirrel.Eq{"id": booking.ID}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Update - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return mapWriteError("Update", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Update - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrBookingNotFound
	}

	return nil
}

// Delete удаляет бронирование
func (r *Repository) Delete(ctx context.Context, id string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	if _, err := uuid.Parse(id); err != nil {
		return ErrBookingNotFound
	}

	query, args, err := psqlbuilder.Delete("bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Delete - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: Delete - execute delete: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Delete - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrBookingNotFound
	}

	return nil
}

func teacherLockKey(teacherID string) string {
	return "teacher:" + teacherID
}

func mapWriteError(op string, err error) error {
	switch pgerrors.Code(err) {
	case pgerrors.CodeExclusionViolation:
		return fmt.Errorf("%w: %s: %v", ErrOverlap, op, err)
	case pgerrors.CodeForeignKeyViolation:
		return fmt.Errorf("%w: %s: %v", ErrReferenceNotFound, op, err)
	}
	return fmt.Errorf("%w: %s - execute: %v", ErrExecQuery, op, err)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var booking domain.Booking

	err := row.Scan(
		&booking.ID,
		&booking.CourseID,
		&booking.StudentID,
		&booking.TeacherID,
		&booking.ScheduledAt,
		&booking.EndTime,
		&booking.Status,
		&booking.Notes,
		&booking.AdminNotes,
		&booking.CancelReason,
		&booking.CancelledAt,
		&booking.MeetingLink,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

// scanBookings сканирует результаты запроса в слайс бронирований
func scanBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	bookings := make([]*domain.Booking, 0)

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanBookings - scan row: %v", ErrScanRow, err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanBookings - rows error: %v", ErrScanRow, err)
	}

	return bookings, nil
}
