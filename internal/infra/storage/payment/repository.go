package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	"github.com/m04kA/SMC-EduBookingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-EduBookingService/pkg/psqlbuilder"
)

var paymentColumns = []string{
	"id",
	"student_id",
	"amount",
	"currency",
	"description",
	"status",
	"external_reference_id",
	"paid_at",
	"refunded_at",
	"created_at",
	"updated_at",
}

// Repository репозиторий платежей. Платежи создаются процессом оформления заказа,
// здесь только чтение и условные переходы статуса.
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр репозитория платежей
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByExternalReference получает платеж по ключу идемпотентности
func (r *Repository) GetByExternalReference(ctx context.Context, externalReferenceID string) (*domain.Payment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(paymentColumns...).
		From("payments").
		Where(squirrel.Eq{"external_reference_id": externalReferenceID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByExternalReference - build select query: %v", ErrBuildQuery, err)
	}

	p, err := scanPayment(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByExternalReference - scan payment: %v", ErrExecQuery, err)
	}

	return p, nil
}

// ApplyTransition атомарно переводит платеж в tr.To, только если текущий статус входит в tr.From.
// paid_at и refunded_at выставляются один раз и не перезаписываются.
// Если ни одна строка не подошла, возвращает ErrTransitionNotApplied.
func (r *Repository) ApplyTransition(ctx context.Context, externalReferenceID string, tr domain.PaymentTransition, at time.Time) (*domain.Payment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	from := make([]string, len(tr.From))
	for i, s := range tr.From {
		from[i] = string(s)
	}

	updateBuilder := psqlbuilder.Update("payments").
		Set("status", string(tr.To)).
		Set("updated_at", at)

	if tr.SetsPaidAt {
		updateBuilder = updateBuilder.Set("paid_at", squirrel.Expr("COALESCE(paid_at, ?)", at))
	}
	if tr.SetsRefundedAt {
		updateBuilder = updateBuilder.Set("refunded_at", squirrel.Expr("COALESCE(refunded_at, ?)", at))
	}

	query, args, err := updateBuilder.
		Where(squirrel.Eq{"external_reference_id": externalReferenceID}).
		Where(squirrel.Eq{"status": from}).
		Suffix("RETURNING " + strings.Join(paymentColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ApplyTransition - build update query: %v", ErrBuildQuery, err)
	}

	p, err := scanPayment(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransitionNotApplied
	}
	if err != nil {
		return nil, fmt.Errorf("%w: ApplyTransition - execute update: %v", ErrExecQuery, err)
	}

	return p, nil
}

func scanPayment(row *sql.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID,
		&p.StudentID,
		&p.Amount,
		&p.Currency,
		&p.Description,
		&p.Status,
		&p.ExternalReferenceID,
		&p.PaidAt,
		&p.RefundedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
