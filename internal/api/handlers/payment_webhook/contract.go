package payment_webhook

import (
	"context"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	reconcilePayment "github.com/m04kA/SMC-EduBookingService/internal/usecase/reconcile_payment"
)

// EventParser проверяет подпись и разбирает событие провайдера
type EventParser interface {
	Parse(payload []byte, signatureHeader string) (*domain.PaymentEvent, error)
}

type ReconcilePaymentUseCase interface {
	Execute(ctx context.Context, event *domain.PaymentEvent) (*reconcilePayment.Result, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
