package domain

import (
	"fmt"
	"time"
)

// PaymentStatus статус платежа
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Payment платеж студента. Создается внешним процессом оформления заказа в PENDING,
// дальше меняется только событиями провайдера.
type Payment struct {
	ID                  string
	StudentID           string
	Amount              int64 // в минимальных единицах валюты
	Currency            string
	Description         string
	Status              PaymentStatus
	ExternalReferenceID string // уникален, ключ идемпотентности
	PaidAt              *time.Time
	RefundedAt          *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// PaymentEventKind тип события провайдера
type PaymentEventKind string

const (
	PaymentEventCheckoutCompleted PaymentEventKind = "checkout_completed"
	PaymentEventPaymentSucceeded  PaymentEventKind = "payment_succeeded"
	PaymentEventPaymentFailed     PaymentEventKind = "payment_failed"
	PaymentEventChargeRefunded    PaymentEventKind = "charge_refunded"
	PaymentEventUnknown           PaymentEventKind = "unknown"
)

// PaymentEvent событие провайдера, уже проверенное и приведенное к доменному виду
type PaymentEvent struct {
	ID                  string // id события у провайдера
	Kind                PaymentEventKind
	ProviderType        string // исходный тип события, для логов
	ExternalReferenceID string
	CourseID            *string
	StudentID           *string
	OccurredAt          time.Time
}

// PaymentTransition разрешенный переход платежа по событию
type PaymentTransition struct {
	Kind                PaymentEventKind
	From                []PaymentStatus
	To                  PaymentStatus
	SetsPaidAt          bool
	SetsRefundedAt      bool
	ActivatesEnrollment bool
}

// Allows можно ли применить переход к платежу в статусе s
func (t PaymentTransition) Allows(s PaymentStatus) bool {
	for _, from := range t.From {
		if from == s {
			return true
		}
	}
	return false
}

// После COMPLETED возможен только REFUNDED
var paymentTransitions = map[PaymentEventKind]PaymentTransition{
	PaymentEventCheckoutCompleted: {
		Kind:                PaymentEventCheckoutCompleted,
		From:                []PaymentStatus{PaymentStatusPending, PaymentStatusFailed},
		To:                  PaymentStatusCompleted,
		SetsPaidAt:          true,
		ActivatesEnrollment: true,
	},
	PaymentEventPaymentSucceeded: {
		Kind:       PaymentEventPaymentSucceeded,
		From:       []PaymentStatus{PaymentStatusPending, PaymentStatusFailed},
		To:         PaymentStatusCompleted,
		SetsPaidAt: true,
	},
	PaymentEventPaymentFailed: {
		Kind: PaymentEventPaymentFailed,
		From: []PaymentStatus{PaymentStatusPending},
		To:   PaymentStatusFailed,
	},
	PaymentEventChargeRefunded: {
		Kind:           PaymentEventChargeRefunded,
		From:           []PaymentStatus{PaymentStatusCompleted},
		To:             PaymentStatusRefunded,
		SetsRefundedAt: true,
	},
}

// TransitionFor переход для типа события; false для неизвестных событий
func TransitionFor(kind PaymentEventKind) (PaymentTransition, bool) {
	t, ok := paymentTransitions[kind]
	return t, ok
}

// ParsePaymentStatus конвертирует строку в PaymentStatus с валидацией
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch status := PaymentStatus(s); status {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return status, nil
	}
	return "", fmt.Errorf("%w: payment status %q", ErrInvalidStatus, s)
}
