// Package stripe проверяет подпись вебхуков Stripe и приводит события к domain.PaymentEvent.
package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
)

const (
	EventCheckoutSessionCompleted   = "checkout.session.completed"
	EventPaymentIntentSucceeded     = "payment_intent.succeeded"
	EventPaymentIntentPaymentFailed = "payment_intent.payment_failed"
	EventChargeRefunded             = "charge.refunded"

	metadataCourseID  = "courseId"
	metadataStudentID = "studentId"
)

// Parser проверяет подпись и разбирает события
type Parser struct {
	secret    string
	tolerance time.Duration
}

// NewParser tolerance <= 0 означает допуск по умолчанию (5 минут)
func NewParser(secret string, tolerance time.Duration) *Parser {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Parser{secret: secret, tolerance: tolerance}
}

// Parse проверяет подпись payload и только после этого разбирает событие.
// Неизвестные типы событий возвращаются с Kind=unknown без ошибки.
func (p *Parser) Parse(payload []byte, signatureHeader string) (*domain.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, p.secret, webhook.ConstructEventOptions{
		Tolerance:                p.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	result := &domain.PaymentEvent{
		ID:           event.ID,
		Kind:         domain.PaymentEventUnknown,
		ProviderType: string(event.Type),
		OccurredAt:   time.Unix(event.Created, 0).UTC(),
	}

	if event.Data == nil {
		return result, nil
	}

	switch string(event.Type) {
	case EventCheckoutSessionCompleted:
		var session stripeapi.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("%w: checkout session: %v", ErrMalformedEvent, err)
		}
		result.Kind = domain.PaymentEventCheckoutCompleted
		result.ExternalReferenceID = session.ID
		if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
			result.ExternalReferenceID = session.PaymentIntent.ID
		}
		applyMetadata(result, session.Metadata)

	case EventPaymentIntentSucceeded, EventPaymentIntentPaymentFailed:
		var intent stripeapi.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, fmt.Errorf("%w: payment intent: %v", ErrMalformedEvent, err)
		}
		result.Kind = domain.PaymentEventPaymentSucceeded
		if string(event.Type) == EventPaymentIntentPaymentFailed {
			result.Kind = domain.PaymentEventPaymentFailed
		}
		result.ExternalReferenceID = intent.ID
		applyMetadata(result, intent.Metadata)

	case EventChargeRefunded:
		var charge stripeapi.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return nil, fmt.Errorf("%w: charge: %v", ErrMalformedEvent, err)
		}
		result.Kind = domain.PaymentEventChargeRefunded
		if charge.PaymentIntent != nil {
			result.ExternalReferenceID = charge.PaymentIntent.ID
		}
		applyMetadata(result, charge.Metadata)

	default:
		return result, nil
	}

	if result.ExternalReferenceID == "" {
		return nil, fmt.Errorf("%w: %s without payment reference", ErrMalformedEvent, event.Type)
	}

	return result, nil
}

func applyMetadata(e *domain.PaymentEvent, metadata map[string]string) {
	if v := metadata[metadataCourseID]; v != "" {
		e.CourseID = &v
	}
	if v := metadata[metadataStudentID]; v != "" {
		e.StudentID = &v
	}
}
