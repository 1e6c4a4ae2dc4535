package reconcile_payment

import "github.com/m04kA/SMC-EduBookingService/internal/domain"

// Outcome результат обработки события
type Outcome string

const (
	OutcomeApplied            Outcome = "applied"
	OutcomeDuplicate          Outcome = "duplicate"
	OutcomePaymentNotFound    Outcome = "payment_not_found"
	OutcomePreconditionFailed Outcome = "precondition_failed"
	OutcomeIgnored            Outcome = "ignored"
)

// Result итог обработки события
type Result struct {
	Outcome    Outcome
	Payment    *domain.Payment          // nil для ignored и payment_not_found
	Enrollment *domain.CourseEnrollment // заполнено, если запись на курс активирована
	Enrolled   bool                     // запись создана впервые
}

// cacheable можно ли запомнить событие как обработанное.
// payment_not_found не запоминается: платеж может появиться позже.
func (o Outcome) cacheable() bool {
	switch o {
	case OutcomeApplied, OutcomeDuplicate, OutcomePreconditionFailed:
		return true
	}
	return false
}
