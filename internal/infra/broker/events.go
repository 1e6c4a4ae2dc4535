package broker

import "time"

// PaymentStatusChanged событие о смене статуса платежа
type PaymentStatusChanged struct {
	PaymentID           string    `json:"paymentId"`
	ExternalReferenceID string    `json:"externalReferenceId"`
	StudentID           string    `json:"studentId"`
	Status              string    `json:"status"`
	EventKind           string    `json:"eventKind"`
	OccurredAt          time.Time `json:"occurredAt"`
}

// EnrollmentActivated событие об активации записи на курс
type EnrollmentActivated struct {
	CourseID  string    `json:"courseId"`
	StudentID string    `json:"studentId"`
	Created   bool      `json:"created"`
	At        time.Time `json:"at"`
}

// BookingChanged событие о создании или изменении бронирования
type BookingChanged struct {
	BookingID   string    `json:"bookingId"`
	TeacherID   string    `json:"teacherId"`
	StudentID   string    `json:"studentId"`
	Status      string    `json:"status"`
	ScheduledAt time.Time `json:"scheduledAt"`
	EndTime     time.Time `json:"endTime"`
}
