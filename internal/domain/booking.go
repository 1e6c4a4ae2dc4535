package domain

import (
	"fmt"
	"time"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusNoShow    BookingStatus = "NO_SHOW"
)

// BlockingStatuses статусы, которые занимают время преподавателя
var BlockingStatuses = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

// ParseBookingStatus конвертирует строку в BookingStatus с валидацией
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// IsValid returns true for known statuses
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow:
		return true
	}
	return false
}

// IsBlocking returns true if a booking in this status occupies the teacher's time
func (s BookingStatus) IsBlocking() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// IsTerminal returns true if no further non-admin transition is possible
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted || s == BookingStatusNoShow
}

// Booking занятие преподавателя со студентом по курсу
type Booking struct {
	ID          string
	CourseID    string
	StudentID   string
	TeacherID   string
	ScheduledAt time.Time
	EndTime     time.Time // всегда ScheduledAt + длительность курса
	Status      BookingStatus

	Notes        *string // видны участникам
	AdminNotes   *string // видны только администратору
	CancelReason *string
	CancelledAt  *time.Time
	MeetingLink  *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interval интервал занятия [ScheduledAt, EndTime)
func (b *Booking) Interval() TimeInterval {
	return TimeInterval{Start: b.ScheduledAt, End: b.EndTime}
}

// IsBlocking returns true if the booking occupies the teacher's time
func (b *Booking) IsBlocking() bool {
	return b.Status.IsBlocking()
}

// EndTimeFor вычисляет время окончания занятия по длительности курса
func EndTimeFor(scheduledAt time.Time, durationMinutes int) (time.Time, error) {
	if durationMinutes <= 0 {
		return time.Time{}, fmt.Errorf("%w: got %d minutes", ErrInvalidDuration, durationMinutes)
	}
	return scheduledAt.Add(time.Duration(durationMinutes) * time.Minute), nil
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// BookingFilter фильтр списка бронирований
type BookingFilter struct {
	StudentID *string
	TeacherID *string
	Status    *BookingStatus
	Page      int
	Limit     int
}

// Normalize подставляет значения пагинации по умолчанию и ограничивает limit
func (f BookingFilter) Normalize() BookingFilter {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

// Offset смещение для текущей страницы
func (f BookingFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// BookingPage страница списка бронирований
type BookingPage struct {
	Bookings []*Booking
	Page     int
	Limit    int
	Total    int
}

// TotalPages количество страниц при текущем limit
func (p BookingPage) TotalPages() int {
	if p.Limit <= 0 || p.Total == 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}
