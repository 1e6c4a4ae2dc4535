package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
)

// Request модели

// ListBookingsRequest параметры списка бронирований
type ListBookingsRequest struct {
	Status    *string
	StudentID *string
	TeacherID *string
	Page      int
	Limit     int
}

// ToDomainFilter конвертирует request в domain фильтр
func (r *ListBookingsRequest) ToDomainFilter() (domain.BookingFilter, error) {
	filter := domain.BookingFilter{
		StudentID: r.StudentID,
		TeacherID: r.TeacherID,
		Page:      r.Page,
		Limit:     r.Limit,
	}

	if r.Status != nil {
		status, err := domain.ParseBookingStatus(*r.Status)
		if err != nil {
			return filter, domain.NewFieldError("status", err)
		}
		filter.Status = &status
	}

	if err := validateProfileID("studentId", r.StudentID); err != nil {
		return filter, err
	}
	if err := validateProfileID("teacherId", r.TeacherID); err != nil {
		return filter, err
	}

	return filter, nil
}

// validateProfileID профили адресуются по UUID
func validateProfileID(field string, id *string) error {
	if id == nil {
		return nil
	}
	if _, err := uuid.Parse(*id); err != nil {
		return domain.NewFieldError(field, fmt.Errorf("must be a UUID, got %q", *id))
	}
	return nil
}

// Response модели

// BookingResponse ответ с данными бронирования
type BookingResponse struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"courseId"`
	StudentID   string    `json:"studentId"`
	TeacherID   string    `json:"teacherId"`
	ScheduledAt time.Time `json:"scheduledAt"`
	EndTime     time.Time `json:"endTime"`
	Status      string    `json:"status"`

	Notes        *string    `json:"notes,omitempty"`
	AdminNotes   *string    `json:"adminNotes,omitempty"` // только для администратора
	CancelReason *string    `json:"cancelReason,omitempty"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`
	MeetingLink  *string    `json:"meetingLink,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Pagination данные пагинации
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// BookingListResponse ответ со списком бронирований
type BookingListResponse struct {
	Bookings   []BookingResponse `json:"bookings"`
	Pagination Pagination        `json:"pagination"`
}

// FromDomainBooking конвертирует domain модель в DTO.
// Служебные заметки администратора скрываются от остальных ролей.
func FromDomainBooking(b *domain.Booking, viewer domain.Role) *BookingResponse {
	if b == nil {
		return nil
	}

	resp := &BookingResponse{
		ID:           b.ID,
		CourseID:     b.CourseID,
		StudentID:    b.StudentID,
		TeacherID:    b.TeacherID,
		ScheduledAt:  b.ScheduledAt.UTC(),
		EndTime:      b.EndTime.UTC(),
		Status:       string(b.Status),
		Notes:        b.Notes,
		CancelReason: b.CancelReason,
		MeetingLink:  b.MeetingLink,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
	if b.CancelledAt != nil {
		cancelledAt := b.CancelledAt.UTC()
		resp.CancelledAt = &cancelledAt
	}
	if viewer == domain.RoleAdmin {
		resp.AdminNotes = b.AdminNotes
	}

	return resp
}

// FromDomainPage конвертирует страницу бронирований
func FromDomainPage(page domain.BookingPage, viewer domain.Role) *BookingListResponse {
	resp := &BookingListResponse{
		Bookings: make([]BookingResponse, 0, len(page.Bookings)),
		Pagination: Pagination{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      page.Total,
			TotalPages: page.TotalPages(),
		},
	}
	for _, b := range page.Bookings {
		resp.Bookings = append(resp.Bookings, *FromDomainBooking(b, viewer))
	}
	return resp
}
