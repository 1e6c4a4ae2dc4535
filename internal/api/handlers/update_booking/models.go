package update_booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
)

// UpdateBookingRequest HTTP request model, передаются только изменяемые поля
type UpdateBookingRequest struct {
	Status       *string `json:"status,omitempty"`
	ScheduledAt  *string `json:"scheduledAt,omitempty"`
	MeetingLink  *string `json:"meetingLink,omitempty"`
	Notes        *string `json:"notes,omitempty"`
	AdminNotes   *string `json:"adminNotes,omitempty"`
	CancelReason *string `json:"cancelReason,omitempty"`
}

// ToPatch конвертирует HTTP запрос в доменный патч
func (r *UpdateBookingRequest) ToPatch() (domain.BookingPatch, error) {
	patch := domain.BookingPatch{
		MeetingLink:  r.MeetingLink,
		Notes:        r.Notes,
		AdminNotes:   r.AdminNotes,
		CancelReason: r.CancelReason,
	}

	if r.Status != nil {
		status, err := domain.ParseBookingStatus(strings.ToUpper(strings.TrimSpace(*r.Status)))
		if err != nil {
			return patch, domain.NewFieldError("status", err)
		}
		patch.Status = &status
	}

	if r.ScheduledAt != nil {
		t, err := time.Parse(time.RFC3339, *r.ScheduledAt)
		if err != nil {
			return patch, domain.NewFieldError("scheduledAt", fmt.Errorf("expected RFC 3339: %v", err))
		}
		t = t.UTC()
		patch.ScheduledAt = &t
	}

	return patch, nil
}
