package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-EduBookingService/pkg/ptr"
)

var allStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusCompleted,
	BookingStatusCancelled,
	BookingStatusNoShow,
}

func sampleBooking(status BookingStatus) *Booking {
	return &Booking{
		ID:          "b-1",
		CourseID:    "c-1",
		StudentID:   "s-1",
		TeacherID:   "t-1",
		ScheduledAt: at(9, 0),
		EndTime:     at(9, 30),
		Status:      status,
		Notes:       ptr.Ptr("old notes"),
		AdminNotes:  ptr.Ptr("old admin notes"),
		MeetingLink: ptr.Ptr("https://meet/old"),
		CreatedAt:   at(8, 0),
		UpdatedAt:   at(8, 0),
	}
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]BookingStatus]bool{
		{BookingStatusPending, BookingStatusConfirmed}:   true,
		{BookingStatusPending, BookingStatusCancelled}:   true,
		{BookingStatusConfirmed, BookingStatusCancelled}: true,
		{BookingStatusConfirmed, BookingStatusCompleted}: true,
		{BookingStatusConfirmed, BookingStatusNoShow}:    true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			assert.Equal(t, allowed[[2]BookingStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, BookingStatusConfirmed, InitialStatus(RoleAdmin))
	assert.Equal(t, BookingStatusPending, InitialStatus(RoleTeacher))
	assert.Equal(t, BookingStatusPending, InitialStatus(RoleStudent))
}

// Каждая пара (роль, поле): либо поле меняется, либо Forbidden и бронирование не тронуто.
func TestApplyPatchRoleFieldMatrix(t *testing.T) {
	newStart := at(11, 0)
	patches := map[BookingField]BookingPatch{
		FieldScheduledAt:  {ScheduledAt: &newStart},
		FieldMeetingLink:  {MeetingLink: ptr.Ptr("https://meet/new")},
		FieldNotes:        {Notes: ptr.Ptr("new notes")},
		FieldAdminNotes:   {AdminNotes: ptr.Ptr("new admin notes")},
		FieldCancelReason: {CancelReason: ptr.Ptr("sick")},
	}

	expected := map[Role]map[BookingField]bool{
		RoleAdmin: {
			FieldScheduledAt: true, FieldMeetingLink: true, FieldNotes: true,
			FieldAdminNotes: true, FieldCancelReason: true,
		},
		RoleTeacher: {FieldMeetingLink: true, FieldNotes: true},
		RoleStudent: {},
	}

	for role, allowedFields := range expected {
		for field, patch := range patches {
			t.Run(string(role)+"/"+string(field), func(t *testing.T) {
				b := sampleBooking(BookingStatusConfirmed)
				before := *b

				_, err := ApplyPatch(b, role, patch, 30*time.Minute, at(8, 30))

				if !allowedFields[field] {
					require.ErrorIs(t, err, ErrForbidden)
					assert.Equal(t, before, *b)
					return
				}

				require.NoError(t, err)
				switch field {
				case FieldScheduledAt:
					assert.Equal(t, newStart, b.ScheduledAt)
					assert.Equal(t, newStart.Add(30*time.Minute), b.EndTime)
				case FieldMeetingLink:
					assert.Equal(t, "https://meet/new", *b.MeetingLink)
				case FieldNotes:
					assert.Equal(t, "new notes", *b.Notes)
				case FieldAdminNotes:
					assert.Equal(t, "new admin notes", *b.AdminNotes)
				case FieldCancelReason:
					assert.Equal(t, "sick", *b.CancelReason)
				}
			})
		}
	}
}

func TestApplyPatchRoleStatusMatrix(t *testing.T) {
	allowed := map[Role]map[BookingStatus]bool{
		RoleAdmin: {
			BookingStatusPending: true, BookingStatusConfirmed: true, BookingStatusCompleted: true,
			BookingStatusCancelled: true, BookingStatusNoShow: true,
		},
		RoleTeacher: {},
		RoleStudent: {BookingStatusCancelled: true},
	}

	for role, targets := range allowed {
		for _, target := range allStatuses {
			t.Run(string(role)+"/"+string(target), func(t *testing.T) {
				b := sampleBooking(BookingStatusPending)
				before := *b

				_, err := ApplyPatch(b, role, BookingPatch{Status: ptr.Ptr(target)}, 0, at(8, 30))

				if !targets[target] {
					require.ErrorIs(t, err, ErrForbidden)
					assert.Equal(t, before, *b)
					return
				}

				require.NoError(t, err)
				assert.Equal(t, target, b.Status)
			})
		}
	}
}

func TestApplyPatchRejectsWholePatchWithOneForbiddenField(t *testing.T) {
	b := sampleBooking(BookingStatusConfirmed)
	before := *b

	patch := BookingPatch{
		MeetingLink: ptr.Ptr("https://meet/new"),
		AdminNotes:  ptr.Ptr("sneaky"),
	}
	_, err := ApplyPatch(b, RoleTeacher, patch, 0, at(8, 30))

	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, before, *b)
}

func TestApplyPatchStudentCannotCancelTerminalBooking(t *testing.T) {
	for _, status := range []BookingStatus{BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow} {
		b := sampleBooking(status)
		before := *b

		_, err := ApplyPatch(b, RoleStudent, BookingPatch{Status: ptr.Ptr(BookingStatusCancelled)}, 0, at(8, 30))

		require.ErrorIs(t, err, ErrInvalidTransition, status)
		assert.Equal(t, before, *b)
	}
}

// Причину отмены студент передает только вместе с самой отменой
func TestApplyPatchStudentCancelReasonOnlyWithCancel(t *testing.T) {
	b := sampleBooking(BookingStatusConfirmed)
	before := *b

	_, err := ApplyPatch(b, RoleStudent, BookingPatch{CancelReason: ptr.Ptr("changed my mind later")}, 0, at(8, 30))
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, before, *b)

	_, err = ApplyPatch(b, RoleStudent, BookingPatch{
		Status:       ptr.Ptr(BookingStatusConfirmed),
		CancelReason: ptr.Ptr("changed my mind later"),
	}, 0, at(8, 30))
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, before, *b)

	_, err = ApplyPatch(b, RoleStudent, BookingPatch{
		Status:       ptr.Ptr(BookingStatusCancelled),
		CancelReason: ptr.Ptr("sick"),
	}, 0, at(8, 30))
	require.NoError(t, err)
	assert.Equal(t, BookingStatusCancelled, b.Status)
	assert.Equal(t, "sick", *b.CancelReason)

	// Отмененное администратором бронирование студент не переписывает
	cancelled := sampleBooking(BookingStatusCancelled)
	cancelled.CancelReason = ptr.Ptr("teacher ill")
	_, err = ApplyPatch(cancelled, RoleStudent, BookingPatch{
		Status:       ptr.Ptr(BookingStatusCancelled),
		CancelReason: ptr.Ptr("other"),
	}, 0, at(8, 30))
	require.Error(t, err)
	assert.Equal(t, "teacher ill", *cancelled.CancelReason)
}

func TestApplyPatchCancelledAtSetOnce(t *testing.T) {
	b := sampleBooking(BookingStatusConfirmed)
	first := at(8, 30)

	_, err := ApplyPatch(b, RoleStudent, BookingPatch{Status: ptr.Ptr(BookingStatusCancelled)}, 0, first)
	require.NoError(t, err)
	require.NotNil(t, b.CancelledAt)
	assert.Equal(t, first, *b.CancelledAt)

	// Администратор возвращает и снова отменяет: время первой отмены сохраняется
	_, err = ApplyPatch(b, RoleAdmin, BookingPatch{Status: ptr.Ptr(BookingStatusConfirmed)}, 0, at(8, 40))
	require.NoError(t, err)
	_, err = ApplyPatch(b, RoleAdmin, BookingPatch{Status: ptr.Ptr(BookingStatusCancelled)}, 0, at(8, 50))
	require.NoError(t, err)
	assert.Equal(t, first, *b.CancelledAt)
}

func TestApplyPatchReportsConflictRelevantChanges(t *testing.T) {
	newStart := at(10, 0)

	b := sampleBooking(BookingStatusConfirmed)
	change, err := ApplyPatch(b, RoleAdmin, BookingPatch{ScheduledAt: &newStart}, 45*time.Minute, at(8, 30))
	require.NoError(t, err)
	assert.True(t, change.Rescheduled)
	assert.True(t, change.NeedsConflictCheck())
	assert.Equal(t, at(10, 45), b.EndTime)

	b = sampleBooking(BookingStatusCancelled)
	change, err = ApplyPatch(b, RoleAdmin, BookingPatch{Status: ptr.Ptr(BookingStatusPending)}, 0, at(8, 30))
	require.NoError(t, err)
	assert.True(t, change.Reactivated)
	assert.True(t, change.NeedsConflictCheck())

	b = sampleBooking(BookingStatusConfirmed)
	change, err = ApplyPatch(b, RoleTeacher, BookingPatch{Notes: ptr.Ptr("x")}, 0, at(8, 30))
	require.NoError(t, err)
	assert.False(t, change.NeedsConflictCheck())
}

func TestApplyPatchRescheduleRequiresDuration(t *testing.T) {
	b := sampleBooking(BookingStatusConfirmed)
	newStart := at(10, 0)

	_, err := ApplyPatch(b, RoleAdmin, BookingPatch{ScheduledAt: &newStart}, 0, at(8, 30))
	assert.ErrorIs(t, err, ErrInvalidDuration)
	assert.Equal(t, at(9, 0), b.ScheduledAt)
}

func TestApplyPatchEmpty(t *testing.T) {
	_, err := ApplyPatch(sampleBooking(BookingStatusPending), RoleAdmin, BookingPatch{}, 0, at(8, 30))
	assert.ErrorIs(t, err, ErrEmptyPatch)
}
