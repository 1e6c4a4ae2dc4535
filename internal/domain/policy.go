package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role роль аутентифицированного пользователя
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

// ParseRole разбирает роль без учета регистра
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch role {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return role, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Actor пользователь, от имени которого выполняется операция
type Actor struct {
	UserID string
	Role   Role
}

// IsAdmin returns true for administrators
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// BookingField поле бронирования, которое можно изменить через патч
type BookingField string

const (
	FieldStatus       BookingField = "status"
	FieldScheduledAt  BookingField = "scheduledAt"
	FieldMeetingLink  BookingField = "meetingLink"
	FieldNotes        BookingField = "notes"
	FieldAdminNotes   BookingField = "adminNotes"
	FieldCancelReason BookingField = "cancelReason"
)

// PatchRule что роли разрешено менять в бронировании
type PatchRule struct {
	Fields map[BookingField]bool
	// Statuses целевые статусы; nil при AnyStatus
	Statuses map[BookingStatus]bool
	// AnyStatus разрешает любой статус в обход машины состояний
	AnyStatus bool
	// ReasonOnlyWithCancel cancelReason принимается только вместе с status=CANCELLED
	ReasonOnlyWithCancel bool
}

// PatchPolicy таблица разрешений по ролям
var PatchPolicy = map[Role]PatchRule{
	RoleAdmin: {
		Fields: map[BookingField]bool{
			FieldStatus:       true,
			FieldScheduledAt:  true,
			FieldMeetingLink:  true,
			FieldNotes:        true,
			FieldAdminNotes:   true,
			FieldCancelReason: true,
		},
		AnyStatus: true,
	},
	RoleTeacher: {
		Fields: map[BookingField]bool{
			FieldMeetingLink: true,
			FieldNotes:       true,
		},
	},
	RoleStudent: {
		Fields: map[BookingField]bool{
			FieldStatus:       true,
			FieldCancelReason: true,
		},
		Statuses: map[BookingStatus]bool{
			BookingStatusCancelled: true,
		},
		ReasonOnlyWithCancel: true,
	},
}

// BookingPatch частичное изменение бронирования; nil означает "поле не передано"
type BookingPatch struct {
	Status       *BookingStatus
	ScheduledAt  *time.Time
	MeetingLink  *string
	Notes        *string
	AdminNotes   *string
	CancelReason *string
}

// Fields список переданных полей
func (p BookingPatch) Fields() []BookingField {
	fields := make([]BookingField, 0, 6)
	if p.Status != nil {
		fields = append(fields, FieldStatus)
	}
	if p.ScheduledAt != nil {
		fields = append(fields, FieldScheduledAt)
	}
	if p.MeetingLink != nil {
		fields = append(fields, FieldMeetingLink)
	}
	if p.Notes != nil {
		fields = append(fields, FieldNotes)
	}
	if p.AdminNotes != nil {
		fields = append(fields, FieldAdminNotes)
	}
	if p.CancelReason != nil {
		fields = append(fields, FieldCancelReason)
	}
	return fields
}

// IsEmpty returns true if no field is set
func (p BookingPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// AuthorizePatch проверяет патч целиком по PatchPolicy.
// Любое запрещенное поле или статус отклоняет весь патч.
func AuthorizePatch(role Role, patch BookingPatch) error {
	rule, ok := PatchPolicy[role]
	if !ok {
		return fmt.Errorf("%w: unknown role %q", ErrForbidden, role)
	}

	for _, field := range patch.Fields() {
		if !rule.Fields[field] {
			return fmt.Errorf("%w: role %s cannot change %s", ErrForbidden, role, field)
		}
	}

	if patch.Status != nil && !rule.AnyStatus && !rule.Statuses[*patch.Status] {
		return fmt.Errorf("%w: role %s cannot set status %s", ErrForbidden, role, *patch.Status)
	}

	if rule.ReasonOnlyWithCancel && patch.CancelReason != nil &&
		(patch.Status == nil || *patch.Status != BookingStatusCancelled) {
		return fmt.Errorf("%w: role %s may set cancelReason only when cancelling", ErrForbidden, role)
	}

	return nil
}

// Scope область видимости бронирований для актора.
// Администратор видит все, студент и преподаватель только свои.
type Scope struct {
	All       bool
	StudentID *string
	TeacherID *string
}

// AdminScope область видимости администратора
func AdminScope() Scope {
	return Scope{All: true}
}

// StudentScope только бронирования студента studentID
func StudentScope(studentID string) Scope {
	return Scope{StudentID: &studentID}
}

// TeacherScope только бронирования преподавателя teacherID
func TeacherScope(teacherID string) Scope {
	return Scope{TeacherID: &teacherID}
}

// Visible виден ли актору данный booking
func (s Scope) Visible(b *Booking) bool {
	if s.All {
		return true
	}
	if s.StudentID != nil && b.StudentID == *s.StudentID {
		return true
	}
	if s.TeacherID != nil && b.TeacherID == *s.TeacherID {
		return true
	}
	return false
}

// CanCreateFor может ли актор создать бронирование для этой пары студент/преподаватель
func (s Scope) CanCreateFor(studentID, teacherID string) bool {
	if s.All {
		return true
	}
	if s.StudentID != nil {
		return studentID == *s.StudentID
	}
	if s.TeacherID != nil {
		return teacherID == *s.TeacherID
	}
	return false
}

// Apply накладывает область видимости на фильтр.
// Фильтры не-администратора по чужому профилю перезаписываются.
func (s Scope) Apply(f BookingFilter) BookingFilter {
	if s.All {
		return f
	}
	if s.StudentID != nil {
		id := *s.StudentID
		f.StudentID = &id
	}
	if s.TeacherID != nil {
		id := *s.TeacherID
		f.TeacherID = &id
	}
	return f
}
