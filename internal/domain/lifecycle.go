package domain

import (
	"fmt"
	"time"
)

// transitions машина состояний для всех ролей кроме администратора
var transitions = map[BookingStatus]map[BookingStatus]bool{
	BookingStatusPending: {
		BookingStatusConfirmed: true,
		BookingStatusCancelled: true,
	},
	BookingStatusConfirmed: {
		BookingStatusCancelled: true,
		BookingStatusCompleted: true,
		BookingStatusNoShow:    true,
	},
}

// CanTransition разрешен ли переход from -> to без прав администратора
func CanTransition(from, to BookingStatus) bool {
	return transitions[from][to]
}

// InitialStatus статус нового бронирования: администратор создает сразу подтвержденное
func InitialStatus(role Role) BookingStatus {
	if role == RoleAdmin {
		return BookingStatusConfirmed
	}
	return BookingStatusPending
}

// BookingChange что изменилось после применения патча
type BookingChange struct {
	Rescheduled bool // изменился интервал
	Reactivated bool // бронирование снова занимает время преподавателя
}

// NeedsConflictCheck нужно ли повторно проверять пересечения
func (c BookingChange) NeedsConflictCheck() bool {
	return c.Rescheduled || c.Reactivated
}

// ApplyPatch применяет патч к бронированию.
// courseDuration нужна только при переносе. Все проверки выполняются до изменения b,
// при ошибке бронирование остается нетронутым.
func ApplyPatch(b *Booking, role Role, patch BookingPatch, courseDuration time.Duration, now time.Time) (BookingChange, error) {
	var change BookingChange

	if patch.IsEmpty() {
		return change, ErrEmptyPatch
	}

	if err := AuthorizePatch(role, patch); err != nil {
		return change, err
	}

	next := *b

	if patch.Status != nil {
		target := *patch.Status
		if !target.IsValid() {
			return change, fmt.Errorf("%w: %q", ErrInvalidStatus, target)
		}
		if !PatchPolicy[role].AnyStatus && !CanTransition(b.Status, target) {
			return change, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, target)
		}
		next.Status = target
		if target == BookingStatusCancelled && next.CancelledAt == nil {
			cancelledAt := now
			next.CancelledAt = &cancelledAt
		}
	}

	if patch.ScheduledAt != nil {
		if courseDuration <= 0 {
			return change, fmt.Errorf("%w: got %s", ErrInvalidDuration, courseDuration)
		}
		next.ScheduledAt = *patch.ScheduledAt
		next.EndTime = patch.ScheduledAt.Add(courseDuration)
		change.Rescheduled = !next.ScheduledAt.Equal(b.ScheduledAt) || !next.EndTime.Equal(b.EndTime)
	}

	if patch.MeetingLink != nil {
		next.MeetingLink = patch.MeetingLink
	}
	if patch.Notes != nil {
		next.Notes = patch.Notes
	}
	if patch.AdminNotes != nil {
		next.AdminNotes = patch.AdminNotes
	}
	if patch.CancelReason != nil {
		next.CancelReason = patch.CancelReason
	}

	change.Reactivated = !b.Status.IsBlocking() && next.Status.IsBlocking()
	// Перенос не блокирующего бронирования не занимает время
	if !next.Status.IsBlocking() {
		change.Rescheduled = false
	}

	next.UpdatedAt = now
	*b = next
	return change, nil
}
