package domain

import (
	"fmt"
	"time"
)

// TimeInterval полуоткрытый интервал [Start, End)
type TimeInterval struct {
	Start time.Time
	End   time.Time
}

// NewTimeInterval создает интервал, End обязан быть строго позже Start
func NewTimeInterval(start, end time.Time) (TimeInterval, error) {
	if !end.After(start) {
		return TimeInterval{}, fmt.Errorf("%w: start=%s end=%s",
			ErrInvalidInterval, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return TimeInterval{Start: start, End: end}, nil
}

// Overlaps пересекаются ли интервалы. Смежные интервалы (один заканчивается, когда начинается другой) не пересекаются.
func Overlaps(a, b TimeInterval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Overlaps см. Overlaps(a, b)
func (i TimeInterval) Overlaps(other TimeInterval) bool {
	return Overlaps(i, other)
}

// Duration длительность интервала
func (i TimeInterval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Contains попадает ли момент t в [Start, End)
func (i TimeInterval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

func (i TimeInterval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}
