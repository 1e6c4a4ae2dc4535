package domain

import "time"

// Course курс, к которому привязано бронирование. Ядро только читает курсы.
type Course struct {
	ID              string
	Title           string
	DurationMinutes int
	IsActive        bool
}

// Duration длительность одного занятия
func (c *Course) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}
