package domain

import "time"

// CourseEnrollment запись студента на курс, ключ (CourseID, StudentID)
type CourseEnrollment struct {
	CourseID   string
	StudentID  string
	IsActive   bool
	EnrolledAt time.Time
	UpdatedAt  time.Time
}
