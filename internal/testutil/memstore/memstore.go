// Package memstore хранилище в памяти для тестов usecase.
// Повторяет поведение PostgreSQL репозиториев в части, важной для бизнес-логики:
// транзакционная блокировка преподавателя, ограничение исключения, условные переходы платежей.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-EduBookingService/internal/infra/storage/booking"
	courseRepo "github.com/m04kA/SMC-EduBookingService/internal/infra/storage/course"
	enrollmentRepo "github.com/m04kA/SMC-EduBookingService/internal/infra/storage/enrollment"
	paymentRepo "github.com/m04kA/SMC-EduBookingService/internal/infra/storage/payment"
)

type txKey struct{}

type txState struct {
	locks []*sync.Mutex
	undo  []func()
}

// Store данные в памяти
type Store struct {
	mu          sync.Mutex
	bookings    map[string]*domain.Booking
	courses     map[string]*domain.Course
	payments    map[string]*domain.Payment
	enrollments map[[2]string]*domain.CourseEnrollment

	lockMu       sync.Mutex
	teacherLocks map[string]*sync.Mutex

	constraint bool
}

// New создает пустое хранилище с включенным ограничением исключения
func New() *Store {
	return &Store{
		bookings:     make(map[string]*domain.Booking),
		courses:      make(map[string]*domain.Course),
		payments:     make(map[string]*domain.Payment),
		enrollments:  make(map[[2]string]*domain.CourseEnrollment),
		teacherLocks: make(map[string]*sync.Mutex),
		constraint:   true,
	}
}

// DisableConstraint отключает аналог ограничения исключения,
// чтобы отсутствие пересечений обеспечивала только логика usecase.
func (s *Store) DisableConstraint() {
	s.constraint = false
}

// Do выполняет fn в "транзакции": блокировки держатся до конца, при ошибке изменения откатываются
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	tx := &txState{}
	err := fn(context.WithValue(ctx, txKey{}, tx))
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
	}
	for i := len(tx.locks) - 1; i >= 0; i-- {
		tx.locks[i].Unlock()
	}
	return err
}

func (s *Store) record(ctx context.Context, undo func()) {
	if tx, ok := ctx.Value(txKey{}).(*txState); ok {
		tx.undo = append(tx.undo, undo)
	}
}

// AddCourse добавляет курс
func (s *Store) AddCourse(c domain.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.ID] = &c
}

// AddBooking добавляет бронирование без проверок
func (s *Store) AddBooking(b domain.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = &b
}

// AddPayment добавляет платеж
func (s *Store) AddPayment(p domain.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ExternalReferenceID] = &p
}

// Bookings копии всех бронирований, отсортированные по началу
func (s *Store) Bookings() []domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out
}

// Payment копия платежа
func (s *Store) Payment(ref string) (domain.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[ref]
	if !ok {
		return domain.Payment{}, false
	}
	return *p, true
}

// Enrollment копия записи на курс
func (s *Store) Enrollment(courseID, studentID string) (domain.CourseEnrollment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[[2]string{courseID, studentID}]
	if !ok {
		return domain.CourseEnrollment{}, false
	}
	return *e, true
}

// Бронирования

func (s *Store) LockTeacher(ctx context.Context, teacherID string) error {
	tx, ok := ctx.Value(txKey{}).(*txState)
	if !ok {
		return bookingRepo.ErrNoTransaction
	}

	s.lockMu.Lock()
	l, ok := s.teacherLocks[teacherID]
	if !ok {
		l = &sync.Mutex{}
		s.teacherLocks[teacherID] = l
	}
	s.lockMu.Unlock()

	l.Lock()
	tx.locks = append(tx.locks, l)
	return nil
}

func (s *Store) Create(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if s.violatesConstraint(b) {
		return nil, bookingRepo.ErrOverlap
	}

	stored := *b
	s.bookings[b.ID] = &stored
	s.record(ctx, func() { delete(s.bookings, stored.ID) })

	out := stored
	return &out, nil
}

func (s *Store) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrBookingNotFound
	}
	out := *b
	return &out, nil
}

func (s *Store) GetByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	return s.GetByID(ctx, id)
}

func (s *Store) GetBlockingByTeacher(_ context.Context, teacherID string, interval domain.TimeInterval) ([]*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Booking
	for _, b := range s.bookings {
		if b.TeacherID != teacherID || !b.IsBlocking() {
			continue
		}
		if b.ScheduledAt.Before(interval.End) && b.EndTime.After(interval.Start) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, b *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.bookings[b.ID]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	if s.violatesConstraint(b) {
		return bookingRepo.ErrOverlap
	}

	old := *prev
	updated := *b
	s.bookings[b.ID] = &updated
	s.record(ctx, func() { s.bookings[old.ID] = &old })
	return nil
}

func (s *Store) violatesConstraint(b *domain.Booking) bool {
	if !s.constraint || !b.IsBlocking() {
		return false
	}
	for _, other := range s.bookings {
		if other.ID == b.ID || other.TeacherID != b.TeacherID || !other.IsBlocking() {
			continue
		}
		if domain.Overlaps(other.Interval(), b.Interval()) {
			return true
		}
	}
	return false
}

// Курсы

// Courses репозиторий курсов поверх Store
type Courses struct{ *Store }

func (c Courses) GetByID(_ context.Context, id string) (*domain.Course, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	course, ok := c.courses[id]
	if !ok {
		return nil, courseRepo.ErrCourseNotFound
	}
	out := *course
	return &out, nil
}

// Платежи

func (s *Store) GetByExternalReference(_ context.Context, ref string) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[ref]
	if !ok {
		return nil, paymentRepo.ErrPaymentNotFound
	}
	out := *p
	return &out, nil
}

func (s *Store) ApplyTransition(ctx context.Context, ref string, tr domain.PaymentTransition, at time.Time) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[ref]
	if !ok || !tr.Allows(p.Status) {
		return nil, paymentRepo.ErrTransitionNotApplied
	}

	old := *p
	p.Status = tr.To
	if tr.SetsPaidAt && p.PaidAt == nil {
		paidAt := at
		p.PaidAt = &paidAt
	}
	if tr.SetsRefundedAt && p.RefundedAt == nil {
		refundedAt := at
		p.RefundedAt = &refundedAt
	}
	p.UpdatedAt = at
	s.record(ctx, func() { s.payments[ref] = &old })

	out := *p
	return &out, nil
}

func (s *Store) Activate(ctx context.Context, courseID, studentID string, at time.Time) (*domain.CourseEnrollment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[courseID]; !ok {
		return nil, false, enrollmentRepo.ErrReferenceNotFound
	}

	key := [2]string{courseID, studentID}
	prev, existed := s.enrollments[key]
	if existed {
		old := *prev
		prev.IsActive = true
		prev.UpdatedAt = at
		s.record(ctx, func() { s.enrollments[key] = &old })
		out := *prev
		return &out, false, nil
	}

	e := &domain.CourseEnrollment{CourseID: courseID, StudentID: studentID, IsActive: true, EnrolledAt: at, UpdatedAt: at}
	s.enrollments[key] = e
	s.record(ctx, func() { delete(s.enrollments, key) })
	out := *e
	return &out, true, nil
}

// SetEnrollmentActive меняет флаг активности записи, как это сделал бы администратор
func (s *Store) SetEnrollmentActive(courseID, studentID string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.enrollments[[2]string{courseID, studentID}]; ok {
		e.IsActive = active
	}
}

func (s *Store) EnsureExists(ctx context.Context, courseID, studentID string, at time.Time) (*domain.CourseEnrollment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[courseID]; !ok {
		return nil, false, enrollmentRepo.ErrReferenceNotFound
	}

	key := [2]string{courseID, studentID}
	if _, existed := s.enrollments[key]; existed {
		return nil, false, nil
	}

	e := &domain.CourseEnrollment{CourseID: courseID, StudentID: studentID, IsActive: true, EnrolledAt: at, UpdatedAt: at}
	s.enrollments[key] = e
	s.record(ctx, func() { delete(s.enrollments, key) })
	out := *e
	return &out, true, nil
}
