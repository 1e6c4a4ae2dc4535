package create_booking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	"github.com/m04kA/SMC-EduBookingService/internal/infra/broker"
	bookingRepo "github.com/m04kA/SMC-EduBookingService/internal/infra/storage/booking"
	"github.com/m04kA/SMC-EduBookingService/internal/service/access"
	"github.com/m04kA/SMC-EduBookingService/internal/service/availability"
	"github.com/m04kA/SMC-EduBookingService/internal/testutil/memstore"
	"github.com/m04kA/SMC-EduBookingService/pkg/logger"
)

type fixedTime struct{ t time.Time }

func (f fixedTime) Now() time.Time { return f.t }

type staticScopes map[domain.Role]domain.Scope

func (s staticScopes) Resolve(_ context.Context, actor domain.Actor) (domain.Scope, error) {
	scope, ok := s[actor.Role]
	if !ok {
		return domain.Scope{}, access.ErrNoProfile
	}
	return scope, nil
}

type countingMetrics struct {
	mu        sync.Mutex
	created   map[string]int
	conflicts int
}

func (m *countingMetrics) IncBookingCreated(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.created == nil {
		m.created = map[string]int{}
	}
	m.created[status]++
}

func (m *countingMetrics) IncBookingConflict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts++
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(ctx context.Context, routingKey string, v any) error {
	return m.Called(ctx, routingKey, v).Error(0)
}

const (
	studentID        = "6f1c2a4e-0b7d-4c55-9a41-3e2f7d8b1a01"
	otherStudentID   = "6f1c2a4e-0b7d-4c55-9a41-3e2f7d8b1a02"
	anotherStudentID = "6f1c2a4e-0b7d-4c55-9a41-3e2f7d8b1a09"
	teacherID        = "9d3b7e10-52c8-4f2a-8e6d-71a0c4f5b201"
	otherTeacherID   = "9d3b7e10-52c8-4f2a-8e6d-71a0c4f5b202"
)

var (
	admin   = domain.Actor{UserID: "u-admin", Role: domain.RoleAdmin}
	student = domain.Actor{UserID: "u-student", Role: domain.RoleStudent}
	teacher = domain.Actor{UserID: "u-teacher", Role: domain.RoleTeacher}

	scopes = staticScopes{
		domain.RoleAdmin:   domain.AdminScope(),
		domain.RoleStudent: domain.StudentScope(studentID),
		domain.RoleTeacher: domain.TeacherScope(teacherID),
	}
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
}

type env struct {
	store     *memstore.Store
	metrics   *countingMetrics
	publisher *mockPublisher
	uc        *UseCase
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memstore.New()
	store.AddCourse(domain.Course{ID: "c-30", Title: "Solfege", DurationMinutes: 30, IsActive: true})
	store.AddCourse(domain.Course{ID: "c-45", Title: "Piano", DurationMinutes: 45, IsActive: true})
	store.AddCourse(domain.Course{ID: "c-old", Title: "Archived", DurationMinutes: 60, IsActive: false})

	metrics := &countingMetrics{}
	publisher := new(mockPublisher)
	publisher.On("PublishJSON", mock.Anything, broker.RoutingKeyBookingCreated, mock.Anything).Return(nil).Maybe()

	uc := NewUseCase(store, memstore.Courses{Store: store}, availability.NewChecker(store), scopes, store,
		metrics, publisher, logger.Nop()).
		WithTimeProvider(fixedTime{t: at(8, 0)})

	return &env{store: store, metrics: metrics, publisher: publisher, uc: uc}
}

func request(actor domain.Actor, course string, start time.Time) *Request {
	return &Request{Actor: actor, CourseID: course, StudentID: studentID, TeacherID: teacherID, ScheduledAt: start}
}

func TestScenarioOverlapAndBackToBack(t *testing.T) {
	e := newEnv(t)
	e.store.AddBooking(domain.Booking{
		ID: "existing", CourseID: "c-30", StudentID: anotherStudentID, TeacherID: teacherID,
		ScheduledAt: at(9, 0), EndTime: at(9, 30), Status: domain.BookingStatusConfirmed,
	})

	_, err := e.uc.Execute(context.Background(), request(student, "c-30", at(9, 15)))
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, e.metrics.conflicts)

	created, err := e.uc.Execute(context.Background(), request(student, "c-30", at(9, 30)))
	require.NoError(t, err)
	assert.Equal(t, at(10, 0), created.EndTime)
	assert.Len(t, e.store.Bookings(), 2)
}

func TestInitialStatusByRole(t *testing.T) {
	e := newEnv(t)

	b, err := e.uc.Execute(context.Background(), request(student, "c-30", at(9, 0)))
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, b.Status)

	b, err = e.uc.Execute(context.Background(), request(teacher, "c-30", at(10, 0)))
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, b.Status)

	b, err = e.uc.Execute(context.Background(), request(admin, "c-30", at(11, 0)))
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)

	assert.Equal(t, map[string]int{"PENDING": 2, "CONFIRMED": 1}, e.metrics.created)
	e.publisher.AssertNumberOfCalls(t, "PublishJSON", 3)
}

func TestEndTimeDerivedFromCourse(t *testing.T) {
	e := newEnv(t)

	b, err := e.uc.Execute(context.Background(), request(admin, "c-45", at(13, 10)))
	require.NoError(t, err)
	assert.Equal(t, at(13, 55), b.EndTime)
	assert.Equal(t, 45*time.Minute, b.EndTime.Sub(b.ScheduledAt))
}

func TestCreateRejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *Request
		wantErr error
		field   string
	}{
		{
			name:    "missing course",
			req:     &Request{Actor: admin, StudentID: studentID, TeacherID: teacherID, ScheduledAt: at(9, 0)},
			wantErr: ErrInvalidInput,
			field:   "courseId",
		},
		{
			name:    "missing time",
			req:     &Request{Actor: admin, CourseID: "c-30", StudentID: studentID, TeacherID: teacherID},
			wantErr: ErrInvalidInput,
			field:   "scheduledAt",
		},
		{
			name:    "malformed teacher id",
			req:     &Request{Actor: admin, CourseID: "c-30", StudentID: studentID, TeacherID: "t-1", ScheduledAt: at(9, 0)},
			wantErr: ErrInvalidInput,
			field:   "teacherId",
		},
		{
			name:    "malformed student id",
			req:     &Request{Actor: admin, CourseID: "c-30", StudentID: "s-1", TeacherID: teacherID, ScheduledAt: at(9, 0)},
			wantErr: ErrInvalidInput,
			field:   "studentId",
		},
		{
			name:    "unknown course",
			req:     request(admin, "c-missing", at(9, 0)),
			wantErr: ErrCourseNotFound,
		},
		{
			name:    "inactive course",
			req:     request(admin, "c-old", at(9, 0)),
			wantErr: ErrCourseNotFound,
		},
		{
			name: "student books for someone else",
			req: &Request{Actor: student, CourseID: "c-30", StudentID: otherStudentID, TeacherID: teacherID,
				ScheduledAt: at(9, 0)},
			wantErr: ErrForbidden,
		},
		{
			name: "teacher books another teacher",
			req: &Request{Actor: teacher, CourseID: "c-30", StudentID: studentID, TeacherID: otherTeacherID,
				ScheduledAt: at(9, 0)},
			wantErr: ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.uc.Execute(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.field, domain.FieldOf(err))
		})
	}
	assert.Empty(t, e.store.Bookings())
}

func TestCreateWithoutProfileIsForbidden(t *testing.T) {
	store := memstore.New()
	store.AddCourse(domain.Course{ID: "c-30", DurationMinutes: 30, IsActive: true})
	uc := NewUseCase(store, memstore.Courses{Store: store}, availability.NewChecker(store),
		staticScopes{}, store, &countingMetrics{}, broker.NopPublisher{}, logger.Nop())

	_, err := uc.Execute(context.Background(), request(student, "c-30", at(9, 0)))
	assert.ErrorIs(t, err, ErrForbidden)
}

type overlapOnCreate struct {
	*memstore.Store
}

func (o overlapOnCreate) Create(context.Context, *domain.Booking) (*domain.Booking, error) {
	return nil, fmt.Errorf("%w: exclusion constraint", bookingRepo.ErrOverlap)
}

func TestStorageConstraintMapsToConflict(t *testing.T) {
	store := memstore.New()
	store.AddCourse(domain.Course{ID: "c-30", DurationMinutes: 30, IsActive: true})
	metrics := &countingMetrics{}
	uc := NewUseCase(overlapOnCreate{store}, memstore.Courses{Store: store}, availability.NewChecker(store),
		scopes, store, metrics, broker.NopPublisher{}, logger.Nop())

	_, err := uc.Execute(context.Background(), request(admin, "c-30", at(9, 0)))
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, metrics.conflicts)
}

func TestPublishFailureDoesNotFailCreate(t *testing.T) {
	store := memstore.New()
	store.AddCourse(domain.Course{ID: "c-30", DurationMinutes: 30, IsActive: true})
	publisher := new(mockPublisher)
	publisher.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
	uc := NewUseCase(store, memstore.Courses{Store: store}, availability.NewChecker(store),
		scopes, store, &countingMetrics{}, publisher, logger.Nop())

	b, err := uc.Execute(context.Background(), request(admin, "c-30", at(9, 0)))
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
}

// Параллельные создания со случайными интервалами не должны давать пересечений
// даже без ограничения исключения в хранилище.
func TestConcurrentCreatesNeverOverlap(t *testing.T) {
	e := newEnv(t)
	e.store.DisableConstraint()

	const workers = 64
	rnd := rand.New(rand.NewSource(42))
	starts := make([]time.Time, workers)
	courses := make([]string, workers)
	for i := range starts {
		starts[i] = at(9, 0).Add(time.Duration(rnd.Intn(16)*15) * time.Minute)
		courses[i] = []string{"c-30", "c-45"}[rnd.Intn(2)]
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.uc.Execute(context.Background(), request(admin, courses[i], starts[i]))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	bookings := e.store.Bookings()
	assert.Equal(t, workers, succeeded+conflicts)
	assert.Len(t, bookings, succeeded)
	for i := 0; i < len(bookings); i++ {
		for j := i + 1; j < len(bookings); j++ {
			assert.False(t, domain.Overlaps(bookings[i].Interval(), bookings[j].Interval()),
				"bookings %s and %s overlap", bookings[i].Interval(), bookings[j].Interval())
		}
	}
}
