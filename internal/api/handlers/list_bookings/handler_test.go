package list_bookings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-EduBookingService/internal/api/middleware"
	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	"github.com/m04kA/SMC-EduBookingService/internal/service/bookings"
	"github.com/m04kA/SMC-EduBookingService/internal/service/bookings/models"
	"github.com/m04kA/SMC-EduBookingService/pkg/logger"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) List(ctx context.Context, actor domain.Actor, req *models.ListBookingsRequest) (*models.BookingListResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingListResponse), args.Error(1)
}

func TestToServiceRequest(t *testing.T) {
	req, err := ToServiceRequest(url.Values{"status": {"pending"}, "teacherId": {"t-1"}, "page": {"2"}, "studentId": {" "}})
	require.NoError(t, err)
	require.NotNil(t, req.Status)
	assert.Equal(t, "PENDING", *req.Status)
	assert.Equal(t, "t-1", *req.TeacherID)
	assert.Nil(t, req.StudentID)
	assert.Equal(t, 2, req.Page)
	assert.Zero(t, req.Limit)

	for _, q := range []url.Values{{"page": {"0"}}, {"limit": {"ten"}}, {"limit": {"-5"}}} {
		_, err := ToServiceRequest(q)
		assert.Error(t, err, q.Encode())
	}
}

func get(h *Handler, query string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?"+query, nil)
	r = r.WithContext(middleware.WithActor(r.Context(), domain.Actor{UserID: "u-t", Role: domain.RoleTeacher}))
	rec := httptest.NewRecorder()
	h.Handle(rec, r)
	return rec
}

func TestListBookingsHandler(t *testing.T) {
	svc := new(mockService)
	svc.On("List", mock.Anything, mock.Anything, mock.Anything).Return(&models.BookingListResponse{
		Bookings:   []models.BookingResponse{{ID: "b-1", Status: "PENDING"}},
		Pagination: models.Pagination{Page: 1, Limit: 20, Total: 1, TotalPages: 1},
	}, nil).Once()
	svc.On("List", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: %w", bookings.ErrInvalidInput, domain.NewFieldError("teacherId", errors.New("must be a UUID")))).Once()
	svc.On("List", mock.Anything, mock.Anything, mock.Anything).Return(nil, bookings.ErrInternal).Once()

	h := NewHandler(svc, logger.Nop())

	rec := get(h, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalPages":1`)

	rec = get(h, "teacherId=foo")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"teacherId"`)

	rec = get(h, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = get(h, "limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"limit"`)
	svc.AssertNumberOfCalls(t, "List", 3)
}
