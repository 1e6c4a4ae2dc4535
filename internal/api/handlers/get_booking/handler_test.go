package get_booking

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/m04kA/SMC-EduBookingService/internal/api/middleware"
	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	"github.com/m04kA/SMC-EduBookingService/internal/service/bookings"
	"github.com/m04kA/SMC-EduBookingService/internal/service/bookings/models"
	"github.com/m04kA/SMC-EduBookingService/pkg/logger"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) GetByID(ctx context.Context, actor domain.Actor, id string) (*models.BookingResponse, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingResponse), args.Error(1)
}

func TestGetBooking(t *testing.T) {
	actor := domain.Actor{UserID: "u-s", Role: domain.RoleStudent}
	svc := new(mockService)
	svc.On("GetByID", mock.Anything, actor, "b-1").Return(&models.BookingResponse{ID: "b-1", Status: "PENDING"}, nil)
	svc.On("GetByID", mock.Anything, actor, "b-foreign").
		Return(nil, fmt.Errorf("%w: not visible", bookings.ErrBookingNotFound))
	svc.On("GetByID", mock.Anything, actor, "b-broken").Return(nil, bookings.ErrInternal)

	h := NewHandler(svc, logger.Nop())
	tests := map[string]int{
		"b-1":       http.StatusOK,
		"b-foreign": http.StatusNotFound,
		"b-broken":  http.StatusInternalServerError,
	}

	for id, status := range tests {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/"+id, nil)
		r = mux.SetURLVars(r, map[string]string{"bookingId": id})
		r = r.WithContext(middleware.WithActor(r.Context(), actor))
		rec := httptest.NewRecorder()
		h.Handle(rec, r)
		assert.Equal(t, status, rec.Code, id)
	}
}
