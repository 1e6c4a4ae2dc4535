package delete_booking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/m04kA/SMC-EduBookingService/internal/api/middleware"
	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	"github.com/m04kA/SMC-EduBookingService/internal/service/bookings"
	"github.com/m04kA/SMC-EduBookingService/pkg/logger"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

func TestDeleteBooking(t *testing.T) {
	tests := []struct {
		name   string
		role   domain.Role
		err    error
		status int
	}{
		{"admin", domain.RoleAdmin, nil, http.StatusNoContent},
		{"teacher", domain.RoleTeacher, bookings.ErrForbidden, http.StatusForbidden},
		{"missing", domain.RoleAdmin, bookings.ErrBookingNotFound, http.StatusNotFound},
		{"storage", domain.RoleAdmin, bookings.ErrInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := domain.Actor{UserID: "u-1", Role: tt.role}
			svc := new(mockService)
			svc.On("Delete", mock.Anything, actor, "b-1").Return(tt.err)

			r := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/b-1", nil)
			r = mux.SetURLVars(r, map[string]string{"bookingId": "b-1"})
			r = r.WithContext(middleware.WithActor(r.Context(), actor))
			rec := httptest.NewRecorder()
			NewHandler(svc, logger.Nop()).Handle(rec, r)

			assert.Equal(t, tt.status, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestDeleteBookingWithoutActor(t *testing.T) {
	svc := new(mockService)
	rec := httptest.NewRecorder()
	NewHandler(svc, logger.Nop()).Handle(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/b-1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}
