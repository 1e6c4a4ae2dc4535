package list_bookings

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
	"github.com/m04kA/SMC-EduBookingService/internal/service/bookings/models"
)

// ToServiceRequest собирает запрос сервиса из query параметров.
// Пустые параметры считаются не заданными.
func ToServiceRequest(q url.Values) (*models.ListBookingsRequest, error) {
	req := &models.ListBookingsRequest{
		Status:    optional(q, "status"),
		StudentID: optional(q, "studentId"),
		TeacherID: optional(q, "teacherId"),
	}

	var err error
	if req.Page, err = optionalInt(q, "page"); err != nil {
		return nil, err
	}
	if req.Limit, err = optionalInt(q, "limit"); err != nil {
		return nil, err
	}

	if req.Status != nil {
		upper := strings.ToUpper(*req.Status)
		req.Status = &upper
	}

	return req, nil
}

func optional(q url.Values, key string) *string {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil
	}
	return &v
}

func optionalInt(q url.Values, key string) (int, error) {
	v := optional(q, key)
	if v == nil {
		return 0, nil
	}
	n, err := strconv.Atoi(*v)
	if err != nil || n < 1 {
		return 0, domain.NewFieldError(key, fmt.Errorf("must be a positive integer, got %q", *v))
	}
	return n, nil
}
