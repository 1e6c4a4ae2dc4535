package update_booking

import (
	"errors"
	"fmt"

	"github.com/m04kA/SMC-EduBookingService/internal/domain"
)

// mapPatchError переводит ошибки применения патча в ошибки usecase
func mapPatchError(err error) error {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	case errors.Is(err, domain.ErrEmptyPatch):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	case errors.Is(err, domain.ErrInvalidStatus), errors.Is(err, domain.ErrInvalidTransition):
		return domain.NewFieldError("status", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}
