package domain

import (
	"errors"
	"fmt"

	"rentbook/internal/models"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrDateConflict           = errors.New("dates are not available")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrNotAuthorized          = errors.New("forbidden")
	ErrUnauthenticated        = errors.New("authentication required")
	ErrNotFound               = errors.New("not found")
	ErrNotCompleted           = errors.New("booking is not completed")
	ErrInvalidRatingValue     = errors.New("rating must be an integer between 1 and 5")
	ErrAlreadyRated           = errors.New("booking already rated")
	ErrConcurrentModification = errors.New("booking was modified concurrently")
	ErrRateLimited            = errors.New("too many booking requests")
)

// DateConflictError reports an overlap with an existing non-cancelled booking.
type DateConflictError struct {
	ItemID   string
	Conflict models.Conflict
}

func (e *DateConflictError) Error() string {
	return fmt.Sprintf("%s: item %s is already booked from %s to %s",
		ErrDateConflict.Error(),
		e.ItemID,
		e.Conflict.StartDate.Format(models.DateLayout),
		e.Conflict.EndDate.Format(models.DateLayout),
	)
}

func (e *DateConflictError) Is(target error) bool {
	return target == ErrDateConflict
}

// NewDateConflictError builds the error for a detected overlap. A nil conflict
// comes from constraint violations where the colliding row is unknown.
func NewDateConflictError(itemID string, c *models.Conflict, requested models.DateRange) *DateConflictError {
	if c == nil {
		c = &models.Conflict{StartDate: requested.Start, EndDate: requested.End}
	}
	return &DateConflictError{ItemID: itemID, Conflict: *c}
}

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
