package appointments

import (
	"context"
	"errors"
	"fmt"

	"appointmate/backend/internal/store"
)

var (
	ErrSlotConflict       = errors.New("slot already booked")
	ErrOutOfHours         = errors.New("outside working hours")
	ErrPastTime           = errors.New("time is in the past")
	ErrNotFound           = errors.New("appointment not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// translate maps store and driver errors onto the service error kinds. Context errors pass
// through so callers can tell an abandoned call from a storage outage.
func translate(err error) error {
	var vErr *ValidationError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSlotConflict),
		errors.Is(err, ErrOutOfHours),
		errors.Is(err, ErrPastTime),
		errors.Is(err, ErrNotFound),
		errors.As(err, &vErr):
		return err
	case errors.Is(err, store.ErrConflict):
		return ErrSlotConflict
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
}
