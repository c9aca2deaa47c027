package schedule

import (
	"context"
	"errors"
	"time"

	"appointmate/backend/internal/domain"
	"appointmate/backend/internal/store"
)

// Lookup is the exact start-time lookup a calendar transaction provides.
type Lookup interface {
	FindByStart(ctx context.Context, start time.Time) (domain.Appointment, error)
}

type Validator struct {
	policy domain.Policy
}

func NewValidator(policy domain.Policy) Validator {
	return Validator{policy: policy}
}

// WithinHours reports whether a slot starting at ts fits entirely inside its weekday window.
// A window closing at midnight accepts slots that end exactly at midnight.
func (v Validator) WithinHours(ts time.Time) bool {
	w, ok := v.policy.Window(ts)
	if !ok {
		return false
	}
	if ts.Before(v.policy.At(ts, w.Open)) {
		return false
	}
	return !ts.Add(v.policy.SlotDuration()).After(v.policy.At(ts, w.Close))
}

// IsBooked reports whether an appointment starts exactly at ts.
func (v Validator) IsBooked(ctx context.Context, tx Lookup, ts time.Time) (bool, error) {
	_, err := tx.FindByStart(ctx, ts)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
