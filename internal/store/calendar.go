package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"appointmate/backend/internal/domain"
)

// CalendarTx is the view of the store inside one calendar transaction.
// Lookups return ErrNotFound when nothing matches; writes return ErrConflict when the
// start_time uniqueness constraint rejects them.
type CalendarTx interface {
	FindByStart(ctx context.Context, start time.Time) (domain.Appointment, error)
	FindByClientAndStart(ctx context.Context, clientName string, start time.Time) (domain.Appointment, error)
	ListAppointments(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Appointment, error)

	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	UpdateStartTime(ctx context.Context, appointmentID uuid.UUID, start time.Time) (domain.Appointment, error)
	DeleteAppointment(ctx context.Context, appointmentID uuid.UUID) error
}
