package store

import (
	"context"
	"time"

	"appointmate/backend/internal/domain"
)

// AppointmentRepository is the availability store. Mutations go through InCalendarTransaction
// so the check and the write share one atomic unit.
type AppointmentRepository interface {
	InCalendarTransaction(ctx context.Context, fn func(ctx context.Context, tx CalendarTx) error) error

	ListAppointments(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	ListByClient(ctx context.Context, clientName string) ([]domain.Appointment, error)
	Ping(ctx context.Context) error
}
