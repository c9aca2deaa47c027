// Package memory is an in-process availability store for tests and local runs without
// Postgres. It enforces the same start_time uniqueness the database constraint does.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"appointmate/backend/internal/domain"
	"appointmate/backend/internal/store"
)

type Store struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]domain.Appointment
	byStart map[int64]uuid.UUID
	now     func() time.Time
}

func New() *Store {
	return &Store{
		byID:    make(map[uuid.UUID]domain.Appointment),
		byStart: make(map[int64]uuid.UUID),
		now:     time.Now,
	}
}

var _ store.AppointmentRepository = (*Store)(nil)

// InCalendarTransaction runs fn while holding the store lock. Writes made through tx are
// discarded when fn returns an error.
func (s *Store) InCalendarTransaction(ctx context.Context, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s, byID: cloneIDs(s.byID), byStart: cloneStarts(s.byStart)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.byID = tx.byID
	s.byStart = tx.byStart
	return nil
}

func (s *Store) ListAppointments(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listWindow(s.byID, windowStart, windowEnd), nil
}

func (s *Store) ListByClient(ctx context.Context, clientName string) ([]domain.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Appointment
	for _, a := range s.byID {
		if a.ClientName == clientName {
			out = append(out, a)
		}
	}
	sortByStart(out)
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len reports the number of committed appointments.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

type memTx struct {
	s       *Store
	byID    map[uuid.UUID]domain.Appointment
	byStart map[int64]uuid.UUID
}

func (t *memTx) FindByStart(ctx context.Context, start time.Time) (domain.Appointment, error) {
	id, ok := t.byStart[startKey(start)]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	return t.byID[id], nil
}

func (t *memTx) FindByClientAndStart(ctx context.Context, clientName string, start time.Time) (domain.Appointment, error) {
	a, err := t.FindByStart(ctx, start)
	if err != nil {
		return domain.Appointment{}, err
	}
	if a.ClientName != clientName {
		return domain.Appointment{}, store.ErrNotFound
	}
	return a, nil
}

func (t *memTx) ListAppointments(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	return listWindow(t.byID, windowStart, windowEnd), nil
}

func (t *memTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	appt.StartTime = appt.StartTime.UTC()
	key := startKey(appt.StartTime)
	if _, taken := t.byStart[key]; taken {
		return domain.Appointment{}, store.ErrConflict
	}

	if appt.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Appointment{}, err
		}
		appt.ID = id
	}
	if _, taken := t.byID[appt.ID]; taken {
		return domain.Appointment{}, store.ErrConflict
	}

	now := t.s.now().UTC()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	if appt.UpdatedAt.IsZero() {
		appt.UpdatedAt = now
	}

	t.byID[appt.ID] = appt
	t.byStart[key] = appt.ID
	return appt, nil
}

func (t *memTx) UpdateStartTime(ctx context.Context, appointmentID uuid.UUID, start time.Time) (domain.Appointment, error) {
	a, ok := t.byID[appointmentID]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	key := startKey(start)
	if holder, taken := t.byStart[key]; taken && holder != appointmentID {
		return domain.Appointment{}, store.ErrConflict
	}

	delete(t.byStart, startKey(a.StartTime))
	a.StartTime = start.UTC()
	a.UpdatedAt = t.s.now().UTC()
	t.byID[appointmentID] = a
	t.byStart[key] = appointmentID
	return a, nil
}

func (t *memTx) DeleteAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	a, ok := t.byID[appointmentID]
	if !ok {
		return store.ErrNotFound
	}
	delete(t.byID, appointmentID)
	delete(t.byStart, startKey(a.StartTime))
	return nil
}

func startKey(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func listWindow(byID map[uuid.UUID]domain.Appointment, windowStart, windowEnd time.Time) []domain.Appointment {
	var out []domain.Appointment
	for _, a := range byID {
		if !a.StartTime.Before(windowStart) && a.StartTime.Before(windowEnd) {
			out = append(out, a)
		}
	}
	sortByStart(out)
	return out
}

func sortByStart(rows []domain.Appointment) {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].StartTime.Before(rows[j].StartTime)
	})
}

func cloneIDs(m map[uuid.UUID]domain.Appointment) map[uuid.UUID]domain.Appointment {
	out := make(map[uuid.UUID]domain.Appointment, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStarts(m map[int64]uuid.UUID) map[int64]uuid.UUID {
	out := make(map[int64]uuid.UUID, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
