package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"appointmate/backend/internal/domain"
	"appointmate/backend/internal/store"
)

const (
	// Every mutating transaction takes this advisory lock, so check-then-write runs serially.
	calendarLockKey     = "appointmate:calendar"
	startTimeConstraint = "appointments_start_time_key"
	uniqueViolation     = "23505"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

var _ store.AppointmentRepository = (*AppointmentRepo)(nil)

type calendarTx struct {
	tx bun.IDB
}

func (r *AppointmentRepo) InCalendarTransaction(ctx context.Context, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockCalendar(ctx, tx); err != nil {
			return err
		}
		return fn(ctx, calendarTx{tx: tx})
	})
}

func lockCalendar(ctx context.Context, tx bun.Tx) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", calendarLockKey).Exec(ctx)
	return err
}

func (r *AppointmentRepo) ListAppointments(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	return calendarTx{tx: r.db}.ListAppointments(ctx, windowStart, windowEnd)
}

func (r *AppointmentRepo) ListByClient(ctx context.Context, clientName string) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("client_name = ?", clientName).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r calendarTx) FindByStart(ctx context.Context, start time.Time) (domain.Appointment, error) {
	var a domain.Appointment
	err := r.tx.NewSelect().
		Model(&a).
		Where("start_time = ?", start.UTC()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, mapNoRows(err)
	}
	return a, nil
}

func (r calendarTx) FindByClientAndStart(ctx context.Context, clientName string, start time.Time) (domain.Appointment, error) {
	var a domain.Appointment
	err := r.tx.NewSelect().
		Model(&a).
		Where("client_name = ?", clientName).
		Where("start_time = ?", start.UTC()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, mapNoRows(err)
	}
	return a, nil
}

func (r calendarTx) ListAppointments(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.tx.NewSelect().
		Model(&rows).
		Where("start_time >= ?", windowStart.UTC()).
		Where("start_time < ?", windowEnd.UTC()).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r calendarTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := domain.Appointment{
		ID:              appt.ID,
		ClientName:      appt.ClientName,
		ClientEmail:     appt.ClientEmail,
		StartTime:       appt.StartTime.UTC(),
		DurationMinutes: appt.DurationMinutes,
		CreatedAt:       appt.CreatedAt,
		UpdatedAt:       appt.UpdatedAt,
	}

	if _, err := r.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Appointment{}, mapWriteError(err)
	}
	return m, nil
}

func (r calendarTx) UpdateStartTime(ctx context.Context, appointmentID uuid.UUID, start time.Time) (domain.Appointment, error) {
	m := domain.Appointment{ID: appointmentID, StartTime: start.UTC()}
	if err := updateStartTimeQuery(r.tx, &m).Scan(ctx); err != nil {
		return domain.Appointment{}, mapNoRows(mapWriteError(err))
	}
	return m, nil
}

// updateStartTimeQuery writes only start_time and updated_at; the model hook stamps updated_at.
func updateStartTimeQuery(idb bun.IDB, m *domain.Appointment) *bun.UpdateQuery {
	return idb.NewUpdate().
		Model(m).
		Column("start_time", "updated_at").
		WherePK().
		Returning("*")
}

func (r calendarTx) DeleteAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	res, err := r.tx.NewDelete().
		Model((*domain.Appointment)(nil)).
		Where("id = ?", appointmentID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapWriteError turns a start_time uniqueness violation into store.ErrConflict.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == startTimeConstraint {
		return store.ErrConflict
	}
	return err
}
