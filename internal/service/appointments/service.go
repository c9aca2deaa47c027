package appointments

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"appointmate/backend/internal/domain"
	"appointmate/backend/internal/schedule"
	"appointmate/backend/internal/store"
)

const DateLayout = "2006-01-02"

// SlotCache holds computed free-slot listings keyed by calendar date (DateLayout).
// Invalidate advances a date's generation; Set only stores a listing computed under the
// generation that is still current.
type SlotCache interface {
	Get(ctx context.Context, day string) ([]time.Time, bool, error)
	Generation(ctx context.Context, day string) (int64, error)
	Set(ctx context.Context, day string, gen int64, slots []time.Time) (bool, error)
	Invalidate(ctx context.Context, days ...string) error
}

type Service struct {
	repo      store.AppointmentRepository
	policy    domain.Policy
	slots     *schedule.Calculator
	validator schedule.Validator
	cache     SlotCache
	now       func() time.Time
	log       *slog.Logger
	tracer    trace.Tracer
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithSlotCache(c SlotCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithOverlapSuppression hides candidate slots that overlap a misaligned booking instead of
// only those starting at exactly the same time.
func WithOverlapSuppression(on bool) Option {
	return func(s *Service) {
		s.slots = schedule.NewCalculator(s.policy, schedule.SuppressOverlaps(on))
	}
}

func NewService(repo store.AppointmentRepository, policy domain.Policy, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		policy:    policy,
		slots:     schedule.NewCalculator(policy),
		validator: schedule.NewValidator(policy),
		now:       time.Now,
		log:       slog.Default(),
		tracer:    otel.Tracer("appointmate/service/appointments"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "service.appointments"))
	return s
}

func (s *Service) Policy() domain.Policy { return s.policy }

// Now is the service clock in the calendar zone.
func (s *Service) Now() time.Time { return s.now().In(s.policy.Location()) }

type BookInput struct {
	StartTime   time.Time
	ClientName  string
	ClientEmail string
}

// Book reserves StartTime for a client. Past times fail before the slot is looked at; an
// occupied slot fails with ErrSlotConflict whether the pre-check or the unique constraint
// catches it.
func (s *Service) Book(ctx context.Context, in BookInput) (appt domain.Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Book")
	defer func() { endSpan(span, err) }()

	name := strings.TrimSpace(in.ClientName)
	if name == "" {
		return domain.Appointment{}, validationError("client_name is required")
	}
	if in.StartTime.IsZero() {
		return domain.Appointment{}, validationError("start_time is required")
	}
	email, err := normalizeEmail(in.ClientEmail)
	if err != nil {
		return domain.Appointment{}, err
	}

	start := minutePrecision(in.StartTime)
	if start.Before(s.now()) {
		return domain.Appointment{}, ErrPastTime
	}
	if !s.validator.WithinHours(start) {
		return domain.Appointment{}, ErrOutOfHours
	}

	err = s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		booked, err := s.validator.IsBooked(ctx, tx, start)
		if err != nil {
			return err
		}
		if booked {
			return ErrSlotConflict
		}

		created, err := tx.CreateAppointment(ctx, domain.Appointment{
			ClientName:      name,
			ClientEmail:     email,
			StartTime:       start,
			DurationMinutes: s.policy.SlotMinutes(),
		})
		if err != nil {
			return err
		}
		appt = created
		return nil
	})
	if err != nil {
		return domain.Appointment{}, translate(err)
	}

	s.invalidate(ctx, start)
	return appt, nil
}

type RescheduleInput struct {
	ClientName       string
	CurrentStartTime time.Time
	NewStartTime     time.Time
}

// Reschedule moves a client's appointment in place. Failures are checked in a fixed order:
// slot conflict, not found, out of hours, past time.
func (s *Service) Reschedule(ctx context.Context, in RescheduleInput) (appt domain.Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Reschedule")
	defer func() { endSpan(span, err) }()

	name := strings.TrimSpace(in.ClientName)
	if name == "" {
		return domain.Appointment{}, validationError("client_name is required")
	}
	if in.CurrentStartTime.IsZero() || in.NewStartTime.IsZero() {
		return domain.Appointment{}, validationError("current_start_time and new_start_time are required")
	}

	current := minutePrecision(in.CurrentStartTime)
	next := minutePrecision(in.NewStartTime)

	err = s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		booked, err := s.validator.IsBooked(ctx, tx, next)
		if err != nil {
			return err
		}
		if booked {
			return ErrSlotConflict
		}

		existing, err := tx.FindByClientAndStart(ctx, name, current)
		if err != nil {
			return err
		}
		if !s.validator.WithinHours(next) {
			return ErrOutOfHours
		}
		if next.Before(s.now()) {
			return ErrPastTime
		}

		updated, err := tx.UpdateStartTime(ctx, existing.ID, next)
		if err != nil {
			return err
		}
		appt = updated
		return nil
	})
	if err != nil {
		return domain.Appointment{}, translate(err)
	}

	s.invalidate(ctx, current, next)
	return appt, nil
}

type CancelInput struct {
	StartTime  time.Time
	ClientName string
}

// Cancel deletes the appointment matching both the client and the start time. It returns the
// removed record.
func (s *Service) Cancel(ctx context.Context, in CancelInput) (appt domain.Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Cancel")
	defer func() { endSpan(span, err) }()

	name := strings.TrimSpace(in.ClientName)
	if name == "" {
		return domain.Appointment{}, validationError("client_name is required")
	}
	if in.StartTime.IsZero() {
		return domain.Appointment{}, validationError("start_time is required")
	}
	start := minutePrecision(in.StartTime)

	err = s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		existing, err := tx.FindByClientAndStart(ctx, name, start)
		if err != nil {
			return err
		}
		if err := tx.DeleteAppointment(ctx, existing.ID); err != nil {
			return err
		}
		appt = existing
		return nil
	})
	if err != nil {
		return domain.Appointment{}, translate(err)
	}

	s.invalidate(ctx, start)
	return appt, nil
}

// ListForClient returns the client's booked start times in ascending order. The name match is
// exact and case-sensitive.
func (s *Service) ListForClient(ctx context.Context, clientName string) ([]time.Time, error) {
	name := strings.TrimSpace(clientName)
	if name == "" {
		return nil, validationError("client_name is required")
	}

	rows, err := s.repo.ListByClient(ctx, name)
	if err != nil {
		return nil, translate(err)
	}

	out := make([]time.Time, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.StartTime.In(s.policy.Location()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// ListSlots returns the free slot starts on date's calendar day, ascending.
func (s *Service) ListSlots(ctx context.Context, date time.Time) (slots []time.Time, err error) {
	ctx, span := s.tracer.Start(ctx, "appointments.ListSlots")
	defer func() { endSpan(span, err) }()

	if date.IsZero() {
		return nil, validationError("date is required")
	}
	day := s.dayKey(date)

	cacheable := false
	var gen int64
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, day)
		if err != nil {
			s.log.Warn("slot cache read failed", slog.String("date", day), slog.Any("err", err))
		} else if ok {
			return inZone(cached, s.policy.Location()), nil
		}
		// The generation must be read before the store.
		if gen, err = s.cache.Generation(ctx, day); err != nil {
			s.log.Warn("slot cache generation read failed", slog.String("date", day), slog.Any("err", err))
		} else {
			cacheable = true
		}
	}

	slots, err = s.slots.Available(ctx, s.repo, date)
	if err != nil {
		return nil, translate(err)
	}

	if cacheable {
		stored, err := s.cache.Set(ctx, day, gen, slots)
		switch {
		case err != nil:
			s.log.Warn("slot cache write failed", slog.String("date", day), slog.Any("err", err))
		case !stored:
			s.log.Debug("slot listing superseded by a concurrent change", slog.String("date", day))
		}
	}
	return slots, nil
}

// AppointmentsForDate returns every committed appointment on date's calendar day, ascending.
func (s *Service) AppointmentsForDate(ctx context.Context, date time.Time) ([]domain.Appointment, error) {
	if date.IsZero() {
		return nil, validationError("date is required")
	}
	dayStart, dayEnd := s.policy.DayBounds(date)
	rows, err := s.repo.ListAppointments(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, translate(err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].StartTime.Before(rows[j].StartTime) })
	return rows, nil
}

// ParseDate reads a DateLayout date in the calendar zone.
func (s *Service) ParseDate(value string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), s.policy.Location())
	if err != nil {
		return time.Time{}, validationError("date must be YYYY-MM-DD")
	}
	return d, nil
}

func (s *Service) dayKey(t time.Time) string {
	return t.In(s.policy.Location()).Format(DateLayout)
}

func (s *Service) invalidate(ctx context.Context, times ...time.Time) {
	if s.cache == nil {
		return
	}
	days := make([]string, 0, len(times))
	for _, t := range times {
		days = append(days, s.dayKey(t))
	}
	if err := s.cache.Invalidate(ctx, days...); err != nil {
		s.log.Warn("slot cache invalidation failed", slog.Any("dates", days), slog.Any("err", err))
	}
}

func minutePrecision(t time.Time) time.Time {
	return t.Truncate(time.Minute).UTC()
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return "", validationError("client_email is invalid")
	}
	return addr.Address, nil
}

func inZone(ts []time.Time, loc *time.Location) []time.Time {
	out := make([]time.Time, len(ts))
	for i, t := range ts {
		out[i] = t.In(loc)
	}
	return out
}

// endSpan marks the span failed only for storage faults; domain rejections are normal outcomes.
func endSpan(span trace.Span, err error) {
	if errors.Is(err, ErrStorageUnavailable) {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	span.End()
}
