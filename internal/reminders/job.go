package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"appointmate/backend/internal/domain"
	"appointmate/backend/internal/notify"
)

type Schedule interface {
	AppointmentsForDate(ctx context.Context, date time.Time) ([]domain.Appointment, error)
	Now() time.Time
}

type Reminder interface {
	Remind(ctx context.Context, appt domain.Appointment) error
}

type Result struct {
	Sent    int
	Skipped int
	Failed  int
}

// Job mails every client booked on the next calendar day.
type Job struct {
	schedule Schedule
	reminder Reminder
	timeout  time.Duration
	log      *slog.Logger
}

func NewJob(schedule Schedule, reminder Reminder, timeout time.Duration, log *slog.Logger) *Job {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Job{
		schedule: schedule,
		reminder: reminder,
		timeout:  timeout,
		log:      log.With(slog.String("component", "reminders")),
	}
}

func (j *Job) RunOnce(ctx context.Context) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	tomorrow := j.schedule.Now().AddDate(0, 0, 1)
	appts, err := j.schedule.AppointmentsForDate(ctx, tomorrow)
	if err != nil {
		return Result{}, fmt.Errorf("list appointments for %s: %w", tomorrow.Format(time.DateOnly), err)
	}

	var res Result
	for _, a := range appts {
		err := j.reminder.Remind(ctx, a)
		switch {
		case err == nil:
			res.Sent++
		case errors.Is(err, notify.ErrNoRecipient):
			res.Skipped++
		case ctx.Err() != nil:
			return res, ctx.Err()
		default:
			res.Failed++
			j.log.Warn("reminder failed",
				slog.String("appointment_id", a.ID.String()),
				slog.Any("err", err),
			)
		}
	}
	return res, nil
}

// Start registers the job on a cron scheduler in loc and starts it. Stop the returned scheduler
// during shutdown.
func (j *Job) Start(expr string, loc *time.Location) (*cron.Cron, error) {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(expr, j.run); err != nil {
		return nil, fmt.Errorf("schedule reminders %q: %w", expr, err)
	}
	c.Start()
	j.log.Info("reminder job scheduled", slog.String("schedule", expr), slog.String("tz", loc.String()))
	return c, nil
}

func (j *Job) run() {
	res, err := j.RunOnce(context.Background())
	if err != nil {
		j.log.Error("reminder run failed", slog.Any("err", err))
		return
	}
	j.log.Info("reminder run finished",
		slog.Int("sent", res.Sent),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed),
	)
}
