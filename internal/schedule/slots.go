// Package schedule derives candidate slots from the working-hours policy and checks
// timestamps against it and against the availability store.
package schedule

import (
	"context"
	"time"

	"appointmate/backend/internal/domain"
)

// Reader is the read side of the availability store used for slot listing.
type Reader interface {
	ListAppointments(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
}

type Calculator struct {
	policy           domain.Policy
	suppressOverlaps bool
}

type Option func(*Calculator)

// SuppressOverlaps drops candidates that overlap a booking instead of only those that start
// at exactly the same time.
func SuppressOverlaps(on bool) Option {
	return func(c *Calculator) {
		c.suppressOverlaps = on
	}
}

func NewCalculator(policy domain.Policy, opts ...Option) *Calculator {
	c := &Calculator{policy: policy}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calculator) Policy() domain.Policy { return c.policy }

// Slots tiles the working window of date's weekday with slot-duration steps. A trailing
// partial slot is never produced. Closed days yield nil.
func (c *Calculator) Slots(date time.Time) []time.Time {
	w, ok := c.policy.Window(date)
	if !ok {
		return nil
	}

	d := c.policy.SlotDuration()
	open := c.policy.At(date, w.Open)
	closing := c.policy.At(date, w.Close)

	var out []time.Time
	for s := open; !s.Add(d).After(closing); s = s.Add(d) {
		out = append(out, s)
	}
	return out
}

// Available lists the free slot starts for date in ascending order.
func (c *Calculator) Available(ctx context.Context, r Reader, date time.Time) ([]time.Time, error) {
	candidates := c.Slots(date)
	if len(candidates) == 0 {
		return []time.Time{}, nil
	}

	dayStart, dayEnd := c.policy.DayBounds(date)
	queryStart := dayStart
	if c.suppressOverlaps {
		// A booking from the previous evening may still run into this day.
		queryStart = dayStart.Add(-24 * time.Hour)
	}

	booked, err := r.ListAppointments(ctx, queryStart, dayEnd)
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, 0, len(candidates))
	for _, s := range candidates {
		if c.taken(s, booked) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *Calculator) taken(slot time.Time, booked []domain.Appointment) bool {
	end := slot.Add(c.policy.SlotDuration())
	for _, b := range booked {
		if b.StartTime.Equal(slot) {
			return true
		}
		if c.suppressOverlaps && b.StartTime.Before(end) && slot.Before(b.EndTime()) {
			return true
		}
	}
	return false
}
