package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"appointmate/backend/internal/domain"
	"appointmate/backend/internal/store"
)

type fakeLookup struct {
	findFn func(ctx context.Context, start time.Time) (domain.Appointment, error)
}

func (f *fakeLookup) FindByStart(ctx context.Context, start time.Time) (domain.Appointment, error) {
	if f.findFn == nil {
		panic("FindByStart not configured")
	}
	return f.findFn(ctx, start)
}

func TestValidatorWithinHours(t *testing.T) {
	hours := domain.DefaultWorkingHours()
	hours[time.Saturday] = domain.Window{Open: 20 * 60, Close: 0}
	v := NewValidator(mustPolicy(t, hours, 60))

	saturday := time.Date(2025, 7, 19, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{name: "opening slot", ts: at(9, 0), want: true},
		{name: "last full slot", ts: at(16, 0), want: true},
		{name: "before open", ts: at(8, 59), want: false},
		{name: "runs past close", ts: at(16, 30), want: false},
		{name: "at close", ts: at(17, 0), want: false},
		{name: "closed weekday", ts: sunday, want: false},
		{name: "ends exactly at midnight", ts: saturday.Add(23 * time.Hour), want: true},
		{name: "runs past midnight", ts: saturday.Add(23*time.Hour + 30*time.Minute), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.WithinHours(tt.ts); got != tt.want {
				t.Fatalf("WithinHours(%v) = %v, want %v", tt.ts, got, tt.want)
			}
		})
	}
}

func TestValidatorIsBooked(t *testing.T) {
	v := NewValidator(mustPolicy(t, domain.DefaultWorkingHours(), 60))
	boom := errors.New("boom")

	tests := []struct {
		name    string
		err     error
		want    bool
		wantErr error
	}{
		{name: "booked", want: true},
		{name: "free", err: store.ErrNotFound, want: false},
		{name: "store failure", err: boom, wantErr: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &fakeLookup{
				findFn: func(ctx context.Context, start time.Time) (domain.Appointment, error) {
					return domain.Appointment{StartTime: start}, tt.err
				},
			}
			got, err := v.IsBooked(context.Background(), lookup, at(10, 0))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("IsBooked = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidatorWithinHours_DaylightSavingDays(t *testing.T) {
	p := berlinEveryDay(t)
	v := NewValidator(p)
	loc := p.Location()

	for _, day := range []struct{ y, m, d int }{{2026, 3, 29}, {2026, 10, 25}} {
		local := func(h int) time.Time {
			return time.Date(day.y, time.Month(day.m), day.d, h, 0, 0, 0, loc)
		}
		tests := []struct {
			name string
			ts   time.Time
			want bool
		}{
			{name: "opening slot", ts: local(9), want: true},
			{name: "last full slot", ts: local(16), want: true},
			{name: "before open", ts: local(8), want: false},
			{name: "at close", ts: local(17), want: false},
		}
		for _, tt := range tests {
			t.Run(local(0).Format("2006-01-02")+" "+tt.name, func(t *testing.T) {
				if got := v.WithinHours(tt.ts); got != tt.want {
					t.Fatalf("WithinHours(%v) = %v, want %v", tt.ts, got, tt.want)
				}
			})
		}
	}
}
