package domain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a time of day in minutes after midnight. EndOfDay closes a window at midnight.
type ClockTime int

const EndOfDay ClockTime = 24 * 60

func ParseClockTime(s string) (ClockTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return ClockTime(h*60 + m), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

type Window struct {
	Open  ClockTime
	Close ClockTime
}

// WorkingHours maps a weekday to its window. A missing weekday is a non-working day.
type WorkingHours map[time.Weekday]Window

func DefaultWorkingHours() WorkingHours {
	nineToFive := Window{Open: 9 * 60, Close: 17 * 60}
	return WorkingHours{
		time.Monday:    nineToFive,
		time.Tuesday:   nineToFive,
		time.Wednesday: nineToFive,
		time.Thursday:  nineToFive,
		time.Friday:    nineToFive,
	}
}

var weekdayNames = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

// ParseWorkingHours reads "mon=09:00-17:00,tue=09:00-17:00". A close of 00:00 means midnight.
func ParseWorkingHours(s string) (WorkingHours, error) {
	out := WorkingHours{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		day, span, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid working hours entry %q", part)
		}
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(day))]
		if !ok {
			return nil, fmt.Errorf("invalid weekday %q", day)
		}
		if _, dup := out[wd]; dup {
			return nil, fmt.Errorf("duplicate weekday %q", day)
		}
		openStr, closeStr, ok := strings.Cut(span, "-")
		if !ok {
			return nil, fmt.Errorf("invalid working hours entry %q", part)
		}
		open, err := ParseClockTime(openStr)
		if err != nil {
			return nil, err
		}
		closing, err := ParseClockTime(closeStr)
		if err != nil {
			return nil, err
		}
		out[wd] = Window{Open: open, Close: closing}
	}
	if len(out) == 0 {
		return nil, errors.New("working hours must name at least one weekday")
	}
	return out, nil
}

func (h WorkingHours) String() string {
	days := make([]time.Weekday, 0, len(h))
	for wd := range h {
		days = append(days, wd)
	}
	// Monday first.
	sort.Slice(days, func(i, j int) bool { return mondayIndex(days[i]) < mondayIndex(days[j]) })

	parts := make([]string, 0, len(days))
	for _, wd := range days {
		w := h[wd]
		parts = append(parts, fmt.Sprintf("%s=%s-%s", strings.ToLower(wd.String()[:3]), w.Open, w.Close))
	}
	return strings.Join(parts, ",")
}

func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// Policy is the immutable calendar configuration shared by the slot calculator and the
// conflict validator.
type Policy struct {
	windows [7]Window
	open    [7]bool
	slot    time.Duration
	loc     *time.Location
}

func NewPolicy(hours WorkingHours, slotMinutes int, loc *time.Location) (Policy, error) {
	if slotMinutes <= 0 {
		return Policy{}, errors.New("slot duration must be positive")
	}
	if loc == nil {
		loc = time.UTC
	}

	p := Policy{slot: time.Duration(slotMinutes) * time.Minute, loc: loc}
	for wd, w := range hours {
		if wd < time.Sunday || wd > time.Saturday {
			return Policy{}, fmt.Errorf("invalid weekday %d", wd)
		}
		if w.Close == 0 {
			w.Close = EndOfDay
		}
		if w.Open < 0 || w.Close > EndOfDay || w.Open >= w.Close {
			return Policy{}, fmt.Errorf("invalid window for %s: %s-%s", wd, w.Open, w.Close)
		}
		p.windows[wd] = w
		p.open[wd] = true
	}
	return p, nil
}

func (p Policy) SlotDuration() time.Duration { return p.slot }

func (p Policy) SlotMinutes() int { return int(p.slot / time.Minute) }

func (p Policy) Location() *time.Location {
	if p.loc == nil {
		return time.UTC
	}
	return p.loc
}

// Window returns the working window for the calendar day containing t.
func (p Policy) Window(t time.Time) (Window, bool) {
	wd := t.In(p.Location()).Weekday()
	return p.windows[wd], p.open[wd]
}

// DayStart is midnight of t's calendar day in the policy zone.
func (p Policy) DayStart(t time.Time) time.Time {
	y, m, d := t.In(p.Location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, p.Location())
}

// DayBounds returns [midnight, next midnight) for t's calendar day.
func (p Policy) DayBounds(t time.Time) (time.Time, time.Time) {
	start := p.DayStart(t)
	y, m, d := start.Date()
	return start, time.Date(y, m, d+1, 0, 0, 0, 0, p.Location())
}

// At places a wall-clock time on t's calendar day in the policy zone. EndOfDay is the
// following midnight. Daylight-saving days keep the wall clock, not the elapsed minutes.
func (p Policy) At(t time.Time, c ClockTime) time.Time {
	y, m, d := t.In(p.Location()).Date()
	return time.Date(y, m, d, int(c)/60, int(c)%60, 0, 0, p.Location())
}
