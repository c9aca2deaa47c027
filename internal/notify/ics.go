package notify

import (
	"fmt"
	"strings"
	"time"

	"appointmate/backend/internal/domain"
)

const icsStamp = "20060102T150405Z"

// Invite renders a single-event iCalendar (RFC 5545) document for appt. Attendees with an
// empty address are left out.
func Invite(appt domain.Appointment, organizer string, attendees []string, now time.Time) []byte {
	var b strings.Builder
	line := func(format string, args ...any) {
		b.WriteString(fmt.Sprintf(format, args...))
		b.WriteString("\r\n")
	}

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:-//appointmate//scheduler//EN")
	line("METHOD:REQUEST")
	line("BEGIN:VEVENT")
	line("UID:%s@appointmate", appt.ID)
	line("DTSTAMP:%s", now.UTC().Format(icsStamp))
	line("DTSTART:%s", appt.StartTime.UTC().Format(icsStamp))
	line("DTEND:%s", appt.EndTime().UTC().Format(icsStamp))
	line("SUMMARY:%s", escapeText("Appointment: "+appt.ClientName))
	line("DESCRIPTION:%s", escapeText("Appointment with "+appt.ClientName+" booked via AppointMate."))
	if organizer != "" {
		line("ORGANIZER:mailto:%s", organizer)
	}
	for _, a := range attendees {
		if a == "" {
			continue
		}
		line("ATTENDEE;ROLE=REQ-PARTICIPANT:mailto:%s", a)
	}
	line("END:VEVENT")
	line("END:VCALENDAR")
	return []byte(b.String())
}

var textEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

func inviteFilename(appt domain.Appointment) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, appt.ClientName)
	return fmt.Sprintf("appointment_%s_%s.ics", name, appt.StartTime.UTC().Format("20060102_1504"))
}
