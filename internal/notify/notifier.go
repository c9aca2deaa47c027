package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"appointmate/backend/internal/domain"
)

var ErrNoRecipient = errors.New("appointment has no client email")

const readableLayout = "Monday, 02 January 2006 15:04"

// Notifier composes booking confirmations and reminders. A nil mailer disables sending.
type Notifier struct {
	mailer       Mailer
	from         string
	professional string
	loc          *time.Location
	now          func() time.Time
	log          *slog.Logger
}

func NewNotifier(mailer Mailer, from, professionalEmail string, loc *time.Location, log *slog.Logger) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		mailer:       mailer,
		from:         strings.TrimSpace(from),
		professional: strings.TrimSpace(professionalEmail),
		loc:          loc,
		now:          time.Now,
		log:          log.With(slog.String("component", "notify")),
	}
}

// Confirm mails the professional, and the client when an address is on file, a confirmation
// with an .ics invite. It never fails: the outcome is reported as a status line.
func (n *Notifier) Confirm(ctx context.Context, appt domain.Appointment) string {
	if n == nil || n.mailer == nil || n.professional == "" {
		return "Email notification skipped: SMTP not configured."
	}

	start := appt.StartTime.In(n.loc)
	recipients := []string{n.professional}
	if appt.ClientEmail != "" && appt.ClientEmail != n.professional {
		recipients = append(recipients, appt.ClientEmail)
	}

	body := fmt.Sprintf(`Hi,

A new appointment has been booked:

Client: %s
Date & Time: %s
Duration: %d minutes

The calendar invite is attached (.ics file).

Best regards,
AppointMate.
`, appt.ClientName, start.Format(readableLayout), appt.DurationMinutes)

	msg := Message{
		From:    n.from,
		To:      recipients,
		Subject: fmt.Sprintf("New Appointment Booking: %s on %s", appt.ClientName, start.Format("2006-01-02 15:04")),
		Body:    body,
		Attachments: []Attachment{{
			Filename:    inviteFilename(appt),
			ContentType: "text/calendar; charset=utf-8; method=REQUEST",
			Data:        Invite(appt, n.professional, recipients, n.now()),
		}},
	}

	if err := n.mailer.Send(ctx, msg); err != nil {
		n.log.Warn("confirmation email failed",
			slog.String("appointment_id", appt.ID.String()),
			slog.Any("err", err),
		)
		return fmt.Sprintf("Email notification failed: %v", err)
	}
	return fmt.Sprintf("Confirmation email sent to %s.", strings.Join(recipients, ", "))
}

// Remind mails the client a reminder for appt. It returns ErrNoRecipient when no client
// address is on file and ErrNotConfigured when sending is disabled.
func (n *Notifier) Remind(ctx context.Context, appt domain.Appointment) error {
	if n == nil || n.mailer == nil {
		return ErrNotConfigured
	}
	if appt.ClientEmail == "" {
		return ErrNoRecipient
	}

	start := appt.StartTime.In(n.loc)
	body := fmt.Sprintf(`Hi %s,

This is a reminder of your appointment on %s (%d minutes).

If you cannot attend, please cancel or reschedule in advance.

Best regards,
AppointMate.
`, appt.ClientName, start.Format(readableLayout), appt.DurationMinutes)

	return n.mailer.Send(ctx, Message{
		From:    n.from,
		To:      []string{appt.ClientEmail},
		Subject: fmt.Sprintf("Appointment reminder: %s", start.Format("2006-01-02 15:04")),
		Body:    body,
	})
}
