package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"appointmate/backend/internal/domain"
	"appointmate/backend/internal/events"
	"appointmate/backend/internal/professional"
	"appointmate/backend/internal/service/appointments"
)

type fakeAppointmentsService struct {
	bookFn        func(ctx context.Context, in appointments.BookInput) (domain.Appointment, error)
	rescheduleFn  func(ctx context.Context, in appointments.RescheduleInput) (domain.Appointment, error)
	cancelFn      func(ctx context.Context, in appointments.CancelInput) (domain.Appointment, error)
	listForClient func(ctx context.Context, clientName string) ([]time.Time, error)
	listSlotsFn   func(ctx context.Context, date time.Time) ([]time.Time, error)
	forDateFn     func(ctx context.Context, date time.Time) ([]domain.Appointment, error)
	now           time.Time
}

func (f *fakeAppointmentsService) Book(ctx context.Context, in appointments.BookInput) (domain.Appointment, error) {
	if f.bookFn == nil {
		panic("Book not configured")
	}
	return f.bookFn(ctx, in)
}

func (f *fakeAppointmentsService) Reschedule(ctx context.Context, in appointments.RescheduleInput) (domain.Appointment, error) {
	if f.rescheduleFn == nil {
		panic("Reschedule not configured")
	}
	return f.rescheduleFn(ctx, in)
}

func (f *fakeAppointmentsService) Cancel(ctx context.Context, in appointments.CancelInput) (domain.Appointment, error) {
	if f.cancelFn == nil {
		panic("Cancel not configured")
	}
	return f.cancelFn(ctx, in)
}

func (f *fakeAppointmentsService) ListForClient(ctx context.Context, clientName string) ([]time.Time, error) {
	if f.listForClient == nil {
		panic("ListForClient not configured")
	}
	return f.listForClient(ctx, clientName)
}

func (f *fakeAppointmentsService) ListSlots(ctx context.Context, date time.Time) ([]time.Time, error) {
	if f.listSlotsFn == nil {
		panic("ListSlots not configured")
	}
	return f.listSlotsFn(ctx, date)
}

func (f *fakeAppointmentsService) AppointmentsForDate(ctx context.Context, date time.Time) ([]domain.Appointment, error) {
	if f.forDateFn == nil {
		panic("AppointmentsForDate not configured")
	}
	return f.forDateFn(ctx, date)
}

func (f *fakeAppointmentsService) ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(appointments.DateLayout, value)
	if err != nil {
		return time.Time{}, &appointments.ValidationError{}
	}
	return d, nil
}

func (f *fakeAppointmentsService) Now() time.Time { return f.now }

type fakeConfirmer struct {
	confirmFn func(ctx context.Context, appt domain.Appointment) string
}

func (f *fakeConfirmer) Confirm(ctx context.Context, appt domain.Appointment) string {
	if f.confirmFn == nil {
		panic("Confirm not configured")
	}
	return f.confirmFn(ctx, appt)
}

type fakePublisher struct {
	publishFn func(ctx context.Context, ev events.Event) error
}

func (f *fakePublisher) Publish(ctx context.Context, ev events.Event) error {
	if f.publishFn == nil {
		panic("Publish not configured")
	}
	return f.publishFn(ctx, ev)
}

var testStart = time.Date(2025, 7, 15, 14, 0, 0, 0, time.UTC)

func bookedAppointment() domain.Appointment {
	return domain.Appointment{
		ID:              uuid.MustParse("00000000-0000-0000-0000-000000000010"),
		ClientName:      "Ana",
		ClientEmail:     "ana@example.com",
		StartTime:       testStart,
		DurationMinutes: 60,
	}
}

func TestBookAppointment_RejectsMissingStartTime(t *testing.T) {
	srv := NewAppointmentsServer(&fakeAppointmentsService{}, slog.Default())

	_, err := srv.BookAppointment(context.Background(), &BookAppointmentRequest{ClientName: "Ana"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
	if _, err := srv.BookAppointment(context.Background(), nil); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("nil request code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestBookAppointment_ConfirmsAndPublishes(t *testing.T) {
	var gotIn appointments.BookInput
	var published []events.Event

	srv := NewAppointmentsServer(&fakeAppointmentsService{
		now: testStart.Add(-24 * time.Hour),
		bookFn: func(ctx context.Context, in appointments.BookInput) (domain.Appointment, error) {
			gotIn = in
			return bookedAppointment(), nil
		},
	}, slog.Default(),
		WithConfirmer(&fakeConfirmer{confirmFn: func(context.Context, domain.Appointment) string {
			return "Confirmation email sent to dr@example.com."
		}}),
		WithEvents(&fakePublisher{publishFn: func(_ context.Context, ev events.Event) error {
			published = append(published, ev)
			return nil
		}}),
	)

	resp, err := srv.BookAppointment(context.Background(), &BookAppointmentRequest{
		StartTime:   timestamppb.New(testStart),
		ClientName:  "Ana",
		ClientEmail: "ana@example.com",
	})
	if err != nil {
		t.Fatalf("BookAppointment error: %v", err)
	}
	if !gotIn.StartTime.Equal(testStart) || gotIn.ClientName != "Ana" || gotIn.ClientEmail != "ana@example.com" {
		t.Fatalf("BookInput = %+v", gotIn)
	}
	if resp.NotificationStatus != "Confirmation email sent to dr@example.com." {
		t.Fatalf("NotificationStatus = %q", resp.NotificationStatus)
	}
	if resp.Appointment.Id != "00000000-0000-0000-0000-000000000010" || !resp.Appointment.EndTime.AsTime().Equal(testStart.Add(time.Hour)) {
		t.Fatalf("Appointment = %+v", resp.Appointment)
	}
	if resp.Message != "Appointment confirmed for Ana on Tuesday, July 15, 2025 at 02:00 PM." {
		t.Fatalf("Message = %q", resp.Message)
	}
	if len(published) != 1 || published[0].Type != events.AppointmentBooked {
		t.Fatalf("published = %+v", published)
	}
}

func TestBookAppointment_PublishFailureDoesNotFailCall(t *testing.T) {
	srv := NewAppointmentsServer(&fakeAppointmentsService{
		bookFn: func(context.Context, appointments.BookInput) (domain.Appointment, error) {
			return bookedAppointment(), nil
		},
	}, slog.Default(), WithEvents(&fakePublisher{publishFn: func(context.Context, events.Event) error {
		return errors.New("broker down")
	}}))

	resp, err := srv.BookAppointment(context.Background(), &BookAppointmentRequest{StartTime: timestamppb.New(testStart), ClientName: "Ana"})
	if err != nil {
		t.Fatalf("BookAppointment error: %v", err)
	}
	if resp.NotificationStatus != "Email notification skipped: SMTP not configured." {
		t.Fatalf("NotificationStatus = %q", resp.NotificationStatus)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{name: "validation", err: &appointments.ValidationError{}, want: codes.InvalidArgument},
		{name: "slot conflict", err: appointments.ErrSlotConflict, want: codes.AlreadyExists},
		{name: "out of hours", err: appointments.ErrOutOfHours, want: codes.OutOfRange},
		{name: "past time", err: appointments.ErrPastTime, want: codes.FailedPrecondition},
		{name: "not found", err: appointments.ErrNotFound, want: codes.NotFound},
		{name: "storage", err: fmt.Errorf("%w: %w", appointments.ErrStorageUnavailable, errors.New("dial tcp")), want: codes.Unavailable},
		{name: "deadline", err: context.DeadlineExceeded, want: codes.DeadlineExceeded},
		{name: "canceled", err: context.Canceled, want: codes.Canceled},
		{name: "unknown", err: errors.New("boom"), want: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewAppointmentsServer(&fakeAppointmentsService{
				bookFn: func(context.Context, appointments.BookInput) (domain.Appointment, error) {
					return domain.Appointment{}, tt.err
				},
			}, slog.Default())

			_, err := srv.BookAppointment(context.Background(), &BookAppointmentRequest{
				StartTime:  timestamppb.New(testStart),
				ClientName: "Ana",
			})
			if status.Code(err) != tt.want {
				t.Fatalf("code = %s, want %s", status.Code(err), tt.want)
			}
		})
	}
}

func TestRescheduleAppointment_PublishesPreviousStart(t *testing.T) {
	previous := testStart
	next := testStart.Add(time.Hour)
	var published events.Event

	srv := NewAppointmentsServer(&fakeAppointmentsService{
		rescheduleFn: func(_ context.Context, in appointments.RescheduleInput) (domain.Appointment, error) {
			if !in.CurrentStartTime.Equal(previous) || !in.NewStartTime.Equal(next) {
				t.Fatalf("RescheduleInput = %+v", in)
			}
			a := bookedAppointment()
			a.StartTime = next
			return a, nil
		},
	}, slog.Default(), WithEvents(&fakePublisher{publishFn: func(_ context.Context, ev events.Event) error {
		published = ev
		return nil
	}}))

	resp, err := srv.RescheduleAppointment(context.Background(), &RescheduleAppointmentRequest{
		ClientName:       "Ana",
		CurrentStartTime: timestamppb.New(previous),
		NewStartTime:     timestamppb.New(next),
	})
	if err != nil {
		t.Fatalf("RescheduleAppointment error: %v", err)
	}
	if resp.Message != "Appointment for Ana rescheduled from 2025-07-15 14:00 to 2025-07-15 15:00." {
		t.Fatalf("Message = %q", resp.Message)
	}
	if published.Type != events.AppointmentRescheduled || published.PreviousStartTime == nil || !published.PreviousStartTime.Equal(previous) {
		t.Fatalf("published = %+v", published)
	}

	_, err = srv.RescheduleAppointment(context.Background(), &RescheduleAppointmentRequest{ClientName: "Ana"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("missing times code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestListAvailableSlots_InvalidDate(t *testing.T) {
	srv := NewAppointmentsServer(&fakeAppointmentsService{}, slog.Default())
	_, err := srv.ListAvailableSlots(context.Background(), &ListAvailableSlotsRequest{Date: "15/07/2025"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestGetProfessionalInfo(t *testing.T) {
	srv := NewAppointmentsServer(&fakeAppointmentsService{}, slog.Default())
	if _, err := srv.GetProfessionalInfo(context.Background(), &GetProfessionalInfoRequest{}); status.Code(err) != codes.Unimplemented {
		t.Fatalf("unconfigured code = %s, want %s", status.Code(err), codes.Unimplemented)
	}

	srv = NewAppointmentsServer(&fakeAppointmentsService{}, slog.Default(), WithProfessionalInfo(func() (professional.Info, error) {
		return professional.Info{}, fmt.Errorf("%w: professional_info.json", professional.ErrInfoNotFound)
	}))
	if _, err := srv.GetProfessionalInfo(context.Background(), &GetProfessionalInfoRequest{}); status.Code(err) != codes.NotFound {
		t.Fatalf("missing file code = %s, want %s", status.Code(err), codes.NotFound)
	}

	srv = NewAppointmentsServer(&fakeAppointmentsService{}, slog.Default(), WithProfessionalInfo(func() (professional.Info, error) {
		return professional.Info{ProfessionalName: "Dr. Demo"}, nil
	}))
	resp, err := srv.GetProfessionalInfo(context.Background(), &GetProfessionalInfoRequest{})
	if err != nil {
		t.Fatalf("GetProfessionalInfo error: %v", err)
	}
	if resp.Info.ProfessionalName != "Dr. Demo" || resp.Summary == "" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestGetCurrentTime(t *testing.T) {
	lisbon, err := time.LoadLocation("Europe/Lisbon")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	now := time.Date(2025, 7, 15, 9, 30, 0, 0, lisbon)
	srv := NewAppointmentsServer(&fakeAppointmentsService{now: now}, slog.Default())

	resp, err := srv.GetCurrentTime(context.Background(), &GetCurrentTimeRequest{})
	if err != nil {
		t.Fatalf("GetCurrentTime error: %v", err)
	}
	if !resp.Now.AsTime().Equal(now) || resp.TimeZone != "Europe/Lisbon" || resp.Local != "2025-07-15 09:30:00 Tuesday" {
		t.Fatalf("resp = %+v", resp)
	}
}
