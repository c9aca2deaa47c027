package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"appointmate/backend/internal/domain"
	"appointmate/backend/internal/events"
	"appointmate/backend/internal/professional"
	"appointmate/backend/internal/service/appointments"
)

const (
	dateTimeLayout = "2006-01-02 15:04"
	readableLayout = "Monday, January 02, 2006 at 03:04 PM"
	publishTimeout = 2 * time.Second
)

type AppointmentsServer struct {
	svc     appointmentsService
	confirm confirmer
	events  eventPublisher
	info    func() (professional.Info, error)
	log     *slog.Logger
}

var _ AppointmentsServiceServer = (*AppointmentsServer)(nil)

type appointmentsService interface {
	Book(ctx context.Context, in appointments.BookInput) (domain.Appointment, error)
	Reschedule(ctx context.Context, in appointments.RescheduleInput) (domain.Appointment, error)
	Cancel(ctx context.Context, in appointments.CancelInput) (domain.Appointment, error)
	ListForClient(ctx context.Context, clientName string) ([]time.Time, error)
	ListSlots(ctx context.Context, date time.Time) ([]time.Time, error)
	AppointmentsForDate(ctx context.Context, date time.Time) ([]domain.Appointment, error)
	ParseDate(value string) (time.Time, error)
	Now() time.Time
}

type confirmer interface {
	Confirm(ctx context.Context, appt domain.Appointment) string
}

type eventPublisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

type ServerOption func(*AppointmentsServer)

// WithConfirmer sends a booking confirmation after every successful BookAppointment.
func WithConfirmer(c confirmer) ServerOption {
	return func(s *AppointmentsServer) { s.confirm = c }
}

// WithEvents publishes booked, rescheduled and cancelled events. Publish failures are logged
// and never fail the call.
func WithEvents(p eventPublisher) ServerOption {
	return func(s *AppointmentsServer) { s.events = p }
}

func WithProfessionalInfo(load func() (professional.Info, error)) ServerOption {
	return func(s *AppointmentsServer) { s.info = load }
}

func NewAppointmentsServer(svc appointmentsService, log *slog.Logger, opts ...ServerOption) *AppointmentsServer {
	if log == nil {
		log = slog.Default()
	}
	s := &AppointmentsServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.appointments")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AppointmentsServer) BookAppointment(ctx context.Context, req *BookAppointmentRequest) (*BookAppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "BookAppointment"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if req.StartTime == nil {
		log.Warn("invalid request", slog.String("reason", "missing_start_time"), slog.String("client_name", req.ClientName))
		return nil, status.Error(codes.InvalidArgument, "start_time is required")
	}

	appt, err := s.svc.Book(ctx, appointments.BookInput{
		StartTime:   req.StartTime.AsTime(),
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
	})
	if err != nil {
		return nil, s.toStatus(log, "appointment booking failed", err,
			slog.String("client_name", req.ClientName),
			slog.Time("start_time", req.StartTime.AsTime()),
		)
	}

	log.Info(
		"appointment booked",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("client_name", appt.ClientName),
		slog.Time("start_time", appt.StartTime),
	)

	notification := "Email notification skipped: SMTP not configured."
	if s.confirm != nil {
		notification = s.confirm.Confirm(ctx, appt)
	}
	s.publish(ctx, log, events.AppointmentBooked, appt, time.Time{})

	local := s.local(appt.StartTime)
	return &BookAppointmentResponse{
		Appointment:        toWireAppointment(appt),
		NotificationStatus: notification,
		Message:            fmt.Sprintf("Appointment confirmed for %s on %s.", appt.ClientName, local.Format(readableLayout)),
	}, nil
}

func (s *AppointmentsServer) RescheduleAppointment(ctx context.Context, req *RescheduleAppointmentRequest) (*RescheduleAppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "RescheduleAppointment"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if req.CurrentStartTime == nil || req.NewStartTime == nil {
		log.Warn("invalid request", slog.String("reason", "missing_times"), slog.String("client_name", req.ClientName))
		return nil, status.Error(codes.InvalidArgument, "current_start_time and new_start_time are required")
	}

	previous := req.CurrentStartTime.AsTime()
	appt, err := s.svc.Reschedule(ctx, appointments.RescheduleInput{
		ClientName:       req.ClientName,
		CurrentStartTime: previous,
		NewStartTime:     req.NewStartTime.AsTime(),
	})
	if err != nil {
		return nil, s.toStatus(log, "appointment reschedule failed", err,
			slog.String("client_name", req.ClientName),
			slog.Time("current_start_time", previous),
			slog.Time("new_start_time", req.NewStartTime.AsTime()),
		)
	}

	log.Info(
		"appointment rescheduled",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("client_name", appt.ClientName),
		slog.Time("previous_start_time", previous),
		slog.Time("start_time", appt.StartTime),
	)
	s.publish(ctx, log, events.AppointmentRescheduled, appt, previous)

	return &RescheduleAppointmentResponse{
		Appointment: toWireAppointment(appt),
		Message: fmt.Sprintf("Appointment for %s rescheduled from %s to %s.",
			appt.ClientName, s.local(previous).Format(dateTimeLayout), s.local(appt.StartTime).Format(dateTimeLayout)),
	}, nil
}

func (s *AppointmentsServer) CancelAppointment(ctx context.Context, req *CancelAppointmentRequest) (*CancelAppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "CancelAppointment"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if req.StartTime == nil {
		log.Warn("invalid request", slog.String("reason", "missing_start_time"), slog.String("client_name", req.ClientName))
		return nil, status.Error(codes.InvalidArgument, "start_time is required")
	}

	appt, err := s.svc.Cancel(ctx, appointments.CancelInput{
		StartTime:  req.StartTime.AsTime(),
		ClientName: req.ClientName,
	})
	if err != nil {
		return nil, s.toStatus(log, "appointment cancel failed", err,
			slog.String("client_name", req.ClientName),
			slog.Time("start_time", req.StartTime.AsTime()),
		)
	}

	log.Info("appointment cancelled", slog.String("appointment_id", appt.ID.String()), slog.String("client_name", appt.ClientName))
	s.publish(ctx, log, events.AppointmentCancelled, appt, time.Time{})

	return &CancelAppointmentResponse{
		Appointment: toWireAppointment(appt),
		Message:     "Appointment has been successfully cancelled.",
	}, nil
}

func (s *AppointmentsServer) ListClientAppointments(ctx context.Context, req *ListClientAppointmentsRequest) (*ListClientAppointmentsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListClientAppointments"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	starts, err := s.svc.ListForClient(ctx, req.ClientName)
	if err != nil {
		return nil, s.toStatus(log, "client appointments list failed", err, slog.String("client_name", req.ClientName))
	}

	log.Debug("client appointments listed", slog.String("client_name", req.ClientName), slog.Int("count", len(starts)))
	return &ListClientAppointmentsResponse{StartTimes: toTimestamps(starts)}, nil
}

func (s *AppointmentsServer) ListAvailableSlots(ctx context.Context, req *ListAvailableSlotsRequest) (*ListAvailableSlotsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListAvailableSlots"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	date, err := s.svc.ParseDate(req.Date)
	if err != nil {
		return nil, s.toStatus(log, "invalid date", err, slog.String("date", req.Date))
	}

	slots, err := s.svc.ListSlots(ctx, date)
	if err != nil {
		return nil, s.toStatus(log, "slot listing failed", err, slog.String("date", req.Date))
	}

	log.Debug("slots listed", slog.String("date", req.Date), slog.Int("count", len(slots)))
	return &ListAvailableSlotsResponse{
		Date:  date.Format(appointments.DateLayout),
		Slots: toTimestamps(slots),
	}, nil
}

func (s *AppointmentsServer) ListAppointmentsForDate(ctx context.Context, req *ListAppointmentsForDateRequest) (*ListAppointmentsForDateResponse, error) {
	log := s.log.With(slog.String("rpc", "ListAppointmentsForDate"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	date, err := s.svc.ParseDate(req.Date)
	if err != nil {
		return nil, s.toStatus(log, "invalid date", err, slog.String("date", req.Date))
	}

	appts, err := s.svc.AppointmentsForDate(ctx, date)
	if err != nil {
		return nil, s.toStatus(log, "appointments list failed", err, slog.String("date", req.Date))
	}

	out := make([]*Appointment, 0, len(appts))
	for _, a := range appts {
		out = append(out, toWireAppointment(a))
	}
	log.Debug("appointments listed", slog.String("date", req.Date), slog.Int("count", len(out)))
	return &ListAppointmentsForDateResponse{Date: date.Format(appointments.DateLayout), Appointments: out}, nil
}

func (s *AppointmentsServer) GetProfessionalInfo(ctx context.Context, _ *GetProfessionalInfoRequest) (*GetProfessionalInfoResponse, error) {
	log := s.log.With(slog.String("rpc", "GetProfessionalInfo"))

	if s.info == nil {
		return nil, status.Error(codes.Unimplemented, "professional info is not configured")
	}
	info, err := s.info()
	if err != nil {
		if errors.Is(err, professional.ErrInfoNotFound) {
			log.Warn("professional info missing", slog.Any("err", err))
			return nil, status.Error(codes.NotFound, "Sorry, the practice information is not available.")
		}
		log.Error("professional info load failed", slog.Any("err", err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	return &GetProfessionalInfoResponse{Info: &info, Summary: info.Summary()}, nil
}

func (s *AppointmentsServer) GetCurrentTime(ctx context.Context, _ *GetCurrentTimeRequest) (*GetCurrentTimeResponse, error) {
	now := s.svc.Now()
	return &GetCurrentTimeResponse{
		Now:      timestamppb.New(now),
		TimeZone: now.Location().String(),
		Local:    now.Format("2006-01-02 15:04:05 Monday"),
	}, nil
}

// toStatus logs err at a level matching its kind and converts it to a gRPC status.
func (s *AppointmentsServer) toStatus(log *slog.Logger, msg string, err error, attrs ...any) error {
	args := append([]any{slog.Any("err", err)}, attrs...)

	var vErr *appointments.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", args...)
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.Is(err, appointments.ErrSlotConflict):
		log.Info(msg, args...)
		return status.Error(codes.AlreadyExists, "That time slot is already booked. Pick a different slot.")
	case errors.Is(err, appointments.ErrOutOfHours):
		log.Info(msg, args...)
		return status.Error(codes.OutOfRange, "The requested time is outside of working hours.")
	case errors.Is(err, appointments.ErrPastTime):
		log.Info(msg, args...)
		return status.Error(codes.FailedPrecondition, "The requested time is in the past. Choose a future time.")
	case errors.Is(err, appointments.ErrNotFound):
		log.Info(msg, args...)
		return status.Error(codes.NotFound, "No appointment matches that client and time.")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Warn(msg, args...)
		return status.FromContextError(err).Err()
	case errors.Is(err, appointments.ErrStorageUnavailable):
		log.Error(msg, args...)
		return status.Error(codes.Unavailable, "storage unavailable, try again")
	default:
		log.Error(msg, args...)
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *AppointmentsServer) publish(ctx context.Context, log *slog.Logger, typ events.Type, appt domain.Appointment, previous time.Time) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.events.Publish(ctx, events.NewEvent(typ, appt, previous, s.svc.Now())); err != nil {
		log.Warn("event publish failed",
			slog.String("event_type", string(typ)),
			slog.String("appointment_id", appt.ID.String()),
			slog.Any("err", err),
		)
	}
}

func (s *AppointmentsServer) local(t time.Time) time.Time {
	return t.In(s.svc.Now().Location())
}

func toWireAppointment(a domain.Appointment) *Appointment {
	return &Appointment{
		Id:              a.ID.String(),
		ClientName:      a.ClientName,
		ClientEmail:     strings.TrimSpace(a.ClientEmail),
		StartTime:       timestamppb.New(a.StartTime),
		EndTime:         timestamppb.New(a.EndTime()),
		DurationMinutes: int32(a.DurationMinutes),
	}
}

func toTimestamps(ts []time.Time) []*timestamppb.Timestamp {
	out := make([]*timestamppb.Timestamp, 0, len(ts))
	for _, t := range ts {
		out = append(out, timestamppb.New(t))
	}
	return out
}
