package grpc

import (
	"google.golang.org/protobuf/types/known/timestamppb"

	"appointmate/backend/internal/professional"
)

type Appointment struct {
	Id              string                 `json:"id"`
	ClientName      string                 `json:"client_name"`
	ClientEmail     string                 `json:"client_email,omitempty"`
	StartTime       *timestamppb.Timestamp `json:"start_time"`
	EndTime         *timestamppb.Timestamp `json:"end_time"`
	DurationMinutes int32                  `json:"duration_minutes"`
}

type BookAppointmentRequest struct {
	StartTime   *timestamppb.Timestamp `json:"start_time"`
	ClientName  string                 `json:"client_name"`
	ClientEmail string                 `json:"client_email,omitempty"`
}

type BookAppointmentResponse struct {
	Appointment        *Appointment `json:"appointment"`
	NotificationStatus string       `json:"notification_status"`
	Message            string       `json:"message"`
}

type RescheduleAppointmentRequest struct {
	ClientName       string                 `json:"client_name"`
	CurrentStartTime *timestamppb.Timestamp `json:"current_start_time"`
	NewStartTime     *timestamppb.Timestamp `json:"new_start_time"`
}

type RescheduleAppointmentResponse struct {
	Appointment *Appointment `json:"appointment"`
	Message     string       `json:"message"`
}

type CancelAppointmentRequest struct {
	StartTime  *timestamppb.Timestamp `json:"start_time"`
	ClientName string                 `json:"client_name"`
}

type CancelAppointmentResponse struct {
	Appointment *Appointment `json:"appointment"`
	Message     string       `json:"message"`
}

type ListClientAppointmentsRequest struct {
	ClientName string `json:"client_name"`
}

type ListClientAppointmentsResponse struct {
	StartTimes []*timestamppb.Timestamp `json:"start_times"`
}

// ListAvailableSlotsRequest.Date is a YYYY-MM-DD calendar date in the practice time zone.
type ListAvailableSlotsRequest struct {
	Date string `json:"date"`
}

type ListAvailableSlotsResponse struct {
	Date  string                   `json:"date"`
	Slots []*timestamppb.Timestamp `json:"slots"`
}

type ListAppointmentsForDateRequest struct {
	Date string `json:"date"`
}

type ListAppointmentsForDateResponse struct {
	Date         string         `json:"date"`
	Appointments []*Appointment `json:"appointments"`
}

type GetProfessionalInfoRequest struct{}

type GetProfessionalInfoResponse struct {
	Info    *professional.Info `json:"info"`
	Summary string             `json:"summary"`
}

type GetCurrentTimeRequest struct{}

type GetCurrentTimeResponse struct {
	Now      *timestamppb.Timestamp `json:"now"`
	TimeZone string                 `json:"time_zone"`
	Local    string                 `json:"local"`
}
