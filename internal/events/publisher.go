package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"appointmate/backend/internal/domain"
)

type Type string

const (
	AppointmentBooked      Type = "appointment.booked"
	AppointmentRescheduled Type = "appointment.rescheduled"
	AppointmentCancelled   Type = "appointment.cancelled"
)

// Event is the JSON payload published after a calendar transaction commits.
type Event struct {
	ID                string     `json:"event_id"`
	Type              Type       `json:"event_type"`
	AppointmentID     string     `json:"appointment_id"`
	ClientName        string     `json:"client_name"`
	ClientEmail       string     `json:"client_email,omitempty"`
	StartTime         time.Time  `json:"start_time"`
	PreviousStartTime *time.Time `json:"previous_start_time,omitempty"`
	DurationMinutes   int        `json:"duration_minutes"`
	OccurredAt        time.Time  `json:"occurred_at"`
}

// NewEvent describes appt after a transaction of kind typ. previous is the old start time of a
// rescheduled appointment and is ignored otherwise.
func NewEvent(typ Type, appt domain.Appointment, previous time.Time, now time.Time) Event {
	ev := Event{
		ID:              uuid.NewString(),
		Type:            typ,
		AppointmentID:   appt.ID.String(),
		ClientName:      appt.ClientName,
		ClientEmail:     appt.ClientEmail,
		StartTime:       appt.StartTime.UTC(),
		DurationMinutes: appt.DurationMinutes,
		OccurredAt:      now.UTC(),
	}
	if typ == AppointmentRescheduled && !previous.IsZero() {
		p := previous.UTC()
		ev.PreviousStartTime = &p
	}
	return ev
}

// Writer is the part of *kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	w   Writer
	log *slog.Logger
}

// NewKafkaPublisher writes to topic on brokers (comma separated). Messages are keyed by
// appointment id so every event for one appointment lands on the same partition.
func NewKafkaPublisher(brokers, topic string, log *slog.Logger) (*Publisher, error) {
	addrs := SplitBrokers(brokers)
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return NewPublisher(w, log), nil
}

func NewPublisher(w Writer, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{w: w, log: log.With(slog.String("component", "events"))}
}

func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.AppointmentID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.ID)},
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	msg.Headers = InjectTraceHeaders(ctx, msg.Headers)

	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}
	p.log.Debug("event published",
		slog.String("event_type", string(ev.Type)),
		slog.String("appointment_id", ev.AppointmentID),
	)
	return nil
}

func (p *Publisher) Close() error {
	return p.w.Close()
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
