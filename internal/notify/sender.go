package notify

import (
	"context"
	"errors"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

var ErrNotConfigured = errors.New("smtp not configured")

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Configured reports whether enough is set to reach an authenticated relay.
func (c SMTPConfig) Configured() bool {
	return strings.TrimSpace(c.Host) != "" && c.Port > 0 &&
		strings.TrimSpace(c.Username) != "" && c.Password != ""
}

// SMTPMailer sends mail through an authenticated relay. smtp.SendMail upgrades to STARTTLS
// when the server offers it.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	host := strings.TrimSpace(cfg.Host)
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = strings.TrimSpace(cfg.Username)
	}
	return &SMTPMailer{
		addr: net.JoinHostPort(host, strconv.Itoa(cfg.Port)),
		auth: smtp.PlainAuth("", cfg.Username, cfg.Password, host),
		from: from,
		send: smtp.SendMail,
	}, nil
}

func (m *SMTPMailer) From() string { return m.from }

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return errors.New("message has no recipients")
	}
	if msg.From == "" {
		msg.From = m.from
	}
	raw, err := msg.Bytes()
	if err != nil {
		return err
	}
	return m.send(m.addr, m.auth, m.from, msg.To, raw)
}
