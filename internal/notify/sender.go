package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
)

// Message is a plain-text outbound mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a single message. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config selects and configures the delivery backend.
type Config struct {
	Backend  string // "smtp" | "log"
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	From     string
}

// NewSender builds the configured backend, defaulting to log-only delivery
// for local development.
func NewSender(cfg Config) Sender {
	switch cfg.Backend {
	case "smtp":
		return &SMTPSender{
			host: cfg.SMTPHost,
			port: cfg.SMTPPort,
			user: cfg.SMTPUser,
			pass: cfg.SMTPPass,
			from: cfg.From,
		}
	default:
		return &LogSender{}
	}
}

// LogSender writes messages to the structured log instead of delivering them.
type LogSender struct{}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "outbound mail",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}

// SMTPSender delivers via a plain SMTP relay.
type SMTPSender struct {
	host string
	port int
	user string
	pass string
	from string
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	_ = ctx
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.pass, s.host)
	}

	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.from, msg.To, msg.Subject, msg.Body)
	return smtp.SendMail(addr, auth, s.from, []string{msg.To}, []byte(body))
}
