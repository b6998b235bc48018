// AngelaMos | 2026
// sender.go

package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/carterperez-dev/templates/directory-api/internal/config"
)

var (
	ErrDeliveryFailed   = errors.New("mail delivery failed")
	ErrIncompleteConfig = errors.New("smtp configuration is incomplete")
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPSender struct {
	dialer   dialer
	from     string
	fromName string
}

func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.From == "" || cfg.Port == 0 {
		return nil, ErrIncompleteConfig
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)

	return &SMTPSender{
		dialer:   d,
		from:     cfg.From,
		fromName: cfg.FromName,
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("send mail: empty recipient: %w", ErrDeliveryFailed)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send mail: %w: %w", ErrDeliveryFailed, err)
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	start := time.Now()
	if err := s.dialer.DialAndSend(m); err != nil {
		slog.ErrorContext(ctx, "mail delivery failed",
			"to", msg.To,
			"subject", msg.Subject,
			"error", err,
		)
		return fmt.Errorf("send mail: %w: %w", ErrDeliveryFailed, err)
	}

	slog.InfoContext(ctx, "mail delivered",
		"to", msg.To,
		"subject", msg.Subject,
		"duration", time.Since(start),
	)
	return nil
}

// LogSender writes messages to the log instead of delivering them. Meant for
// local development only; config validation refuses it in production.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("send mail: empty recipient: %w", ErrDeliveryFailed)
	}

	s.logger.InfoContext(ctx, "mail delivery disabled, logging message",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return nil
}

func NewSender(cfg config.MailConfig, logger *slog.Logger) (Sender, error) {
	if !cfg.Enabled {
		return NewLogSender(logger), nil
	}
	return NewSMTPSender(cfg)
}
