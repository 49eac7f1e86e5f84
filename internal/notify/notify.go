// Package notify renders and delivers email notifications.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strconv"
	"time"

	"eventTicketing/internal/config"

	"github.com/domodwyer/mailyak/v3"
)

var ErrNoRecipient = errors.New("notification has no recipient")

type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPSender struct {
	addr     string
	auth     smtp.Auth
	from     string
	fromName string
	timeout  time.Duration
	deliver  func(*mailyak.MailYak) error
}

func NewSMTPSender(cfg config.Mail) *SMTPSender {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTPSender{
		addr:     cfg.Host + ":" + strconv.Itoa(cfg.Port),
		auth:     auth,
		from:     cfg.From,
		fromName: cfg.FromName,
		timeout:  cfg.Timeout,
		deliver:  (*mailyak.MailYak).Send,
	}
}

func (s *SMTPSender) build(msg Message) (*mailyak.MailYak, error) {
	if msg.To == "" {
		return nil, ErrNoRecipient
	}

	mail := mailyak.New(s.addr, s.auth)
	mail.To(msg.To)
	mail.From(s.from)
	mail.FromName(s.fromName)
	mail.Subject(msg.Subject)
	mail.HTML().Set(msg.HTML)
	mail.Plain().Set(msg.Text)

	return mail, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	const op = "notify.SMTPSender.Send"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	mail, err := s.build(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// mailyak has no deadline of its own. A send abandoned here finishes or
	// fails in the background.
	done := make(chan error, 1)
	go func() { done <- s.deliver(mail) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
}

// LogSender writes messages to the log instead of delivering them. It is
// used when no SMTP host is configured.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	s.log.Info("email",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	s.log.Debug("email body", slog.String("text", msg.Text))

	return nil
}
