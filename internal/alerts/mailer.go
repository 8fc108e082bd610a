// Package alerts delivers compliance alert emails.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/memohai/frontline/internal/config"
)

// Email is one plain-text alert.
type Email struct {
	To      string
	From    string
	Subject string
	Text    string
}

// Mailer sends alert emails.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// Nop drops every email after logging it.
type Nop struct {
	Logger *slog.Logger
}

func (n Nop) Send(ctx context.Context, email Email) error {
	if n.Logger != nil {
		n.Logger.Info("alert email dropped, no mail driver configured",
			slog.String("to", email.To),
			slog.String("subject", email.Subject),
		)
	}
	return nil
}

// New builds the mailer selected by cfg.Driver.
func New(log *slog.Logger, cfg config.EmailConfig) (Mailer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return Nop{Logger: log}, nil
	case "smtp":
		return NewSMTPMailer(cfg.SMTP)
	case "mailgun":
		return NewMailgunMailer(cfg.Mailgun)
	default:
		return nil, fmt.Errorf("unknown email driver: %s", cfg.Driver)
	}
}
