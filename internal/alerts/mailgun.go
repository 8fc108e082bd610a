package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mailgun/mailgun-go/v5"

	"github.com/memohai/frontline/internal/config"
)

// MailgunMailer sends alerts through the Mailgun HTTP API.
type MailgunMailer struct {
	send func(ctx context.Context, email Email) error
}

func NewMailgunMailer(cfg config.MailgunConfig) (*MailgunMailer, error) {
	if strings.TrimSpace(cfg.Domain) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("mailgun domain and api key are required")
	}
	mg := mailgun.NewMailgun(cfg.APIKey)
	return &MailgunMailer{
		send: func(ctx context.Context, email Email) error {
			m := mailgun.NewMessage(cfg.Domain, email.From, email.Subject, email.Text, email.To)
			_, err := mg.Send(ctx, m)
			return err
		},
	}, nil
}

func (m *MailgunMailer) Send(ctx context.Context, email Email) error {
	if email.To == "" {
		return fmt.Errorf("mailgun send: recipient is required")
	}
	if err := m.send(ctx, email); err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	return nil
}
