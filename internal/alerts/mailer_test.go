package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/memohai/frontline/internal/config"
	"github.com/memohai/frontline/internal/logger"
)

type fakeSender struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeSender) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	f.sent = append(f.sent, messages...)
	return f.err
}

func sampleEmail() Email {
	return Email{
		To:      "compliance@example.com",
		From:    "frontline@example.com",
		Subject: "[Frontline Demo] Non-Compliant Word(s) Alert",
		Text:    "body",
	}
}

func TestNewSelectsDriver(t *testing.T) {
	m, err := New(logger.Discard(), config.EmailConfig{Driver: "none"})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, m)

	m, err = New(logger.Discard(), config.EmailConfig{Driver: "smtp", SMTP: config.SMTPConfig{Host: "smtp.example.com", Port: 587, TLS: true}})
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)

	m, err = New(logger.Discard(), config.EmailConfig{Driver: "mailgun", Mailgun: config.MailgunConfig{Domain: "mg.example.com", APIKey: "key"}})
	require.NoError(t, err)
	assert.IsType(t, &MailgunMailer{}, m)

	_, err = New(logger.Discard(), config.EmailConfig{Driver: "sendgrid"})
	assert.Error(t, err)

	_, err = New(logger.Discard(), config.EmailConfig{Driver: "smtp"})
	assert.Error(t, err)
}

func TestSMTPMailerSend(t *testing.T) {
	sender := &fakeSender{}
	m := &SMTPMailer{client: sender}

	require.NoError(t, m.Send(context.Background(), sampleEmail()))
	require.Len(t, sender.sent, 1)
	rcpts, err := sender.sent[0].GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"<compliance@example.com>"}, rcpts)
	assert.Equal(t, []string{"[Frontline Demo] Non-Compliant Word(s) Alert"}, sender.sent[0].GetGenHeader(mail.HeaderSubject))
}

func TestSMTPMailerRejectsBadAddress(t *testing.T) {
	sender := &fakeSender{}
	m := &SMTPMailer{client: sender}

	email := sampleEmail()
	email.To = "not an address"
	assert.Error(t, m.Send(context.Background(), email))
	assert.Empty(t, sender.sent)
}

func TestSMTPMailerWrapsSendError(t *testing.T) {
	boom := errors.New("connection refused")
	m := &SMTPMailer{client: &fakeSender{err: boom}}

	assert.ErrorIs(t, m.Send(context.Background(), sampleEmail()), boom)
}

func TestMailgunMailerSend(t *testing.T) {
	var got []Email
	m := &MailgunMailer{send: func(ctx context.Context, email Email) error {
		got = append(got, email)
		return nil
	}}

	require.NoError(t, m.Send(context.Background(), sampleEmail()))
	assert.Equal(t, []Email{sampleEmail()}, got)

	email := sampleEmail()
	email.To = ""
	assert.Error(t, m.Send(context.Background(), email))
	assert.Len(t, got, 1)
}
