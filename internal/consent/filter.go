package consent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/memohai/frontline/internal/alerts"
	"github.com/memohai/frontline/internal/analytics"
	"github.com/memohai/frontline/internal/conversations"
	"github.com/memohai/frontline/internal/customers"
)

// Directory is the directory behavior required by the filter.
type Directory interface {
	GetByNumber(ctx context.Context, address string) (customers.Customer, error)
	UpdateConsent(ctx context.Context, recordID string, consent bool) error
}

// ParticipantLister lists the participants of a conversation.
type ParticipantLister interface {
	ListParticipants(ctx context.Context, conversationSID string) ([]conversations.Participant, error)
}

// Filter screens conversation messages for prohibited terms and tracks customer consent.
type Filter struct {
	rules        Rules
	directory    Directory
	participants ParticipantLister
	mailer       alerts.Mailer
	tracker      analytics.Tracker
	logger       *slog.Logger
}

// NewFilter creates a filter over the given directory and participant source.
func NewFilter(log *slog.Logger, rules Rules, directory Directory, participants ParticipantLister, mailer alerts.Mailer, tracker analytics.Tracker) *Filter {
	if log == nil {
		log = slog.Default()
	}
	if mailer == nil {
		mailer = alerts.Nop{}
	}
	if tracker == nil {
		tracker = analytics.Nop{}
	}
	return &Filter{
		rules:        rules,
		directory:    directory,
		participants: participants,
		mailer:       mailer,
		tracker:      tracker,
		logger:       log.With(slog.String("service", "consent")),
	}
}

// Evaluate decides what happens to one added message.
//
// Worker messages containing a prohibited term are rejected after one alert
// email; other worker messages to an unconfirmed customer are replaced by the
// opt-in request. A customer affirmative reply while unconfirmed confirms
// consent. Everything else passes through.
func (f *Filter) Evaluate(ctx context.Context, msg Message) (Outcome, error) {
	address, customer, err := f.customerOf(ctx, msg)
	if err != nil {
		return Outcome{}, err
	}
	state := StateOf(customer)
	log := f.logger.With(
		slog.String("conversation_sid", msg.ConversationSID),
		slog.String("consent", state.String()),
	)

	if msg.FromWorker() {
		term, prohibited := match(msg.Body, f.rules.ProhibitedTerms)
		if prohibited {
			log.Warn("prohibited term in worker message", slog.String("author", msg.Author), slog.String("term", term))
			f.alert(ctx, msg, customer, address, term)
			return Outcome{}, &Rejection{Term: term, Author: msg.Author}
		}
		if state == Unconfirmed {
			log.Info("worker message held for consent", slog.String("author", msg.Author))
			return Outcome{Override: &Override{Body: f.rules.OverrideBody, Author: msg.Author}}, nil
		}
		return Outcome{}, nil
	}

	if state == Confirmed {
		return Outcome{}, nil
	}
	if _, ok := match(msg.Body, f.rules.AffirmativeTokens); !ok {
		return Outcome{}, nil
	}
	if customer.Details.RecordID == "" {
		log.Info("affirmative reply from unknown customer ignored", slog.String("address", address))
		return Outcome{}, nil
	}
	if err := f.directory.UpdateConsent(ctx, customer.Details.RecordID, true); err != nil {
		return Outcome{}, err
	}
	log.Info("customer consent recorded", slog.String("customer_id", customer.CustomerID))
	f.recordOptIn(ctx, address, customer)
	return Outcome{ConsentRecorded: true}, nil
}

// customerOf resolves the customer participant's address and directory record.
// An address unknown to the directory yields an empty, unconfirmed record.
func (f *Filter) customerOf(ctx context.Context, msg Message) (string, customers.Customer, error) {
	participants, err := f.participants.ListParticipants(ctx, msg.ConversationSID)
	if err != nil {
		return "", customers.Customer{}, err
	}
	participant, ok := conversations.FindCustomer(participants, msg.ParticipantSID)
	if !ok || participant.BindingAddress == "" {
		return "", customers.Customer{}, fmt.Errorf("conversation %s: %w", msg.ConversationSID, conversations.ErrParticipantNotFound)
	}
	customer, err := f.directory.GetByNumber(ctx, participant.BindingAddress)
	if errors.Is(err, customers.ErrNotFound) {
		return participant.BindingAddress, customers.Customer{}, nil
	}
	if err != nil {
		return "", customers.Customer{}, err
	}
	return participant.BindingAddress, customer, nil
}

func (f *Filter) alert(ctx context.Context, msg Message, customer customers.Customer, address, term string) {
	recipient := customer.DisplayName
	if recipient == "" {
		recipient = address
	}
	email := alerts.Email{
		To:      f.rules.AlertRecipient,
		From:    f.rules.AlertSender,
		Subject: f.rules.AlertSubject,
		Text:    fmt.Sprintf("The following worker (%s) has tried to send a non-compliant word (%q) to %s.", msg.Author, term, recipient),
	}
	if err := f.mailer.Send(ctx, email); err != nil {
		f.logger.Error("unable to send compliance alert", slog.String("author", msg.Author), slog.Any("error", err))
	}
}

func (f *Filter) recordOptIn(ctx context.Context, address string, customer customers.Customer) {
	if err := f.tracker.Identify(ctx, analytics.Identify{
		UserID: address,
		Traits: map[string]any{"name": customer.DisplayName},
	}); err != nil {
		f.logger.Warn("analytics identify failed", slog.Any("error", err))
	}
	if err := f.tracker.Track(ctx, analytics.Track{
		UserID: address,
		Event:  f.rules.OptInEvent,
		Properties: map[string]any{
			"application": f.rules.Application,
			"type":        "messaging",
		},
	}); err != nil {
		f.logger.Warn("analytics track failed", slog.Any("error", err))
	}
}
