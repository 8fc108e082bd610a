// Package identity keeps conversation and participant metadata in sync with the
// customer directory.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/memohai/frontline/internal/conversations"
	"github.com/memohai/frontline/internal/customers"
)

// CustomerLookup resolves a customer by bound address.
type CustomerLookup interface {
	GetByNumber(ctx context.Context, address string) (customers.Customer, error)
}

// ParticipantStore reads and writes participant attributes.
type ParticipantStore interface {
	GetParticipant(ctx context.Context, conversationSID, participantSID string) (conversations.Participant, error)
	UpdateAttributes(ctx context.Context, conversationSID, participantSID, attributes string) error
}

// ConversationProperties are the initial properties of an inbound conversation.
type ConversationProperties struct {
	FriendlyName string `json:"friendly_name"`
	// Attributes is a JSON document, serialized as a string.
	Attributes string `json:"attributes"`
}

// ParticipantRef identifies the participant of a participant-added event.
type ParticipantRef struct {
	ConversationSID string
	ParticipantSID  string
	BindingAddress  string
	Identity        string
}

// IsCustomer reports whether the participant is anonymous and bound to an address.
func (r ParticipantRef) IsCustomer() bool {
	return r.BindingAddress != "" && r.Identity == ""
}

// Reconciliation describes what ReconcileParticipant did.
type Reconciliation struct {
	Skipped    bool
	Updated    bool
	Attributes string
}

// Service keeps conversation and participant identity in step with the customer directory.
type Service struct {
	directory    CustomerLookup
	participants ParticipantStore
	logger       *slog.Logger
}

// NewService creates an identity service.
func NewService(log *slog.Logger, directory CustomerLookup, participants ParticipantStore) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		directory:    directory,
		participants: participants,
		logger:       log.With(slog.String("service", "identity")),
	}
}

// ConversationProperties returns the friendly name and avatar attributes for an
// inbound conversation, or nil when the conversation has no customer address.
func (s *Service) ConversationProperties(ctx context.Context, bindingAddress string) (*ConversationProperties, error) {
	if bindingAddress == "" {
		return nil, nil
	}
	customer, err := s.lookup(ctx, bindingAddress)
	if err != nil {
		return nil, err
	}
	attrs, err := json.Marshal(struct {
		Avatar string `json:"avatar,omitempty"`
	}{Avatar: customer.Avatar})
	if err != nil {
		return nil, err
	}
	name := customer.DisplayName
	if name == "" {
		name = bindingAddress
	}
	return &ConversationProperties{FriendlyName: name, Attributes: string(attrs)}, nil
}

// ReconcileParticipant merges directory fields into a customer participant's
// attributes. The update is written only when the merged document differs, and
// a failed update is logged rather than returned.
func (s *Service) ReconcileParticipant(ctx context.Context, ref ParticipantRef) (Reconciliation, error) {
	if !ref.IsCustomer() {
		return Reconciliation{Skipped: true}, nil
	}
	participant, err := s.participants.GetParticipant(ctx, ref.ConversationSID, ref.ParticipantSID)
	if err != nil {
		return Reconciliation{}, err
	}
	customer, err := s.lookup(ctx, ref.BindingAddress)
	if err != nil {
		return Reconciliation{}, err
	}

	current := normalize([]byte(participant.Attributes))
	merged, err := MergeAttributes([]byte(current), customer)
	if err != nil {
		return Reconciliation{}, err
	}
	result := Reconciliation{Attributes: string(merged)}
	if result.Attributes == current {
		return result, nil
	}
	if err := s.participants.UpdateAttributes(ctx, ref.ConversationSID, ref.ParticipantSID, result.Attributes); err != nil {
		s.logger.Warn("update customer participant failed",
			slog.String("conversation_sid", ref.ConversationSID),
			slog.String("participant_sid", ref.ParticipantSID),
			slog.Any("error", err),
		)
		return result, nil
	}
	result.Updated = true
	return result, nil
}

// lookup treats an unknown address as an empty customer record.
func (s *Service) lookup(ctx context.Context, address string) (customers.Customer, error) {
	customer, err := s.directory.GetByNumber(ctx, address)
	if errors.Is(err, customers.ErrNotFound) {
		return customers.Customer{}, nil
	}
	return customer, err
}
