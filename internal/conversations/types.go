// Package conversations is the participant gateway to the messaging backend's
// Conversations API.
package conversations

import (
	"context"
	"errors"
)

// ErrParticipantNotFound is returned when a conversation has no matching participant.
var ErrParticipantNotFound = errors.New("participant not found")

// Participant is a conversation member. Workers carry an Identity; customers are
// bound to an external address (phone number) through their messaging binding.
type Participant struct {
	SID             string
	ConversationSID string
	Identity        string
	// Attributes is the raw JSON attribute document.
	Attributes     string
	BindingAddress string
	ProxyAddress   string
}

// IsCustomer reports whether the participant is an external, non-identified member.
func (p Participant) IsCustomer() bool {
	return p.Identity == "" && p.BindingAddress != ""
}

// Gateway is the participant API consumed by routing, identity reconciliation and the consent filter.
type Gateway interface {
	AddParticipant(ctx context.Context, conversationSID, identity string) (Participant, error)
	GetParticipant(ctx context.Context, conversationSID, participantSID string) (Participant, error)
	ListParticipants(ctx context.Context, conversationSID string) ([]Participant, error)
	UpdateAttributes(ctx context.Context, conversationSID, participantSID, attributes string) error
}

// FindCustomer picks the customer participant of a conversation: the first
// participant without identity that has a proxy address, else the participant
// whose sid is fallbackSID.
func FindCustomer(participants []Participant, fallbackSID string) (Participant, bool) {
	for _, p := range participants {
		if p.Identity == "" && p.ProxyAddress != "" {
			return p, true
		}
	}
	for _, p := range participants {
		if fallbackSID != "" && p.SID == fallbackSID {
			return p, true
		}
	}
	return Participant{}, false
}
