// Package consent gates worker messages on customer consent, filters prohibited
// content and records customer opt-in replies.
package consent

import (
	"strings"

	"github.com/memohai/frontline/internal/config"
	"github.com/memohai/frontline/internal/customers"
)

// State is the consent state of a customer. Confirmed is terminal.
type State int

const (
	Unconfirmed State = iota
	Confirmed
)

func (s State) String() string {
	if s == Confirmed {
		return "confirmed"
	}
	return "unconfirmed"
}

// StateOf reads the consent state from a customer record.
func StateOf(c customers.Customer) State {
	if c.Details.Consent {
		return Confirmed
	}
	return Unconfirmed
}

// Message is one added conversation message.
type Message struct {
	ConversationSID string
	ParticipantSID  string
	Author          string
	Body            string
	// ClientIdentity is set when the message was sent from a worker's client.
	ClientIdentity string
}

func (m Message) FromWorker() bool {
	return m.ClientIdentity != ""
}

// Override replaces the body of a worker message.
type Override struct {
	Body   string `json:"body"`
	Author string `json:"author"`
}

// Outcome is a successful evaluation. A nil Override lets the message through.
type Outcome struct {
	Override        *Override
	ConsentRecorded bool
}

// Rejection is returned when a worker message contains a prohibited term.
type Rejection struct {
	Term   string
	Author string
}

func (r *Rejection) Error() string {
	return "Filtered Words Detected"
}

// Rules are the configurable texts and term lists of the filter.
type Rules struct {
	ProhibitedTerms   []string
	AffirmativeTokens []string
	OverrideBody      string
	AlertRecipient    string
	AlertSender       string
	AlertSubject      string
	OptInEvent        string
	Application       string
}

// RulesFromConfig collects the filter rules from the consent, email and analytics sections.
func RulesFromConfig(cfg config.Config) Rules {
	return Rules{
		ProhibitedTerms:   cfg.Consent.ProhibitedTerms,
		AffirmativeTokens: cfg.Consent.AffirmativeTokens,
		OverrideBody:      cfg.Consent.OverrideBody,
		AlertRecipient:    cfg.Consent.AlertRecipient,
		AlertSender:       cfg.Email.From,
		AlertSubject:      cfg.Consent.AlertSubject,
		OptInEvent:        cfg.Consent.OptInEvent,
		Application:       cfg.Analytics.Application,
	}
}

// match returns the first term contained in body, ignoring case.
func match(body string, terms []string) (string, bool) {
	if body == "" {
		return "", false
	}
	lower := strings.ToLower(body)
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			return term, true
		}
	}
	return "", false
}
