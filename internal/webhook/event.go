// Package webhook classifies inbound callback payloads and dispatches them to the
// routing, identity and consent services.
package webhook

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/memohai/frontline/internal/consent"
	"github.com/memohai/frontline/internal/customers"
)

// EventKind is the closed set of events the dispatcher handles.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindConversationAdd
	KindParticipantAdded
	KindMessageAdd
	KindCrmLookupByID
	KindCrmLookupList
	KindRoutingRequest
)

func (k EventKind) String() string {
	switch k {
	case KindConversationAdd:
		return "onConversationAdd"
	case KindParticipantAdded:
		return "onParticipantAdded"
	case KindMessageAdd:
		return "onMessageAdd"
	case KindCrmLookupByID:
		return "GetCustomerDetailsByCustomerId"
	case KindCrmLookupList:
		return "GetCustomersList"
	case KindRoutingRequest:
		return "Routing"
	default:
		return "unknown"
	}
}

// Source is the callback endpoint an event arrived on.
type Source int

const (
	SourceCRM Source = iota
	SourceConversations
	SourceRouting
)

var (
	crmLocations = map[string]EventKind{
		"GetCustomerDetailsByCustomerId": KindCrmLookupByID,
		"GetCustomersList":               KindCrmLookupList,
	}
	conversationEvents = map[string]EventKind{
		"onConversationAdd":  KindConversationAdd,
		"onParticipantAdded": KindParticipantAdded,
		"onMessageAdd":       KindMessageAdd,
	}
)

// Event is one decoded callback payload.
type Event struct {
	Kind   EventKind
	Source Source
	// Key is the raw Location or EventType value.
	Key             string
	ConversationSID string
	ParticipantSID  string
	CustomerID      string
	Worker          string
	// PageSize is zero when absent.
	PageSize       int
	Anchor         string
	BindingAddress string
	Identity       string
	Author         string
	Body           string
	ClientIdentity string
}

// ClassificationError reports a Location or EventType the dispatcher does not know.
type ClassificationError struct {
	Source Source
	Key    string
}

func (e *ClassificationError) Error() string {
	if e.Source == SourceCRM {
		return fmt.Sprintf("Unknown location: %s", e.Key)
	}
	return fmt.Sprintf("Unknown event type: %s", e.Key)
}

// FieldError reports a malformed payload field.
type FieldError struct {
	Field string
	Value string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// Decode classifies a form payload received on source.
func Decode(source Source, values url.Values) (Event, error) {
	ev := Event{
		Source:          source,
		ConversationSID: values.Get("ConversationSid"),
		ParticipantSID:  values.Get("ParticipantSid"),
		CustomerID:      values.Get("CustomerId"),
		Worker:          values.Get("Worker"),
		Anchor:          values.Get("Anchor"),
		BindingAddress:  values.Get("MessagingBinding.Address"),
		Identity:        values.Get("Identity"),
		Author:          values.Get("Author"),
		Body:            values.Get("Body"),
		ClientIdentity:  values.Get("ClientIdentity"),
	}
	if raw := strings.TrimSpace(values.Get("PageSize")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			return Event{}, &FieldError{Field: "PageSize", Value: raw}
		}
		ev.PageSize = size
	}

	var (
		kind EventKind
		ok   bool
	)
	switch source {
	case SourceCRM:
		ev.Key = values.Get("Location")
		kind, ok = crmLocations[ev.Key]
	case SourceConversations:
		ev.Key = values.Get("EventType")
		kind, ok = conversationEvents[ev.Key]
	case SourceRouting:
		ev.Key = KindRoutingRequest.String()
		kind, ok = KindRoutingRequest, true
	}
	if !ok {
		return Event{}, &ClassificationError{Source: source, Key: ev.Key}
	}
	ev.Kind = kind
	return ev, nil
}

// StatusOf maps a dispatch error to its HTTP status.
func StatusOf(err error) int {
	var (
		classification *ClassificationError
		rejection      *consent.Rejection
		field          *FieldError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &classification), errors.As(err, &rejection):
		return http.StatusUnprocessableEntity
	case errors.As(err, &field):
		return http.StatusBadRequest
	case errors.Is(err, customers.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
