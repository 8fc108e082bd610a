package conversations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/twilio/twilio-go"
	conversationsv1 "github.com/twilio/twilio-go/rest/conversations/v1"
)

// listPageSize is the page size requested when listing participants.
const listPageSize = 50

// participantsAPI is the part of the Twilio Conversations v1 service used here.
type participantsAPI interface {
	CreateConversationParticipant(conversationSid string, params *conversationsv1.CreateConversationParticipantParams) (*conversationsv1.ConversationsV1ConversationParticipant, error)
	FetchConversationParticipant(conversationSid string, sid string) (*conversationsv1.ConversationsV1ConversationParticipant, error)
	ListConversationParticipant(conversationSid string, params *conversationsv1.ListConversationParticipantParams) ([]conversationsv1.ConversationsV1ConversationParticipant, error)
	UpdateConversationParticipant(conversationSid string, sid string, params *conversationsv1.UpdateConversationParticipantParams) (*conversationsv1.ConversationsV1ConversationParticipant, error)
}

// TwilioGateway implements Gateway on the Twilio Conversations REST API.
// The SDK is not context-aware; ctx is only checked before each call.
type TwilioGateway struct {
	api    participantsAPI
	logger *slog.Logger
}

// NewTwilioGateway creates a gateway authenticated with the account sid and auth token.
func NewTwilioGateway(log *slog.Logger, accountSID, authToken string) (*TwilioGateway, error) {
	if strings.TrimSpace(accountSID) == "" || strings.TrimSpace(authToken) == "" {
		return nil, fmt.Errorf("twilio account sid and auth token are required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilioGateway(log, client.ConversationsV1), nil
}

func newTwilioGateway(log *slog.Logger, api participantsAPI) *TwilioGateway {
	if log == nil {
		log = slog.Default()
	}
	return &TwilioGateway{
		api:    api,
		logger: log.With(slog.String("service", "conversations")),
	}
}

func (g *TwilioGateway) AddParticipant(ctx context.Context, conversationSID, identity string) (Participant, error) {
	if err := ctx.Err(); err != nil {
		return Participant{}, err
	}
	params := &conversationsv1.CreateConversationParticipantParams{}
	params.SetIdentity(identity)
	resp, err := g.api.CreateConversationParticipant(conversationSID, params)
	if err != nil {
		return Participant{}, fmt.Errorf("create participant: %w", err)
	}
	p := toParticipant(resp)
	g.logger.Debug("participant created", slog.String("conversation_sid", conversationSID), slog.String("participant_sid", p.SID))
	return p, nil
}

func (g *TwilioGateway) GetParticipant(ctx context.Context, conversationSID, participantSID string) (Participant, error) {
	if err := ctx.Err(); err != nil {
		return Participant{}, err
	}
	resp, err := g.api.FetchConversationParticipant(conversationSID, participantSID)
	if err != nil {
		return Participant{}, fmt.Errorf("fetch participant: %w", err)
	}
	return toParticipant(resp), nil
}

func (g *TwilioGateway) ListParticipants(ctx context.Context, conversationSID string) ([]Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := &conversationsv1.ListConversationParticipantParams{}
	params.SetPageSize(listPageSize)
	rows, err := g.api.ListConversationParticipant(conversationSID, params)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	items := make([]Participant, 0, len(rows))
	for i := range rows {
		items = append(items, toParticipant(&rows[i]))
	}
	return items, nil
}

func (g *TwilioGateway) UpdateAttributes(ctx context.Context, conversationSID, participantSID, attributes string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &conversationsv1.UpdateConversationParticipantParams{}
	params.SetAttributes(attributes)
	if _, err := g.api.UpdateConversationParticipant(conversationSID, participantSID, params); err != nil {
		return fmt.Errorf("update participant: %w", err)
	}
	return nil
}

func toParticipant(resp *conversationsv1.ConversationsV1ConversationParticipant) Participant {
	if resp == nil {
		return Participant{}
	}
	p := Participant{
		SID:             deref(resp.Sid),
		ConversationSID: deref(resp.ConversationSid),
		Identity:        deref(resp.Identity),
		Attributes:      deref(resp.Attributes),
	}
	if resp.MessagingBinding != nil {
		if binding, ok := (*resp.MessagingBinding).(map[string]interface{}); ok {
			p.BindingAddress = stringField(binding, "address")
			p.ProxyAddress = stringField(binding, "proxy_address")
		}
	}
	return p
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
