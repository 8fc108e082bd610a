package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/frontline/internal/conversations"
	"github.com/memohai/frontline/internal/customers"
	"github.com/memohai/frontline/internal/logger"
)

type fakeLookup struct {
	byNumber map[string]customers.Customer
	err      error
}

func (f *fakeLookup) GetByNumber(ctx context.Context, address string) (customers.Customer, error) {
	if f.err != nil {
		return customers.Customer{}, f.err
	}
	c, ok := f.byNumber[address]
	if !ok {
		return customers.Customer{}, customers.ErrNotFound
	}
	return c, nil
}

type fakeParticipants struct {
	attributes string
	fetchErr   error
	updateErr  error
	updates    []string
}

func (f *fakeParticipants) GetParticipant(ctx context.Context, conversationSID, participantSID string) (conversations.Participant, error) {
	if f.fetchErr != nil {
		return conversations.Participant{}, f.fetchErr
	}
	return conversations.Participant{SID: participantSID, ConversationSID: conversationSID, Attributes: f.attributes}, nil
}

func (f *fakeParticipants) UpdateAttributes(ctx context.Context, conversationSID, participantSID, attributes string) error {
	f.updates = append(f.updates, attributes)
	return f.updateErr
}

func newLookup() *fakeLookup {
	return &fakeLookup{byNumber: map[string]customers.Customer{
		"+15550100": {CustomerID: "1", DisplayName: "Jane Doe", Avatar: "a.png"},
	}}
}

func TestConversationPropertiesInbound(t *testing.T) {
	svc := NewService(logger.Discard(), newLookup(), &fakeParticipants{})

	props, err := svc.ConversationProperties(context.Background(), "+15550100")
	require.NoError(t, err)
	require.NotNil(t, props)
	assert.Equal(t, "Jane Doe", props.FriendlyName)
	assert.Equal(t, `{"avatar":"a.png"}`, props.Attributes)
}

func TestConversationPropertiesUnknownCustomerFallsBackToAddress(t *testing.T) {
	svc := NewService(logger.Discard(), newLookup(), &fakeParticipants{})

	props, err := svc.ConversationProperties(context.Background(), "+15550199")
	require.NoError(t, err)
	assert.Equal(t, "+15550199", props.FriendlyName)
	assert.Equal(t, `{}`, props.Attributes)
}

func TestConversationPropertiesOutbound(t *testing.T) {
	svc := NewService(logger.Discard(), newLookup(), &fakeParticipants{})

	props, err := svc.ConversationProperties(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, props)
}

func TestConversationPropertiesDirectoryError(t *testing.T) {
	boom := errors.New("directory down")
	svc := NewService(logger.Discard(), &fakeLookup{err: boom}, &fakeParticipants{})

	_, err := svc.ConversationProperties(context.Background(), "+15550100")
	assert.ErrorIs(t, err, boom)
}

func TestReconcileParticipantUpdatesOnDifference(t *testing.T) {
	parts := &fakeParticipants{attributes: `{"display_name":"Jenny"}`}
	svc := NewService(logger.Discard(), newLookup(), parts)

	res, err := svc.ReconcileParticipant(context.Background(), ParticipantRef{
		ConversationSID: "CH1", ParticipantSID: "MB1", BindingAddress: "+15550100",
	})
	require.NoError(t, err)
	assert.True(t, res.Updated)
	require.Len(t, parts.updates, 1)
	assert.Equal(t, `{"display_name":"Jenny","avatar":"a.png","customer_id":"1"}`, parts.updates[0])
}

func TestReconcileParticipantSkipsIdenticalAttributes(t *testing.T) {
	parts := &fakeParticipants{attributes: `{"avatar":"a.png","customer_id":"1","display_name":"Jane Doe"}`}
	svc := NewService(logger.Discard(), newLookup(), parts)

	res, err := svc.ReconcileParticipant(context.Background(), ParticipantRef{
		ConversationSID: "CH1", ParticipantSID: "MB1", BindingAddress: "+15550100",
	})
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Empty(t, parts.updates)
}

func TestReconcileParticipantSkipsWorkers(t *testing.T) {
	parts := &fakeParticipants{fetchErr: errors.New("must not fetch")}
	svc := NewService(logger.Discard(), newLookup(), parts)

	res, err := svc.ReconcileParticipant(context.Background(), ParticipantRef{
		ConversationSID: "CH1", ParticipantSID: "MB2", BindingAddress: "+15550100", Identity: "john@example.com",
	})
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	res, err = svc.ReconcileParticipant(context.Background(), ParticipantRef{ConversationSID: "CH1", ParticipantSID: "MB3"})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}

func TestReconcileParticipantSwallowsUpdateError(t *testing.T) {
	parts := &fakeParticipants{attributes: `{}`, updateErr: errors.New("twilio 503")}
	svc := NewService(logger.Discard(), newLookup(), parts)

	res, err := svc.ReconcileParticipant(context.Background(), ParticipantRef{
		ConversationSID: "CH1", ParticipantSID: "MB1", BindingAddress: "+15550100",
	})
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Len(t, parts.updates, 1)
}

func TestReconcileParticipantPropagatesFetchError(t *testing.T) {
	boom := errors.New("fetch failed")
	svc := NewService(logger.Discard(), newLookup(), &fakeParticipants{fetchErr: boom})

	_, err := svc.ReconcileParticipant(context.Background(), ParticipantRef{
		ConversationSID: "CH1", ParticipantSID: "MB1", BindingAddress: "+15550100",
	})
	assert.ErrorIs(t, err, boom)
}
