package webhook

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/frontline/internal/alerts"
	"github.com/memohai/frontline/internal/analytics"
	"github.com/memohai/frontline/internal/config"
	"github.com/memohai/frontline/internal/consent"
	"github.com/memohai/frontline/internal/conversations"
	"github.com/memohai/frontline/internal/customers"
	"github.com/memohai/frontline/internal/identity"
	"github.com/memohai/frontline/internal/logger"
	"github.com/memohai/frontline/internal/routing"
)

type fakeGateway struct {
	participants []conversations.Participant
	added        []string
	updates      map[string]string
}

func (f *fakeGateway) AddParticipant(ctx context.Context, conversationSID, identity string) (conversations.Participant, error) {
	f.added = append(f.added, identity)
	return conversations.Participant{SID: "MB-" + identity, ConversationSID: conversationSID, Identity: identity}, nil
}

func (f *fakeGateway) GetParticipant(ctx context.Context, conversationSID, participantSID string) (conversations.Participant, error) {
	for _, p := range f.participants {
		if p.SID == participantSID {
			return p, nil
		}
	}
	return conversations.Participant{}, conversations.ErrParticipantNotFound
}

func (f *fakeGateway) ListParticipants(ctx context.Context, conversationSID string) ([]conversations.Participant, error) {
	return f.participants, nil
}

func (f *fakeGateway) UpdateAttributes(ctx context.Context, conversationSID, participantSID, attributes string) error {
	if f.updates == nil {
		f.updates = map[string]string{}
	}
	f.updates[participantSID] = attributes
	return nil
}

type countingMailer struct{ sent int }

func (m *countingMailer) Send(ctx context.Context, email alerts.Email) error {
	m.sent++
	return nil
}

type harness struct {
	dispatcher *Dispatcher
	store      *customers.MemoryStore
	gateway    *fakeGateway
	mailer     *countingMailer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	seed := customers.Seed{Workers: []string{"w1", "w2"}}
	seed.Customers = append(seed.Customers, customers.Customer{
		CustomerID:  "100",
		DisplayName: "Jane Doe",
		Avatar:      "a.png",
		PhoneNumber: "+15550100",
		Worker:      "w2",
	})
	for i := 1; i <= 12; i++ {
		seed.Customers = append(seed.Customers, customers.Customer{
			CustomerID:  fmt.Sprintf("%d", i),
			DisplayName: fmt.Sprintf("Customer %d", i),
			PhoneNumber: fmt.Sprintf("+1555020%02d", i),
			Worker:      "w1",
		})
	}
	store := customers.NewMemoryStore(seed)
	gw := &fakeGateway{participants: []conversations.Participant{
		{SID: "MB-worker", Identity: "w2"},
		{SID: "MB-customer", BindingAddress: "+15550100", ProxyAddress: "+15550999", Attributes: "{}"},
	}}
	mailer := &countingMailer{}
	cfg := config.Default()
	cfg.Consent.AlertRecipient = "compliance@example.com"
	cfg.Email.From = "frontline@example.com"

	log := logger.Discard()
	d := NewDispatcher(log,
		store,
		routing.NewResolver(log, store, gw, rand.New(rand.NewSource(7))),
		identity.NewService(log, store, gw),
		consent.NewFilter(log, consent.RulesFromConfig(cfg), store, gw, mailer, analytics.Nop{}),
		cfg.Directory.PageSize,
	)
	return &harness{dispatcher: d, store: store, gateway: gw, mailer: mailer}
}

func (h *harness) run(t *testing.T, source Source, values url.Values) (Result, error) {
	t.Helper()
	ev, err := Decode(source, values)
	if err != nil {
		return Result{}, err
	}
	return h.dispatcher.Dispatch(context.Background(), ev)
}

func TestUnknownEventTypeIsRejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, SourceConversations, url.Values{"EventType": {"onFoo"}})
	var classification *ClassificationError
	require.ErrorAs(t, err, &classification)
	assert.Equal(t, http.StatusUnprocessableEntity, StatusOf(err))
	assert.Contains(t, err.Error(), "onFoo")
}

func TestUnknownLocationIsRejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, SourceCRM, url.Values{"Location": {"GetTemplatesByCustomerId"}})
	assert.Equal(t, http.StatusUnprocessableEntity, StatusOf(err))
	assert.Equal(t, "Unknown location: GetTemplatesByCustomerId", err.Error())
}

func TestUnclassifiedEventKeepsSource(t *testing.T) {
	h := newHarness(t)

	_, err := h.dispatcher.Dispatch(context.Background(), Event{Source: SourceConversations, Key: "onFoo"})
	assert.Equal(t, http.StatusUnprocessableEntity, StatusOf(err))
	assert.Equal(t, "Unknown event type: onFoo", err.Error())
}

func TestMalformedPageSize(t *testing.T) {
	_, err := Decode(SourceCRM, url.Values{"Location": {"GetCustomersList"}, "PageSize": {"ten"}})
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
}

func TestCustomersListMatchesDirectoryPage(t *testing.T) {
	h := newHarness(t)

	res, err := h.run(t, SourceCRM, url.Values{
		"Location": {"GetCustomersList"},
		"Worker":   {"w1"},
		"PageSize": {"10"},
		"Anchor":   {"0"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)

	want, err := h.store.List(context.Background(), "w1", 10, "0")
	require.NoError(t, err)
	require.Len(t, want, 10)
	assert.Equal(t, CustomersResponse{Objects: CustomersObject{Customers: want}}, res.Body)
}

func TestCustomersListDefaultsAndEmptyPage(t *testing.T) {
	h := newHarness(t)

	res, err := h.run(t, SourceCRM, url.Values{"Location": {"GetCustomersList"}, "Worker": {"w1"}})
	require.NoError(t, err)
	assert.Len(t, res.Body.(CustomersResponse).Objects.Customers, 12)

	res, err = h.run(t, SourceCRM, url.Values{"Location": {"GetCustomersList"}, "Worker": {"nobody"}})
	require.NoError(t, err)
	assert.NotNil(t, res.Body.(CustomersResponse).Objects.Customers)
	assert.Empty(t, res.Body.(CustomersResponse).Objects.Customers)
}

func TestCustomerDetailsByID(t *testing.T) {
	h := newHarness(t)

	res, err := h.run(t, SourceCRM, url.Values{"Location": {"GetCustomerDetailsByCustomerId"}, "CustomerId": {"100"}})
	require.NoError(t, err)
	body := res.Body.(CustomerResponse)
	assert.Equal(t, "Jane Doe", body.Objects.Customer.DisplayName)

	_, err = h.run(t, SourceCRM, url.Values{"Location": {"GetCustomerDetailsByCustomerId"}, "CustomerId": {"404"}})
	assert.Equal(t, http.StatusNotFound, StatusOf(err))

	_, err = h.run(t, SourceCRM, url.Values{"Location": {"GetCustomerDetailsByCustomerId"}})
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
}

func TestConversationAddReturnsProperties(t *testing.T) {
	h := newHarness(t)

	res, err := h.run(t, SourceConversations, url.Values{
		"EventType":                {"onConversationAdd"},
		"MessagingBinding.Address": {"+15550100"},
	})
	require.NoError(t, err)
	assert.Equal(t, &identity.ConversationProperties{FriendlyName: "Jane Doe", Attributes: `{"avatar":"a.png"}`}, res.Body)

	res, err = h.run(t, SourceConversations, url.Values{"EventType": {"onConversationAdd"}})
	require.NoError(t, err)
	assert.Equal(t, "success", res.Body)
}

func TestParticipantAddedReconciles(t *testing.T) {
	h := newHarness(t)

	res, err := h.run(t, SourceConversations, url.Values{
		"EventType":                {"onParticipantAdded"},
		"ConversationSid":          {"CH1"},
		"ParticipantSid":           {"MB-customer"},
		"MessagingBinding.Address": {"+15550100"},
	})
	require.NoError(t, err)
	assert.Equal(t, "success", res.Body)
	assert.Equal(t, `{"avatar":"a.png","customer_id":"100","display_name":"Jane Doe"}`, h.gateway.updates["MB-customer"])
}

func TestWorkerMessageReplacedUntilConsent(t *testing.T) {
	h := newHarness(t)
	values := url.Values{
		"EventType":       {"onMessageAdd"},
		"ConversationSid": {"CH1"},
		"ParticipantSid":  {"MB-worker"},
		"Author":          {"w2"},
		"ClientIdentity":  {"w2"},
		"Body":            {"Here is our latest offer"},
	}

	res, err := h.run(t, SourceConversations, values)
	require.NoError(t, err)
	override, ok := res.Body.(*consent.Override)
	require.True(t, ok)
	assert.Equal(t, config.DefaultOverrideBody, override.Body)
	assert.NotContains(t, override.Body, "latest offer")

	_, err = h.run(t, SourceConversations, url.Values{
		"EventType":       {"onMessageAdd"},
		"ConversationSid": {"CH1"},
		"ParticipantSid":  {"MB-customer"},
		"Author":          {"+15550100"},
		"Body":            {"yes!"},
	})
	require.NoError(t, err)

	res, err = h.run(t, SourceConversations, values)
	require.NoError(t, err)
	assert.Nil(t, res.Body)
}

func TestProhibitedWorkerMessageRejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, SourceConversations, url.Values{
		"EventType":       {"onMessageAdd"},
		"ConversationSid": {"CH1"},
		"ParticipantSid":  {"MB-worker"},
		"Author":          {"w2"},
		"ClientIdentity":  {"w2"},
		"Body":            {"ping me on the BackLine"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, StatusOf(err))
	assert.Equal(t, "Filtered Words Detected", err.Error())
	assert.Equal(t, 1, h.mailer.sent)
}

func TestRoutingRequest(t *testing.T) {
	h := newHarness(t)

	res, err := h.run(t, SourceRouting, url.Values{"ConversationSid": {"CH9"}, "MessagingBinding.Address": {"+15550100"}})
	require.NoError(t, err)
	decision := res.Body.(routing.Decision)
	assert.Equal(t, "w2", decision.Worker)
	assert.Equal(t, []string{"w2"}, h.gateway.added)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusOf(nil))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusOf(&consent.Rejection{Term: "backline"}))
	assert.Equal(t, http.StatusNotFound, StatusOf(fmt.Errorf("lookup: %w", customers.ErrNotFound)))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(&routing.Failure{ConversationSID: "CH1"}))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}

func TestEventKindNames(t *testing.T) {
	for key, kind := range conversationEvents {
		assert.Equal(t, key, kind.String())
	}
	for key, kind := range crmLocations {
		assert.Equal(t, key, kind.String())
	}
	assert.True(t, strings.EqualFold(KindUnknown.String(), "unknown"))
}
