package webhook

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/memohai/frontline/internal/consent"
	"github.com/memohai/frontline/internal/customers"
	"github.com/memohai/frontline/internal/identity"
	"github.com/memohai/frontline/internal/routing"
)

// CustomerReader serves the CRM lookups.
type CustomerReader interface {
	GetByID(ctx context.Context, customerID string) (customers.Customer, error)
	List(ctx context.Context, worker string, pageSize int, anchor string) ([]customers.Customer, error)
}

type Router interface {
	Route(ctx context.Context, conversationSID, customerNumber string) (routing.Decision, error)
}

type Reconciler interface {
	ConversationProperties(ctx context.Context, bindingAddress string) (*identity.ConversationProperties, error)
	ReconcileParticipant(ctx context.Context, ref identity.ParticipantRef) (identity.Reconciliation, error)
}

type MessageFilter interface {
	Evaluate(ctx context.Context, msg consent.Message) (consent.Outcome, error)
}

// Result is a successful dispatch. A nil Body is sent as an empty response;
// a string Body as text and anything else as JSON.
type Result struct {
	Status int
	Body   any
}

// CustomerResponse is the CRM reply to a lookup by id.
type CustomerResponse struct {
	Objects CustomerObject `json:"objects"`
}

type CustomerObject struct {
	Customer customers.Customer `json:"customer"`
}

// CustomersResponse is the CRM reply to a list lookup.
type CustomersResponse struct {
	Objects CustomersObject `json:"objects"`
}

type CustomersObject struct {
	Customers []customers.Customer `json:"customers"`
}

const successBody = "success"

// Dispatcher routes decoded events to the services. It never retries.
type Dispatcher struct {
	customers       CustomerReader
	router          Router
	reconciler      Reconciler
	filter          MessageFilter
	defaultPageSize int
	logger          *slog.Logger
}

func NewDispatcher(log *slog.Logger, directory CustomerReader, router Router, reconciler Reconciler, filter MessageFilter, defaultPageSize int) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		customers:       directory,
		router:          router,
		reconciler:      reconciler,
		filter:          filter,
		defaultPageSize: defaultPageSize,
		logger:          log.With(slog.String("service", "webhook")),
	}
}

// Dispatch runs the handler of ev.Kind to completion and returns its single result.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (Result, error) {
	log := d.logger.With(
		slog.String("dispatch_id", uuid.NewString()),
		slog.String("event", ev.Kind.String()),
	)
	if ev.ConversationSID != "" {
		log = log.With(slog.String("conversation_sid", ev.ConversationSID))
	}
	start := time.Now()

	res, err := d.dispatch(ctx, ev)
	if err != nil {
		log.Warn("dispatch failed",
			slog.Int("status", StatusOf(err)),
			slog.Duration("latency", time.Since(start)),
			slog.Any("error", err),
		)
		return Result{}, err
	}
	log.Info("dispatched", slog.Int("status", res.Status), slog.Duration("latency", time.Since(start)))
	return res, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, ev Event) (Result, error) {
	switch ev.Kind {
	case KindConversationAdd:
		return d.conversationAdd(ctx, ev)
	case KindParticipantAdded:
		return d.participantAdded(ctx, ev)
	case KindMessageAdd:
		return d.messageAdd(ctx, ev)
	case KindCrmLookupByID:
		return d.customerByID(ctx, ev)
	case KindCrmLookupList:
		return d.customersList(ctx, ev)
	case KindRoutingRequest:
		return d.route(ctx, ev)
	default:
		return Result{}, &ClassificationError{Source: ev.Source, Key: ev.Key}
	}
}

func (d *Dispatcher) conversationAdd(ctx context.Context, ev Event) (Result, error) {
	props, err := d.reconciler.ConversationProperties(ctx, ev.BindingAddress)
	if err != nil {
		return Result{}, err
	}
	if props == nil {
		return Result{Status: http.StatusOK, Body: successBody}, nil
	}
	return Result{Status: http.StatusOK, Body: props}, nil
}

func (d *Dispatcher) participantAdded(ctx context.Context, ev Event) (Result, error) {
	_, err := d.reconciler.ReconcileParticipant(ctx, identity.ParticipantRef{
		ConversationSID: ev.ConversationSID,
		ParticipantSID:  ev.ParticipantSID,
		BindingAddress:  ev.BindingAddress,
		Identity:        ev.Identity,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Status: http.StatusOK, Body: successBody}, nil
}

func (d *Dispatcher) messageAdd(ctx context.Context, ev Event) (Result, error) {
	out, err := d.filter.Evaluate(ctx, consent.Message{
		ConversationSID: ev.ConversationSID,
		ParticipantSID:  ev.ParticipantSID,
		Author:          ev.Author,
		Body:            ev.Body,
		ClientIdentity:  ev.ClientIdentity,
	})
	if err != nil {
		return Result{}, err
	}
	if out.Override != nil {
		return Result{Status: http.StatusOK, Body: out.Override}, nil
	}
	return Result{Status: http.StatusOK}, nil
}

func (d *Dispatcher) customerByID(ctx context.Context, ev Event) (Result, error) {
	if ev.CustomerID == "" {
		return Result{}, &FieldError{Field: "CustomerId"}
	}
	customer, err := d.customers.GetByID(ctx, ev.CustomerID)
	if err != nil {
		return Result{}, err
	}
	return Result{Status: http.StatusOK, Body: CustomerResponse{Objects: CustomerObject{Customer: customer}}}, nil
}

func (d *Dispatcher) customersList(ctx context.Context, ev Event) (Result, error) {
	pageSize := ev.PageSize
	if pageSize == 0 {
		pageSize = d.defaultPageSize
	}
	page, err := d.customers.List(ctx, ev.Worker, pageSize, ev.Anchor)
	if err != nil {
		return Result{}, err
	}
	if page == nil {
		page = []customers.Customer{}
	}
	return Result{Status: http.StatusOK, Body: CustomersResponse{Objects: CustomersObject{Customers: page}}}, nil
}

func (d *Dispatcher) route(ctx context.Context, ev Event) (Result, error) {
	decision, err := d.router.Route(ctx, ev.ConversationSID, ev.BindingAddress)
	if err != nil {
		return Result{}, err
	}
	return Result{Status: http.StatusOK, Body: decision}, nil
}
