// Package routing decides which worker joins a newly started inbound conversation.
package routing

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/memohai/frontline/internal/conversations"
)

// Failure is returned when no worker can be resolved for a conversation.
type Failure struct {
	ConversationSID string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("routing failed, add workers to the directory or assign the customer to a worker: conversation %s", f.ConversationSID)
}

// Rand is the randomness source used for the roster fallback.
type Rand interface {
	Intn(n int) int
}

// Directory is the directory behavior required by routing.
type Directory interface {
	FindWorkerForCustomer(ctx context.Context, address string) (string, error)
	Workers(ctx context.Context) ([]string, error)
}

// ParticipantAdder adds a worker to a conversation.
type ParticipantAdder interface {
	AddParticipant(ctx context.Context, conversationSID, identity string) (conversations.Participant, error)
}

// Decision is the outcome of one routing request.
type Decision struct {
	ConversationSID string `json:"conversation_sid"`
	Worker          string `json:"worker"`
	// Fallback is set when the worker was drawn from the roster.
	Fallback bool `json:"fallback"`
	// ParticipantSID is empty when adding the worker failed.
	ParticipantSID string `json:"participant_sid,omitempty"`
}

// Resolver assigns an inbound conversation to a worker.
type Resolver struct {
	directory Directory
	gateway   ParticipantAdder
	logger    *slog.Logger

	mu  sync.Mutex
	rnd Rand
}

// NewResolver creates a resolver. A nil rnd uses a time-seeded source.
func NewResolver(log *slog.Logger, directory Directory, gateway ParticipantAdder, rnd Rand) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Resolver{
		directory: directory,
		gateway:   gateway,
		rnd:       rnd,
		logger:    log.With(slog.String("service", "routing")),
	}
}

// Resolve returns the worker mapped to customerNumber, or a uniformly random
// roster member when none is mapped.
func (r *Resolver) Resolve(ctx context.Context, conversationSID, customerNumber string) (Decision, error) {
	decision := Decision{ConversationSID: conversationSID}
	if customerNumber != "" {
		worker, err := r.directory.FindWorkerForCustomer(ctx, customerNumber)
		if err != nil {
			return decision, err
		}
		if worker != "" {
			decision.Worker = worker
			return decision, nil
		}
	}

	r.logger.Info("no worker mapped, selecting from roster", slog.String("conversation_sid", conversationSID))
	roster, err := r.directory.Workers(ctx)
	if err != nil {
		return decision, err
	}
	if len(roster) == 0 {
		return decision, &Failure{ConversationSID: conversationSID}
	}
	decision.Worker = roster[r.intn(len(roster))]
	decision.Fallback = true
	return decision, nil
}

// Route resolves the worker and adds it to the conversation. Adding the
// participant is best effort: a gateway failure is logged and the decision stands.
func (r *Resolver) Route(ctx context.Context, conversationSID, customerNumber string) (Decision, error) {
	decision, err := r.Resolve(ctx, conversationSID, customerNumber)
	if err != nil {
		return decision, err
	}
	participant, err := r.gateway.AddParticipant(ctx, conversationSID, decision.Worker)
	if err != nil {
		r.logger.Warn("add worker participant failed",
			slog.String("conversation_sid", conversationSID),
			slog.String("worker", decision.Worker),
			slog.Any("error", err),
		)
		return decision, nil
	}
	decision.ParticipantSID = participant.SID
	r.logger.Info("worker participant created",
		slog.String("conversation_sid", conversationSID),
		slog.String("worker", decision.Worker),
		slog.String("participant_sid", participant.SID),
	)
	return decision, nil
}

func (r *Resolver) intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}
