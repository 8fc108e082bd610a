// Package analytics records customer lifecycle events (identify + track).
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/memohai/frontline/internal/config"
)

// Identify attaches traits to a user.
type Identify struct {
	UserID string         `json:"user_id"`
	Traits map[string]any `json:"traits,omitempty"`
}

// Track records a named event for a user.
type Track struct {
	UserID     string         `json:"user_id"`
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Tracker is an analytics sink.
type Tracker interface {
	Identify(ctx context.Context, msg Identify) error
	Track(ctx context.Context, msg Track) error
	Close() error
}

// Nop discards every event.
type Nop struct {
	Logger *slog.Logger
}

func (n Nop) Identify(ctx context.Context, msg Identify) error { return nil }

func (n Nop) Track(ctx context.Context, msg Track) error {
	if n.Logger != nil {
		n.Logger.Debug("analytics event dropped", slog.String("event", msg.Event))
	}
	return nil
}

func (n Nop) Close() error { return nil }

// New builds the tracker selected by cfg.Driver.
func New(log *slog.Logger, cfg config.AnalyticsConfig) (Tracker, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return Nop{Logger: log}, nil
	case "segment":
		return NewSegment(log, cfg.Segment)
	case "kafka":
		return NewKafka(log, cfg.Kafka)
	default:
		return nil, fmt.Errorf("unknown analytics driver: %s", cfg.Driver)
	}
}
