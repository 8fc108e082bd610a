package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	segment "github.com/segmentio/analytics-go/v3"

	"github.com/memohai/frontline/internal/config"
)

// segmentBatchSize flushes after every identify + track pair.
const segmentBatchSize = 2

type enqueuer interface {
	Enqueue(msg segment.Message) error
	Close() error
}

// Segment forwards events to Segment. Delivery is asynchronous; Close flushes.
type Segment struct {
	client enqueuer
	logger *slog.Logger
}

func NewSegment(log *slog.Logger, cfg config.SegmentConfig) (*Segment, error) {
	if strings.TrimSpace(cfg.WriteKey) == "" {
		return nil, fmt.Errorf("segment write key is required")
	}
	client, err := segment.NewWithConfig(cfg.WriteKey, segment.Config{
		Endpoint:  cfg.Endpoint,
		BatchSize: segmentBatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("segment client: %w", err)
	}
	return newSegment(log, client), nil
}

func newSegment(log *slog.Logger, client enqueuer) *Segment {
	if log == nil {
		log = slog.Default()
	}
	return &Segment{client: client, logger: log.With(slog.String("sink", "segment"))}
}

func (s *Segment) Identify(ctx context.Context, msg Identify) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.client.Enqueue(segment.Identify{
		UserId: msg.UserID,
		Traits: segment.Traits(msg.Traits),
	})
}

func (s *Segment) Track(ctx context.Context, msg Track) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.client.Enqueue(segment.Track{
		UserId:     msg.UserID,
		Event:      msg.Event,
		Properties: segment.Properties(msg.Properties),
	})
}

func (s *Segment) Close() error {
	return s.client.Close()
}
