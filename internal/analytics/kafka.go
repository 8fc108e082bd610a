package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/memohai/frontline/internal/config"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// envelope is the record written to the analytics topic.
type envelope struct {
	Type       string         `json:"type"`
	UserID     string         `json:"user_id"`
	Event      string         `json:"event,omitempty"`
	Traits     map[string]any `json:"traits,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Kafka publishes events to a topic keyed by user id.
type Kafka struct {
	writer messageWriter
	logger *slog.Logger
	now    func() time.Time
}

func NewKafka(log *slog.Logger, cfg config.KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	return newKafka(log, &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}), nil
}

func newKafka(log *slog.Logger, w messageWriter) *Kafka {
	if log == nil {
		log = slog.Default()
	}
	return &Kafka{writer: w, logger: log.With(slog.String("sink", "kafka")), now: time.Now}
}

func (k *Kafka) Identify(ctx context.Context, msg Identify) error {
	return k.send(ctx, envelope{Type: "identify", UserID: msg.UserID, Traits: msg.Traits})
}

func (k *Kafka) Track(ctx context.Context, msg Track) error {
	return k.send(ctx, envelope{Type: "track", UserID: msg.UserID, Event: msg.Event, Properties: msg.Properties})
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

func (k *Kafka) send(ctx context.Context, env envelope) error {
	env.Timestamp = k.now().UTC()
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(env.UserID), Value: data}); err != nil {
		return fmt.Errorf("kafka write %s: %w", env.Type, err)
	}
	k.logger.Debug("analytics event published", slog.String("type", env.Type), slog.String("user_id", env.UserID))
	return nil
}
