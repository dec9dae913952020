// Package kafka publishes study events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/studybuddy/pkg/eventstream"
	"github.com/papercomputeco/studybuddy/pkg/logger"
)

const (
	defaultBatchTimeout = 50 * time.Millisecond
	defaultWriteTimeout = 10 * time.Second

	headerEventType = "event_type"
)

// MessageWriter is the subset of *kafkago.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config configures a Publisher.
type Config struct {
	Brokers []string
	Topic   string
	Logger  *slog.Logger

	// Writer replaces the kafka-go writer built from Brokers and Topic.
	Writer MessageWriter
}

// Publisher writes each event as a JSON message keyed by Event.Key.
type Publisher struct {
	writer MessageWriter
	topic  string
	logger *slog.Logger
}

// NewPublisher creates a Kafka publisher.
func NewPublisher(cfg Config) (*Publisher, error) {
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	w := cfg.Writer
	if w == nil {
		if len(cfg.Brokers) == 0 {
			return nil, errors.New("at least one kafka broker is required")
		}
		w = &kafkago.Writer{
			Addr:                   kafkago.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			BatchTimeout:           defaultBatchTimeout,
			WriteTimeout:           defaultWriteTimeout,
			AllowAutoTopicCreation: true,
		}
	}

	return &Publisher{writer: w, topic: cfg.Topic, logger: log}, nil
}

// Publish encodes event and writes it synchronously.
func (p *Publisher) Publish(ctx context.Context, event *eventstream.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: headerEventType, Value: []byte(event.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing %s to %s: %w", event.EventType, p.topic, err)
	}

	p.logger.Debug("published event",
		"event_type", event.EventType,
		"event_id", event.EventID,
		"topic", p.topic,
	)
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
