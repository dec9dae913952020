// Package factory selects the event publisher from configuration.
package factory

import (
	"log/slog"

	"github.com/papercomputeco/studybuddy/pkg/config"
	"github.com/papercomputeco/studybuddy/pkg/eventstream"
	"github.com/papercomputeco/studybuddy/pkg/eventstream/kafka"
	"github.com/papercomputeco/studybuddy/pkg/eventstream/nop"
)

// New returns a Kafka publisher when brokers are configured and a no-op
// publisher otherwise.
func New(cfg config.EventsConfig, log *slog.Logger) (eventstream.Publisher, error) {
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		return nop.NewPublisher(log), nil
	}

	p, err := kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   cfg.KafkaTopic,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}
	log.Info("publishing study events to kafka", "brokers", brokers, "topic", cfg.KafkaTopic)
	return p, nil
}
