// Package nop provides the publisher used when no event backend is
// configured. Events are validated and logged at debug level.
package nop

import (
	"context"
	"log/slog"

	"github.com/papercomputeco/studybuddy/pkg/eventstream"
	"github.com/papercomputeco/studybuddy/pkg/logger"
)

// Publisher drops events.
type Publisher struct {
	logger *slog.Logger
}

// NewPublisher creates a Publisher. log may be nil.
func NewPublisher(log *slog.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{logger: log}
}

// Publish rejects malformed events and otherwise discards them.
func (p *Publisher) Publish(_ context.Context, event *eventstream.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	p.logger.Debug("dropping event, no event stream configured",
		"event_type", event.EventType,
		"key", event.Key(),
	)
	return nil
}

func (p *Publisher) Close() error {
	return nil
}
