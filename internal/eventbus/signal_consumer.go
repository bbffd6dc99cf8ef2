package eventbus

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/propmanage/internal/event"
	"github.com/matthewbaird/propmanage/internal/logging"
	"github.com/matthewbaird/propmanage/internal/signals"
)

// SignalConsumer classifies domain events against the signal registry
// and warns when a signal reaches MinWeight.
type SignalConsumer struct {
	MinWeight string
	log       *logrus.Logger
}

// NewSignalConsumer creates a signal consumer that warns on moderate or
// heavier signals.
func NewSignalConsumer() *SignalConsumer {
	return &SignalConsumer{MinWeight: "moderate", log: logging.Logger}
}

// HandleEvent classifies the domain event against the signal registry.
func (c *SignalConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	result, ok := signals.ClassifyEvent(signals.DomainEvent{
		EventID:   evt.ID,
		EventType: evt.EventType,
		Payload:   evt.Payload,
	})
	if !ok {
		return nil
	}

	entry := c.log.WithFields(logrus.Fields{
		"event_type": evt.EventType,
		"category":   result.Category,
		"weight":     result.Weight,
		"polarity":   result.Polarity,
	})
	if signals.IsAtLeastWeight(result.Weight, c.MinWeight) {
		entry.Warn("signal: " + result.Description)
	} else {
		entry.Debug("signal: " + result.Description)
	}
	return nil
}
