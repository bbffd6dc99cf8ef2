package eventbus

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/propmanage/internal/event"
	"github.com/matthewbaird/propmanage/internal/logging"
)

// LogConsumer logs all domain events for observability.
type LogConsumer struct {
	log *logrus.Logger
}

func NewLogConsumer() *LogConsumer { return &LogConsumer{log: logging.Logger} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	entities := make([]string, len(evt.AffectedEntities))
	for i, ref := range evt.AffectedEntities {
		entities[i] = ref.EntityType + ":" + ref.EntityID
	}
	c.log.WithFields(logrus.Fields{
		"event_type": evt.EventType,
		"category":   evt.Category,
		"weight":     evt.Weight,
		"entities":   entities,
	}).Info(evt.Summary)
	return nil
}
