package eventbus

import (
	"context"

	"go.uber.org/zap"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/event"
)

// LogConsumer logs all domain events for observability.
type LogConsumer struct {
	logger *zap.Logger
}

func NewLogConsumer(logger *zap.Logger) *LogConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogConsumer{logger: logger.Named("event")}
}

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	entities := make([]string, len(evt.AffectedEntities))
	for i, ref := range evt.AffectedEntities {
		entities[i] = ref.EntityType + ":" + ref.EntityID
	}
	c.logger.Info(evt.Summary,
		zap.String("type", evt.EventType),
		zap.String("category", evt.Category),
		zap.String("actor", evt.Actor),
		zap.Strings("entities", entities))
	return nil
}
