package messaging

import (
	"context"

	j "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/domain/events"
)

// LogPublisher writes domain events to the log. It is the default when no
// event bus is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	detail, err := j.Marshal(event)
	if err != nil {
		return err
	}
	p.logger.Info("Domain event",
		zap.String("type", event.GetEventType()),
		zap.String("aggregate_id", event.GetAggregateID()),
		zap.Time("timestamp", event.GetTimestamp()),
		zap.ByteString("detail", detail),
	)
	return nil
}

func (p *LogPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
