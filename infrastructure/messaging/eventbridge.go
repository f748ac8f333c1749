// Package messaging publishes domain events.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/smithy-go"
	j "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/domain/events"
)

// EventBridge accepts at most this many entries per PutEvents call
const maxBatchSize = 10

// EventBridgeClient is the subset of the EventBridge API the publisher uses
type EventBridgeClient interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgePublisher sends domain events to an EventBridge bus
type EventBridgePublisher struct {
	client       EventBridgeClient
	eventBusName string
	source       string
	maxRetries   int
	backoff      time.Duration
	logger       *zap.Logger
}

// NewEventBridgePublisher creates a new EventBridge publisher
func NewEventBridgePublisher(client EventBridgeClient, eventBusName, source string, logger *zap.Logger) *EventBridgePublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBridgePublisher{
		client:       client,
		eventBusName: eventBusName,
		source:       source,
		maxRetries:   3,
		backoff:      100 * time.Millisecond,
		logger:       logger,
	}
}

// Publish sends a single event
func (p *EventBridgePublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends events in chunks of ten
func (p *EventBridgePublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for i := 0; i < len(batch); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(batch) {
			end = len(batch)
		}
		if err := p.publishWithRetry(ctx, batch[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *EventBridgePublisher) publishWithRetry(ctx context.Context, batch []events.DomainEvent) error {
	backoff := p.backoff
	var err error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		if err = p.publishChunk(ctx, batch); err == nil || !isRetryable(err) {
			return err
		}
		if attempt == p.maxRetries {
			break
		}
		p.logger.Warn("Retrying event publication",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("failed to publish events after %d attempts: %w", p.maxRetries, err)
}

func (p *EventBridgePublisher) publishChunk(ctx context.Context, batch []events.DomainEvent) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(batch))
	sent := make([]events.DomainEvent, 0, len(batch))
	for _, event := range batch {
		detail, err := j.Marshal(event)
		if err != nil {
			p.logger.Error("Failed to marshal event",
				zap.String("type", event.GetEventType()),
				zap.Error(err),
			)
			continue
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(p.source),
			DetailType:   aws.String(event.GetEventType()),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.GetTimestamp()),
			Resources:    []string{"plasma:" + event.GetAggregateID()},
		})
		sent = append(sent, event)
	}
	if len(entries) == 0 {
		return nil
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to publish events to EventBridge: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil && i < len(sent) {
				p.logger.Error("Failed to publish event",
					zap.String("type", sent[i].GetEventType()),
					zap.String("error_code", aws.ToString(entry.ErrorCode)),
					zap.String("error_message", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("%d events failed to publish", result.FailedEntryCount)
	}

	p.logger.Debug("Events published to EventBridge",
		zap.Int("count", len(entries)),
		zap.String("event_bus", p.eventBusName),
	)
	return nil
}

func isRetryable(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.ErrorCode() {
	case "ThrottlingException", "InternalException", "ServiceUnavailable":
		return true
	}
	return ae.ErrorFault() == smithy.FaultServer
}
