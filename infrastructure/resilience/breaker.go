// Package resilience guards remote adapters with circuit breakers.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/application/ports"
	"github.com/tmdt-buw/plasma-sub002/domain/events"
	"github.com/tmdt-buw/plasma-sub002/domain/versioning"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// Config holds circuit breaker settings
type Config struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultConfig returns the settings used for remote adapters
func DefaultConfig() Config {
	return Config{
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// NewBreaker creates a breaker that trips on the failure ratio. Errors that
// describe the request rather than the remote side do not count as failures.
func NewBreaker(name string, cfg Config, logger *zap.Logger) *gobreaker.CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				pkgerrors.IsNotFound(err) ||
				pkgerrors.IsConflict(err) ||
				errors.Is(err, context.Canceled)
		},
	})
}

func execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	result, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, pkgerrors.NewUnavailableError(cb.Name()).WithCause(err)
	}
	if err != nil {
		return zero, err
	}
	typed, _ := result.(T)
	return typed, nil
}

// Archive guards a snapshot archive
type Archive struct {
	next ports.SnapshotArchive
	cb   *gobreaker.CircuitBreaker
}

func NewArchive(next ports.SnapshotArchive, cb *gobreaker.CircuitBreaker) *Archive {
	return &Archive{next: next, cb: cb}
}

func (a *Archive) Save(ctx context.Context, rev versioning.Revision, payload []byte) error {
	_, err := execute(a.cb, func() (struct{}, error) {
		return struct{}{}, a.next.Save(ctx, rev, payload)
	})
	return err
}

func (a *Archive) Load(ctx context.Context, streamID string) ([]versioning.Revision, error) {
	return execute(a.cb, func() ([]versioning.Revision, error) {
		return a.next.Load(ctx, streamID)
	})
}

func (a *Archive) Payload(ctx context.Context, streamID string, number int) ([]byte, error) {
	return execute(a.cb, func() ([]byte, error) {
		return a.next.Payload(ctx, streamID, number)
	})
}

// Publisher guards an event publisher
type Publisher struct {
	next ports.EventPublisher
	cb   *gobreaker.CircuitBreaker
}

func NewPublisher(next ports.EventPublisher, cb *gobreaker.CircuitBreaker) *Publisher {
	return &Publisher{next: next, cb: cb}
}

func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	_, err := execute(p.cb, func() (struct{}, error) {
		return struct{}{}, p.next.Publish(ctx, event)
	})
	return err
}

func (p *Publisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	_, err := execute(p.cb, func() (struct{}, error) {
		return struct{}{}, p.next.PublishBatch(ctx, batch)
	})
	return err
}
