package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Command represents a request that changes state
type Command interface {
	Validate() error
}

// CommandHandler handles a specific command type and returns its result
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) (interface{}, error)
}

// CommandBus dispatches commands to their handlers
type CommandBus struct {
	handlers   map[reflect.Type]CommandHandler
	middleware []Middleware
	mu         sync.RWMutex
}

// NewCommandBus creates a new command bus. Middleware wraps every handler
// registered afterwards, outermost first.
func NewCommandBus(middleware ...Middleware) *CommandBus {
	return &CommandBus{
		handlers:   make(map[reflect.Type]CommandHandler),
		middleware: middleware,
	}
}

// Register registers a handler for a command type
func (b *CommandBus) Register(cmdType Command, handler CommandHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(cmdType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for command type %s", t.Name())
	}

	for i := len(b.middleware) - 1; i >= 0; i-- {
		handler = b.middleware[i](handler)
	}
	b.handlers[t] = handler
	return nil
}

// Send validates a command and dispatches it to its handler. Errors from
// validation and handlers are returned unwrapped so their kind survives.
func (b *CommandBus) Send(ctx context.Context, cmd Command) (interface{}, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(cmd)]
	b.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no handler registered for command type %T", cmd)
	}
	return handler.Handle(ctx, cmd)
}

// Middleware defines command middleware
type Middleware func(next CommandHandler) CommandHandler

// CommandHandlerFunc is an adapter to allow functions to be used as handlers
type CommandHandlerFunc func(ctx context.Context, cmd Command) (interface{}, error)

// Handle implements CommandHandler
func (f CommandHandlerFunc) Handle(ctx context.Context, cmd Command) (interface{}, error) {
	return f(ctx, cmd)
}

// Handler adapts a typed function to a CommandHandler
func Handler[C Command, R any](fn func(ctx context.Context, cmd C) (R, error)) CommandHandler {
	return CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
		typed, ok := cmd.(C)
		if !ok {
			return nil, fmt.Errorf("unexpected command type %T", cmd)
		}
		return fn(ctx, typed)
	})
}

// LoggingMiddleware logs command execution
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
			cmdType := reflect.TypeOf(cmd).Name()
			logger.Debug("Executing command", zap.String("type", cmdType))

			result, err := next.Handle(ctx, cmd)
			if err != nil {
				logger.Warn("Command failed", zap.String("type", cmdType), zap.Error(err))
			} else {
				logger.Debug("Command succeeded", zap.String("type", cmdType))
			}
			return result, err
		})
	}
}

// TracingMiddleware wraps every command in a span
func TracingMiddleware(tracerName string) Middleware {
	tracer := otel.Tracer(tracerName)
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
			cmdType := reflect.TypeOf(cmd).Name()
			ctx, span := tracer.Start(ctx, "command."+cmdType)
			defer span.End()
			span.SetAttributes(attribute.String("command.type", cmdType))

			result, err := next.Handle(ctx, cmd)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return result, err
		})
	}
}
