package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Query represents a read-only query
type Query interface {
	Validate() error
}

// QueryHandler handles a specific query type
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// QueryBus dispatches queries to their handlers
type QueryBus struct {
	handlers   map[reflect.Type]QueryHandler
	middleware []Middleware
	mu         sync.RWMutex
}

// NewQueryBus creates a new query bus
func NewQueryBus(middleware ...Middleware) *QueryBus {
	return &QueryBus{
		handlers:   make(map[reflect.Type]QueryHandler),
		middleware: middleware,
	}
}

// Register registers a handler for a query type
func (b *QueryBus) Register(queryType Query, handler QueryHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(queryType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("query %s: handler already registered", queryName(queryType))
	}
	b.handlers[t] = chain(handler, b.middleware)
	return nil
}

// chain applies middleware so that the first one listed runs outermost
func chain(h QueryHandler, middleware []Middleware) QueryHandler {
	for i := range middleware {
		h = middleware[len(middleware)-1-i](h)
	}
	return h
}

// queryName is the bare type name of q, dereferencing pointers
func queryName(q Query) string {
	t := reflect.TypeOf(q)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// Ask dispatches a query to its handler and returns the result
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(query)]
	b.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("query %s: no handler registered", queryName(query))
	}
	return handler.Handle(ctx, query)
}

// Middleware defines query middleware
type Middleware func(next QueryHandler) QueryHandler

// QueryHandlerFunc is an adapter to allow functions to be used as handlers
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

// Handle implements QueryHandler
func (f QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return f(ctx, query)
}

// Handler adapts a typed function to a QueryHandler
func Handler[Q Query, R any](fn func(ctx context.Context, query Q) (R, error)) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		typed, ok := query.(Q)
		if !ok {
			return nil, fmt.Errorf("unexpected query type %T", query)
		}
		return fn(ctx, typed)
	})
}

// TracingMiddleware wraps every query in a span
func TracingMiddleware(tracerName string) Middleware {
	tracer := otel.Tracer(tracerName)
	return func(next QueryHandler) QueryHandler {
		return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
			name := queryName(query)
			ctx, span := tracer.Start(ctx, "query."+name, trace.WithAttributes(attribute.String("query.type", name)))
			defer span.End()

			result, err := next.Handle(ctx, query)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return result, err
		})
	}
}

// Metrics records query outcomes
type Metrics interface {
	QueryHandled(queryType string, err error)
}

// MetricsMiddleware counts handled queries
func MetricsMiddleware(metrics Metrics) Middleware {
	return func(next QueryHandler) QueryHandler {
		return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
			result, err := next.Handle(ctx, query)
			metrics.QueryHandled(queryName(query), err)
			return result, err
		})
	}
}
