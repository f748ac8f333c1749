package operations

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/domain/core/aggregates"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// ApplyFunc applies a resolved operation to a schema copy
type ApplyFunc func(op Operation, schema *aggregates.Schema, args *Arguments) error

// Middleware wraps the apply step of Invoke
type Middleware func(next ApplyFunc) ApplyFunc

// Registry maps operation names to operations
type Registry struct {
	operations map[string]Operation
	types      *TypeRegistry
	middleware []Middleware
	mu         sync.RWMutex
}

// NewRegistry creates an empty registry resolving parameter types with types
func NewRegistry(types *TypeRegistry) *Registry {
	if types == nil {
		types = NewTypeRegistry()
	}
	return &Registry{
		operations: make(map[string]Operation),
		types:      types,
	}
}

// Register adds an operation. Registering the same instance twice is a no-op;
// a different operation under a taken name is rejected.
func (r *Registry) Register(op Operation) error {
	if err := op.Prototype().Check(); err != nil {
		return pkgerrors.Wrapf(err, "operation %s has an invalid prototype", op.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.operations[op.Name()]; exists {
		if existing == op {
			return nil
		}
		return pkgerrors.NewConflictError(fmt.Sprintf("operation already registered under name %s", op.Name()))
	}
	r.operations[op.Name()] = op
	return nil
}

// Use appends middleware around the apply step
func (r *Registry) Use(mw ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw...)
}

// Lookup returns the operation with the given name
func (r *Registry) Lookup(name string) (Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.operations[name]
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("operation %s", name))
	}
	return op, nil
}

// Operations returns all operations sorted by name
func (r *Registry) Operations() []Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Operation, 0, len(r.operations))
	for _, op := range r.operations {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Types returns the parameter type registry
func (r *Registry) Types() *TypeRegistry { return r.types }

// Invoke validates and parses param against the named operation's prototype
// and applies the operation to a copy of schema. schema is never modified.
func (r *Registry) Invoke(schema *aggregates.Schema, name string, param *ParameterDefinition) (*aggregates.Schema, error) {
	if schema == nil {
		return nil, pkgerrors.NewInvalidStateError("no schema to apply the operation to")
	}
	op, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if err := Validate(param, op.Prototype()); err != nil {
		return nil, err
	}
	args, err := Parse(param)
	if err != nil {
		return nil, err
	}

	next := schema.Copy()
	if err := r.chain()(op, next, args); err != nil {
		return nil, err
	}
	return next, nil
}

// InvokeDTO resolves a wire parameter tree and invokes the named operation
func (r *Registry) InvokeDTO(schema *aggregates.Schema, name string, dto ParameterDTO) (*aggregates.Schema, error) {
	param, err := r.types.FromDTO(dto)
	if err != nil {
		return nil, err
	}
	return r.Invoke(schema, name, param)
}

// Handles collects the handles of every registered operation for schema
func (r *Registry) Handles(schema *aggregates.Schema) []Handle {
	if schema == nil {
		return nil
	}
	var out []Handle
	for _, op := range r.Operations() {
		out = append(out, op.Handles(schema)...)
	}
	return out
}

func (r *Registry) chain() ApplyFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	apply := ApplyFunc(func(op Operation, schema *aggregates.Schema, args *Arguments) error {
		return op.Apply(schema, args)
	})
	for i := len(r.middleware) - 1; i >= 0; i-- {
		apply = r.middleware[i](apply)
	}
	return apply
}

// LoggingMiddleware logs every applied operation
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next ApplyFunc) ApplyFunc {
		return func(op Operation, schema *aggregates.Schema, args *Arguments) error {
			start := time.Now()
			err := next(op, schema, args)
			fields := []zap.Field{
				zap.String("operation", op.Name()),
				zap.String("data_source_id", schema.DataSourceID()),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.Warn("operation failed", append(fields, zap.Error(err))...)
				return err
			}
			logger.Debug("operation applied", fields...)
			return nil
		}
	}
}
