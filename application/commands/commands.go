package commands

import (
	"context"

	"github.com/tmdt-buw/plasma-sub002/application/commands/bus"
	"github.com/tmdt-buw/plasma-sub002/application/services"
	"github.com/tmdt-buw/plasma-sub002/domain/core/aggregates"
	"github.com/tmdt-buw/plasma-sub002/domain/operations"
	"github.com/tmdt-buw/plasma-sub002/domain/semantic"
	"github.com/tmdt-buw/plasma-sub002/pkg/validation"
)

// IngestSamplesCommand feeds raw JSON samples into a data source aggregation
type IngestSamplesCommand struct {
	DataSourceID string   `validate:"required,max=256"`
	Samples      [][]byte `validate:"required,min=1"`
}

func (c IngestSamplesCommand) Validate() error { return validation.Struct(c) }

// FinalizeSchemaCommand pushes the aggregation of a data source as a schema
type FinalizeSchemaCommand struct {
	DataSourceID string `validate:"required"`
	Force        bool
}

func (c FinalizeSchemaCommand) Validate() error { return validation.Struct(c) }

// UndoSchemaCommand moves a data source history back
type UndoSchemaCommand struct {
	DataSourceID string `validate:"required"`
}

func (c UndoSchemaCommand) Validate() error { return validation.Struct(c) }

// RedoSchemaCommand moves a data source history forward
type RedoSchemaCommand struct {
	DataSourceID string `validate:"required"`
}

func (c RedoSchemaCommand) Validate() error { return validation.Struct(c) }

// ResetAggregationCommand discards the running aggregation of a data source
type ResetAggregationCommand struct {
	DataSourceID string `validate:"required"`
}

func (c ResetAggregationCommand) Validate() error { return validation.Struct(c) }

// StartSessionCommand opens a modeling session
type StartSessionCommand struct {
	DataSourceID string `json:"dataSourceId" validate:"required"`
}

func (c StartSessionCommand) Validate() error { return validation.Struct(c) }

// ApplyOperationCommand invokes an operation in a session
type ApplyOperationCommand struct {
	SessionID string                  `validate:"required,uuid"`
	Name      string                  `json:"name" validate:"required"`
	Parameter operations.ParameterDTO `json:"parameter"`
}

func (c ApplyOperationCommand) Validate() error { return validation.Struct(c) }

// UndoModelCommand moves a session history back
type UndoModelCommand struct {
	SessionID string `validate:"required,uuid"`
}

func (c UndoModelCommand) Validate() error { return validation.Struct(c) }

// RedoModelCommand moves a session history forward
type RedoModelCommand struct {
	SessionID string `validate:"required,uuid"`
}

func (c RedoModelCommand) Validate() error { return validation.Struct(c) }

// AddConceptCommand adds an entity or relation concept to a session
type AddConceptCommand struct {
	SessionID string               `validate:"required,uuid"`
	Kind      string               `json:"kind" validate:"required,oneof=entity relation"`
	Concept   services.ConceptSpec `json:"concept"`
}

func (c AddConceptCommand) Validate() error { return validation.Struct(c) }

// RelateCommand connects two entity types of a session
type RelateCommand struct {
	SessionID string `validate:"required,uuid"`
	ConceptID string `json:"conceptId" validate:"required,uuid"`
	FromID    string `json:"fromId" validate:"required,uuid"`
	ToID      string `json:"toId" validate:"required,uuid"`
}

func (c RelateCommand) Validate() error { return validation.Struct(c) }

// CloseSessionCommand discards a session
type CloseSessionCommand struct {
	SessionID string `validate:"required,uuid"`
}

func (c CloseSessionCommand) Validate() error { return validation.Struct(c) }

// Register binds every command to its service call
func Register(b *bus.CommandBus, analysis *services.AnalysisService, modeling *services.ModelingService) error {
	handlers := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{IngestSamplesCommand{}, bus.Handler(func(ctx context.Context, c IngestSamplesCommand) (*services.IngestResult, error) {
			return analysis.IngestSamples(ctx, c.DataSourceID, c.Samples)
		})},
		{FinalizeSchemaCommand{}, bus.Handler(func(ctx context.Context, c FinalizeSchemaCommand) (*aggregates.Schema, error) {
			return analysis.Finalize(ctx, c.DataSourceID, c.Force)
		})},
		{UndoSchemaCommand{}, bus.Handler(func(ctx context.Context, c UndoSchemaCommand) (*aggregates.Schema, error) {
			return analysis.Undo(ctx, c.DataSourceID)
		})},
		{RedoSchemaCommand{}, bus.Handler(func(ctx context.Context, c RedoSchemaCommand) (*aggregates.Schema, error) {
			return analysis.Redo(ctx, c.DataSourceID)
		})},
		{ResetAggregationCommand{}, bus.Handler(func(ctx context.Context, c ResetAggregationCommand) (struct{}, error) {
			return struct{}{}, analysis.Reset(ctx, c.DataSourceID)
		})},
		{StartSessionCommand{}, bus.Handler(func(ctx context.Context, c StartSessionCommand) (*aggregates.CombinedModel, error) {
			return modeling.StartSession(ctx, c.DataSourceID)
		})},
		{ApplyOperationCommand{}, bus.Handler(func(ctx context.Context, c ApplyOperationCommand) (*aggregates.CombinedModel, error) {
			return modeling.Apply(ctx, c.SessionID, c.Name, c.Parameter)
		})},
		{UndoModelCommand{}, bus.Handler(func(ctx context.Context, c UndoModelCommand) (*aggregates.CombinedModel, error) {
			return modeling.Undo(ctx, c.SessionID)
		})},
		{RedoModelCommand{}, bus.Handler(func(ctx context.Context, c RedoModelCommand) (*aggregates.CombinedModel, error) {
			return modeling.Redo(ctx, c.SessionID)
		})},
		{AddConceptCommand{}, bus.Handler(func(ctx context.Context, c AddConceptCommand) (semantic.ConceptDTO, error) {
			if c.Kind == "relation" {
				concept, err := modeling.AddRelationConcept(ctx, c.SessionID, c.Concept)
				if err != nil {
					return semantic.ConceptDTO{}, err
				}
				return semantic.RelationConceptToDTO(concept), nil
			}
			concept, err := modeling.AddEntityConcept(ctx, c.SessionID, c.Concept)
			if err != nil {
				return semantic.ConceptDTO{}, err
			}
			return semantic.EntityConceptToDTO(concept), nil
		})},
		{RelateCommand{}, bus.Handler(func(ctx context.Context, c RelateCommand) (*aggregates.CombinedModel, error) {
			return modeling.Relate(ctx, c.SessionID, c.ConceptID, c.FromID, c.ToID)
		})},
		{CloseSessionCommand{}, bus.Handler(func(ctx context.Context, c CloseSessionCommand) (struct{}, error) {
			return struct{}{}, modeling.CloseSession(ctx, c.SessionID)
		})},
	}

	for _, h := range handlers {
		if err := b.Register(h.cmd, h.handler); err != nil {
			return err
		}
	}
	return nil
}
