package queries

import (
	"context"

	"github.com/tmdt-buw/plasma-sub002/application/queries/bus"
	"github.com/tmdt-buw/plasma-sub002/application/services"
	"github.com/tmdt-buw/plasma-sub002/domain/core/aggregates"
	"github.com/tmdt-buw/plasma-sub002/domain/operations"
	"github.com/tmdt-buw/plasma-sub002/domain/syntax"
	"github.com/tmdt-buw/plasma-sub002/domain/versioning"
	"github.com/tmdt-buw/plasma-sub002/pkg/validation"
)

type GetSchemaQuery struct {
	DataSourceID string `validate:"required"`
}

func (q GetSchemaQuery) Validate() error { return validation.Struct(q) }

type GetFaultsQuery struct {
	DataSourceID string `validate:"required"`
}

func (q GetFaultsQuery) Validate() error { return validation.Struct(q) }

type GetStatusQuery struct {
	DataSourceID string `validate:"required"`
}

func (q GetStatusQuery) Validate() error { return validation.Struct(q) }

type ListDataSourcesQuery struct{}

func (q ListDataSourcesQuery) Validate() error { return nil }

type GetModelQuery struct {
	SessionID string `validate:"required,uuid"`
}

func (q GetModelQuery) Validate() error { return validation.Struct(q) }

type GetHandlesQuery struct {
	SessionID string `validate:"required,uuid"`
}

func (q GetHandlesQuery) Validate() error { return validation.Struct(q) }

type ListOperationsQuery struct{}

func (q ListOperationsQuery) Validate() error { return nil }

// ListRevisionsQuery lists archived revisions. Exactly one of the ids is set.
type ListRevisionsQuery struct {
	DataSourceID string `validate:"required_without=SessionID,excluded_with=SessionID"`
	SessionID    string `validate:"omitempty,uuid"`
}

func (q ListRevisionsQuery) Validate() error { return validation.Struct(q) }

// OperationInfo describes one registered operation
type OperationInfo struct {
	Name        string                  `json:"name"`
	Label       string                  `json:"label"`
	Description string                  `json:"description"`
	Parameter   operations.ParameterDTO `json:"parameter"`
}

// Register binds every query to its service call
func Register(b *bus.QueryBus, analysis *services.AnalysisService, modeling *services.ModelingService) error {
	handlers := []struct {
		query   bus.Query
		handler bus.QueryHandler
	}{
		{GetSchemaQuery{}, bus.Handler(func(ctx context.Context, q GetSchemaQuery) (*aggregates.Schema, error) {
			return analysis.CurrentSchema(ctx, q.DataSourceID)
		})},
		{GetFaultsQuery{}, bus.Handler(func(ctx context.Context, q GetFaultsQuery) ([]syntax.Fault, error) {
			return analysis.Faults(ctx, q.DataSourceID)
		})},
		{GetStatusQuery{}, bus.Handler(func(ctx context.Context, q GetStatusQuery) (*services.DataSourceStatus, error) {
			return analysis.Status(ctx, q.DataSourceID)
		})},
		{ListDataSourcesQuery{}, bus.Handler(func(ctx context.Context, q ListDataSourcesQuery) ([]string, error) {
			return analysis.DataSources(ctx)
		})},
		{GetModelQuery{}, bus.Handler(func(ctx context.Context, q GetModelQuery) (*aggregates.CombinedModel, error) {
			return modeling.Model(ctx, q.SessionID)
		})},
		{GetHandlesQuery{}, bus.Handler(func(ctx context.Context, q GetHandlesQuery) ([]operations.Handle, error) {
			return modeling.Handles(ctx, q.SessionID)
		})},
		{ListOperationsQuery{}, bus.Handler(func(ctx context.Context, q ListOperationsQuery) ([]OperationInfo, error) {
			ops := modeling.Registry().Operations()
			out := make([]OperationInfo, 0, len(ops))
			for _, op := range ops {
				out = append(out, OperationInfo{
					Name:        op.Name(),
					Label:       op.Label(),
					Description: op.Description(),
					Parameter:   op.Prototype().ToDTO(),
				})
			}
			return out, nil
		})},
		{ListRevisionsQuery{}, bus.Handler(func(ctx context.Context, q ListRevisionsQuery) ([]versioning.Revision, error) {
			if q.SessionID != "" {
				return modeling.Revisions(ctx, q.SessionID)
			}
			return analysis.Revisions(ctx, q.DataSourceID)
		})},
	}

	for _, h := range handlers {
		if err := b.Register(h.query, h.handler); err != nil {
			return err
		}
	}
	return nil
}
