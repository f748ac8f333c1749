package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/application/ports"
	"github.com/tmdt-buw/plasma-sub002/domain/core/aggregates"
	"github.com/tmdt-buw/plasma-sub002/domain/core/valueobjects"
	"github.com/tmdt-buw/plasma-sub002/domain/events"
	"github.com/tmdt-buw/plasma-sub002/domain/operations"
	"github.com/tmdt-buw/plasma-sub002/domain/semantic"
	"github.com/tmdt-buw/plasma-sub002/domain/versioning"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// ConceptSpec describes a concept to add to a session
type ConceptSpec struct {
	Name        string                      `json:"name" validate:"required,max=256"`
	Description string                      `json:"description" validate:"max=2048"`
	SourceURI   string                      `json:"sourceUri" validate:"omitempty,url"`
	Properties  []semantic.RelationProperty `json:"properties,omitempty"`
}

// ModelingService runs modeling sessions: each session applies operations to
// its own copy of a data source schema and keeps an undoable history.
type ModelingService struct {
	dataSources ports.DataSourceRepository
	sessions    ports.SessionRepository
	registry    *operations.Registry
	recorder    recorder
	logger      *zap.Logger
}

// NewModelingService creates a new modeling service
func NewModelingService(
	dataSources ports.DataSourceRepository,
	sessions ports.SessionRepository,
	registry *operations.Registry,
	archive ports.SnapshotArchive,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	logger *zap.Logger,
) *ModelingService {
	rec := newRecorder(archive, publisher, metrics, logger)
	return &ModelingService{
		dataSources: dataSources,
		sessions:    sessions,
		registry:    registry,
		recorder:    rec,
		logger:      rec.logger,
	}
}

// Registry returns the operation registry sessions invoke against
func (s *ModelingService) Registry() *operations.Registry { return s.registry }

// StartSession opens a session over the current schema of a data source
func (s *ModelingService) StartSession(ctx context.Context, dataSourceID string) (*aggregates.CombinedModel, error) {
	ds, err := s.dataSources.GetByID(ctx, dataSourceID)
	if err != nil {
		return nil, err
	}
	ds.Lock()
	schema, err := ds.History().Peek()
	ds.Unlock()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "data source has no finalized schema")
	}

	model, err := aggregates.NewCombinedModel(valueobjects.RandomIdentity(), schema)
	if err != nil {
		return nil, err
	}
	session := aggregates.NewSession(model, s.logger)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	session.Lock()
	defer session.Unlock()
	s.record(ctx, session, model, "session started")
	s.recorder.publish(ctx, events.NewSessionStarted(model.SessionID().String(), dataSourceID, time.Now().UTC()))

	s.logger.Info("Modeling session started",
		zap.String("session_id", model.SessionID().String()),
		zap.String("data_source_id", dataSourceID),
	)
	return model, nil
}

func (s *ModelingService) session(ctx context.Context, id string) (*aggregates.Session, error) {
	sid, err := valueobjects.ParseIdentity(id)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid session id").WithCause(err)
	}
	return s.sessions.GetByID(ctx, sid)
}

// Model returns the current revision of a session
func (s *ModelingService) Model(ctx context.Context, sessionID string) (*aggregates.CombinedModel, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Lock()
	defer session.Unlock()
	return session.History().Peek()
}

// Apply invokes a named operation on the current revision and pushes the
// result. A failing operation leaves the session unchanged.
func (s *ModelingService) Apply(ctx context.Context, sessionID, name string, param operations.ParameterDTO) (*aggregates.CombinedModel, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Lock()
	defer session.Unlock()

	current, err := session.History().Peek()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	schema, err := s.registry.InvokeDTO(current.Schema(), name, param)
	s.recorder.metrics.OperationInvoked(name, err, time.Since(start))
	if err != nil {
		return nil, err
	}

	next := current.WithSchema(schema)
	revision := s.push(ctx, session, next, fmt.Sprintf("applied %s", name))
	s.recorder.publish(ctx, events.NewOperationApplied(sessionID, name, revision, time.Now().UTC()))
	return next, nil
}

// AddEntityConcept pushes a revision that knows an additional entity concept
func (s *ModelingService) AddEntityConcept(ctx context.Context, sessionID string, spec ConceptSpec) (*semantic.EntityConcept, error) {
	concept := semantic.NewEntityConcept(spec.Name, spec.Description, spec.SourceURI)
	err := s.extend(ctx, sessionID, func(schema *aggregates.Schema) {
		schema.AddEntityConcept(concept)
	}, "added entity concept "+spec.Name)
	if err != nil {
		return nil, err
	}
	return concept, nil
}

// AddRelationConcept pushes a revision that knows an additional relation concept
func (s *ModelingService) AddRelationConcept(ctx context.Context, sessionID string, spec ConceptSpec) (*semantic.RelationConcept, error) {
	concept := semantic.NewRelationConcept(spec.Name, spec.Description, spec.SourceURI, spec.Properties)
	err := s.extend(ctx, sessionID, func(schema *aggregates.Schema) {
		schema.AddRelationConcept(concept)
	}, "added relation concept "+spec.Name)
	if err != nil {
		return nil, err
	}
	return concept, nil
}

// Relate connects two entity types of the current revision
func (s *ModelingService) Relate(ctx context.Context, sessionID, conceptID, fromID, toID string) (*aggregates.CombinedModel, error) {
	ids := make([]valueobjects.Identity, 3)
	for i, raw := range []string{conceptID, fromID, toID} {
		id, err := valueobjects.ParseIdentity(raw)
		if err != nil {
			return nil, pkgerrors.NewValidationError("invalid identity").WithCause(err)
		}
		ids[i] = id
	}

	var related *aggregates.CombinedModel
	err := s.extendChecked(ctx, sessionID, func(schema *aggregates.Schema) error {
		concept, ok := schema.RelationConcept(ids[0])
		if !ok {
			return pkgerrors.NewNotFoundError(fmt.Sprintf("relation concept %s", ids[0]))
		}
		model := schema.Model()
		if model == nil {
			return pkgerrors.NewInvalidStateError("schema has no semantic model")
		}
		from, ok := model.EntityType(ids[1])
		if !ok {
			return pkgerrors.NewNotFoundError(fmt.Sprintf("entity type %s", ids[1]))
		}
		to, ok := model.EntityType(ids[2])
		if !ok {
			return pkgerrors.NewNotFoundError(fmt.Sprintf("entity type %s", ids[2]))
		}
		_, err := model.Relate(concept, from, to)
		return err
	}, "related entity types", &related)
	if err != nil {
		return nil, err
	}
	return related, nil
}

func (s *ModelingService) extend(ctx context.Context, sessionID string, edit func(*aggregates.Schema), description string) error {
	return s.extendChecked(ctx, sessionID, func(schema *aggregates.Schema) error {
		edit(schema)
		return nil
	}, description, nil)
}

func (s *ModelingService) extendChecked(
	ctx context.Context,
	sessionID string,
	edit func(*aggregates.Schema) error,
	description string,
	out **aggregates.CombinedModel,
) error {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return err
	}
	session.Lock()
	defer session.Unlock()

	current, err := session.History().Peek()
	if err != nil {
		return err
	}
	schema := current.Schema().Copy()
	if err := edit(schema); err != nil {
		return err
	}
	next := current.WithSchema(schema)
	s.push(ctx, session, next, description)
	if out != nil {
		*out = next
	}
	return nil
}

// Undo moves the session history back
func (s *ModelingService) Undo(ctx context.Context, sessionID string) (*aggregates.CombinedModel, error) {
	return s.move(ctx, sessionID, events.DirectionUndo)
}

// Redo moves the session history forward
func (s *ModelingService) Redo(ctx context.Context, sessionID string) (*aggregates.CombinedModel, error) {
	return s.move(ctx, sessionID, events.DirectionRedo)
}

func (s *ModelingService) move(ctx context.Context, sessionID, direction string) (*aggregates.CombinedModel, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Lock()
	defer session.Unlock()

	history := session.History()
	var model *aggregates.CombinedModel
	if direction == events.DirectionUndo {
		model, err = history.Pop()
	} else {
		model, err = history.Restore()
	}
	if err != nil {
		return nil, err
	}
	session.Touch()
	s.recorder.publish(ctx, events.NewModelReverted(sessionID, direction, history.Cursor(), time.Now().UTC()))
	return model, nil
}

// Handles lists the operations applicable to the current revision
func (s *ModelingService) Handles(ctx context.Context, sessionID string) ([]operations.Handle, error) {
	model, err := s.Model(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.registry.Handles(model.Schema()), nil
}

// Revisions lists the archived revisions of a session
func (s *ModelingService) Revisions(ctx context.Context, sessionID string) ([]versioning.Revision, error) {
	return s.recorder.revisions(ctx, versioning.KindModel, sessionID)
}

// CloseSession discards a session
func (s *ModelingService) CloseSession(ctx context.Context, sessionID string) error {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.sessions.Delete(ctx, session.ID())
}

// push adds model to the session history and archives it. The session lock
// must be held.
func (s *ModelingService) push(ctx context.Context, session *aggregates.Session, model *aggregates.CombinedModel, description string) int {
	session.History().Push(model)
	session.Touch()
	return s.record(ctx, session, model, description)
}

func (s *ModelingService) record(ctx context.Context, session *aggregates.Session, model *aggregates.CombinedModel, description string) int {
	revision := session.NextRevision()
	id := session.ID().String()
	s.recorder.metrics.StackDepth(versioning.KindModel, id, session.History().Len())

	payload, err := aggregates.MarshalCombinedModel(model)
	if err != nil {
		s.logger.Error("Failed to encode combined model", zap.String("session_id", id), zap.Error(err))
		s.recorder.metrics.ArchiveFailed(versioning.KindModel)
		return revision
	}
	s.recorder.archiveSchema(ctx, versioning.KindModel, id, revision, model.Schema(), payload, description)
	return revision
}
