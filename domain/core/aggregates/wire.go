package aggregates

import (
	"time"

	j "github.com/goccy/go-json"

	"github.com/tmdt-buw/plasma-sub002/domain/semantic"
	"github.com/tmdt-buw/plasma-sub002/domain/syntax"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// SchemaDTO is the wire form of a schema
type SchemaDTO struct {
	ID               Identity              `json:"id"`
	DataSourceID     string                `json:"dataSourceId"`
	Finalized        bool                  `json:"finalized"`
	Syntax           *syntax.WireNode      `json:"syntax"`
	Semantic         semantic.ModelDTO     `json:"semantic"`
	EntityConcepts   []semantic.ConceptDTO `json:"entityConcepts"`
	RelationConcepts []semantic.ConceptDTO `json:"relationConcepts"`
}

// CombinedModelDTO is the wire form of a session revision
type CombinedModelDTO struct {
	SessionID    Identity  `json:"sessionId"`
	DataSourceID string    `json:"dataSourceId"`
	CreatedAt    time.Time `json:"createdAt"`
	Schema       SchemaDTO `json:"schema"`
}

// ToDTO flattens the schema
func (s *Schema) ToDTO() SchemaDTO {
	dto := SchemaDTO{
		ID:               s.id,
		DataSourceID:     s.dataSourceID,
		Finalized:        s.finalized,
		Syntax:           syntax.ToWire(s.syntax),
		EntityConcepts:   make([]semantic.ConceptDTO, 0, len(s.entityConcepts)),
		RelationConcepts: make([]semantic.ConceptDTO, 0, len(s.relationConcepts)),
	}
	if s.model != nil {
		dto.Semantic = semantic.ModelToDTO(s.model)
	}
	for _, c := range s.EntityConcepts() {
		dto.EntityConcepts = append(dto.EntityConcepts, semantic.EntityConceptToDTO(c))
	}
	for _, c := range s.RelationConcepts() {
		dto.RelationConcepts = append(dto.RelationConcepts, semantic.RelationConceptToDTO(c))
	}
	return dto
}

// SchemaFromDTO rebuilds a schema
func SchemaFromDTO(dto SchemaDTO) (*Schema, error) {
	root, err := syntax.FromWire(dto.Syntax)
	if err != nil {
		return nil, err
	}
	entity := make([]*semantic.EntityConcept, 0, len(dto.EntityConcepts))
	for _, c := range dto.EntityConcepts {
		entity = append(entity, c.EntityConcept())
	}
	relation := make([]*semantic.RelationConcept, 0, len(dto.RelationConcepts))
	for _, c := range dto.RelationConcepts {
		relation = append(relation, c.RelationConcept())
	}

	s := ReconstructSchema(dto.ID, dto.DataSourceID, root, nil, entity, relation, dto.Finalized)
	if dto.Semantic.ID.IsZero() {
		s.model = semantic.NewModel()
		return s, nil
	}
	model, err := semantic.ModelFromDTO(dto.Semantic, s)
	if err != nil {
		return nil, err
	}
	s.model = model
	return s, nil
}

// ToDTO flattens the session revision
func (m *CombinedModel) ToDTO() CombinedModelDTO {
	return CombinedModelDTO{
		SessionID:    m.sessionID,
		DataSourceID: m.dataSourceID,
		CreatedAt:    m.createdAt,
		Schema:       m.schema.ToDTO(),
	}
}

// CombinedModelFromDTO rebuilds a session revision
func CombinedModelFromDTO(dto CombinedModelDTO) (*CombinedModel, error) {
	schema, err := SchemaFromDTO(dto.Schema)
	if err != nil {
		return nil, err
	}
	return &CombinedModel{
		sessionID:    dto.SessionID,
		dataSourceID: dto.DataSourceID,
		schema:       schema,
		createdAt:    dto.CreatedAt,
	}, nil
}

// MarshalSchema encodes a schema as JSON
func MarshalSchema(s *Schema) ([]byte, error) {
	return j.Marshal(s.ToDTO())
}

// UnmarshalSchema decodes a schema from JSON
func UnmarshalSchema(data []byte) (*Schema, error) {
	var dto SchemaDTO
	if err := j.Unmarshal(data, &dto); err != nil {
		return nil, pkgerrors.NewValidationError("malformed schema JSON").WithCause(err)
	}
	return SchemaFromDTO(dto)
}

// MarshalCombinedModel encodes a session revision as JSON
func MarshalCombinedModel(m *CombinedModel) ([]byte, error) {
	return j.Marshal(m.ToDTO())
}

// UnmarshalCombinedModel decodes a session revision from JSON
func UnmarshalCombinedModel(data []byte) (*CombinedModel, error) {
	var dto CombinedModelDTO
	if err := j.Unmarshal(data, &dto); err != nil {
		return nil, pkgerrors.NewValidationError("malformed model JSON").WithCause(err)
	}
	return CombinedModelFromDTO(dto)
}
