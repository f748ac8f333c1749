package semantic

import (
	"fmt"

	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// ConceptDTO is the wire form of both concept kinds
type ConceptDTO struct {
	ID          Identity           `json:"id"`
	Name        string             `json:"name" validate:"required"`
	Description string             `json:"description,omitempty"`
	SourceURI   string             `json:"sourceUri,omitempty"`
	Properties  []RelationProperty `json:"properties,omitempty"`
}

// EntityTypeDTO references its concept and syntax node by identity
type EntityTypeDTO struct {
	ID          Identity `json:"id"`
	ConceptID   Identity `json:"conceptId"`
	NodeID      Identity `json:"nodeId"`
	Label       string   `json:"label,omitempty"`
	Description string   `json:"description,omitempty"`
}

// RelationDTO references its concept and endpoints by identity
type RelationDTO struct {
	ID          Identity `json:"id"`
	ConceptID   Identity `json:"conceptId"`
	FromID      Identity `json:"fromId"`
	ToID        Identity `json:"toId"`
	Description string   `json:"description,omitempty"`
}

// ModelDTO is the wire form of a model
type ModelDTO struct {
	ID          Identity        `json:"id"`
	EntityTypes []EntityTypeDTO `json:"entityTypes"`
	Relations   []RelationDTO   `json:"relations"`
}

func EntityConceptToDTO(c *EntityConcept) ConceptDTO {
	return ConceptDTO{ID: c.id, Name: c.name, Description: c.description, SourceURI: c.sourceURI}
}

func RelationConceptToDTO(c *RelationConcept) ConceptDTO {
	return ConceptDTO{ID: c.id, Name: c.name, Description: c.description, SourceURI: c.sourceURI, Properties: c.Properties()}
}

func (d ConceptDTO) EntityConcept() *EntityConcept {
	return NewEntityConcept(d.Name, d.Description, d.SourceURI, WithIdentity(d.ID))
}

func (d ConceptDTO) RelationConcept() *RelationConcept {
	return NewRelationConcept(d.Name, d.Description, d.SourceURI, d.Properties, WithIdentity(d.ID))
}

// ModelToDTO flattens a model
func ModelToDTO(m *Model) ModelDTO {
	dto := ModelDTO{
		ID:          m.id,
		EntityTypes: make([]EntityTypeDTO, 0, len(m.entityTypes)),
		Relations:   make([]RelationDTO, 0, len(m.relations)),
	}
	for _, e := range m.entityTypes {
		dto.EntityTypes = append(dto.EntityTypes, EntityTypeDTO{
			ID: e.id, ConceptID: e.concept.id, NodeID: e.nodeID, Label: e.label, Description: e.description,
		})
	}
	for _, r := range m.relations {
		dto.Relations = append(dto.Relations, RelationDTO{
			ID: r.id, ConceptID: r.concept.id, FromID: r.from.id, ToID: r.to.id, Description: r.description,
		})
	}
	return dto
}

// ConceptLookup resolves the concepts a model refers to
type ConceptLookup interface {
	EntityConcept(id Identity) (*EntityConcept, bool)
	RelationConcept(id Identity) (*RelationConcept, bool)
}

// ModelFromDTO rebuilds a model, resolving concepts through lookup.
func ModelFromDTO(dto ModelDTO, lookup ConceptLookup) (*Model, error) {
	m := NewModel(WithIdentity(dto.ID))
	for _, e := range dto.EntityTypes {
		concept, ok := lookup.EntityConcept(e.ConceptID)
		if !ok {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("unknown entity concept %s", e.ConceptID))
		}
		et, err := NewEntityType(concept, e.NodeID, WithIdentity(e.ID), WithLabel(e.Label), WithDescription(e.Description))
		if err != nil {
			return nil, err
		}
		if err := m.AddEntityType(et); err != nil {
			return nil, err
		}
	}
	for _, r := range dto.Relations {
		concept, ok := lookup.RelationConcept(r.ConceptID)
		if !ok {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("unknown relation concept %s", r.ConceptID))
		}
		from, okFrom := m.EntityType(r.FromID)
		to, okTo := m.EntityType(r.ToID)
		if !okFrom || !okTo {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("relation %s references a missing entity type", r.ID))
		}
		if _, err := m.Relate(concept, from, to, WithIdentity(r.ID), WithDescription(r.Description)); err != nil {
			return nil, err
		}
	}
	return m, nil
}
