package aggregates

import (
	"fmt"
	"sort"

	"github.com/tmdt-buw/plasma-sub002/domain/core/traversal"
	"github.com/tmdt-buw/plasma-sub002/domain/core/valueobjects"
	"github.com/tmdt-buw/plasma-sub002/domain/semantic"
	"github.com/tmdt-buw/plasma-sub002/domain/syntax"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// Identity of aggregate elements
type Identity = valueobjects.Identity

// Schema is the aggregate root pairing a syntax tree with its semantic model.
// A schema is never changed once it was pushed onto a version stack;
// operations work on a Copy.
type Schema struct {
	id               Identity
	dataSourceID     string
	syntax           syntax.Node
	model            *semantic.Model
	entityConcepts   map[Identity]*semantic.EntityConcept
	relationConcepts map[Identity]*semantic.RelationConcept
	finalized        bool
}

// NewSchema creates a schema over root with an empty semantic model
func NewSchema(dataSourceID string, root syntax.Node) (*Schema, error) {
	if dataSourceID == "" {
		return nil, pkgerrors.NewValidationError("data source id cannot be empty")
	}
	if root == nil {
		return nil, pkgerrors.NewValidationError("schema needs a syntax root")
	}
	return &Schema{
		id:               valueobjects.RandomIdentity(),
		dataSourceID:     dataSourceID,
		syntax:           root,
		model:            semantic.NewModel(),
		entityConcepts:   make(map[Identity]*semantic.EntityConcept),
		relationConcepts: make(map[Identity]*semantic.RelationConcept),
	}, nil
}

// ReconstructSchema rebuilds a schema from stored parts
func ReconstructSchema(
	id Identity,
	dataSourceID string,
	root syntax.Node,
	model *semantic.Model,
	entityConcepts []*semantic.EntityConcept,
	relationConcepts []*semantic.RelationConcept,
	finalized bool,
) *Schema {
	s := &Schema{
		id:               id,
		dataSourceID:     dataSourceID,
		syntax:           root,
		model:            model,
		entityConcepts:   make(map[Identity]*semantic.EntityConcept, len(entityConcepts)),
		relationConcepts: make(map[Identity]*semantic.RelationConcept, len(relationConcepts)),
		finalized:        finalized,
	}
	for _, c := range entityConcepts {
		s.entityConcepts[c.ID()] = c
	}
	for _, c := range relationConcepts {
		s.relationConcepts[c.ID()] = c
	}
	return s
}

func (s *Schema) ID() Identity { return s.id }
func (s *Schema) DataSourceID() string { return s.dataSourceID }
func (s *Schema) Syntax() syntax.Node { return s.syntax }
func (s *Schema) Model() *semantic.Model { return s.model }
func (s *Schema) IsFinalized() bool { return s.finalized }

// Finalize predicts missing primitive data types and marks the schema final.
func (s *Schema) Finalize() {
	syntax.Finalize(s.syntax)
	s.finalized = true
}

// AddEntityConcept caches a concept for use by entity types
func (s *Schema) AddEntityConcept(c *semantic.EntityConcept) {
	s.entityConcepts[c.ID()] = c
}

// AddRelationConcept caches a concept for use by relations
func (s *Schema) AddRelationConcept(c *semantic.RelationConcept) {
	s.relationConcepts[c.ID()] = c
}

func (s *Schema) EntityConcept(id Identity) (*semantic.EntityConcept, bool) {
	c, ok := s.entityConcepts[id]
	return c, ok
}

func (s *Schema) RelationConcept(id Identity) (*semantic.RelationConcept, bool) {
	c, ok := s.relationConcepts[id]
	return c, ok
}

// EntityConcepts returns the cached concepts ordered by name
func (s *Schema) EntityConcepts() []*semantic.EntityConcept {
	out := make([]*semantic.EntityConcept, 0, len(s.entityConcepts))
	for _, c := range s.entityConcepts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name() == out[j].Name() {
			return out[i].ID().String() < out[j].ID().String()
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}

// RelationConcepts returns the cached concepts ordered by name
func (s *Schema) RelationConcepts() []*semantic.RelationConcept {
	out := make([]*semantic.RelationConcept, 0, len(s.relationConcepts))
	for _, c := range s.relationConcepts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name() == out[j].Name() {
			return out[i].ID().String() < out[j].ID().String()
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}

// Copy deep copies the syntax tree and the semantic model. Concepts are
// shared.
func (s *Schema) Copy() *Schema {
	return s.CopyWith(traversal.NewMemo())
}

func (s *Schema) CopyWith(memo traversal.Memo) *Schema {
	return traversal.CopyOnce(memo, s.id, func() *Schema {
		cp := &Schema{
			id:               s.id,
			dataSourceID:     s.dataSourceID,
			entityConcepts:   make(map[Identity]*semantic.EntityConcept, len(s.entityConcepts)),
			relationConcepts: make(map[Identity]*semantic.RelationConcept, len(s.relationConcepts)),
			finalized:        s.finalized,
		}
		for id, c := range s.entityConcepts {
			cp.entityConcepts[id] = c
		}
		for id, c := range s.relationConcepts {
			cp.relationConcepts[id] = c
		}
		return cp
	}, func(cp *Schema) {
		if s.syntax != nil {
			cp.syntax = s.syntax.CopyWith(memo)
		}
		if s.model != nil {
			if m, ok := s.model.CopyWith(memo).(*semantic.Model); ok {
				cp.model = m
			}
		}
	})
}

// FindNode looks up a syntax node
func (s *Schema) FindNode(id Identity) (syntax.Node, bool) {
	if s.syntax == nil {
		return nil, false
	}
	return s.syntax.Find(id)
}

// FindElement looks up a semantic element
func (s *Schema) FindElement(id Identity) (semantic.Element, bool) {
	if s.model == nil {
		return nil, false
	}
	return s.model.Find(id)
}

// Replace swaps the element with the given identity for r. Syntax nodes are
// replaced in the syntax tree, semantic elements in the model and concept
// caches. Other values are rejected.
func (s *Schema) Replace(id Identity, r any) error {
	switch v := r.(type) {
	case syntax.Node:
		if s.syntax == nil {
			break
		}
		if _, exists := s.syntax.Find(id); !exists {
			break
		}
		s.syntax = s.syntax.Replace(id, v)
		if v == nil {
			break
		}
		if _, placed := s.syntax.Find(v.ID()); !placed {
			return pkgerrors.NewValidationError(fmt.Sprintf("a %s node cannot take the place of %s", v.Kind(), id))
		}
	case semantic.Element:
		if m, ok := s.model.Replace(id, v).(*semantic.Model); ok {
			s.model = m
		}
		switch c := v.(type) {
		case *semantic.EntityConcept:
			if _, cached := s.entityConcepts[id]; cached {
				delete(s.entityConcepts, id)
				s.entityConcepts[c.ID()] = c
			}
		case *semantic.RelationConcept:
			if _, cached := s.relationConcepts[id]; cached {
				delete(s.relationConcepts, id)
				s.relationConcepts[c.ID()] = c
			}
		}
	default:
		return pkgerrors.NewValidationError(fmt.Sprintf("cannot replace with %T", r))
	}
	return nil
}

// Execute walks the syntax tree and then the semantic model.
func (s *Schema) Execute(visitNode func(syntax.Node), visitElement func(semantic.Element)) {
	visited := traversal.NewVisited()
	visited.Add(s.id)
	if s.syntax != nil && visitNode != nil {
		s.syntax.Execute(visitNode, visited)
	}
	if s.model != nil && visitElement != nil {
		s.model.Execute(visitElement, visited)
	}
}

// RemoveWith removes matching elements from both graphs and the concept
// caches. Entity types whose syntax node vanished are queued for removal.
func (s *Schema) RemoveWith(id Identity, visited traversal.Visited, queue *traversal.Queue) bool {
	if !visited.Add(s.id) {
		return true
	}
	consistent := true

	if s.syntax != nil {
		dropped, ok := traversal.RemoveChild(id, visited, queue, s.syntax, traversal.Owned|traversal.Component)
		if dropped {
			s.syntax = nil
		}
		consistent = consistent && ok
	}
	if s.model != nil {
		dropped, ok := traversal.RemoveChild(id, visited, queue, s.model, traversal.Owned|traversal.Component)
		if dropped {
			s.model = nil
		}
		consistent = consistent && ok
	}
	for cid, c := range s.entityConcepts {
		if dropped, _ := traversal.RemoveChild(id, visited, queue, c, traversal.Owned); dropped {
			delete(s.entityConcepts, cid)
		}
	}
	for cid, c := range s.relationConcepts {
		if dropped, _ := traversal.RemoveChild(id, visited, queue, c, traversal.Owned); dropped {
			delete(s.relationConcepts, cid)
		}
	}

	if s.syntax != nil && s.model != nil {
		for _, e := range s.model.EntityTypes() {
			if _, ok := s.syntax.Find(e.NodeID()); !ok {
				queue.Push(e.NodeID())
			}
		}
	}
	return consistent
}

// Remove removes the element with the given identity from the schema and
// cascades. It returns false when the schema lost its syntax root or model.
func (s *Schema) Remove(id Identity) bool {
	return traversal.Remove(s, id)
}

// Faults collects advisory diagnostics over both graphs.
func (s *Schema) Faults() []syntax.Fault {
	faults := syntax.EvaluateConstraints(s.syntax)
	if faults == nil {
		faults = make([]syntax.Fault, 0)
	}
	if s.model == nil {
		return faults
	}
	for _, e := range s.model.EntityTypes() {
		if _, ok := s.FindNode(e.NodeID()); !ok {
			faults = append(faults, syntax.Fault{
				NodeID:  e.ID(),
				Message: fmt.Sprintf("entity type %q is bound to missing node %s", e.Label(), e.NodeID()),
			})
		}
	}
	return faults
}
