package semantic

import (
	"fmt"

	"github.com/tmdt-buw/plasma-sub002/domain/core/traversal"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// EntityType binds an entity concept to a node of the syntax tree.
// Losing either the concept or the bound node invalidates it.
type EntityType struct {
	id          Identity
	concept     *EntityConcept
	nodeID      Identity
	label       string
	description string
}

// NewEntityType creates an entity type bound to nodeID
func NewEntityType(concept *EntityConcept, nodeID Identity, opts ...Option) (*EntityType, error) {
	if concept == nil {
		return nil, pkgerrors.NewValidationError("entity type needs a concept")
	}
	if nodeID.IsZero() {
		return nil, pkgerrors.NewValidationError("entity type needs a syntax node")
	}
	o := resolve(opts)
	label := o.label
	if label == "" {
		label = concept.Name()
	}
	return &EntityType{id: o.id, concept: concept, nodeID: nodeID, label: label, description: o.description}, nil
}

func (e *EntityType) ID() Identity { return e.id }
func (e *EntityType) Concept() *EntityConcept { return e.concept }
func (e *EntityType) NodeID() Identity { return e.nodeID }
func (e *EntityType) Label() string { return e.label }
func (e *EntityType) Description() string { return e.description }

func (e *EntityType) CopyWith(memo traversal.Memo) Element {
	return e.copyWith(memo)
}

func (e *EntityType) copyWith(memo traversal.Memo) *EntityType {
	return traversal.CopyOnce(memo, e.id, func() *EntityType {
		cp := *e
		return &cp
	}, nil)
}

func (e *EntityType) Replace(id Identity, r Element) Element {
	if e.id == id {
		return r
	}
	if c, ok := e.concept.Replace(id, r).(*EntityConcept); ok {
		e.concept = c
	}
	return e
}

func (e *EntityType) Find(id Identity) (Element, bool) {
	if e.id == id {
		return e, true
	}
	return e.concept.Find(id)
}

func (e *EntityType) Execute(visit func(Element), visited traversal.Visited) {
	if !visited.Add(e.id) {
		return
	}
	visit(e)
	e.concept.Execute(visit, visited)
}

func (e *EntityType) RemoveWith(id Identity, visited traversal.Visited, queue *traversal.Queue) bool {
	if !visited.Add(e.id) {
		return true
	}
	if e.nodeID == id {
		return false
	}
	_, consistent := traversal.RemoveChild(id, visited, queue, e.concept, traversal.Component)
	return consistent
}

func (e *EntityType) sealed() {}

// Relation connects two entity types of the same model.
type Relation struct {
	id          Identity
	concept     *RelationConcept
	from        *EntityType
	to          *EntityType
	description string
}

func (r *Relation) ID() Identity { return r.id }
func (r *Relation) Concept() *RelationConcept { return r.concept }
func (r *Relation) From() *EntityType { return r.from }
func (r *Relation) To() *EntityType { return r.to }
func (r *Relation) Description() string { return r.description }

func (r *Relation) CopyWith(memo traversal.Memo) Element {
	return r.copyWith(memo)
}

func (r *Relation) copyWith(memo traversal.Memo) *Relation {
	return traversal.CopyOnce(memo, r.id, func() *Relation {
		return &Relation{id: r.id, concept: r.concept, description: r.description}
	}, func(cp *Relation) {
		cp.from = r.from.copyWith(memo)
		cp.to = r.to.copyWith(memo)
	})
}

func (r *Relation) Replace(id Identity, repl Element) Element {
	if r.id == id {
		return repl
	}
	if c, ok := r.concept.Replace(id, repl).(*RelationConcept); ok {
		r.concept = c
	}
	if e, ok := r.from.Replace(id, repl).(*EntityType); ok {
		r.from = e
	}
	if e, ok := r.to.Replace(id, repl).(*EntityType); ok {
		r.to = e
	}
	return r
}

func (r *Relation) Find(id Identity) (Element, bool) {
	if r.id == id {
		return r, true
	}
	for _, child := range []Element{r.concept, r.from, r.to} {
		if found, ok := child.Find(id); ok {
			return found, true
		}
	}
	return nil, false
}

func (r *Relation) Execute(visit func(Element), visited traversal.Visited) {
	if !visited.Add(r.id) {
		return
	}
	visit(r)
	r.concept.Execute(visit, visited)
	r.from.Execute(visit, visited)
	r.to.Execute(visit, visited)
}

// RemoveWith invalidates the relation when its concept or either endpoint
// goes away.
func (r *Relation) RemoveWith(id Identity, visited traversal.Visited, queue *traversal.Queue) bool {
	if !visited.Add(r.id) {
		return true
	}
	consistent := true
	if _, ok := traversal.RemoveChild(id, visited, queue, r.concept, traversal.Component); !ok {
		consistent = false
	}
	if _, ok := traversal.RemoveChild(id, visited, queue, r.from, traversal.Component); !ok {
		consistent = false
	}
	if _, ok := traversal.RemoveChild(id, visited, queue, r.to, traversal.Component); !ok {
		consistent = false
	}
	return consistent
}

func (r *Relation) sealed() {}

// Model is the semantic graph of one schema.
type Model struct {
	id          Identity
	entityTypes []*EntityType
	relations   []*Relation
}

// NewModel creates an empty model
func NewModel(opts ...Option) *Model {
	o := resolve(opts)
	return &Model{id: o.id}
}

func (m *Model) ID() Identity { return m.id }

// EntityTypes returns the entity types in insertion order
func (m *Model) EntityTypes() []*EntityType {
	out := make([]*EntityType, len(m.entityTypes))
	copy(out, m.entityTypes)
	return out
}

// Relations returns the relations in insertion order
func (m *Model) Relations() []*Relation {
	out := make([]*Relation, len(m.relations))
	copy(out, m.relations)
	return out
}

// EntityType looks up an entity type by identity
func (m *Model) EntityType(id Identity) (*EntityType, bool) {
	for _, e := range m.entityTypes {
		if e.id == id {
			return e, true
		}
	}
	return nil, false
}

// EntityTypesFor returns the entity types bound to a syntax node
func (m *Model) EntityTypesFor(nodeID Identity) []*EntityType {
	var out []*EntityType
	for _, e := range m.entityTypes {
		if e.nodeID == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// AddEntityType adds e to the model
func (m *Model) AddEntityType(e *EntityType) error {
	if e == nil {
		return pkgerrors.NewValidationError("entity type cannot be nil")
	}
	if _, exists := m.EntityType(e.id); exists {
		return pkgerrors.NewConflictError(fmt.Sprintf("entity type %s already exists", e.id))
	}
	m.entityTypes = append(m.entityTypes, e)
	return nil
}

// Relate connects two entity types of this model.
func (m *Model) Relate(concept *RelationConcept, from, to *EntityType, opts ...Option) (*Relation, error) {
	if concept == nil {
		return nil, pkgerrors.NewValidationError("relation needs a concept")
	}
	if from == nil || to == nil {
		return nil, pkgerrors.NewValidationError("relation needs two endpoints")
	}
	for _, end := range []*EntityType{from, to} {
		if member, ok := m.EntityType(end.id); !ok || member != end {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("entity type %s is not part of the model", end.id))
		}
	}
	o := resolve(opts)
	r := &Relation{id: o.id, concept: concept, from: from, to: to, description: o.description}
	m.relations = append(m.relations, r)
	return r, nil
}

// RelationsOf returns the relations incident to an entity type
func (m *Model) RelationsOf(id Identity) []*Relation {
	var out []*Relation
	for _, r := range m.relations {
		if r.from.id == id || r.to.id == id {
			out = append(out, r)
		}
	}
	return out
}

func (m *Model) Copy() *Model {
	return m.copyWith(traversal.NewMemo())
}

func (m *Model) CopyWith(memo traversal.Memo) Element {
	return m.copyWith(memo)
}

func (m *Model) copyWith(memo traversal.Memo) *Model {
	return traversal.CopyOnce(memo, m.id, func() *Model {
		return &Model{
			id:          m.id,
			entityTypes: make([]*EntityType, 0, len(m.entityTypes)),
			relations:   make([]*Relation, 0, len(m.relations)),
		}
	}, func(cp *Model) {
		for _, e := range m.entityTypes {
			cp.entityTypes = append(cp.entityTypes, e.copyWith(memo))
		}
		for _, r := range m.relations {
			cp.relations = append(cp.relations, r.copyWith(memo))
		}
	})
}

// Replace swaps an element. Replacements of a different kind than the
// element they replace are ignored.
func (m *Model) Replace(id Identity, r Element) Element {
	if m.id == id {
		return r
	}
	for i, e := range m.entityTypes {
		if repl, ok := e.Replace(id, r).(*EntityType); ok {
			m.entityTypes[i] = repl
		}
	}
	for i, rel := range m.relations {
		if repl, ok := rel.Replace(id, r).(*Relation); ok {
			m.relations[i] = repl
		}
	}
	return m
}

func (m *Model) Find(id Identity) (Element, bool) {
	if m.id == id {
		return m, true
	}
	for _, e := range m.entityTypes {
		if found, ok := e.Find(id); ok {
			return found, true
		}
	}
	for _, r := range m.relations {
		if found, ok := r.Find(id); ok {
			return found, true
		}
	}
	return nil, false
}

func (m *Model) Execute(visit func(Element), visited traversal.Visited) {
	if !visited.Add(m.id) {
		return
	}
	visit(m)
	for _, e := range m.entityTypes {
		e.Execute(visit, visited)
	}
	for _, r := range m.relations {
		r.Execute(visit, visited)
	}
}

func (m *Model) RemoveWith(id Identity, visited traversal.Visited, queue *traversal.Queue) bool {
	if !visited.Add(m.id) {
		return true
	}
	m.entityTypes, _ = traversal.RemoveChildren(id, visited, queue, m.entityTypes, traversal.Owned)
	m.relations, _ = traversal.RemoveChildren(id, visited, queue, m.relations, traversal.Owned)
	return true
}

// Remove removes the element with the given identity and everything that
// depends on it.
func (m *Model) Remove(id Identity) bool {
	return traversal.Remove(m, id)
}

func (m *Model) sealed() {}
