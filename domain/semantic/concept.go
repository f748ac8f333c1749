// Package semantic holds the annotation graph laid over a syntax tree:
// ontology concepts, the entity types bound to schema nodes, and the
// relations between them.
package semantic

import (
	"sort"

	"github.com/tmdt-buw/plasma-sub002/domain/core/traversal"
	"github.com/tmdt-buw/plasma-sub002/domain/core/valueobjects"
)

// Identity is the identity of a semantic element
type Identity = valueobjects.Identity

// Element is a node of the semantic graph.
type Element interface {
	traversal.Remover

	CopyWith(memo traversal.Memo) Element
	Replace(id Identity, r Element) Element
	Find(id Identity) (Element, bool)
	Execute(visit func(Element), visited traversal.Visited)

	sealed()
}

// Option configures a new element
type Option func(*options)

type options struct {
	id          Identity
	label       string
	description string
}

// WithIdentity sets a fixed identity
func WithIdentity(id Identity) Option {
	return func(o *options) { o.id = id }
}

// WithLabel sets the label
func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// WithDescription sets the description
func WithDescription(description string) Option {
	return func(o *options) { o.description = description }
}

func resolve(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.id.IsZero() {
		o.id = valueobjects.RandomIdentity()
	}
	return o
}

// EntityConcept is an ontology class. Concepts are immutable and shared by
// reference between snapshots.
type EntityConcept struct {
	id          Identity
	name        string
	description string
	sourceURI   string
}

// NewEntityConcept creates a concept
func NewEntityConcept(name, description, sourceURI string, opts ...Option) *EntityConcept {
	o := resolve(opts)
	return &EntityConcept{id: o.id, name: name, description: description, sourceURI: sourceURI}
}

func (c *EntityConcept) ID() Identity { return c.id }
func (c *EntityConcept) Name() string { return c.name }
func (c *EntityConcept) Description() string { return c.description }
func (c *EntityConcept) SourceURI() string { return c.sourceURI }

func (c *EntityConcept) CopyWith(traversal.Memo) Element { return c }

func (c *EntityConcept) Replace(id Identity, r Element) Element {
	if c.id == id {
		return r
	}
	return c
}

func (c *EntityConcept) Find(id Identity) (Element, bool) {
	if c.id == id {
		return c, true
	}
	return nil, false
}

func (c *EntityConcept) Execute(visit func(Element), visited traversal.Visited) {
	if visited.Add(c.id) {
		visit(c)
	}
}

func (c *EntityConcept) RemoveWith(id Identity, visited traversal.Visited, _ *traversal.Queue) bool {
	visited.Add(c.id)
	return true
}

func (c *EntityConcept) sealed() {}

// RelationProperty is an algebraic property of a relation concept
type RelationProperty string

const (
	Reflexive     RelationProperty = "REFLEXIVE"
	Irreflexive   RelationProperty = "IRREFLEXIVE"
	Symmetric     RelationProperty = "SYMMETRIC"
	Antisymmetric RelationProperty = "ANTISYMMETRIC"
	Asymmetric    RelationProperty = "ASYMMETRIC"
	Transitive    RelationProperty = "TRANSITIVE"
)

// RelationConcept is an ontology property connecting two entity concepts.
type RelationConcept struct {
	id          Identity
	name        string
	description string
	sourceURI   string
	properties  []RelationProperty
}

// NewRelationConcept creates a relation concept. Properties are deduplicated.
func NewRelationConcept(name, description, sourceURI string, properties []RelationProperty, opts ...Option) *RelationConcept {
	o := resolve(opts)
	seen := make(map[RelationProperty]struct{}, len(properties))
	props := make([]RelationProperty, 0, len(properties))
	for _, p := range properties {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		props = append(props, p)
	}
	sort.Slice(props, func(i, j int) bool { return props[i] < props[j] })
	return &RelationConcept{id: o.id, name: name, description: description, sourceURI: sourceURI, properties: props}
}

func (c *RelationConcept) ID() Identity { return c.id }
func (c *RelationConcept) Name() string { return c.name }
func (c *RelationConcept) Description() string { return c.description }
func (c *RelationConcept) SourceURI() string { return c.sourceURI }

// Properties returns the sorted property set
func (c *RelationConcept) Properties() []RelationProperty {
	out := make([]RelationProperty, len(c.properties))
	copy(out, c.properties)
	return out
}

// Has reports whether the concept carries p
func (c *RelationConcept) Has(p RelationProperty) bool {
	for _, q := range c.properties {
		if q == p {
			return true
		}
	}
	return false
}

func (c *RelationConcept) CopyWith(traversal.Memo) Element { return c }

func (c *RelationConcept) Replace(id Identity, r Element) Element {
	if c.id == id {
		return r
	}
	return c
}

func (c *RelationConcept) Find(id Identity) (Element, bool) {
	if c.id == id {
		return c, true
	}
	return nil, false
}

func (c *RelationConcept) Execute(visit func(Element), visited traversal.Visited) {
	if visited.Add(c.id) {
		visit(c)
	}
}

func (c *RelationConcept) RemoveWith(id Identity, visited traversal.Visited, _ *traversal.Queue) bool {
	visited.Add(c.id)
	return true
}

func (c *RelationConcept) sealed() {}
