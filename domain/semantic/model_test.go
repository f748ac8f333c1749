package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmdt-buw/plasma-sub002/domain/core/valueobjects"
)

type fixture struct {
	model    *Model
	person   *EntityConcept
	city     *EntityConcept
	livesIn  *RelationConcept
	alice    *EntityType
	berlin   *EntityType
	relation *Relation
	nodeA    Identity
	nodeB    Identity
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		model:   NewModel(),
		person:  NewEntityConcept("Person", "A human", "http://schema.org/Person"),
		city:    NewEntityConcept("City", "", "http://schema.org/City"),
		livesIn: NewRelationConcept("livesIn", "", "", []RelationProperty{Irreflexive, Asymmetric, Irreflexive}),
		nodeA:   valueobjects.IdentityFrom("node-a"),
		nodeB:   valueobjects.IdentityFrom("node-b"),
	}
	var err error
	f.alice, err = NewEntityType(f.person, f.nodeA)
	require.NoError(t, err)
	f.berlin, err = NewEntityType(f.city, f.nodeB, WithLabel("Berlin"))
	require.NoError(t, err)
	require.NoError(t, f.model.AddEntityType(f.alice))
	require.NoError(t, f.model.AddEntityType(f.berlin))
	f.relation, err = f.model.Relate(f.livesIn, f.alice, f.berlin)
	require.NoError(t, err)
	return f
}

func TestRelationConceptProperties(t *testing.T) {
	c := NewRelationConcept("r", "", "", []RelationProperty{Transitive, Symmetric, Transitive})
	assert.Equal(t, []RelationProperty{Symmetric, Transitive}, c.Properties())
	assert.True(t, c.Has(Symmetric))
	assert.False(t, c.Has(Reflexive))
}

func TestEntityTypeDefaults(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "Person", f.alice.Label())
	assert.Equal(t, "Berlin", f.berlin.Label())

	_, err := NewEntityType(nil, f.nodeA)
	assert.Error(t, err)
	_, err = NewEntityType(f.person, Identity{})
	assert.Error(t, err)
}

func TestRelateChecksMembership(t *testing.T) {
	f := newFixture(t)
	outsider, err := NewEntityType(f.person, f.nodeA)
	require.NoError(t, err)

	_, err = f.model.Relate(f.livesIn, f.alice, outsider)
	assert.Error(t, err)

	// same identity, different instance
	impostor := *f.berlin
	_, err = f.model.Relate(f.livesIn, f.alice, &impostor)
	assert.Error(t, err)

	assert.Error(t, f.model.AddEntityType(f.alice))
}

func TestRemoveRelationConceptCascades(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.model.Remove(f.livesIn.ID()))

	assert.Empty(t, f.model.Relations())
	assert.Len(t, f.model.EntityTypes(), 2)
}

func TestRemoveEntityTypeCascades(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.model.Remove(f.berlin.ID()))

	assert.Empty(t, f.model.Relations())
	require.Len(t, f.model.EntityTypes(), 1)
	assert.Same(t, f.alice, f.model.EntityTypes()[0])
}

func TestRemoveEntityConceptCascadesThroughEntityTypes(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.model.Remove(f.city.ID()))

	assert.Empty(t, f.model.Relations())
	assert.Len(t, f.model.EntityTypes(), 1)
}

func TestRemoveBoundNodeInvalidatesEntityType(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.model.Remove(f.nodeA))

	assert.Empty(t, f.model.EntityTypesFor(f.nodeA))
	assert.Empty(t, f.model.Relations())
}

func TestCopySharesConceptsOnly(t *testing.T) {
	f := newFixture(t)
	cp := f.model.Copy()

	require.Len(t, cp.EntityTypes(), 2)
	alice := cp.EntityTypes()[0]
	assert.Equal(t, f.alice.ID(), alice.ID())
	assert.NotSame(t, f.alice, alice)
	assert.Same(t, f.person, alice.Concept())

	rel := cp.Relations()[0]
	assert.Same(t, alice, rel.From(), "relation endpoints point into the copied model")
	assert.Same(t, f.livesIn, rel.Concept())

	require.True(t, cp.Remove(alice.ID()))
	assert.Len(t, f.model.Relations(), 1)
}

func TestReplaceAndFind(t *testing.T) {
	f := newFixture(t)
	capital, err := NewEntityType(f.city, f.nodeB, WithIdentity(f.berlin.ID()), WithLabel("Capital"))
	require.NoError(t, err)

	assert.Same(t, f.model, f.model.Replace(f.berlin.ID(), capital))
	found, ok := f.model.Find(f.berlin.ID())
	require.True(t, ok)
	assert.Same(t, capital, found)
	assert.Same(t, capital, f.relation.To())

	// mismatched kinds are ignored
	f.model.Replace(f.alice.ID(), f.person)
	assert.Same(t, f.alice, f.model.EntityTypes()[0])

	_, ok = f.model.Find(valueobjects.RandomIdentity())
	assert.False(t, ok)
}

func TestExecuteVisitsConceptsOnce(t *testing.T) {
	f := newFixture(t)
	count := map[Identity]int{}
	f.model.Execute(func(e Element) { count[e.ID()]++ }, make(map[Identity]struct{}))

	// model, 2 entity types, 2 entity concepts, relation, relation concept
	assert.Len(t, count, 7)
	for _, c := range count {
		assert.Equal(t, 1, c)
	}
}

type lookup struct {
	entities  map[Identity]*EntityConcept
	relations map[Identity]*RelationConcept
}

func (l lookup) EntityConcept(id Identity) (*EntityConcept, bool) {
	c, ok := l.entities[id]
	return c, ok
}

func (l lookup) RelationConcept(id Identity) (*RelationConcept, bool) {
	c, ok := l.relations[id]
	return c, ok
}

func TestModelDTORoundTrip(t *testing.T) {
	f := newFixture(t)
	dto := ModelToDTO(f.model)
	l := lookup{
		entities:  map[Identity]*EntityConcept{f.person.ID(): f.person, f.city.ID(): f.city},
		relations: map[Identity]*RelationConcept{f.livesIn.ID(): f.livesIn},
	}

	m, err := ModelFromDTO(dto, l)
	require.NoError(t, err)
	assert.Equal(t, dto, ModelToDTO(m))

	delete(l.relations, f.livesIn.ID())
	_, err = ModelFromDTO(dto, l)
	assert.Error(t, err)
}
