package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmdt-buw/plasma-sub002/domain/core/aggregates"
	"github.com/tmdt-buw/plasma-sub002/domain/core/valueobjects"
	"github.com/tmdt-buw/plasma-sub002/domain/operations"
	"github.com/tmdt-buw/plasma-sub002/domain/semantic"
	"github.com/tmdt-buw/plasma-sub002/domain/syntax"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

type fixture struct {
	registry *operations.Registry
	schema   *aggregates.Schema
	root     *syntax.Object
	person   *semantic.EntityConcept
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	registry := operations.NewRegistry(nil)
	require.NoError(t, Register(registry))

	root, err := syntax.InferJSON([]byte(`{"date":"2021-03-04","flag":"t","name":"Ada","count":"1"}`))
	require.NoError(t, err)
	schema, err := aggregates.NewSchema("ds-1", root)
	require.NoError(t, err)

	person := semantic.NewEntityConcept("Person", "A human being", "http://schema.org/Person")
	schema.AddEntityConcept(person)

	return &fixture{registry: registry, schema: schema, root: root.(*syntax.Object), person: person}
}

func (f *fixture) id(t *testing.T, field string) valueobjects.Identity {
	t.Helper()
	n, ok := f.root.Get(field)
	require.True(t, ok)
	return n.ID()
}

func param(op string, children ...*operations.ParameterDefinition) *operations.ParameterDefinition {
	return operations.NewComplex(op, "", "", children...)
}

func node(id valueobjects.Identity) *operations.ParameterDefinition {
	return operations.NewParameter(operations.SyntaxNodeID, ParamNode, "", "", 1, 1).WithValues(id.String())
}

func primitive(t *testing.T, s *aggregates.Schema, id valueobjects.Identity) *syntax.Primitive {
	t.Helper()
	p, err := operations.PrimitiveAt(s, id)
	require.NoError(t, err)
	return p
}

func TestRegisterAll(t *testing.T) {
	registry := operations.NewRegistry(nil)
	require.NoError(t, Register(registry))
	require.NoError(t, Register(operations.NewRegistry(nil)))

	names := make([]string, 0)
	for _, op := range registry.Operations() {
		names = append(names, op.Name())
	}
	assert.Equal(t, []string{"CleanseValue", "ModifyComposite", "RemoveEntityType", "SetDataType", "SetEntityType", "SplitPrimitive"}, names)

	err := Register(registry)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestSetDataType(t *testing.T) {
	f := newFixture(t)
	id := f.id(t, "count")

	next, err := f.registry.Invoke(f.schema, NameSetDataType, param(NameSetDataType,
		node(id),
		operations.NewParameter(operations.DataType, ParamDataType, "", "", 1, 1).WithValues("Number"),
	))
	require.NoError(t, err)

	assert.Equal(t, syntax.DataTypeNumber, primitive(t, next, id).DataType())
	assert.Equal(t, syntax.DataTypeUnknown, primitive(t, f.schema, id).DataType())
}

func TestSetDataTypeRejectsObjects(t *testing.T) {
	f := newFixture(t)
	_, err := f.registry.Invoke(f.schema, NameSetDataType, param(NameSetDataType,
		node(f.root.ID()),
		operations.NewParameter(operations.DataType, ParamDataType, "", "", 1, 1).WithValues("Number"),
	))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsParameterParsing(err))
}

func TestCleanseValue(t *testing.T) {
	f := newFixture(t)
	id := f.id(t, "date")

	next, err := f.registry.Invoke(f.schema, NameCleanseValue, param(NameCleanseValue,
		node(id),
		operations.NewParameter(operations.Pattern, ParamPattern, "", "", 1, 1).WithValues("-"),
	))
	require.NoError(t, err)

	p := primitive(t, next, id)
	assert.Equal(t, "-", p.CleansingPattern())
	assert.Equal(t, []string{"20210304"}, p.Examples())
}

func TestCleanseValueEmptyPattern(t *testing.T) {
	f := newFixture(t)
	_, err := f.registry.Invoke(f.schema, NameCleanseValue, param(NameCleanseValue,
		node(f.id(t, "date")),
		operations.NewParameter(operations.Pattern, ParamPattern, "", "", 1, 1).WithValues(""),
	))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsParameterParsing(err))
}

func TestSplitPrimitive(t *testing.T) {
	tests := []struct {
		name       string
		patterns   []string
		limit      []string
		wantTokens [][]string
	}{
		{
			name:       "all patterns",
			patterns:   []string{"-", "-"},
			wantTokens: [][]string{{"2021"}, {"03"}, {"04"}},
		},
		{
			name:       "limited",
			patterns:   []string{"-", "-"},
			limit:      []string{"1"},
			wantTokens: [][]string{{"2021"}, {"03-04"}},
		},
		{
			name:       "zero limit applies all",
			patterns:   []string{"-", "-"},
			limit:      []string{"0"},
			wantTokens: [][]string{{"2021"}, {"03"}, {"04"}},
		},
		{
			name:       "pattern without match takes the rest",
			patterns:   []string{"/", "-"},
			wantTokens: [][]string{{"2021-03-04"}, {""}, {""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.id(t, "date")

			next, err := f.registry.Invoke(f.schema, NameSplitPrimitive, param(NameSplitPrimitive,
				node(id),
				operations.NewParameter(operations.Pattern, ParamPattern, "", "", 1, operations.Unbounded).WithValues(tt.patterns...),
				operations.NewParameter(operations.Integer, ParamLimit, "", "", 0, 1).WithValues(tt.limit...),
			))
			require.NoError(t, err)

			n, ok := next.FindNode(id)
			require.True(t, ok)
			comp, ok := n.(*syntax.Composite)
			require.True(t, ok, "got %s", n.Kind())
			assert.Equal(t, "date", comp.Label())
			assert.Len(t, comp.Patterns(), len(tt.wantTokens)-1)

			components := comp.Components()
			require.Len(t, components, len(tt.wantTokens))
			for i, want := range tt.wantTokens {
				assert.Equal(t, want, components[i].Examples())
			}

			assert.Equal(t, syntax.KindPrimitive, primitive(t, f.schema, id).Kind())
		})
	}
}

func TestSplitPrimitiveCardinality(t *testing.T) {
	f := newFixture(t)
	_, err := f.registry.Invoke(f.schema, NameSplitPrimitive, param(NameSplitPrimitive,
		node(f.id(t, "date")),
		operations.NewParameter(operations.Pattern, ParamPattern, "", "", 1, operations.Unbounded).WithValues("-"),
		operations.NewParameter(operations.Integer, ParamLimit, "", "", 0, 1).WithValues("1", "2"),
	))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsParameterParsing(err))
	assert.Equal(t, "Parameter values of `Limit` did contain more than 1 elements: 2.", pkgerrors.GetAppError(err).Message)
}

func TestSplitComponentsHaveNoHandles(t *testing.T) {
	f := newFixture(t)
	id := f.id(t, "date")
	next, err := f.registry.Invoke(f.schema, NameSplitPrimitive, param(NameSplitPrimitive,
		node(id),
		operations.NewParameter(operations.Pattern, ParamPattern, "", "", 1, operations.Unbounded).WithValues("-"),
	))
	require.NoError(t, err)

	before := NewSetDataType().Handles(f.schema)
	after := NewSetDataType().Handles(next)
	assert.Len(t, before, 4)
	assert.Len(t, after, 3)
}

func patterns(values ...string) *operations.ParameterDefinition {
	return operations.NewParameter(operations.Pattern, ParamPattern, "", "", 1, operations.Unbounded).WithValues(values...)
}

func splitDate(t *testing.T, f *fixture, exprs ...string) (*aggregates.Schema, *syntax.Composite) {
	t.Helper()
	id := f.id(t, "date")
	next, err := f.registry.Invoke(f.schema, NameSplitPrimitive, param(NameSplitPrimitive, node(id), patterns(exprs...)))
	require.NoError(t, err)
	n, ok := next.FindNode(id)
	require.True(t, ok)
	comp, ok := n.(*syntax.Composite)
	require.True(t, ok)
	return next, comp
}

func TestModifyComposite(t *testing.T) {
	f := newFixture(t)
	parted, comp := splitDate(t, f, "-")
	assert.Equal(t, []string{"2021-03-04"}, comp.Source())
	before := comp.Components()

	handles := NewModifyComposite().Handles(parted)
	require.Len(t, handles, 1)
	assert.Equal(t, comp.ID().String(), handles[0].NodeID)
	prefilled, ok := handles[0].Parameter.Child(ParamPattern)
	require.True(t, ok)
	assert.Equal(t, []string{"-"}, prefilled.Values)
	assert.Empty(t, NewModifyComposite().Handles(f.schema))

	year, err := semantic.NewEntityType(f.person, before[0].ID())
	require.NoError(t, err)
	require.NoError(t, parted.Model().AddEntityType(year))

	resplit, err := f.registry.Invoke(parted, NameModifyComposite, param(NameModifyComposite, node(comp.ID()), patterns("-", "-")))
	require.NoError(t, err)
	n, ok := resplit.FindNode(comp.ID())
	require.True(t, ok)
	wider := n.(*syntax.Composite)

	assert.Equal(t, []string{"-", "-"}, wider.Patterns())
	assert.Equal(t, []string{"2021-03-04"}, wider.Source())
	components := wider.Components()
	require.Len(t, components, 3)
	for i, want := range [][]string{{"2021"}, {"03"}, {"04"}} {
		assert.Equal(t, want, components[i].Examples())
	}
	assert.Equal(t, before[0].ID(), components[0].ID())
	assert.Equal(t, before[1].ID(), components[1].ID())
	assert.Len(t, resplit.Model().EntityTypesFor(before[0].ID()), 1)

	assert.Len(t, comp.Components(), 2, "the invoked snapshot is left untouched")
}

func TestModifyCompositeDropsBindingsOfRemovedComponents(t *testing.T) {
	f := newFixture(t)
	parted, comp := splitDate(t, f, "-", "-")
	last := comp.Components()[2]
	day, err := semantic.NewEntityType(f.person, last.ID())
	require.NoError(t, err)
	require.NoError(t, parted.Model().AddEntityType(day))

	narrowed, err := f.registry.Invoke(parted, NameModifyComposite, param(NameModifyComposite, node(comp.ID()), patterns("/")))
	require.NoError(t, err)

	n, ok := narrowed.FindNode(comp.ID())
	require.True(t, ok)
	components := n.(*syntax.Composite).Components()
	require.Len(t, components, 2)
	assert.Equal(t, []string{"2021-03-04"}, components[0].Examples())
	_, ok = narrowed.FindNode(last.ID())
	assert.False(t, ok)
	assert.Empty(t, narrowed.Model().EntityTypesFor(last.ID()))
}

func TestModifyCompositeErrors(t *testing.T) {
	f := newFixture(t)
	parted, comp := splitDate(t, f, "-")

	tests := []struct {
		name    string
		schema  *aggregates.Schema
		param   *operations.ParameterDefinition
		errType pkgerrors.ErrorType
	}{
		{"primitive target", f.schema, param(NameModifyComposite, node(f.id(t, "name")), patterns("-")), pkgerrors.ErrorTypeParameterParsing},
		{"missing patterns", parted, param(NameModifyComposite, node(comp.ID()), patterns()), pkgerrors.ErrorTypeParameterParsing},
		{"unknown node", parted, param(NameModifyComposite, node(valueobjects.RandomIdentity()), patterns("-")), pkgerrors.ErrorTypeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.registry.Invoke(tt.schema, NameModifyComposite, tt.param)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsType(err, tt.errType), err.Error())
		})
	}
}

func TestSetEntityType(t *testing.T) {
	tests := []struct {
		field string
		want  syntax.DataType
	}{
		{"flag", syntax.DataTypeBoolean},
		{"count", syntax.DataTypeNumber},
		{"name", syntax.DataTypeString},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f := newFixture(t)
			id := f.id(t, tt.field)

			next, err := f.registry.Invoke(f.schema, NameSetEntityType, param(NameSetEntityType,
				node(id),
				operations.NewParameter(operations.EntityTypeID, ParamEntityConcept, "", "", 1, 1).WithValues(f.person.ID().String()),
			))
			require.NoError(t, err)

			types := next.Model().EntityTypesFor(id)
			require.Len(t, types, 1)
			assert.Same(t, f.person, types[0].Concept())
			assert.Equal(t, tt.want, primitive(t, next, id).DataType())
			assert.Empty(t, f.schema.Model().EntityTypes())
		})
	}
}

func TestSetEntityTypeErrors(t *testing.T) {
	f := newFixture(t)
	id := f.id(t, "name")
	connect := func(s *aggregates.Schema, concept valueobjects.Identity) (*aggregates.Schema, error) {
		return f.registry.Invoke(s, NameSetEntityType, param(NameSetEntityType,
			node(id),
			operations.NewParameter(operations.EntityTypeID, ParamEntityConcept, "", "", 1, 1).WithValues(concept.String()),
		))
	}

	_, err := connect(f.schema, valueobjects.RandomIdentity())
	assert.True(t, pkgerrors.IsNotFound(err))

	next, err := connect(f.schema, f.person.ID())
	require.NoError(t, err)
	_, err = connect(next, f.person.ID())
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestRemoveEntityType(t *testing.T) {
	f := newFixture(t)
	nameID, countID := f.id(t, "name"), f.id(t, "count")
	knows := semantic.NewRelationConcept("knows", "", "", nil)
	f.schema.AddRelationConcept(knows)

	a, err := semantic.NewEntityType(f.person, nameID)
	require.NoError(t, err)
	b, err := semantic.NewEntityType(f.person, countID)
	require.NoError(t, err)
	require.NoError(t, f.schema.Model().AddEntityType(a))
	require.NoError(t, f.schema.Model().AddEntityType(b))
	_, err = f.schema.Model().Relate(knows, a, b)
	require.NoError(t, err)

	handles := NewRemoveEntityType().Handles(f.schema)
	assert.Len(t, handles, 2)

	next, err := f.registry.Invoke(f.schema, NameRemoveEntityType, param(NameRemoveEntityType, node(nameID)))
	require.NoError(t, err)

	assert.Len(t, next.Model().EntityTypes(), 1)
	assert.Empty(t, next.Model().Relations())
	assert.Len(t, f.schema.Model().Relations(), 1)

	_, err = f.registry.Invoke(next, NameRemoveEntityType, param(NameRemoveEntityType, node(nameID)))
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestRemoveEntityTypeRejectsInconsistentRemoval(t *testing.T) {
	f := newFixture(t)
	nameID := f.id(t, "name")
	clash, err := semantic.NewEntityType(f.person, nameID, semantic.WithIdentity(f.root.ID()))
	require.NoError(t, err)
	require.NoError(t, f.schema.Model().AddEntityType(clash))

	_, err = f.registry.Invoke(f.schema, NameRemoveEntityType, param(NameRemoveEntityType, node(nameID)))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInvalidState(err))
	assert.NotNil(t, f.schema.Syntax())
	assert.Len(t, f.schema.Model().EntityTypesFor(nameID), 1)
}

func TestHomogenize(t *testing.T) {
	tests := []struct {
		name     string
		examples []string
		want     syntax.DataType
	}{
		{"booleans", []string{"t", "false", "F"}, syntax.DataTypeBoolean},
		{"numbers", []string{"1.5", "2", "-3"}, syntax.DataTypeNumber},
		{"zero one tie", []string{"0", "1"}, syntax.DataTypeNumber},
		{"mostly boolean", []string{"t", "f", "1"}, syntax.DataTypeBoolean},
		{"mixed", []string{"1", "yes"}, syntax.DataTypeString},
		{"empty", nil, syntax.DataTypeBinary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, homogenize(tt.examples, syntax.DataTypeBinary))
		})
	}
}
