package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

func mustInfer(t *testing.T, doc string) Node {
	t.Helper()
	n, err := InferJSON([]byte(doc))
	require.NoError(t, err)
	require.NotNil(t, n)
	return n
}

func field(t *testing.T, n Node, name string) Node {
	t.Helper()
	obj, ok := n.(*Object)
	require.True(t, ok, "expected object, got %s", n.Kind())
	child, ok := obj.Get(name)
	require.True(t, ok, "missing field %q", name)
	return child
}

func TestMergeSameKindPrimitive(t *testing.T) {
	merged, err := Merge(mustInfer(t, `{"a":1}`), mustInfer(t, `{"a":"x"}`))
	require.NoError(t, err)

	a, ok := field(t, merged, "a").(*Primitive)
	require.True(t, ok)
	assert.Equal(t, []string{"1", "x"}, a.Examples())
	assert.Equal(t, "a", a.Label())
}

func TestMergeDifferentKindsCollide(t *testing.T) {
	tests := []struct {
		name      string
		left      string
		right     string
		wantKinds []Kind
	}{
		{"primitive and object", `{"a":1}`, `{"a":{"b":2}}`, []Kind{KindPrimitive, KindObject}},
		{"object and set", `{"a":{"b":2}}`, `{"a":[1]}`, []Kind{KindObject, KindSet}},
		{"primitive and set", `{"a":[1]}`, `{"a":true}`, []Kind{KindPrimitive, KindSet}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, err := Merge(mustInfer(t, tt.left), mustInfer(t, tt.right))
			require.NoError(t, err)

			c, ok := field(t, merged, "a").(*Collision)
			require.True(t, ok)
			assert.Equal(t, tt.wantKinds, c.Kinds())
		})
	}
}

func TestCollisionAbsorbsFurtherInput(t *testing.T) {
	first, err := Merge(mustInfer(t, `{"a":1}`), mustInfer(t, `{"a":{"b":2}}`))
	require.NoError(t, err)

	second, err := Merge(first, mustInfer(t, `{"a":[true]}`))
	require.NoError(t, err)
	c := field(t, second, "a").(*Collision)
	assert.Equal(t, []Kind{KindPrimitive, KindObject, KindSet}, c.Kinds())

	third, err := Merge(second, mustInfer(t, `{"a":7}`))
	require.NoError(t, err)
	c = field(t, third, "a").(*Collision)
	prim, ok := c.Slot(KindPrimitive)
	require.True(t, ok)
	assert.Equal(t, []string{"1", "7"}, prim.(*Primitive).Examples())
	assert.Len(t, c.Kinds(), 3)
}

func TestMergeIntoCollisionFromTheLeft(t *testing.T) {
	collided, err := Merge(mustInfer(t, `1`), mustInfer(t, `{"b":2}`))
	require.NoError(t, err)
	c := collided.(*Collision)

	merged, err := Merge(mustInfer(t, `"y"`), c)
	require.NoError(t, err)
	out, ok := merged.(*Collision)
	require.True(t, ok)
	assert.Equal(t, c.ID(), out.ID())
	prim, _ := out.Slot(KindPrimitive)
	assert.ElementsMatch(t, []string{"1", "y"}, prim.(*Primitive).Examples())
}

func TestMergeIsIdempotent(t *testing.T) {
	docs := []string{
		`{"a":1,"b":{"c":"x"},"d":[1,2,{"e":true}]}`,
		`[1,2,3,4,5,6,7,8]`,
		`"plain"`,
	}
	for _, doc := range docs {
		t.Run(doc, func(t *testing.T) {
			n := mustInfer(t, doc)
			before, err := MarshalNode(n)
			require.NoError(t, err)

			merged, err := Merge(n, n)
			require.NoError(t, err)
			after, err := MarshalNode(merged)
			require.NoError(t, err)

			assert.JSONEq(t, string(before), string(after))
		})
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	a := mustInfer(t, `{"a":1}`)
	b := mustInfer(t, `{"a":2,"b":true}`)

	merged, err := Merge(a, b)
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, field(t, a, "a").(*Primitive).Examples())
	assert.Equal(t, 1, a.(*Object).Len())
	assert.Equal(t, 2, merged.(*Object).Len())
	assert.Equal(t, a.ID(), merged.ID())
	assert.NotSame(t, a, merged)
}

func TestMergeExampleCap(t *testing.T) {
	a := NewPrimitive([]string{"1", "2", "3", "4"})
	b := NewPrimitive([]string{"3", "5", "6", "7", "8"})

	merged, err := Merge(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6"}, merged.(*Primitive).Examples())
}

func TestMergeWithNil(t *testing.T) {
	n := mustInfer(t, `{"a":1}`)

	left, err := Merge(nil, n)
	require.NoError(t, err)
	assert.Equal(t, n.ID(), left.ID())
	assert.NotSame(t, n, left)

	both, err := Merge(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, both)
}

func TestMergeSetsMatchesObjectsByShape(t *testing.T) {
	a := mustInfer(t, `[{"id":1,"name":"x"}]`)
	b := mustInfer(t, `[{"id":2,"name":"y","extra":true},{"lat":1.5,"lon":2.5}]`)

	merged, err := Merge(a, b)
	require.NoError(t, err)

	set := merged.(*Set)
	require.Equal(t, 2, set.Len())
	first := set.Members()[0].(*Object)
	assert.Equal(t, []string{"id", "name", "extra"}, first.Keys())
	second := set.Members()[1].(*Object)
	assert.Equal(t, []string{"lat", "lon"}, second.Keys())
}

func TestMergeComposites(t *testing.T) {
	newComp := func(left, right string) *Composite {
		c, err := NewComposite([]*Primitive{NewPrimitive([]string{left}), NewPrimitive([]string{right})}, []string{"-"})
		require.NoError(t, err)
		return c
	}

	merged, err := Merge(newComp("a", "b"), newComp("c", "d"))
	require.NoError(t, err)
	comps := merged.(*Composite).Components()
	assert.Equal(t, []string{"a", "c"}, comps[0].Examples())
	assert.Equal(t, []string{"b", "d"}, comps[1].Examples())

	_, err = Merge(newComp("a", "b"), NewObject())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInference(err))
}
