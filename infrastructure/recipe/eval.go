package recipe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/tmdt-buw/plasma-sub002/domain/core/aggregates"
	"github.com/tmdt-buw/plasma-sub002/domain/syntax"
)

func evalContext(schema *aggregates.Schema, concepts map[string]string) *hcl.EvalContext {
	ids := make(map[string]cty.Value, len(concepts))
	for name, id := range concepts {
		ids[name] = cty.StringVal(id)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"concept": cty.ObjectVal(ids),
		},
		Functions: map[string]function.Function{
			"node": nodeFunc(schema),
		},
	}
}

func nodeFunc(schema *aggregates.Schema) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "path", Type: cty.String}},
		Type:   function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			n, err := Resolve(schema.Syntax(), args[0].AsString())
			if err != nil {
				return cty.NilVal, err
			}
			return cty.StringVal(n.ID().String()), nil
		},
	})
}

// Resolve follows a dotted path from root. Plain segments are object keys,
// "[]" steps into an array and "#n" selects the n-th component of a
// composite. Collisions are entered through the slot the segment needs. An
// empty path is root itself.
func Resolve(root syntax.Node, path string) (syntax.Node, error) {
	if root == nil {
		return nil, fmt.Errorf("schema has no syntax tree")
	}
	if path == "" {
		return root, nil
	}

	cur := root
	segments := strings.Split(path, ".")
	for i, seg := range segments {
		last := i == len(segments)-1
		switch {
		case seg == "[]":
			n, ok := slot(cur, syntax.KindSet)
			if !ok {
				return nil, fmt.Errorf("%s: not an array", strings.Join(segments[:i], "."))
			}
			next := ""
			if !last {
				next = segments[i+1]
			}
			member, ok := element(n.(*syntax.Set), next)
			if !ok {
				return nil, fmt.Errorf("%s: array has no matching element", strings.Join(segments[:i+1], "."))
			}
			cur = member
		case strings.HasPrefix(seg, "#"):
			idx, err := strconv.Atoi(seg[1:])
			if err != nil {
				return nil, fmt.Errorf("%s: invalid component index", seg)
			}
			n, ok := slot(cur, syntax.KindComposite)
			if !ok {
				return nil, fmt.Errorf("%s: not a composite", strings.Join(segments[:i], "."))
			}
			components := n.(*syntax.Composite).Components()
			if idx < 0 || idx >= len(components) {
				return nil, fmt.Errorf("%s: component %d out of range", strings.Join(segments[:i], "."), idx)
			}
			cur = components[idx]
		default:
			n, ok := slot(cur, syntax.KindObject)
			if !ok {
				return nil, fmt.Errorf("%s: not an object", strings.Join(segments[:i], "."))
			}
			child, ok := n.(*syntax.Object).Get(seg)
			if !ok {
				return nil, fmt.Errorf("%s: no such field", strings.Join(segments[:i+1], "."))
			}
			cur = child
		}
	}
	return cur, nil
}

func slot(n syntax.Node, kind syntax.Kind) (syntax.Node, bool) {
	if n.Kind() == kind {
		return n, true
	}
	if c, ok := n.(*syntax.Collision); ok {
		return c.Slot(kind)
	}
	return nil, false
}

// element picks the array member a path continues into. When the path ends
// here the scalar variant wins, otherwise the first member shaped for the
// next segment.
func element(s *syntax.Set, next string) (syntax.Node, bool) {
	if next == "" {
		if p, ok := s.Scalar(); ok {
			return p, true
		}
		if s.Len() > 0 {
			return s.Members()[0], true
		}
		return nil, false
	}
	for _, m := range s.Members() {
		if _, ok := slot(m, segmentKind(next)); ok {
			return m, true
		}
	}
	return nil, false
}

// segmentKind is the node kind a path segment steps out of.
func segmentKind(seg string) syntax.Kind {
	switch {
	case seg == "[]":
		return syntax.KindSet
	case strings.HasPrefix(seg, "#"):
		return syntax.KindComposite
	default:
		return syntax.KindObject
	}
}

// wireValues flattens an attribute value into parameter wire strings
func wireValues(v cty.Value) ([]string, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}

	t := v.Type()
	switch {
	case t == cty.String:
		return []string{v.AsString()}, nil
	case t == cty.Number:
		return []string{v.AsBigFloat().Text('f', -1)}, nil
	case t == cty.Bool:
		return []string{strconv.FormatBool(v.True())}, nil
	case t.IsListType() || t.IsTupleType() || t.IsSetType():
		var out []string
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			if elem.Type().IsListType() || elem.Type().IsTupleType() || elem.Type().IsSetType() {
				return nil, fmt.Errorf("nested collections are not supported")
			}
			values, err := wireValues(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, values...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value of type %s", t.FriendlyName())
}
