package syntax

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// Field is one member of an OrderedObject
type Field struct {
	Name  string
	Value any
}

// OrderedObject is a decoded JSON object that keeps its field order.
type OrderedObject []Field

// Infer builds a schema node from a decoded JSON value. Null yields a nil node
// and no error.
func Infer(value any) (Node, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool:
		return NewPrimitive([]string{strconv.FormatBool(v)}), nil
	case string:
		return NewPrimitive([]string{v}), nil
	case json.Number:
		return NewPrimitive([]string{v.String()}), nil
	case float64:
		return NewPrimitive([]string{strconv.FormatFloat(v, 'f', -1, 64)}), nil
	case float32:
		return NewPrimitive([]string{strconv.FormatFloat(float64(v), 'f', -1, 32)}), nil
	case int:
		return NewPrimitive([]string{strconv.Itoa(v)}), nil
	case int64:
		return NewPrimitive([]string{strconv.FormatInt(v, 10)}), nil
	case OrderedObject:
		return inferObject(v)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make(OrderedObject, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, Field{Name: k, Value: v[k]})
		}
		return inferObject(fields)
	case []any:
		return inferArray(v)
	default:
		return nil, pkgerrors.NewInferenceError(fmt.Sprintf("unsupported value of type %T", value))
	}
}

func inferObject(fields OrderedObject) (Node, error) {
	obj := NewObject()
	for _, f := range fields {
		child, err := Infer(f.Value)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "field %q", f.Name)
		}
		if child == nil {
			continue
		}
		existing, ok := obj.Get(f.Name)
		if !ok {
			obj.Put(f.Name, child)
			continue
		}
		merged, err := absorb(existing, child)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "field %q", f.Name)
		}
		obj.Put(f.Name, merged)
	}
	return obj, nil
}

// inferArray absorbs structural elements unconditionally and scalar elements
// only until MaxExamples of them were taken.
func inferArray(values []any) (Node, error) {
	set := NewSet()
	scalars := 0
	for i, el := range values {
		if el == nil {
			continue
		}
		if isScalar(el) {
			if scalars >= MaxExamples {
				continue
			}
			scalars++
		}
		child, err := Infer(el)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "element %d", i)
		}
		if err := set.Absorb(child); err != nil {
			return nil, pkgerrors.Wrapf(err, "element %d", i)
		}
	}
	return set, nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case OrderedObject, map[string]any, []any:
		return false
	}
	return true
}
