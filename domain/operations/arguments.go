package operations

import (
	"fmt"

	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// Arguments holds parsed parameter values of a validated parameter tree.
type Arguments struct {
	values map[string][]any
	nested map[string]*Arguments
}

// Parse converts a validated Complex parameter into Arguments. Leaf children
// are parsed with their type; nested Complex children become nested Arguments.
func Parse(testee *ParameterDefinition) (*Arguments, error) {
	if testee == nil || !testee.Type.IsComplex() {
		return nil, pkgerrors.NewParameterParsingError("operation parameters must be a complex parameter")
	}
	args := &Arguments{
		values: make(map[string][]any),
		nested: make(map[string]*Arguments),
	}
	for _, child := range testee.Children {
		if child.Type.IsComplex() {
			sub, err := Parse(child)
			if err != nil {
				return nil, err
			}
			args.nested[child.Name] = sub
			continue
		}
		parsed := make([]any, 0, len(child.Values))
		for _, raw := range child.Values {
			v, err := child.Type.Parse(raw)
			if err != nil {
				return nil, pkgerrors.Wrapf(err, "parameter `%s`", child.Name)
			}
			parsed = append(parsed, v)
		}
		args.values[child.Name] = parsed
	}
	return args, nil
}

// Has reports whether a value or nested argument named name was supplied.
func (a *Arguments) Has(name string) bool {
	if vs, ok := a.values[name]; ok && len(vs) > 0 {
		return true
	}
	_, ok := a.nested[name]
	return ok
}

// Nested returns the arguments of a nested Complex parameter
func (a *Arguments) Nested(name string) (*Arguments, bool) {
	n, ok := a.nested[name]
	return n, ok
}

// Value returns the single value of a parameter
func Value[T any](a *Arguments, name string) (T, error) {
	v, ok, err := OptionalValue[T](a, name)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, pkgerrors.NewParameterParsingError(fmt.Sprintf("Parameter `%s` is missing.", name))
	}
	return v, nil
}

// OptionalValue returns the first value of a parameter if one was supplied
func OptionalValue[T any](a *Arguments, name string) (T, bool, error) {
	var zero T
	vs := a.values[name]
	if len(vs) == 0 {
		return zero, false, nil
	}
	v, ok := vs[0].(T)
	if !ok {
		return zero, false, pkgerrors.NewParameterParsingError(
			fmt.Sprintf("Parameter `%s` holds %T, not %T.", name, vs[0], zero))
	}
	return v, true, nil
}

// Values returns all values of a parameter
func Values[T any](a *Arguments, name string) ([]T, error) {
	vs := a.values[name]
	out := make([]T, 0, len(vs))
	for _, raw := range vs {
		v, ok := raw.(T)
		if !ok {
			var zero T
			return nil, pkgerrors.NewParameterParsingError(
				fmt.Sprintf("Parameter `%s` holds %T, not %T.", name, raw, zero))
		}
		out = append(out, v)
	}
	return out, nil
}
