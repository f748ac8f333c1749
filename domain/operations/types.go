// Package operations implements the typed parameter system and the registry
// of named schema edits.
package operations

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/tmdt-buw/plasma-sub002/domain/core/valueobjects"
	"github.com/tmdt-buw/plasma-sub002/domain/syntax"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// Type pairs a wire representation with a parsed one. Complex is the only
// recursive type: its value is a list of child parameter definitions.
type Type struct {
	name      string
	complex   bool
	parse     func(string) (any, error)
	serialize func(any) (string, error)
}

// The closed set of parameter types
var (
	Complex      = &Type{name: "Complex", complex: true}
	SyntaxNodeID = &Type{name: "SyntaxNodeId", parse: parseIdentity, serialize: serializeIdentity}
	Integer      = &Type{name: "Integer", parse: parseInteger, serialize: serializeInteger}
	Pattern      = &Type{name: "Pattern", parse: parsePattern, serialize: serializePattern}
	EntityTypeID = &Type{name: "EntityTypeId", parse: parseIdentity, serialize: serializeIdentity}
	DataType     = &Type{name: "DataType", parse: parseDataType, serialize: serializeDataType}
)

func (t *Type) Name() string { return t.name }

func (t *Type) String() string { return t.name }

func (t *Type) IsComplex() bool { return t.complex }

// Parse converts a wire value
func (t *Type) Parse(raw string) (any, error) {
	if t.complex {
		return nil, pkgerrors.NewParameterParsingError("complex parameters have no scalar value")
	}
	v, err := t.parse(raw)
	if err != nil {
		return nil, pkgerrors.NewParameterParsingError(
			fmt.Sprintf("value %q is not a valid %s", raw, t.name)).WithCause(err)
	}
	return v, nil
}

// Serialize converts a parsed value back to its wire form
func (t *Type) Serialize(v any) (string, error) {
	if t.complex {
		return "", pkgerrors.NewParameterParsingError("complex parameters have no scalar value")
	}
	return t.serialize(v)
}

func parseIdentity(raw string) (any, error) {
	return valueobjects.ParseIdentity(raw)
}

func serializeIdentity(v any) (string, error) {
	id, ok := v.(valueobjects.Identity)
	if !ok {
		return "", fmt.Errorf("expected identity, got %T", v)
	}
	return id.String(), nil
}

func parseInteger(raw string) (any, error) {
	return strconv.Atoi(raw)
}

func serializeInteger(v any) (string, error) {
	i, ok := v.(int)
	if !ok {
		return "", fmt.Errorf("expected int, got %T", v)
	}
	return strconv.Itoa(i), nil
}

func parsePattern(raw string) (any, error) {
	if raw == "" {
		return nil, fmt.Errorf("pattern cannot be empty")
	}
	return regexp.Compile(raw)
}

func serializePattern(v any) (string, error) {
	re, ok := v.(*regexp.Regexp)
	if !ok {
		return "", fmt.Errorf("expected pattern, got %T", v)
	}
	return re.String(), nil
}

func parseDataType(raw string) (any, error) {
	return syntax.ParseDataType(raw)
}

func serializeDataType(v any) (string, error) {
	dt, ok := v.(syntax.DataType)
	if !ok {
		return "", fmt.Errorf("expected data type, got %T", v)
	}
	return dt.String(), nil
}

// TypeRegistry resolves types by wire name.
type TypeRegistry struct {
	types map[string]*Type
	order []*Type
}

// NewTypeRegistry creates a registry holding every parameter type
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{types: make(map[string]*Type)}
	for _, t := range []*Type{Complex, SyntaxNodeID, Integer, Pattern, EntityTypeID, DataType} {
		r.types[t.name] = t
		r.order = append(r.order, t)
	}
	return r
}

// Lookup returns the type with the given wire name
func (r *TypeRegistry) Lookup(name string) (*Type, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Types returns all types in declaration order
func (r *TypeRegistry) Types() []*Type {
	out := make([]*Type, len(r.order))
	copy(out, r.order)
	return out
}
