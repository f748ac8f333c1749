package operations

import (
	"fmt"

	"github.com/tmdt-buw/plasma-sub002/domain/core/aggregates"
	"github.com/tmdt-buw/plasma-sub002/domain/core/valueobjects"
	"github.com/tmdt-buw/plasma-sub002/domain/syntax"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// Operation is a named, parameterized edit of a schema.
type Operation interface {
	Name() string
	Label() string
	Description() string
	// Prototype returns a fresh copy of the parameter declaration.
	Prototype() *ParameterDefinition
	// Handles lists the places in schema the operation applies to, with the
	// hidden parameters already filled in.
	Handles(schema *aggregates.Schema) []Handle
	// Apply edits schema in place. Callers pass a copy.
	Apply(schema *aggregates.Schema, args *Arguments) error
}

// Handle is an operation offered for one node of a schema
type Handle struct {
	Operation string               `json:"operation"`
	NodeID    string               `json:"nodeId"`
	Label     string               `json:"label"`
	Parameter *ParameterDefinition `json:"-"`
}

// Base carries the descriptive part of an operation. Concrete operations
// embed it and add Handles and Apply.
type Base struct {
	name        string
	label       string
	description string
	prototype   *ParameterDefinition
}

// NewBase creates the descriptive part of an operation. The prototype must be
// a Complex parameter named after the operation.
func NewBase(name, label, description string, params ...*ParameterDefinition) Base {
	return Base{
		name:        name,
		label:       label,
		description: description,
		prototype:   NewComplex(name, label, description, params...),
	}
}

func (b Base) Name() string { return b.name }

func (b Base) Label() string { return b.label }

func (b Base) Description() string { return b.description }

func (b Base) Prototype() *ParameterDefinition { return b.prototype.Clone() }

// Handle returns a handle for nodeID with the named hidden parameter set
func (b Base) Handle(nodeID valueobjects.Identity, label, param string) Handle {
	p := b.Prototype()
	if c, ok := p.Child(param); ok {
		c.WithValues(nodeID.String())
	}
	return Handle{Operation: b.name, NodeID: nodeID.String(), Label: label, Parameter: p}
}

// PrimitiveAt resolves id to a Primitive in the schema's syntax tree
func PrimitiveAt(schema *aggregates.Schema, id valueobjects.Identity) (*syntax.Primitive, error) {
	n, ok := schema.FindNode(id)
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("syntax node %s", id))
	}
	p, ok := n.(*syntax.Primitive)
	if !ok {
		return nil, pkgerrors.NewParameterParsingError(
			fmt.Sprintf("Node %s is a %s, not a primitive.", id, n.Kind()))
	}
	return p, nil
}

// Primitives lists primitives of the schema that are not components of a
// composite, in walk order.
func Primitives(schema *aggregates.Schema) []*syntax.Primitive {
	if schema.Syntax() == nil {
		return nil
	}
	components := make(map[valueobjects.Identity]struct{})
	var out []*syntax.Primitive
	syntax.Walk(schema.Syntax(), func(n syntax.Node) {
		switch v := n.(type) {
		case *syntax.Composite:
			for _, c := range v.Components() {
				components[c.ID()] = struct{}{}
			}
		case *syntax.Primitive:
			out = append(out, v)
		}
	})
	filtered := out[:0]
	for _, p := range out {
		if _, isComponent := components[p.ID()]; !isComponent {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
