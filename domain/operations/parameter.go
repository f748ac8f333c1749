package operations

import (
	"fmt"
	"math"

	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
	"github.com/tmdt-buw/plasma-sub002/pkg/validation"
)

// Unbounded is the max cardinality of parameters without an upper limit
const Unbounded = math.MaxInt32

// ParameterDefinition declares a parameter (as a prototype) or carries the
// supplied values for one (as a testee). Leaf types hold wire strings in
// Values; Complex holds Children.
type ParameterDefinition struct {
	Type           *Type                  `validate:"required"`
	Name           string                 `validate:"required,max=128"`
	Label          string                 `validate:"max=256"`
	Description    string                 `validate:"max=2048"`
	MinCardinality int                    `validate:"gte=0"`
	MaxCardinality int                    `validate:"gte=1,gtefield=MinCardinality"`
	Hidden         bool
	Values         []string
	Children       []*ParameterDefinition `validate:"dive,required"`
}

// NewParameter declares a leaf parameter
func NewParameter(t *Type, name, label, description string, min, max int) *ParameterDefinition {
	return &ParameterDefinition{
		Type:           t,
		Name:           name,
		Label:          label,
		Description:    description,
		MinCardinality: min,
		MaxCardinality: max,
	}
}

// NewComplex declares a structured parameter
func NewComplex(name, label, description string, children ...*ParameterDefinition) *ParameterDefinition {
	return &ParameterDefinition{
		Type:           Complex,
		Name:           name,
		Label:          label,
		Description:    description,
		MinCardinality: 1,
		MaxCardinality: 1,
		Children:       children,
	}
}

// AsHidden marks the parameter as filled in by handles rather than users
func (p *ParameterDefinition) AsHidden() *ParameterDefinition {
	p.Hidden = true
	return p
}

// WithValues sets the supplied wire values
func (p *ParameterDefinition) WithValues(values ...string) *ParameterDefinition {
	p.Values = append([]string(nil), values...)
	return p
}

// Child returns the direct child with the given name
func (p *ParameterDefinition) Child(name string) (*ParameterDefinition, bool) {
	for _, c := range p.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Clone deep copies the definition
func (p *ParameterDefinition) Clone() *ParameterDefinition {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Values = append([]string(nil), p.Values...)
	if p.Children != nil {
		cp.Children = make([]*ParameterDefinition, len(p.Children))
		for i, c := range p.Children {
			cp.Children[i] = c.Clone()
		}
	}
	return &cp
}

// Check validates the definition itself: struct rules, and for Complex a
// cardinality of exactly one, recursively.
func (p *ParameterDefinition) Check() error {
	if err := validation.Struct(p); err != nil {
		return err
	}
	if p.Type.IsComplex() {
		if p.MinCardinality != 1 || p.MaxCardinality != 1 {
			return pkgerrors.NewValidationError(
				fmt.Sprintf("complex parameter `%s` must have cardinality 1..1", p.Name))
		}
		seen := make(map[string]struct{}, len(p.Children))
		for _, c := range p.Children {
			if _, dup := seen[c.Name]; dup {
				return pkgerrors.NewValidationError(
					fmt.Sprintf("complex parameter `%s` declares `%s` twice", p.Name, c.Name))
			}
			seen[c.Name] = struct{}{}
			if err := c.Check(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate checks a supplied parameter tree against its prototype: type, then
// name, then for Complex the cardinality and every child against the
// prototype child of the same name, and for leaf types the number of values.
func Validate(testee, prototype *ParameterDefinition) error {
	if testee == nil {
		return pkgerrors.NewParameterParsingError(fmt.Sprintf("Parameter `%s` is missing.", prototype.Name))
	}
	if testee.Type != prototype.Type {
		return pkgerrors.NewParameterParsingError(
			fmt.Sprintf("Parameter `%s` is of type %s but %s was expected.", testee.Name, testee.Type, prototype.Type))
	}
	if testee.Name != prototype.Name {
		return pkgerrors.NewParameterParsingError(
			fmt.Sprintf("Parameter name `%s` does not match `%s`.", testee.Name, prototype.Name))
	}

	if prototype.Type.IsComplex() {
		if testee.MinCardinality != 1 || testee.MaxCardinality != 1 {
			return pkgerrors.NewParameterParsingError(
				fmt.Sprintf("Complex parameter `%s` must have cardinality 1..1.", testee.Name))
		}
		present := make(map[string]struct{}, len(testee.Children))
		for _, child := range testee.Children {
			if child == nil {
				return pkgerrors.NewParameterParsingError(fmt.Sprintf("Parameter `%s` contains an empty child.", testee.Name))
			}
			protoChild, ok := prototype.Child(child.Name)
			if !ok {
				return pkgerrors.NewParameterParsingError(
					fmt.Sprintf("Parameter `%s` has no child `%s`.", prototype.Name, child.Name))
			}
			if _, dup := present[child.Name]; dup {
				return pkgerrors.NewParameterParsingError(
					fmt.Sprintf("Parameter `%s` was supplied twice in `%s`.", child.Name, prototype.Name))
			}
			present[child.Name] = struct{}{}
			if err := Validate(child, protoChild); err != nil {
				return err
			}
		}
		for _, protoChild := range prototype.Children {
			if _, ok := present[protoChild.Name]; !ok && protoChild.MinCardinality > 0 {
				return pkgerrors.NewParameterParsingError(
					fmt.Sprintf("Parameter `%s` is missing in `%s`.", protoChild.Name, prototype.Name))
			}
		}
		return nil
	}

	count := len(testee.Values)
	if count < prototype.MinCardinality {
		return pkgerrors.NewParameterParsingError(
			fmt.Sprintf("Parameter values of `%s` did contain less than %d elements: %d.", testee.Name, prototype.MinCardinality, count)).
			WithDetail("bound", "min")
	}
	if count > prototype.MaxCardinality {
		return pkgerrors.NewParameterParsingError(
			fmt.Sprintf("Parameter values of `%s` did contain more than %d elements: %d.", testee.Name, prototype.MaxCardinality, count)).
			WithDetail("bound", "max")
	}
	return nil
}

// ParameterDTO is the wire form of a parameter definition
type ParameterDTO struct {
	Type           string         `json:"type" validate:"required"`
	Name           string         `json:"name" validate:"required"`
	Label          string         `json:"label,omitempty"`
	Description    string         `json:"description,omitempty"`
	MinCardinality int            `json:"minCardinality"`
	MaxCardinality int            `json:"maxCardinality"`
	Hidden         bool           `json:"hidden,omitempty"`
	Values         []string       `json:"value,omitempty"`
	Children       []ParameterDTO `json:"children,omitempty"`
}

// ToDTO converts the definition to its wire form
func (p *ParameterDefinition) ToDTO() ParameterDTO {
	dto := ParameterDTO{
		Type:           p.Type.Name(),
		Name:           p.Name,
		Label:          p.Label,
		Description:    p.Description,
		MinCardinality: p.MinCardinality,
		MaxCardinality: p.MaxCardinality,
		Hidden:         p.Hidden,
		Values:         append([]string(nil), p.Values...),
	}
	for _, c := range p.Children {
		dto.Children = append(dto.Children, c.ToDTO())
	}
	return dto
}

// FromDTO resolves a wire parameter tree against the registered types
func (r *TypeRegistry) FromDTO(dto ParameterDTO) (*ParameterDefinition, error) {
	t, ok := r.Lookup(dto.Type)
	if !ok {
		return nil, pkgerrors.NewParameterParsingError(fmt.Sprintf("Unknown parameter type `%s`.", dto.Type))
	}
	p := &ParameterDefinition{
		Type:           t,
		Name:           dto.Name,
		Label:          dto.Label,
		Description:    dto.Description,
		MinCardinality: dto.MinCardinality,
		MaxCardinality: dto.MaxCardinality,
		Hidden:         dto.Hidden,
		Values:         append([]string(nil), dto.Values...),
	}
	for _, c := range dto.Children {
		child, err := r.FromDTO(c)
		if err != nil {
			return nil, err
		}
		p.Children = append(p.Children, child)
	}
	return p, nil
}
