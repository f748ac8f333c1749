// Package catalog holds the built in schema operations.
package catalog

import (
	"fmt"
	"regexp"

	"github.com/tmdt-buw/plasma-sub002/domain/core/aggregates"
	"github.com/tmdt-buw/plasma-sub002/domain/core/valueobjects"
	"github.com/tmdt-buw/plasma-sub002/domain/operations"
	"github.com/tmdt-buw/plasma-sub002/domain/semantic"
	"github.com/tmdt-buw/plasma-sub002/domain/syntax"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// Parameter names
const (
	ParamNode          = "Node"
	ParamDataType      = "DataType"
	ParamPattern       = "Pattern"
	ParamLimit         = "Limit"
	ParamEntityConcept = "EntityConcept"
)

// Operation names
const (
	NameSetDataType      = "SetDataType"
	NameCleanseValue     = "CleanseValue"
	NameSplitPrimitive   = "SplitPrimitive"
	NameSetEntityType    = "SetEntityType"
	NameRemoveEntityType = "RemoveEntityType"
	NameModifyComposite  = "ModifyComposite"
)

// All returns a fresh instance of every built in operation
func All() []operations.Operation {
	return []operations.Operation{
		NewSetDataType(),
		NewCleanseValue(),
		NewSplitPrimitive(),
		NewModifyComposite(),
		NewSetEntityType(),
		NewRemoveEntityType(),
	}
}

// Register adds every built in operation to registry
func Register(registry *operations.Registry) error {
	for _, op := range All() {
		if err := registry.Register(op); err != nil {
			return err
		}
	}
	return nil
}

func nodeParam() *operations.ParameterDefinition {
	return operations.NewParameter(operations.SyntaxNodeID, ParamNode, "Node", "The syntax node to change", 1, 1).AsHidden()
}

func nodeArg(args *operations.Arguments) (valueobjects.Identity, error) {
	return operations.Value[valueobjects.Identity](args, ParamNode)
}

func primitiveHandles(base operations.Base, schema *aggregates.Schema) []operations.Handle {
	var out []operations.Handle
	for _, p := range operations.Primitives(schema) {
		out = append(out, base.Handle(p.ID(), p.Label(), ParamNode))
	}
	return out
}

// SetDataType assigns the data type of a primitive
type SetDataType struct {
	operations.Base
}

func NewSetDataType() *SetDataType {
	return &SetDataType{Base: operations.NewBase(NameSetDataType, "Set Data Type",
		"Sets the data type of a primitive value",
		nodeParam(),
		operations.NewParameter(operations.DataType, ParamDataType, "Data Type", "The new data type", 1, 1),
	)}
}

func (o *SetDataType) Handles(schema *aggregates.Schema) []operations.Handle {
	return primitiveHandles(o.Base, schema)
}

func (o *SetDataType) Apply(schema *aggregates.Schema, args *operations.Arguments) error {
	id, err := nodeArg(args)
	if err != nil {
		return err
	}
	dt, err := operations.Value[syntax.DataType](args, ParamDataType)
	if err != nil {
		return err
	}
	p, err := operations.PrimitiveAt(schema, id)
	if err != nil {
		return err
	}
	p.SetDataType(dt)
	return nil
}

// CleanseValue strips pattern matches from a primitive's values
type CleanseValue struct {
	operations.Base
}

func NewCleanseValue() *CleanseValue {
	return &CleanseValue{Base: operations.NewBase(NameCleanseValue, "Cleanse Value",
		"Removes every match of a pattern from the values of a primitive",
		nodeParam(),
		operations.NewParameter(operations.Pattern, ParamPattern, "Pattern", "Regular expression to remove", 1, 1),
	)}
}

func (o *CleanseValue) Handles(schema *aggregates.Schema) []operations.Handle {
	return primitiveHandles(o.Base, schema)
}

func (o *CleanseValue) Apply(schema *aggregates.Schema, args *operations.Arguments) error {
	id, err := nodeArg(args)
	if err != nil {
		return err
	}
	re, err := operations.Value[*regexp.Regexp](args, ParamPattern)
	if err != nil {
		return err
	}
	p, err := operations.PrimitiveAt(schema, id)
	if err != nil {
		return err
	}

	examples := p.Examples()
	for i, e := range examples {
		examples[i] = re.ReplaceAllString(e, "")
	}
	p.SetCleansingPattern(re.String())
	p.SetExamples(examples)
	return nil
}

// SplitPrimitive turns a primitive into a composite by cutting its values at
// pattern matches.
type SplitPrimitive struct {
	operations.Base
}

func NewSplitPrimitive() *SplitPrimitive {
	return &SplitPrimitive{Base: operations.NewBase(NameSplitPrimitive, "Split Primitive",
		"Splits the values of a primitive into components at each pattern",
		nodeParam(),
		operations.NewParameter(operations.Pattern, ParamPattern, "Pattern", "Delimiters applied in order", 1, operations.Unbounded),
		operations.NewParameter(operations.Integer, ParamLimit, "Limit", "Maximum number of delimiters to apply", 0, 1),
	)}
}

func (o *SplitPrimitive) Handles(schema *aggregates.Schema) []operations.Handle {
	return primitiveHandles(o.Base, schema)
}

func (o *SplitPrimitive) Apply(schema *aggregates.Schema, args *operations.Arguments) error {
	id, err := nodeArg(args)
	if err != nil {
		return err
	}
	patterns, err := operations.Values[*regexp.Regexp](args, ParamPattern)
	if err != nil {
		return err
	}
	limit, hasLimit, err := operations.OptionalValue[int](args, ParamLimit)
	if err != nil {
		return err
	}
	if hasLimit {
		if limit < 0 {
			return pkgerrors.NewParameterParsingError(fmt.Sprintf("Limit must not be negative: %d.", limit))
		}
		if limit > 0 && limit < len(patterns) {
			patterns = patterns[:limit]
		}
	}
	p, err := operations.PrimitiveAt(schema, id)
	if err != nil {
		return err
	}

	composite, err := split(p, patterns, nil)
	if err != nil {
		return err
	}
	return schema.Replace(p.ID(), syntax.Node(composite))
}

// split cuts every example of p into len(patterns)+1 tokens. Each pattern
// consumes the text up to and including its first match; a pattern without a
// match takes the rest. Component i takes the identity of reuse[i] if present.
func split(p *syntax.Primitive, patterns []*regexp.Regexp, reuse []*syntax.Primitive) (*syntax.Composite, error) {
	tokens := make([][]string, len(patterns)+1)
	for _, example := range p.Examples() {
		rest := example
		for i, re := range patterns {
			loc := re.FindStringIndex(rest)
			if loc == nil {
				tokens[i] = append(tokens[i], rest)
				rest = ""
				continue
			}
			tokens[i] = append(tokens[i], rest[:loc[0]])
			rest = rest[loc[1]:]
		}
		tokens[len(patterns)] = append(tokens[len(patterns)], rest)
	}

	components := make([]*syntax.Primitive, len(tokens))
	for i, values := range tokens {
		opts := []syntax.Option{syntax.WithLabel(fmt.Sprintf("%s_%d", p.Label(), i))}
		if i < len(reuse) {
			opts = append(opts, syntax.WithIdentity(reuse[i].ID()))
		}
		c := syntax.NewPrimitive(values, opts...)
		c.SetCleansingPattern(p.CleansingPattern())
		c.SetDataType(syntax.PredictDataType(c.Examples()))
		components[i] = c
	}
	exprs := make([]string, len(patterns))
	for i, re := range patterns {
		exprs[i] = re.String()
	}
	composite, err := syntax.NewComposite(components, exprs, syntax.WithIdentity(p.ID()), syntax.WithLabel(p.Label()))
	if err != nil {
		return nil, err
	}
	composite.SetSource(p.Examples())
	return composite, nil
}

// ModifyComposite splits the source values of a composite again with new
// patterns. Components keep their identity by position; entity types bound
// to components that no longer exist are removed.
type ModifyComposite struct {
	operations.Base
}

func NewModifyComposite() *ModifyComposite {
	return &ModifyComposite{Base: operations.NewBase(NameModifyComposite, "Edit Splitting",
		"Replaces the split patterns of a composite and splits its values again",
		nodeParam(),
		operations.NewParameter(operations.Pattern, ParamPattern, "Pattern", "Delimiters applied in order", 1, operations.Unbounded),
	)}
}

// Handles offers every composite, prefilled with its current patterns
func (o *ModifyComposite) Handles(schema *aggregates.Schema) []operations.Handle {
	var out []operations.Handle
	if schema.Syntax() == nil {
		return out
	}
	syntax.Walk(schema.Syntax(), func(n syntax.Node) {
		c, ok := n.(*syntax.Composite)
		if !ok {
			return
		}
		h := o.Handle(c.ID(), c.Label(), ParamNode)
		if p, ok := h.Parameter.Child(ParamPattern); ok {
			p.WithValues(c.Patterns()...)
		}
		out = append(out, h)
	})
	return out
}

func (o *ModifyComposite) Apply(schema *aggregates.Schema, args *operations.Arguments) error {
	id, err := nodeArg(args)
	if err != nil {
		return err
	}
	patterns, err := operations.Values[*regexp.Regexp](args, ParamPattern)
	if err != nil {
		return err
	}
	n, ok := schema.FindNode(id)
	if !ok {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("syntax node %s", id))
	}
	c, ok := n.(*syntax.Composite)
	if !ok {
		return pkgerrors.NewParameterParsingError(fmt.Sprintf("Node %s is a %s, not a composite.", id, n.Kind()))
	}
	if len(c.Source()) == 0 {
		return pkgerrors.NewInvalidStateError(fmt.Sprintf("composite %s keeps no values to split", id))
	}

	old := c.Components()
	src := syntax.NewPrimitive(c.Source(), syntax.WithIdentity(c.ID()), syntax.WithLabel(c.Label()))
	src.SetCleansingPattern(old[0].CleansingPattern())
	next, err := split(src, patterns, old)
	if err != nil {
		return err
	}
	if err := schema.Replace(c.ID(), syntax.Node(next)); err != nil {
		return err
	}
	for _, dropped := range old[min(len(old), len(patterns)+1):] {
		if !schema.Remove(dropped.ID()) {
			return pkgerrors.NewInvalidStateError(fmt.Sprintf("removing component %s would leave the schema inconsistent", dropped.ID()))
		}
	}
	return nil
}

// SetEntityType binds an entity concept to a syntax node
type SetEntityType struct {
	operations.Base
}

func NewSetEntityType() *SetEntityType {
	return &SetEntityType{Base: operations.NewBase(NameSetEntityType, "Connect Entity Type",
		"Connects a syntax node with an entity concept",
		nodeParam(),
		operations.NewParameter(operations.EntityTypeID, ParamEntityConcept, "Entity Concept", "The concept the node represents", 1, 1),
	)}
}

func (o *SetEntityType) Handles(schema *aggregates.Schema) []operations.Handle {
	var out []operations.Handle
	if schema.Syntax() == nil {
		return out
	}
	syntax.Walk(schema.Syntax(), func(n syntax.Node) {
		out = append(out, o.Handle(n.ID(), n.Label(), ParamNode))
	})
	return out
}

func (o *SetEntityType) Apply(schema *aggregates.Schema, args *operations.Arguments) error {
	id, err := nodeArg(args)
	if err != nil {
		return err
	}
	conceptID, err := operations.Value[valueobjects.Identity](args, ParamEntityConcept)
	if err != nil {
		return err
	}
	if schema.Model() == nil {
		return pkgerrors.NewInvalidStateError("schema has no semantic model")
	}
	node, ok := schema.FindNode(id)
	if !ok {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("syntax node %s", id))
	}
	concept, ok := schema.EntityConcept(conceptID)
	if !ok {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("entity concept %s", conceptID))
	}
	for _, existing := range schema.Model().EntityTypesFor(id) {
		if existing.Concept().ID() == conceptID {
			return pkgerrors.NewConflictError(
				fmt.Sprintf("node %s is already connected to %s", id, concept.Name()))
		}
	}

	et, err := semantic.NewEntityType(concept, id)
	if err != nil {
		return err
	}
	if err := schema.Model().AddEntityType(et); err != nil {
		return err
	}
	if p, ok := node.(*syntax.Primitive); ok {
		p.SetDataType(homogenize(p.Examples(), p.DataType()))
	}
	return nil
}

// RemoveEntityType drops the entity types of a node and their relations
type RemoveEntityType struct {
	operations.Base
}

func NewRemoveEntityType() *RemoveEntityType {
	return &RemoveEntityType{Base: operations.NewBase(NameRemoveEntityType, "Remove Entity Type",
		"Removes the entity types bound to a syntax node",
		nodeParam(),
	)}
}

func (o *RemoveEntityType) Handles(schema *aggregates.Schema) []operations.Handle {
	var out []operations.Handle
	if schema.Model() == nil {
		return out
	}
	seen := make(map[valueobjects.Identity]struct{})
	for _, et := range schema.Model().EntityTypes() {
		if _, dup := seen[et.NodeID()]; dup {
			continue
		}
		seen[et.NodeID()] = struct{}{}
		out = append(out, o.Handle(et.NodeID(), et.Label(), ParamNode))
	}
	return out
}

func (o *RemoveEntityType) Apply(schema *aggregates.Schema, args *operations.Arguments) error {
	id, err := nodeArg(args)
	if err != nil {
		return err
	}
	if schema.Model() == nil {
		return pkgerrors.NewInvalidStateError("schema has no semantic model")
	}
	types := schema.Model().EntityTypesFor(id)
	if len(types) == 0 {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("entity type for node %s", id))
	}
	for _, et := range types {
		if !schema.Remove(et.ID()) {
			return pkgerrors.NewInvalidStateError(fmt.Sprintf("removing entity type %s would leave the schema inconsistent", et.ID()))
		}
	}
	if left := schema.Model().EntityTypesFor(id); len(left) > 0 {
		return pkgerrors.NewInvalidStateError(fmt.Sprintf("%d entity types of node %s could not be removed", len(left), id))
	}
	return nil
}
