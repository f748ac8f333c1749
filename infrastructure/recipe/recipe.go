// Package recipe reads modeling recipes written in HCL and replays them
// against a modeling session.
//
// A recipe declares concepts first and then the operations to apply, in file
// order:
//
//	concept "Person" {
//	  description = "A human being"
//	  source_uri  = "https://schema.org/Person"
//	}
//
//	operation "SetDataType" {
//	  node      = node("count")
//	  data_type = "Number"
//	}
//
//	operation "SetEntityType" {
//	  node           = node("name")
//	  entity_concept = concept.Person
//	}
//
// node(path) resolves a dotted path from the schema root to a node identity.
// concept.<name> evaluates to the identity of a concept declared in the
// recipe.
package recipe

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/application/services"
	"github.com/tmdt-buw/plasma-sub002/domain/core/aggregates"
	"github.com/tmdt-buw/plasma-sub002/domain/operations"
	"github.com/tmdt-buw/plasma-sub002/domain/semantic"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

const (
	KindEntity   = "entity"
	KindRelation = "relation"
)

// File is the decoded top level of a recipe
type File struct {
	Concepts   []*Concept   `hcl:"concept,block"`
	Operations []*Operation `hcl:"operation,block"`
}

// Concept declares a semantic concept to add to the session
type Concept struct {
	Name        string   `hcl:"name,label"`
	Kind        string   `hcl:"kind,optional"`
	Description string   `hcl:"description,optional"`
	SourceURI   string   `hcl:"source_uri,optional"`
	Properties  []string `hcl:"properties,optional"`
}

// Operation names a registered operation. Its attributes stay unevaluated
// until the operation is about to run, because node paths depend on the
// schema left behind by earlier operations.
type Operation struct {
	Name   string   `hcl:"name,label"`
	Config hcl.Body `hcl:",remain"`
}

// ParseFile reads and decodes a recipe from disk
func ParseFile(path string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, pkgerrors.NewParameterParsingError(fmt.Sprintf("failed to parse recipe %s: %s", path, diags.Error()))
	}
	return decode(hclFile)
}

// Parse decodes a recipe held in memory. filename is only used in messages.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, pkgerrors.NewParameterParsingError(fmt.Sprintf("failed to parse recipe %s: %s", filename, diags.Error()))
	}
	return decode(hclFile)
}

func decode(hclFile *hcl.File) (*File, error) {
	var f File
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &f); diags.HasErrors() {
		return nil, pkgerrors.NewParameterParsingError(fmt.Sprintf("failed to decode recipe: %s", diags.Error()))
	}

	seen := make(map[string]bool, len(f.Concepts))
	for _, c := range f.Concepts {
		if c.Kind == "" {
			c.Kind = KindEntity
		}
		if c.Kind != KindEntity && c.Kind != KindRelation {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("concept %q: unknown kind %q", c.Name, c.Kind))
		}
		if seen[c.Name] {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("concept %q declared twice", c.Name))
		}
		seen[c.Name] = true
	}
	return &f, nil
}

// Session is the part of the modeling service a recipe drives
type Session interface {
	Registry() *operations.Registry
	Model(ctx context.Context, sessionID string) (*aggregates.CombinedModel, error)
	Apply(ctx context.Context, sessionID, name string, param operations.ParameterDTO) (*aggregates.CombinedModel, error)
	AddEntityConcept(ctx context.Context, sessionID string, spec services.ConceptSpec) (*semantic.EntityConcept, error)
	AddRelationConcept(ctx context.Context, sessionID string, spec services.ConceptSpec) (*semantic.RelationConcept, error)
}

// Result summarizes a replayed recipe
type Result struct {
	Concepts map[string]string
	Applied  int
	Model    *aggregates.CombinedModel
}

// Runner replays recipes against modeling sessions
type Runner struct {
	session Session
	logger  *zap.Logger
}

func NewRunner(session Session, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{session: session, logger: logger}
}

// Run adds the recipe's concepts and then applies its operations in order.
// It stops at the first failure; everything applied before it stays in the
// session history and can be undone there.
func (r *Runner) Run(ctx context.Context, sessionID string, f *File) (*Result, error) {
	result := &Result{Concepts: make(map[string]string, len(f.Concepts))}

	for _, c := range f.Concepts {
		id, err := r.addConcept(ctx, sessionID, c)
		if err != nil {
			return result, pkgerrors.Wrapf(err, "concept %q", c.Name)
		}
		result.Concepts[c.Name] = id
	}

	for i, op := range f.Operations {
		model, err := r.session.Model(ctx, sessionID)
		if err != nil {
			return result, err
		}
		param, err := r.Parameter(op, model.Schema(), result.Concepts)
		if err != nil {
			return result, pkgerrors.Wrapf(err, "operation %d (%s)", i+1, op.Name)
		}
		if _, err := r.session.Apply(ctx, sessionID, op.Name, param); err != nil {
			return result, pkgerrors.Wrapf(err, "operation %d (%s)", i+1, op.Name)
		}
		result.Applied++
		r.logger.Debug("Recipe operation applied",
			zap.String("session_id", sessionID),
			zap.String("operation", op.Name),
			zap.Int("step", i+1),
		)
	}

	model, err := r.session.Model(ctx, sessionID)
	if err != nil {
		return result, err
	}
	result.Model = model
	r.logger.Info("Recipe applied",
		zap.String("session_id", sessionID),
		zap.Int("concepts", len(result.Concepts)),
		zap.Int("operations", result.Applied),
	)
	return result, nil
}

func (r *Runner) addConcept(ctx context.Context, sessionID string, c *Concept) (string, error) {
	spec := services.ConceptSpec{Name: c.Name, Description: c.Description, SourceURI: c.SourceURI}
	if c.Kind == KindRelation {
		for _, p := range c.Properties {
			spec.Properties = append(spec.Properties, semantic.RelationProperty(strings.ToUpper(p)))
		}
		concept, err := r.session.AddRelationConcept(ctx, sessionID, spec)
		if err != nil {
			return "", err
		}
		return concept.ID().String(), nil
	}
	concept, err := r.session.AddEntityConcept(ctx, sessionID, spec)
	if err != nil {
		return "", err
	}
	return concept.ID().String(), nil
}

// Parameter evaluates the attributes of op against schema and fills them into
// the operation's prototype. Attribute names are the snake case form of the
// parameter names, so data_type sets DataType.
func (r *Runner) Parameter(op *Operation, schema *aggregates.Schema, concepts map[string]string) (operations.ParameterDTO, error) {
	registered, err := r.session.Registry().Lookup(op.Name)
	if err != nil {
		return operations.ParameterDTO{}, err
	}
	prototype := registered.Prototype()

	attrs, diags := op.Config.JustAttributes()
	if diags.HasErrors() {
		return operations.ParameterDTO{}, pkgerrors.NewParameterParsingError(diags.Error())
	}

	evalCtx := evalContext(schema, concepts)
	for name, attr := range attrs {
		child, ok := childFor(prototype, name)
		if !ok {
			return operations.ParameterDTO{}, pkgerrors.NewParameterParsingError(
				fmt.Sprintf("%s: %s has no parameter %q", attr.Range, op.Name, name))
		}
		value, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return operations.ParameterDTO{}, pkgerrors.NewParameterParsingError(diags.Error())
		}
		values, err := wireValues(value)
		if err != nil {
			return operations.ParameterDTO{}, pkgerrors.NewParameterParsingError(
				fmt.Sprintf("%s: %s", attr.Range, err.Error()))
		}
		child.WithValues(values...)
	}
	return prototype.ToDTO(), nil
}

func childFor(prototype *operations.ParameterDefinition, attribute string) (*operations.ParameterDefinition, bool) {
	want := strings.ReplaceAll(attribute, "_", "")
	for _, c := range prototype.Children {
		if strings.EqualFold(c.Name, want) {
			return c, true
		}
	}
	return nil, false
}
