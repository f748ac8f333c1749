package syntax

import (
	"github.com/tmdt-buw/plasma-sub002/domain/core/traversal"
)

// Primitive is a scalar position in the schema. It keeps a small set of
// representative example values.
type Primitive struct {
	base
	dataType         DataType
	cleansingPattern string
	examples         []string
}

// NewPrimitive creates a primitive holding the given examples, deduplicated
// and capped.
func NewPrimitive(examples []string, opts ...Option) *Primitive {
	p := &Primitive{
		base:     newBase(opts),
		dataType: DataTypeUnknown,
	}
	p.SetExamples(examples)
	return p
}

func (p *Primitive) Kind() Kind { return KindPrimitive }

func (p *Primitive) DataType() DataType { return p.dataType }

func (p *Primitive) SetDataType(dt DataType) { p.dataType = dt }

func (p *Primitive) CleansingPattern() string { return p.cleansingPattern }

func (p *Primitive) SetCleansingPattern(pattern string) { p.cleansingPattern = pattern }

// Examples returns a copy of the example values
func (p *Primitive) Examples() []string {
	out := make([]string, len(p.examples))
	copy(out, p.examples)
	return out
}

// AddExample appends an example unless it is already present or the cap is
// reached. Long values are truncated first.
func (p *Primitive) AddExample(example string) bool {
	if len(p.examples) >= MaxExamples {
		return false
	}
	example = truncate(example, MaxExampleLength)
	for _, e := range p.examples {
		if e == example {
			return false
		}
	}
	p.examples = append(p.examples, example)
	return true
}

// SetExamples replaces all examples
func (p *Primitive) SetExamples(examples []string) {
	p.examples = make([]string, 0, min(len(examples), MaxExamples))
	for _, e := range examples {
		p.AddExample(e)
	}
}

// absorb folds other into p. The receiver keeps its data type unless it is
// still unknown.
func (p *Primitive) absorb(other *Primitive) {
	if p.dataType == DataTypeUnknown {
		p.dataType = other.dataType
	}
	if p.cleansingPattern == "" {
		p.cleansingPattern = other.cleansingPattern
	}
	for _, e := range other.examples {
		p.AddExample(e)
	}
}

func (p *Primitive) CopyWith(memo traversal.Memo) Node {
	return p.copyWith(memo)
}

func (p *Primitive) copyWith(memo traversal.Memo) *Primitive {
	return traversal.CopyOnce(memo, p.id, func() *Primitive {
		return &Primitive{
			base:             p.base,
			dataType:         p.dataType,
			cleansingPattern: p.cleansingPattern,
			examples:         p.Examples(),
		}
	}, nil)
}

func (p *Primitive) Replace(id Identity, r Node) Node {
	if p.id == id {
		return r
	}
	return p
}

func (p *Primitive) Find(id Identity) (Node, bool) {
	if p.id == id {
		return p, true
	}
	return nil, false
}

func (p *Primitive) Execute(visit func(Node), visited traversal.Visited) {
	if visited.Add(p.id) {
		visit(p)
	}
}

func (p *Primitive) RemoveWith(id Identity, visited traversal.Visited, queue *traversal.Queue) bool {
	visited.Add(p.id)
	return true
}
