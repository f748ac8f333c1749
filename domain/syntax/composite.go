package syntax

import (
	"fmt"
	"slices"

	"github.com/tmdt-buw/plasma-sub002/domain/core/traversal"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// Composite is a primitive value split into consecutive tokens. Each split
// pattern cuts one token from the start of the value, so n patterns produce
// n+1 components. The unsplit values are kept as the source so the composite
// can be split again with other patterns.
type Composite struct {
	base
	components []*Primitive
	patterns   []string
	source     []string
}

// NewComposite creates a composite. The number of components must exceed the
// number of patterns by exactly one.
func NewComposite(components []*Primitive, patterns []string, opts ...Option) (*Composite, error) {
	if len(patterns) == 0 {
		return nil, pkgerrors.NewValidationError("a composite needs at least one split pattern")
	}
	if len(components) != len(patterns)+1 {
		return nil, pkgerrors.NewValidationError(
			fmt.Sprintf("%d split patterns require %d components, got %d", len(patterns), len(patterns)+1, len(components)))
	}
	c := &Composite{
		base:       newBase(opts),
		components: make([]*Primitive, len(components)),
		patterns:   make([]string, len(patterns)),
	}
	copy(c.components, components)
	copy(c.patterns, patterns)
	return c, nil
}

func (c *Composite) Kind() Kind { return KindComposite }

// Components returns the component primitives in token order
func (c *Composite) Components() []*Primitive {
	out := make([]*Primitive, len(c.components))
	copy(out, c.components)
	return out
}

// Patterns returns the split patterns
func (c *Composite) Patterns() []string {
	out := make([]string, len(c.patterns))
	copy(out, c.patterns)
	return out
}

// Source returns the values the composite was split from
func (c *Composite) Source() []string {
	out := make([]string, len(c.source))
	copy(out, c.source)
	return out
}

// SetSource records the unsplit values, capped and truncated like primitive
// examples.
func (c *Composite) SetSource(values []string) {
	c.source = appendExamples(nil, values)
}

func (c *Composite) absorb(other *Composite) error {
	if !samePatterns(c.patterns, other.patterns) || len(c.components) != len(other.components) {
		return pkgerrors.NewInferenceError("cannot merge composites with different split patterns")
	}
	for i, p := range other.components {
		c.components[i].absorb(p)
	}
	c.source = appendExamples(c.source, other.source)
	return nil
}

func appendExamples(dst, values []string) []string {
	for _, v := range values {
		if len(dst) >= MaxExamples {
			break
		}
		v = truncate(v, MaxExampleLength)
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

func samePatterns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c *Composite) CopyWith(memo traversal.Memo) Node {
	return traversal.CopyOnce(memo, c.id, func() *Composite {
		return &Composite{
			base:       c.base,
			components: make([]*Primitive, 0, len(c.components)),
			patterns:   c.Patterns(),
			source:     c.Source(),
		}
	}, func(cp *Composite) {
		for _, p := range c.components {
			cp.components = append(cp.components, p.copyWith(memo))
		}
	})
}

// Replace only accepts primitives as component replacements.
func (c *Composite) Replace(id Identity, r Node) Node {
	if c.id == id {
		return r
	}
	for i, p := range c.components {
		if rp, ok := p.Replace(id, r).(*Primitive); ok {
			c.components[i] = rp
		}
	}
	return c
}

func (c *Composite) Find(id Identity) (Node, bool) {
	if c.id == id {
		return c, true
	}
	for _, p := range c.components {
		if p.id == id {
			return p, true
		}
	}
	return nil, false
}

func (c *Composite) Execute(visit func(Node), visited traversal.Visited) {
	if !visited.Add(c.id) {
		return
	}
	visit(c)
	for _, p := range c.components {
		p.Execute(visit, visited)
	}
}

// RemoveWith invalidates the composite when any of its components goes.
func (c *Composite) RemoveWith(id Identity, visited traversal.Visited, queue *traversal.Queue) bool {
	if !visited.Add(c.id) {
		return true
	}
	var consistent bool
	c.components, consistent = traversal.RemoveChildren(id, visited, queue, c.components, traversal.Owned|traversal.Component)
	return consistent
}
