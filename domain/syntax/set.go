package syntax

import (
	"github.com/tmdt-buw/plasma-sub002/domain/core/traversal"
)

// minShapeSimilarity is the key set similarity above which two objects in a
// set are treated as the same shape.
const minShapeSimilarity = 0.5

// Set represents an array as the collection of distinct shapes its elements
// take. All scalar elements share a single Primitive member.
type Set struct {
	base
	members []Node
}

// NewSet creates an empty set
func NewSet(opts ...Option) *Set {
	return &Set{base: newBase(opts)}
}

func (s *Set) Kind() Kind { return KindSet }

// Members returns the shape variants in insertion order
func (s *Set) Members() []Node {
	out := make([]Node, len(s.members))
	copy(out, s.members)
	return out
}

func (s *Set) Len() int { return len(s.members) }

// Scalar returns the primitive variant if the set holds scalars
func (s *Set) Scalar() (*Primitive, bool) {
	for _, m := range s.members {
		if p, ok := m.(*Primitive); ok {
			return p, true
		}
	}
	return nil, false
}

// Examples returns the examples of the scalar variant
func (s *Set) Examples() []string {
	if p, ok := s.Scalar(); ok {
		return p.Examples()
	}
	return nil
}

// Absorb merges n into the most fitting member, or appends it as a new shape.
// The set takes ownership of n.
func (s *Set) Absorb(n Node) error {
	if n == nil {
		return nil
	}

	idx := s.matchFor(n)
	if idx < 0 {
		s.members = append(s.members, n)
		return nil
	}

	merged, err := absorb(s.members[idx], n)
	if err != nil {
		return err
	}
	s.members[idx] = merged
	return nil
}

// matchFor returns the index of the member n should merge into, or -1.
func (s *Set) matchFor(n Node) int {
	switch in := n.(type) {
	case *Primitive:
		for i, m := range s.members {
			if _, ok := m.(*Primitive); ok {
				return i
			}
		}
	case *Set:
		for i, m := range s.members {
			if _, ok := m.(*Set); ok {
				return i
			}
		}
	case *Composite:
		for i, m := range s.members {
			if c, ok := m.(*Composite); ok && samePatterns(c.patterns, in.patterns) {
				return i
			}
		}
	case *Object:
		best, bestScore := -1, 0.0
		for i, m := range s.members {
			o, ok := m.(*Object)
			if !ok {
				continue
			}
			if score := keySimilarity(o, in); score >= minShapeSimilarity && score > bestScore {
				best, bestScore = i, score
			}
		}
		return best
	}
	return -1
}

// keySimilarity is the Jaccard index of the field name sets.
func keySimilarity(a, b *Object) float64 {
	if len(a.keys) == 0 && len(b.keys) == 0 {
		return 1
	}
	shared := 0
	for _, k := range b.keys {
		if _, ok := a.children[k]; ok {
			shared++
		}
	}
	union := len(a.keys) + len(b.keys) - shared
	return float64(shared) / float64(union)
}

func (s *Set) CopyWith(memo traversal.Memo) Node {
	return traversal.CopyOnce(memo, s.id, func() *Set {
		return &Set{base: s.base, members: make([]Node, 0, len(s.members))}
	}, func(c *Set) {
		for _, m := range s.members {
			c.members = append(c.members, m.CopyWith(memo))
		}
	})
}

func (s *Set) Replace(id Identity, r Node) Node {
	if s.id == id {
		return r
	}
	for i, m := range s.members {
		s.members[i] = m.Replace(id, r)
	}
	return s
}

func (s *Set) Find(id Identity) (Node, bool) {
	if s.id == id {
		return s, true
	}
	for _, m := range s.members {
		if n, ok := m.Find(id); ok {
			return n, true
		}
	}
	return nil, false
}

func (s *Set) Execute(visit func(Node), visited traversal.Visited) {
	if !visited.Add(s.id) {
		return
	}
	visit(s)
	for _, m := range s.members {
		m.Execute(visit, visited)
	}
}

func (s *Set) RemoveWith(id Identity, visited traversal.Visited, queue *traversal.Queue) bool {
	if !visited.Add(s.id) {
		return true
	}
	s.members, _ = traversal.RemoveChildren(id, visited, queue, s.members, traversal.Owned)
	return true
}
