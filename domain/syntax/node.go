// Package syntax models the structural schema inferred from JSON samples.
//
// A schema is a tree (in general a DAG) of Nodes. Node is a closed union of
// Primitive, Object, Set, Collision and Composite; every variant implements the
// identity preserving graph protocol from the traversal package.
package syntax

import (
	"github.com/tmdt-buw/plasma-sub002/domain/core/traversal"
	"github.com/tmdt-buw/plasma-sub002/domain/core/valueobjects"
)

// Identity is the identity of a node
type Identity = valueobjects.Identity

// Kind discriminates the node variants. The values double as wire tags.
type Kind string

const (
	KindPrimitive Kind = "primitive"
	KindObject    Kind = "object"
	KindSet       Kind = "array"
	KindCollision Kind = "collision"
	KindComposite Kind = "composite"
)

// Caps applied to inferred content.
const (
	MaxExamples      = 6
	MaxExampleLength = 255
	MaxLabelLength   = 254
)

// Node is a structural schema element.
type Node interface {
	traversal.Remover

	Kind() Kind
	Label() string
	SetLabel(label string)

	// CopyWith deep copies the node, reusing copies already present in memo.
	CopyWith(memo traversal.Memo) Node
	// Replace returns r if the receiver has the given identity. Otherwise it
	// rewrites its owned children in place and returns the receiver.
	Replace(id Identity, r Node) Node
	// Find searches depth first for a node with the given identity.
	Find(id Identity) (Node, bool)
	// Execute calls visit once per unique identity, parents before children.
	Execute(visit func(Node), visited traversal.Visited)

	sealed()
}

type base struct {
	id    Identity
	label string
}

func (b *base) ID() Identity { return b.id }

func (b *base) Label() string { return b.label }

func (b *base) SetLabel(label string) { b.label = truncate(label, MaxLabelLength) }

func (b *base) sealed() {}

// Option configures a new node
type Option func(*base)

// WithIdentity sets a fixed identity instead of a random one
func WithIdentity(id Identity) Option {
	return func(b *base) { b.id = id }
}

// WithLabel sets the label
func WithLabel(label string) Option {
	return func(b *base) { b.label = truncate(label, MaxLabelLength) }
}

func newBase(opts []Option) base {
	var b base
	for _, opt := range opts {
		opt(&b)
	}
	if b.id.IsZero() {
		b.id = valueobjects.RandomIdentity()
	}
	return b
}

// Copy deep copies n with a fresh memo. A nil node copies to nil.
func Copy(n Node) Node {
	if n == nil {
		return nil
	}
	return n.CopyWith(traversal.NewMemo())
}

// Remove removes every node with the given identity below root and cascades
// collateral removals. It reports false when root itself became invalid.
func Remove(root Node, id Identity) bool {
	if root == nil {
		return true
	}
	return traversal.Remove(root, id)
}

// Walk visits every unique node reachable from root.
func Walk(root Node, visit func(Node)) {
	if root == nil {
		return
	}
	root.Execute(visit, traversal.NewVisited())
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
