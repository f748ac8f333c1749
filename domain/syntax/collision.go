package syntax

import (
	"fmt"
	"strings"

	"github.com/tmdt-buw/plasma-sub002/domain/core/traversal"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

const (
	slotPrimitive = iota
	slotObject
	slotSet
	slotCount
)

var slotKinds = [slotCount]Kind{KindPrimitive, KindObject, KindSet}

// Collision holds the diverging shapes observed at one position. It keeps one
// slot per kind and at least two of them are populated.
type Collision struct {
	base
	slots [slotCount]Node
}

// NewCollision routes the given nodes into a new collision. At least two
// distinct slots must end up populated.
func NewCollision(nodes []Node, opts ...Option) (*Collision, error) {
	c := &Collision{base: newBase(opts)}
	for _, n := range nodes {
		if err := c.route(n); err != nil {
			return nil, err
		}
	}
	if c.populated() < 2 {
		return nil, pkgerrors.NewInferenceError("a collision needs at least two distinct kinds")
	}
	return c, nil
}

func (c *Collision) Kind() Kind { return KindCollision }

// Slot returns the node held for the given kind. Composites live in the
// primitive slot.
func (c *Collision) Slot(kind Kind) (Node, bool) {
	idx := slotIndex(kind)
	if idx < 0 || c.slots[idx] == nil {
		return nil, false
	}
	return c.slots[idx], true
}

// Nodes returns the populated slots in slot order
func (c *Collision) Nodes() []Node {
	out := make([]Node, 0, slotCount)
	for _, n := range c.slots {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Kinds returns the kinds of the populated slots
func (c *Collision) Kinds() []Kind {
	out := make([]Kind, 0, slotCount)
	for i, n := range c.slots {
		if n != nil {
			out = append(out, slotKinds[i])
		}
	}
	return out
}

// Describe renders the populated kinds, e.g. "Primitive and Object".
func (c *Collision) Describe() string {
	names := make([]string, 0, slotCount)
	for _, k := range c.Kinds() {
		names = append(names, kindName(k))
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

func (c *Collision) populated() int {
	count := 0
	for _, n := range c.slots {
		if n != nil {
			count++
		}
	}
	return count
}

// route merges n into the slot of its kind, filling the slot if it is empty.
func (c *Collision) route(n Node) error {
	if n == nil {
		return nil
	}
	if other, ok := n.(*Collision); ok {
		for _, slot := range other.slots {
			if err := c.route(slot); err != nil {
				return err
			}
		}
		return nil
	}

	idx := slotIndex(n.Kind())
	if idx < 0 {
		return pkgerrors.NewInferenceError(fmt.Sprintf("cannot place %s in a collision", n.Kind()))
	}
	if c.slots[idx] == nil {
		c.slots[idx] = n
		return nil
	}
	merged, err := absorb(c.slots[idx], n)
	if err != nil {
		return err
	}
	c.slots[idx] = merged
	return nil
}

func slotIndex(kind Kind) int {
	switch kind {
	case KindPrimitive, KindComposite:
		return slotPrimitive
	case KindObject:
		return slotObject
	case KindSet:
		return slotSet
	}
	return -1
}

func kindName(kind Kind) string {
	switch kind {
	case KindPrimitive:
		return "Primitive"
	case KindObject:
		return "Object"
	case KindSet:
		return "Set"
	case KindCollision:
		return "Collision"
	case KindComposite:
		return "Composite"
	}
	return string(kind)
}

func (c *Collision) CopyWith(memo traversal.Memo) Node {
	return traversal.CopyOnce(memo, c.id, func() *Collision {
		return &Collision{base: c.base}
	}, func(cp *Collision) {
		for i, n := range c.slots {
			if n != nil {
				cp.slots[i] = n.CopyWith(memo)
			}
		}
	})
}

// Replace keeps one node per kind: a replacement that belongs to another slot,
// or is itself a collision, is ignored.
func (c *Collision) Replace(id Identity, r Node) Node {
	if c.id == id {
		return r
	}
	for i, n := range c.slots {
		if n == nil {
			continue
		}
		if repl := n.Replace(id, r); repl != nil && slotIndex(repl.Kind()) == i {
			c.slots[i] = repl
		}
	}
	return c
}

func (c *Collision) Find(id Identity) (Node, bool) {
	if c.id == id {
		return c, true
	}
	for _, n := range c.slots {
		if n == nil {
			continue
		}
		if found, ok := n.Find(id); ok {
			return found, true
		}
	}
	return nil, false
}

func (c *Collision) Execute(visit func(Node), visited traversal.Visited) {
	if !visited.Add(c.id) {
		return
	}
	visit(c)
	for _, n := range c.slots {
		if n != nil {
			n.Execute(visit, visited)
		}
	}
}

// RemoveWith drops matching slots. A collision left with fewer than two
// populated slots is no longer valid.
func (c *Collision) RemoveWith(id Identity, visited traversal.Visited, queue *traversal.Queue) bool {
	if !visited.Add(c.id) {
		return true
	}
	for i, n := range c.slots {
		if n == nil {
			continue
		}
		if dropped, _ := traversal.RemoveChild(id, visited, queue, n, traversal.Owned); dropped {
			c.slots[i] = nil
		}
	}
	return c.populated() >= 2
}
