// Package traversal holds the pieces shared by every graph family that
// supports identity preserving copy, cascading removal and visitor walks.
//
// Removal works on two levels. Each element implements RemoveWith, which
// drops matching owned children and reports whether the element itself is
// still consistent. Remove drives that per-element step from the root with an
// explicit FIFO worklist, so collateral removals of OWNED children are
// processed breadth first without recursion across passes.
package traversal

import (
	"github.com/tmdt-buw/plasma-sub002/domain/core/valueobjects"
)

// Identity is re-exported for brevity in graph packages.
type Identity = valueobjects.Identity

// Flag describes how an owner treats a removed child.
type Flag uint8

const (
	// None removes the child from the owner and nothing else.
	None Flag = 0
	// Owned queues the identity of a removed or invalidated child for global removal.
	Owned Flag = 1 << 0
	// Component makes the owner inconsistent when a child is removed or invalidated.
	Component Flag = 1 << 1
)

// Has reports whether all bits of o are set in f
func (f Flag) Has(o Flag) bool {
	return f&o == o
}

// Element is anything carrying an Identity.
type Element interface {
	ID() Identity
}

// Remover is an element that can drop children matching an identity.
// RemoveWith returns false when the receiver became inconsistent and must be
// removed by its owner.
type Remover interface {
	Element
	RemoveWith(id Identity, visited Visited, queue *Queue) bool
}

// Visited is a set of identities already handled within one walk.
type Visited map[Identity]struct{}

// NewVisited creates an empty set
func NewVisited() Visited {
	return make(Visited)
}

// Add marks id as visited and reports whether it was new.
func (v Visited) Add(id Identity) bool {
	if _, ok := v[id]; ok {
		return false
	}
	v[id] = struct{}{}
	return true
}

// Has reports whether id was visited
func (v Visited) Has(id Identity) bool {
	_, ok := v[id]
	return ok
}

// Queue is the FIFO collateral removal worklist.
type Queue struct {
	items []Identity
}

// NewQueue creates a queue seeded with ids
func NewQueue(ids ...Identity) *Queue {
	q := &Queue{items: make([]Identity, 0, len(ids)+4)}
	q.items = append(q.items, ids...)
	return q
}

// Push appends id to the tail
func (q *Queue) Push(id Identity) {
	q.items = append(q.items, id)
}

// Pop removes and returns the head
func (q *Queue) Pop() (Identity, bool) {
	if len(q.items) == 0 {
		return Identity{}, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

// Len returns the number of queued identities
func (q *Queue) Len() int {
	return len(q.items)
}

// Pending returns a copy of the queued identities in order.
func (q *Queue) Pending() []Identity {
	out := make([]Identity, len(q.items))
	copy(out, q.items)
	return out
}

// Remove removes every element with the given identity reachable from root,
// then drains the collateral queue until it is empty. Identities already
// removed are skipped. It returns false as soon as one pass leaves root
// inconsistent; the remaining queue is abandoned in that case since the whole
// component is invalid.
func Remove(root Remover, id Identity) bool {
	removed := NewVisited()
	queue := NewQueue(id)
	for {
		head, ok := queue.Pop()
		if !ok {
			return true
		}
		if removed.Has(head) {
			continue
		}
		if !root.RemoveWith(head, NewVisited(), queue) {
			return false
		}
		removed.Add(head)
	}
}

// RemoveChildren applies one removal step to a list of children. A child is
// dropped when its identity matches or when its own RemoveWith reports it
// inconsistent. Dropped children are queued when flags has Owned and make the
// owner inconsistent when flags has Component. The kept children are returned
// in their original order; the backing array of children is reused.
func RemoveChildren[T Remover](id Identity, visited Visited, queue *Queue, children []T, flags Flag) ([]T, bool) {
	consistent := true
	kept := children[:0]
	for _, child := range children {
		if dropChild(id, visited, queue, child) {
			if flags.Has(Component) {
				consistent = false
			}
			if flags.Has(Owned) {
				queue.Push(child.ID())
			}
			continue
		}
		kept = append(kept, child)
	}
	var zero T
	for i := len(kept); i < len(children); i++ {
		children[i] = zero
	}
	return kept, consistent
}

// RemoveChild is RemoveChildren for a single reference. It reports whether
// the child was dropped and whether the owner is still consistent.
func RemoveChild[T Remover](id Identity, visited Visited, queue *Queue, child T, flags Flag) (dropped bool, consistent bool) {
	if !dropChild(id, visited, queue, child) {
		return false, true
	}
	if flags.Has(Owned) {
		queue.Push(child.ID())
	}
	return true, !flags.Has(Component)
}

func dropChild[T Remover](id Identity, visited Visited, queue *Queue, child T) bool {
	if child.ID() == id {
		return true
	}
	return !child.RemoveWith(id, visited, queue)
}

// Memo maps identities to copies already built during one copy pass.
type Memo map[Identity]any

// NewMemo creates an empty memo
func NewMemo() Memo {
	return make(Memo)
}

// CopyOnce returns the copy registered for id, or allocates one, registers it
// before its children are filled, and then runs fill. Registering first is
// what makes copying of cyclic graphs terminate.
func CopyOnce[T any](memo Memo, id Identity, alloc func() T, fill func(T)) T {
	if existing, ok := memo[id]; ok {
		if typed, ok := existing.(T); ok {
			return typed
		}
	}
	c := alloc()
	memo[id] = c
	if fill != nil {
		fill(c)
	}
	return c
}
