package syntax

import (
	"github.com/tmdt-buw/plasma-sub002/domain/core/traversal"
)

// Object maps field names to child nodes. Field order is insertion order.
type Object struct {
	base
	keys     []string
	children map[string]Node
}

// NewObject creates an empty object
func NewObject(opts ...Option) *Object {
	return &Object{
		base:     newBase(opts),
		children: make(map[string]Node),
	}
}

func (o *Object) Kind() Kind { return KindObject }

// Put sets the child for name, truncating the name first. A child without a
// label takes the field name as its label.
func (o *Object) Put(name string, child Node) {
	if child == nil {
		return
	}
	name = truncate(name, MaxLabelLength)
	if child.Label() == "" {
		child.SetLabel(name)
	}
	if _, exists := o.children[name]; !exists {
		o.keys = append(o.keys, name)
	}
	o.children[name] = child
}

// Get returns the child stored under name
func (o *Object) Get(name string) (Node, bool) {
	child, ok := o.children[truncate(name, MaxLabelLength)]
	return child, ok
}

// Delete removes a field
func (o *Object) Delete(name string) {
	name = truncate(name, MaxLabelLength)
	if _, ok := o.children[name]; !ok {
		return
	}
	delete(o.children, name)
	for i, k := range o.keys {
		if k == name {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in insertion order
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *Object) Len() int { return len(o.keys) }

func (o *Object) CopyWith(memo traversal.Memo) Node {
	return traversal.CopyOnce(memo, o.id, func() *Object {
		return &Object{
			base:     o.base,
			keys:     make([]string, 0, len(o.keys)),
			children: make(map[string]Node, len(o.children)),
		}
	}, func(c *Object) {
		for _, k := range o.keys {
			c.keys = append(c.keys, k)
			c.children[k] = o.children[k].CopyWith(memo)
		}
	})
}

func (o *Object) Replace(id Identity, r Node) Node {
	if o.id == id {
		return r
	}
	for _, k := range o.keys {
		o.children[k] = o.children[k].Replace(id, r)
	}
	return o
}

func (o *Object) Find(id Identity) (Node, bool) {
	if o.id == id {
		return o, true
	}
	for _, k := range o.keys {
		if n, ok := o.children[k].Find(id); ok {
			return n, true
		}
	}
	return nil, false
}

func (o *Object) Execute(visit func(Node), visited traversal.Visited) {
	if !visited.Add(o.id) {
		return
	}
	visit(o)
	for _, k := range o.keys {
		o.children[k].Execute(visit, visited)
	}
}

func (o *Object) RemoveWith(id Identity, visited traversal.Visited, queue *traversal.Queue) bool {
	if !visited.Add(o.id) {
		return true
	}
	for _, k := range o.Keys() {
		if dropped, _ := traversal.RemoveChild(id, visited, queue, o.children[k], traversal.Owned); dropped {
			o.Delete(k)
		}
	}
	return true
}
