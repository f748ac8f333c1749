package syntax

import (
	"bytes"
	"fmt"

	j "github.com/goccy/go-json"

	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// WireNode is the JSON shape of a node at the service boundary.
type WireNode struct {
	Type  Kind     `json:"type"`
	ID    Identity `json:"id"`
	Label string   `json:"label,omitempty"`

	// primitive
	DataType         DataType `json:"dataType,omitempty"`
	CleansingPattern string   `json:"cleansingPattern,omitempty"`
	Examples         []string `json:"examples,omitempty"`

	// object uses Fields, set uses Members; both are serialized as "children"
	Fields  WireFields  `json:"-"`
	Members []*WireNode `json:"-"`

	// collision
	Primitive *WireNode `json:"primitive,omitempty"`
	Object    *WireNode `json:"object,omitempty"`
	Set       *WireNode `json:"set,omitempty"`

	// composite
	Components []*WireNode `json:"components,omitempty"`
	Patterns   []string    `json:"patterns,omitempty"`
	Source     []string    `json:"source,omitempty"`
}

// WireField is one named object child
type WireField struct {
	Name string
	Node *WireNode
}

// WireFields encodes as a JSON object that keeps field order.
type WireFields []WireField

func (f WireFields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := j.Marshal(field.Name)
		if err != nil {
			return nil, err
		}
		val, err := j.Marshal(field.Node)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (f *WireFields) UnmarshalJSON(data []byte) error {
	dec := j.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(j.Delim); !ok || d != '{' {
		return fmt.Errorf("object children must be a JSON object")
	}
	var out WireFields
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("object child name must be a string")
		}
		var child WireNode
		if err := dec.Decode(&child); err != nil {
			return err
		}
		out = append(out, WireField{Name: name, Node: &child})
	}
	*f = out
	return nil
}

// wireAlias drops the custom methods so the struct tags apply.
type wireAlias WireNode

type wireEnvelope struct {
	*wireAlias
	Children j.RawMessage `json:"children,omitempty"`
}

func (w *WireNode) MarshalJSON() ([]byte, error) {
	env := wireEnvelope{wireAlias: (*wireAlias)(w)}
	var err error
	switch w.Type {
	case KindObject:
		env.Children, err = j.Marshal(w.Fields)
	case KindSet:
		members := w.Members
		if members == nil {
			members = []*WireNode{}
		}
		env.Children, err = j.Marshal(members)
	}
	if err != nil {
		return nil, err
	}
	return j.Marshal(env)
}

func (w *WireNode) UnmarshalJSON(data []byte) error {
	env := wireEnvelope{wireAlias: (*wireAlias)(w)}
	if err := j.Unmarshal(data, &env); err != nil {
		return err
	}
	if len(env.Children) == 0 {
		return nil
	}
	switch w.Type {
	case KindObject:
		return j.Unmarshal(env.Children, &w.Fields)
	case KindSet:
		return j.Unmarshal(env.Children, &w.Members)
	}
	return nil
}

// ToWire converts a node tree to its wire form. Shared nodes are emitted at
// every position that references them.
func ToWire(n Node) *WireNode {
	if n == nil {
		return nil
	}
	w := &WireNode{Type: n.Kind(), ID: n.ID(), Label: n.Label()}
	switch v := n.(type) {
	case *Primitive:
		w.DataType = v.dataType
		w.CleansingPattern = v.cleansingPattern
		w.Examples = v.Examples()
	case *Object:
		w.Fields = make(WireFields, 0, len(v.keys))
		for _, k := range v.keys {
			w.Fields = append(w.Fields, WireField{Name: k, Node: ToWire(v.children[k])})
		}
	case *Set:
		w.Members = make([]*WireNode, 0, len(v.members))
		for _, m := range v.members {
			w.Members = append(w.Members, ToWire(m))
		}
	case *Collision:
		w.Primitive = ToWire(v.slots[slotPrimitive])
		w.Object = ToWire(v.slots[slotObject])
		w.Set = ToWire(v.slots[slotSet])
	case *Composite:
		w.Patterns = v.Patterns()
		w.Source = v.Source()
		for _, p := range v.components {
			w.Components = append(w.Components, ToWire(p))
		}
	}
	return w
}

// FromWire rebuilds a node tree. Positions carrying the same identity are
// restored as one shared node.
func FromWire(w *WireNode) (Node, error) {
	return fromWire(w, make(map[Identity]Node))
}

func fromWire(w *WireNode, built map[Identity]Node) (Node, error) {
	if w == nil {
		return nil, nil
	}
	if w.ID.IsZero() {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("%s node without id", w.Type))
	}
	if n, ok := built[w.ID]; ok {
		return n, nil
	}
	opts := []Option{WithIdentity(w.ID), WithLabel(w.Label)}

	switch w.Type {
	case KindPrimitive:
		p := newWirePrimitive(w, opts)
		built[w.ID] = p
		return p, nil
	case KindObject:
		o := NewObject(opts...)
		built[w.ID] = o
		for _, f := range w.Fields {
			child, err := fromWire(f.Node, built)
			if err != nil {
				return nil, err
			}
			o.Put(f.Name, child)
		}
		return o, nil
	case KindSet:
		s := NewSet(opts...)
		built[w.ID] = s
		for _, m := range w.Members {
			child, err := fromWire(m, built)
			if err != nil {
				return nil, err
			}
			if child != nil {
				s.members = append(s.members, child)
			}
		}
		return s, nil
	case KindCollision:
		c := &Collision{base: newBase(opts)}
		built[w.ID] = c
		for i, slot := range []*WireNode{w.Primitive, w.Object, w.Set} {
			child, err := fromWire(slot, built)
			if err != nil {
				return nil, err
			}
			if child != nil && slotIndex(child.Kind()) != i {
				return nil, pkgerrors.NewValidationError(fmt.Sprintf("collision %s slot holds a %s node", kindName(slotKinds[i]), kindName(child.Kind())))
			}
			c.slots[i] = child
		}
		if c.populated() < 2 {
			return nil, pkgerrors.NewValidationError("collision with fewer than two slots")
		}
		return c, nil
	case KindComposite:
		components := make([]*Primitive, 0, len(w.Components))
		for _, cw := range w.Components {
			if cw == nil || cw.Type != KindPrimitive {
				return nil, pkgerrors.NewValidationError("composite components must be primitives")
			}
			p := newWirePrimitive(cw, []Option{WithIdentity(cw.ID), WithLabel(cw.Label)})
			built[cw.ID] = p
			components = append(components, p)
		}
		c, err := NewComposite(components, w.Patterns, opts...)
		if err != nil {
			return nil, err
		}
		c.SetSource(w.Source)
		built[w.ID] = c
		return c, nil
	default:
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("unknown node type %q", w.Type))
	}
}

func newWirePrimitive(w *WireNode, opts []Option) *Primitive {
	p := NewPrimitive(w.Examples, opts...)
	if w.DataType != "" {
		p.dataType = w.DataType
	}
	p.cleansingPattern = w.CleansingPattern
	return p
}

// MarshalNode encodes a node tree as JSON
func MarshalNode(n Node) ([]byte, error) {
	return j.Marshal(ToWire(n))
}

// UnmarshalNode decodes a node tree from JSON
func UnmarshalNode(data []byte) (Node, error) {
	var w WireNode
	if err := j.Unmarshal(data, &w); err != nil {
		return nil, pkgerrors.NewValidationError("malformed node JSON").WithCause(err)
	}
	return FromWire(&w)
}
