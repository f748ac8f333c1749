package syntax

import (
	"fmt"

	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// Merge folds b into a and returns the unified node. Neither input is
// modified and the result shares no owned state with them. The result keeps
// the identity of a, except when either side is a collision: then the other
// side is routed into a copy of that collision.
func Merge(a, b Node) (Node, error) {
	switch {
	case a == nil && b == nil:
		return nil, nil
	case a == nil:
		return Copy(b), nil
	case b == nil:
		return Copy(a), nil
	}
	return absorb(Copy(a), Copy(b))
}

// absorb merges in into acc, mutating acc. Both must be owned by the caller.
func absorb(acc, in Node) (Node, error) {
	if c, ok := in.(*Collision); ok {
		if _, accIsCollision := acc.(*Collision); !accIsCollision {
			if err := c.route(acc); err != nil {
				return nil, err
			}
			return c, nil
		}
	}

	switch a := acc.(type) {
	case *Collision:
		if err := a.route(in); err != nil {
			return nil, err
		}
		return a, nil
	case *Primitive:
		if p, ok := in.(*Primitive); ok {
			a.absorb(p)
			return a, nil
		}
	case *Object:
		if o, ok := in.(*Object); ok {
			if err := mergeObjects(a, o); err != nil {
				return nil, err
			}
			return a, nil
		}
	case *Set:
		if s, ok := in.(*Set); ok {
			for _, m := range s.members {
				if err := a.Absorb(m); err != nil {
					return nil, err
				}
			}
			return a, nil
		}
	case *Composite:
		if c, ok := in.(*Composite); ok {
			if err := a.absorb(c); err != nil {
				return nil, err
			}
			return a, nil
		}
	}

	if acc.Kind() == KindComposite || in.Kind() == KindComposite {
		return nil, pkgerrors.NewInferenceError(
			fmt.Sprintf("cannot merge %s with %s", kindName(acc.Kind()), kindName(in.Kind())))
	}

	c, err := NewCollision([]Node{acc, in}, WithLabel(acc.Label()))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func mergeObjects(acc, in *Object) error {
	for _, k := range in.keys {
		child := in.children[k]
		existing, ok := acc.children[k]
		if !ok {
			acc.Put(k, child)
			continue
		}
		merged, err := absorb(existing, child)
		if err != nil {
			return pkgerrors.Wrapf(err, "field %q", k)
		}
		if merged.Label() == "" {
			merged.SetLabel(k)
		}
		acc.children[k] = merged
	}
	return nil
}
