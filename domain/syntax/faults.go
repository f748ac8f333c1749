package syntax

import (
	"fmt"
)

// Fault is an advisory diagnostic about a schema position
type Fault struct {
	NodeID  Identity `json:"nodeId"`
	Message string   `json:"message"`
}

// EvaluateConstraints reports one fault per collision and one per identity
// that is reachable more than once. It never fails.
func EvaluateConstraints(root Node) []Fault {
	if root == nil {
		return nil
	}
	faults := make([]Fault, 0)
	seen := make(map[Identity]struct{})
	collectFaults(root, seen, &faults)
	return faults
}

func collectFaults(n Node, seen map[Identity]struct{}, faults *[]Fault) {
	if _, dup := seen[n.ID()]; dup {
		*faults = append(*faults, Fault{
			NodeID:  n.ID(),
			Message: fmt.Sprintf("duplicate identity found: %s", n.ID()),
		})
		return
	}
	seen[n.ID()] = struct{}{}

	switch v := n.(type) {
	case *Object:
		for _, k := range v.keys {
			collectFaults(v.children[k], seen, faults)
		}
	case *Set:
		for _, m := range v.members {
			collectFaults(m, seen, faults)
		}
	case *Collision:
		*faults = append(*faults, Fault{
			NodeID:  v.id,
			Message: fmt.Sprintf("node contains collisions of type %s", v.Describe()),
		})
		for _, s := range v.Nodes() {
			collectFaults(s, seen, faults)
		}
	case *Composite:
		for _, p := range v.components {
			collectFaults(p, seen, faults)
		}
	case *Primitive:
	}
}

// Finalize predicts the data type of every primitive whose type is still
// unknown.
func Finalize(root Node) {
	Walk(root, func(n Node) {
		if p, ok := n.(*Primitive); ok && p.dataType == DataTypeUnknown {
			p.dataType = PredictDataType(p.examples)
		}
	})
}
