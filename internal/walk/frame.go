package walk

import (
	"strings"

	"aggregate-mapper/internal/model"
	"aggregate-mapper/node"
)

// Stage of a traversal.
type Stage int

const (
	StageAny Stage = iota
	StageCreate
	StageUpdate
	StagePostLogic
)

func (s Stage) String() string {
	switch s {
	case StageCreate:
		return "CREATE"
	case StageUpdate:
		return "UPDATE"
	case StagePostLogic:
		return "POSTLOGIC"
	default:
		return "ANY"
	}
}

// Phase tells whether a hook runs before or after a property's subtree.
type Phase int

const (
	PhasePre Phase = iota + 1
	PhasePost
)

func (p Phase) String() string {
	if p == PhasePost {
		return "POST"
	}

	return "PRE"
}

// CallFrame is the record of one property visit. Frames form a linked list
// through Parent, mirroring the traversal path; they are discarded when the
// visit returns.
type CallFrame struct {
	Input    *model.Object
	Output   *node.Node
	Parent   *CallFrame
	Property *model.Property // nil for a node frame
	Stage    Stage
	Phase    Phase
	// Bulk is set on the frames of the roots of a bulk input.
	Bulk bool
}

// child creates the frame visiting property p of the same node.
func (f *CallFrame) child(p *model.Property) *CallFrame {
	return &CallFrame{
		Input:    f.Input,
		Output:   f.Output,
		Parent:   f,
		Property: p,
		Stage:    f.Stage,
		Phase:    PhasePre,
	}
}

// nested creates the node frame of an element reached through f.
func (f *CallFrame) nested(in *model.Object, out *node.Node) *CallFrame {
	return &CallFrame{
		Input:  in,
		Output: out,
		Parent: f,
		Stage:  f.Stage,
		Phase:  PhasePre,
	}
}

// Depth counts the frames above f.
func (f *CallFrame) Depth() int {
	n := 0
	for cur := f.Parent; cur != nil; cur = cur.Parent {
		n++
	}

	return n
}

// Path renders the property path from the root, e.g. "Customer.orders.lines".
func (f *CallFrame) Path() string {
	var parts []string
	for cur := f; cur != nil; cur = cur.Parent {
		if cur.Property != nil {
			parts = append(parts, cur.Property.Name)
		} else if cur.Parent == nil && cur.Input != nil {
			parts = append(parts, cur.Input.Type().Name)
		}
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}

	return strings.Join(parts, ".")
}

// Value returns the input value of the frame's property.
func (f *CallFrame) Value() any {
	if f.Property == nil || f.Input == nil {
		return nil
	}

	return f.Input.Get(f.Property.Name)
}
