package node

import (
	"aggregate-mapper/internal/model"
)

type Status int

const (
	StatusTransient Status = iota
	StatusPersistent
)

func (s Status) String() string {
	if s == StatusPersistent {
		return "persistent"
	}

	return "transient"
}

// Node wraps one object taking part in a traversal. It never stores traversal
// state such as the visited flag, which lives in Visited.
type Node struct {
	Object    *model.Object
	Status    Status
	Container *Node
	// Property is the property of Container holding this node.
	Property *model.Property
}

func (n *Node) Type() *model.Type { return n.Object.Type() }

func (n *Node) IsReference() bool { return n.Object.IsReference() }

func (n *Node) IsPersistent() bool { return n.Status == StatusPersistent }

// Path renders the aggregate path from the root, e.g. "Order.lines.product".
func (n *Node) Path() string {
	var names []string
	for cur := n; cur != nil; cur = cur.Container {
		if cur.Property == nil {
			names = append(names, cur.Type().Name)
			continue
		}

		names = append(names, cur.Property.Name)
	}

	return joinReversed(names, ".")
}

// Arena owns the nodes of one traversal, indexed by object identity.
type Arena struct {
	nodes map[*model.Object]*Node
	order []*Node
}

func NewArena() *Arena {
	return &Arena{nodes: make(map[*model.Object]*Node)}
}

// Wrap returns the node of o, creating it with status when absent.
func (a *Arena) Wrap(o *model.Object, status Status) *Node {
	if n, ok := a.nodes[o]; ok {
		return n
	}

	n := &Node{Object: o, Status: status}
	a.nodes[o] = n
	a.order = append(a.order, n)

	return n
}

// Attach sets the container of the node of o once; later attachments keep
// the first container.
func (a *Arena) Attach(o *model.Object, container *Node, p *model.Property) {
	n, ok := a.nodes[o]
	if !ok || n.Container != nil || n == container {
		return
	}

	n.Container = container
	n.Property = p
}

func (a *Arena) Lookup(o *model.Object) (*Node, bool) {
	n, ok := a.nodes[o]
	return n, ok
}

// IsTransient reports whether o is known and not yet persisted.
func (a *Arena) IsTransient(o *model.Object) bool {
	n, ok := a.nodes[o]
	return ok && n.Status == StatusTransient
}

func (a *Arena) MarkPersistent(o *model.Object) {
	if n, ok := a.nodes[o]; ok {
		n.Status = StatusPersistent
	}
}

// Transient returns the transient entity objects in creation order.
func (a *Arena) Transient() []*model.Object {
	var res []*model.Object
	for _, n := range a.order {
		if n.Status == StatusTransient && n.Type().IsEntity() {
			res = append(res, n.Object)
		}
	}

	return res
}

// Persistent returns the persistent entity objects in creation order.
func (a *Arena) Persistent() []*model.Object {
	var res []*model.Object
	for _, n := range a.order {
		if n.Status == StatusPersistent && n.Type().IsEntity() {
			res = append(res, n.Object)
		}
	}

	return res
}

func (a *Arena) Len() int { return len(a.order) }
