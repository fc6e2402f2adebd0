package node

import (
	"aggregate-mapper/internal/model"
)

// Registry deduplicates entity nodes of one traversal by root type and
// natural key or identifier.
type Registry struct {
	byKey map[model.Key]*Node
}

func NewRegistry() *Registry {
	return &Registry{byKey: make(map[model.Key]*Node)}
}

// RegisterKeys indexes n under keys, e.g. the keys of the input object a new
// output node stands for together with those of the output. When one of the
// keys already belongs to another node, that node is returned with found set
// and n is not registered. Nodes without a key are never deduplicated.
func (r *Registry) RegisterKeys(n *Node, keys []model.Key) (existing *Node, found bool) {
	for _, k := range keys {
		if cur, ok := r.byKey[k]; ok && cur != n {
			return cur, true
		}
	}

	for _, k := range keys {
		r.byKey[k] = n
	}

	return n, false
}

// Lookup returns the node registered under k.
func (r *Registry) Lookup(k model.Key) (*Node, bool) {
	n, ok := r.byKey[k]
	return n, ok
}
