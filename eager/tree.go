// Package eager defines the eager-requirement tree: a recursive description of
// which associations (and nested associations) must be bulk-loaded before a
// pack traversal begins, optionally narrowed by per-association filters.
// Trees are values; Merge and Clone never mutate their inputs, so a tree held
// by a serializer definition can be safely combined into any number of
// instance trees.
package eager

import "sort"

// Tree maps association names to their nested requirements.
type Tree map[string]Node

// Node is the requirement stored under a single association name: an optional
// filter narrowing the related rows, plus optional nested requirements for
// the related model. The zero Node is a plain leaf.
type Node struct {
	Filter Filter
	Nested Tree
}

// IsLeaf reports whether the node carries no nested requirements.
func (n Node) IsLeaf() bool {
	return len(n.Nested) == 0
}

// Associations returns the association names in the tree, sorted for
// deterministic iteration.
func (t Tree) Associations() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep structural copy sharing no mutable substructure with
// the original. Filters are shared by reference; they are immutable closures.
func Clone(t Tree) Tree {
	if t == nil {
		return nil
	}
	out := make(Tree, len(t))
	for name, node := range t {
		out[name] = cloneNode(node)
	}
	return out
}

func cloneNode(n Node) Node {
	return Node{Filter: n.Filter, Nested: Clone(n.Nested)}
}

// Merge returns a new tree containing every association from both inputs.
// Associations present on both sides have their nested trees merged
// recursively; when both sides carry a filter for the same association the
// result applies a's filter first, then b's. Neither input is mutated.
func Merge(a, b Tree) Tree {
	if len(a) == 0 {
		return Clone(b)
	}
	if len(b) == 0 {
		return Clone(a)
	}

	out := make(Tree, len(a)+len(b))
	for name, node := range a {
		out[name] = cloneNode(node)
	}
	for name, node := range b {
		existing, ok := out[name]
		if !ok {
			out[name] = cloneNode(node)
			continue
		}
		out[name] = Node{
			Filter: Compose(existing.Filter, node.Filter),
			Nested: Merge(existing.Nested, node.Nested),
		}
	}
	return out
}
