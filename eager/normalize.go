package eager

import "fmt"

// Filtered attaches a filter to an association's eager spec. It appears in
// value position: {"posts": Filtered{Filter: f, Spec: "comments"}} requests
// the posts association narrowed by f, with comments loaded under it.
type Filtered struct {
	Filter Filter
	Spec   any
}

// Normalize converts a loosely-specified eager declaration into a Tree.
// Each spec may be a bare association name, a map of association name to
// nested spec, a list mixing either, or an already-built Tree. Filters enter
// through Filtered values; a level may carry at most one filter and may not
// mix a filter with plain association entries.
func Normalize(specs ...any) (Tree, error) {
	out := Tree{}
	for _, spec := range specs {
		t, err := normalizeSpec(spec)
		if err != nil {
			return nil, err
		}
		out = Merge(out, t)
	}
	return out, nil
}

func normalizeSpec(spec any) (Tree, error) {
	switch s := spec.(type) {
	case nil:
		return nil, nil
	case string:
		if s == "" {
			return nil, fmt.Errorf("%w: empty association name", ErrInvalidSpec)
		}
		return Tree{s: Node{}}, nil
	case Tree:
		return Clone(s), nil
	case map[string]any:
		return normalizeMap(s)
	case []any:
		out := Tree{}
		for _, item := range s {
			t, err := normalizeSpec(item)
			if err != nil {
				return nil, err
			}
			out = Merge(out, t)
		}
		return out, nil
	case Filtered:
		return nil, fmt.Errorf("%w: a filter requires an association name", ErrInvalidSpec)
	default:
		return nil, fmt.Errorf("%w: unsupported value of type %T", ErrInvalidSpec, spec)
	}
}

func normalizeMap(m map[string]any) (Tree, error) {
	out := make(Tree, len(m))
	for name, v := range m {
		if name == "" {
			return nil, fmt.Errorf("%w: empty association name", ErrInvalidSpec)
		}
		node, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("association %q: %w", name, err)
		}
		out[name] = node
	}
	return out, nil
}

// normalizeValue normalizes the spec stored under a single association name.
func normalizeValue(v any) (Node, error) {
	switch val := v.(type) {
	case nil:
		return Node{}, nil
	case string:
		if val == "" {
			return Node{}, fmt.Errorf("%w: empty association name", ErrInvalidSpec)
		}
		return Node{Nested: Tree{val: Node{}}}, nil
	case Tree:
		return Node{Nested: Clone(val)}, nil
	case Node:
		return cloneNode(val), nil
	case map[string]any:
		nested, err := normalizeMap(val)
		if err != nil {
			return Node{}, err
		}
		return Node{Nested: nested}, nil
	case []any:
		return normalizeList(val)
	case Filtered:
		return normalizeFiltered(val)
	default:
		return Node{}, fmt.Errorf("%w: unsupported value of type %T", ErrInvalidSpec, v)
	}
}

func normalizeFiltered(f Filtered) (Node, error) {
	if f.Filter == nil {
		return Node{}, fmt.Errorf("%w: nil filter", ErrInvalidSpec)
	}
	if _, ok := f.Spec.(Filtered); ok {
		return Node{}, ErrNestedFilter
	}
	node, err := normalizeValue(f.Spec)
	if err != nil {
		return Node{}, err
	}
	// A filter surfacing from the nested spec has no association name between
	// it and this one.
	if node.Filter != nil {
		return Node{}, ErrNestedFilter
	}
	return Node{Filter: f.Filter, Nested: node.Nested}, nil
}

func normalizeList(items []any) (Node, error) {
	var withFilter *Node
	merged := Node{}
	plain := 0

	for _, item := range items {
		n, err := normalizeValue(item)
		if err != nil {
			return Node{}, err
		}
		if n.Filter != nil {
			if withFilter != nil {
				return Node{}, ErrMultipleFilters
			}
			n := n
			withFilter = &n
			continue
		}
		plain++
		merged.Nested = Merge(merged.Nested, n.Nested)
	}

	if withFilter != nil {
		if plain > 0 {
			return Node{}, ErrMixedFilterAndName
		}
		return *withFilter, nil
	}
	return merged, nil
}
