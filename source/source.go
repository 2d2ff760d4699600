// Package source defines the boundary between the serializer core and the
// host that owns entity storage. The core never issues queries itself; it
// hands a Source an eager-requirement tree and expects relation caches on the
// records to be populated when the call returns.
package source

import (
	"context"

	"github.com/relpack/relpack/eager"
)

// Record is an entity row: attribute values plus, once loaded, relation
// values keyed by relationship name. A to-one relation holds a Record or
// nil; a to-many relation holds a []Record.
type Record = map[string]any

// Query is a lazy queryable collection. Materializing it applies eager
// requirements while fetching, so related rows arrive in the same round of
// batched queries as the parents.
type Query interface {
	// Model names the resource the query produces rows of.
	Model() string
}

// Source is the loading collaborator: it materializes lazy queries and
// populates relation caches on already-fetched records, batching related
// lookups so packing never queries per row.
type Source interface {
	// Materialize fetches the query's rows with reqs eagerly loaded.
	Materialize(ctx context.Context, q Query, reqs eager.Tree) ([]Record, error)

	// BulkLoad populates relation caches on records per reqs, fetching only
	// relations not already cached and recursing into nested requirements.
	BulkLoad(ctx context.Context, model string, records []Record, reqs eager.Tree) error
}

// Attribute reads a named attribute off a record.
func Attribute(rec Record, name string) any {
	return rec[name]
}

// Relation reads a loaded relation off a record, normalizing the stored
// shape to a Record, []Record, or nil. The second result reports whether the
// relation has been loaded at all.
func Relation(rec Record, name string) (any, bool) {
	v, ok := rec[name]
	if !ok {
		return nil, false
	}
	switch val := v.(type) {
	case nil:
		return nil, true
	case Record:
		return val, true
	case []Record:
		return val, true
	case []any:
		out := make([]Record, 0, len(val))
		for _, item := range val {
			if r, ok := item.(Record); ok {
				out = append(out, r)
			}
		}
		return out, true
	default:
		return nil, false
	}
}
