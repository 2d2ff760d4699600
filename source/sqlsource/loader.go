// Package sqlsource implements the serializer's loading collaborator over
// database/sql. Eager requirements become batched IN queries - one query per
// association per level, never one per row - and filters run once over each
// fetched batch before rows are partitioned back onto their parents.
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/relpack/relpack/eager"
	"github.com/relpack/relpack/schema"
	"github.com/relpack/relpack/source"
)

// Querier is an interface for executing SQL queries, allowing for testing
// and instrumentation
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Loader loads relations for batches of records with N+1 prevention. It
// issues `?`-placeholder SQL, so it works against SQLite, MySQL, and any
// driver using positional placeholders.
type Loader struct {
	db       Querier
	registry *schema.Registry
	logger   *zap.Logger
	maxDepth int
}

// Option configures a Loader
type Option func(*Loader)

// WithLogger sets the loader's logger; the default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithMaxDepth caps how deep nested requirements may recurse. The default
// is 10 levels.
func WithMaxDepth(depth int) Option {
	return func(l *Loader) {
		l.maxDepth = depth
	}
}

// NewLoader creates a loader over db using the given metadata registry
func NewLoader(db Querier, registry *schema.Registry, opts ...Option) *Loader {
	l := &Loader{
		db:       db,
		registry: registry,
		logger:   zap.NewNop(),
		maxDepth: 10,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Query is a lazy SELECT over one model's table
type Query struct {
	model string
	where string
	args  []any
}

// NewQuery creates a query for all rows of a model
func NewQuery(model string) *Query {
	return &Query{model: model}
}

// Where restricts the query with a raw clause using `?` placeholders
func (q *Query) Where(clause string, args ...any) *Query {
	q.where = clause
	q.args = args
	return q
}

// Model returns the resource name the query produces rows of
func (q *Query) Model() string { return q.model }

// Materialize fetches the query's rows and bulk-loads reqs onto them
func (l *Loader) Materialize(ctx context.Context, q source.Query, reqs eager.Tree) ([]source.Record, error) {
	sq, ok := q.(*Query)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrInvalidQuery, q)
	}
	res, ok := l.registry.Get(sq.model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", schema.ErrUnknownResource, sq.model)
	}

	query := fmt.Sprintf("SELECT * FROM %s", res.TableName)
	if sq.where != "" {
		query += " WHERE " + sq.where
	}

	rows, err := l.db.QueryContext(ctx, query, sq.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize %s: %w", sq.model, err)
	}
	defer rows.Close()

	records, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s rows: %w", sq.model, err)
	}

	if err := l.BulkLoad(ctx, sq.model, records, reqs); err != nil {
		return nil, err
	}
	return records, nil
}

// BulkLoad populates relation caches on records per reqs, fetching only
// relations not already cached and recursing into nested requirements.
func (l *Loader) BulkLoad(ctx context.Context, model string, records []source.Record, reqs eager.Tree) error {
	return l.bulkLoad(ctx, model, records, reqs, 0)
}

func (l *Loader) bulkLoad(ctx context.Context, model string, records []source.Record, reqs eager.Tree, depth int) error {
	if len(records) == 0 || len(reqs) == 0 {
		return nil
	}
	if depth >= l.maxDepth {
		return fmt.Errorf("%w: %d levels", ErrMaxDepthExceeded, l.maxDepth)
	}

	res, ok := l.registry.Get(model)
	if !ok {
		return fmt.Errorf("%w: %s", schema.ErrUnknownResource, model)
	}

	for _, name := range reqs.Associations() {
		node := reqs[name]
		rel, ok := res.Relationship(name)
		if !ok {
			return fmt.Errorf("%w: %s.%s", schema.ErrUnknownRelationship, model, name)
		}

		l.logger.Debug("loading relation",
			zap.String("model", model),
			zap.String("relation", name),
			zap.Int("records", len(records)))

		if err := l.loadRelation(ctx, records, res, name, rel, node.Filter); err != nil {
			return fmt.Errorf("failed to load relation %s.%s: %w", model, name, err)
		}

		if len(node.Nested) > 0 {
			related := relatedSet(records, name, l.primaryKey(rel.Target))
			if err := l.bulkLoad(ctx, rel.Target, related, node.Nested, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Loader) primaryKey(model string) string {
	if res, ok := l.registry.Get(model); ok {
		return res.PrimaryKey
	}
	return "id"
}

// relatedSet gathers the distinct related records cached under name across
// all parents, preserving first-seen order.
func relatedSet(records []source.Record, name, primaryKey string) []source.Record {
	var out []source.Record
	seen := make(map[any]bool)
	add := func(rec source.Record) {
		if rec == nil {
			return
		}
		if id := rec[primaryKey]; id != nil {
			if seen[id] {
				return
			}
			seen[id] = true
		}
		out = append(out, rec)
	}

	for _, rec := range records {
		v, _ := source.Relation(rec, name)
		switch val := v.(type) {
		case source.Record:
			add(val)
		case []source.Record:
			for _, r := range val {
				add(r)
			}
		}
	}
	return out
}
