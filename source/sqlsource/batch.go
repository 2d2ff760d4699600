package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/relpack/relpack/eager"
	"github.com/relpack/relpack/schema"
	"github.com/relpack/relpack/source"
)

// loadRelation attaches one relation to every record that does not already
// have it cached, using a single batched query for the whole level.
func (l *Loader) loadRelation(
	ctx context.Context,
	records []source.Record,
	owner *schema.Resource,
	name string,
	rel *schema.Relationship,
	filter eager.Filter,
) error {
	var pending []source.Record
	for _, rec := range records {
		if _, loaded := rec[name]; !loaded {
			pending = append(pending, rec)
		}
	}
	// Nothing to fetch; cached relations also keep their already-applied
	// filters.
	if len(pending) == 0 {
		return nil
	}

	target, ok := l.registry.Get(rel.Target)
	if !ok {
		return fmt.Errorf("%w: %s", schema.ErrUnknownResource, rel.Target)
	}

	switch rel.Type {
	case schema.BelongsTo:
		return l.loadBelongsTo(ctx, pending, owner, target, name, rel, filter)
	case schema.HasOne, schema.HasMany:
		return l.loadHasSome(ctx, pending, owner, target, name, rel, filter)
	default:
		return fmt.Errorf("%w: %s", schema.ErrInvalidRelationship, rel.Type)
	}
}

// loadBelongsTo loads belongs-to relations with one batched IN query.
// Example: Post belongs_to author
//   - Collect distinct author_id values across all posts
//   - SELECT * FROM users WHERE id IN (?, ...)
//   - Attach users back onto their posts
func (l *Loader) loadBelongsTo(
	ctx context.Context,
	pending []source.Record,
	owner, target *schema.Resource,
	name string,
	rel *schema.Relationship,
	filter eager.Filter,
) error {
	fk := rel.ForeignKeyColumn(owner)

	var ids []any
	seen := make(map[any]bool)
	for _, rec := range pending {
		if id := rec[fk]; id != nil && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		for _, rec := range pending {
			rec[name] = nil
		}
		return nil
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s IN (%s)",
		target.TableName, target.PrimaryKey, placeholders(len(ids)))
	batch, err := l.queryRecords(ctx, query, ids)
	if err != nil {
		return err
	}
	if filter != nil {
		batch = filter(batch)
	}

	byID := make(map[any]source.Record, len(batch))
	for _, row := range batch {
		byID[row[target.PrimaryKey]] = row
	}
	for _, rec := range pending {
		if id := rec[fk]; id != nil {
			if row, ok := byID[id]; ok {
				rec[name] = row
				continue
			}
		}
		rec[name] = nil
	}
	return nil
}

// loadHasSome loads has-one and has-many relations with one batched IN query
// against the foreign key on the target table.
func (l *Loader) loadHasSome(
	ctx context.Context,
	pending []source.Record,
	owner, target *schema.Resource,
	name string,
	rel *schema.Relationship,
	filter eager.Filter,
) error {
	fk := rel.ForeignKeyColumn(owner)

	var ids []any
	seen := make(map[any]bool)
	for _, rec := range pending {
		if id := rec[owner.PrimaryKey]; id != nil && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s IN (%s)",
		target.TableName, fk, placeholders(len(ids)))
	if rel.OrderBy != "" {
		query += " ORDER BY " + rel.OrderBy
	}
	batch, err := l.queryRecords(ctx, query, ids)
	if err != nil {
		return err
	}
	if filter != nil {
		batch = filter(batch)
	}

	grouped := make(map[any][]source.Record)
	for _, row := range batch {
		grouped[row[fk]] = append(grouped[row[fk]], row)
	}
	for _, rec := range pending {
		rows := grouped[rec[owner.PrimaryKey]]
		if rel.Type == schema.HasMany {
			if rows == nil {
				rows = []source.Record{}
			}
			rec[name] = rows
		} else if len(rows) > 0 {
			rec[name] = rows[0]
		} else {
			rec[name] = nil
		}
	}
	return nil
}

func (l *Loader) queryRecords(ctx context.Context, query string, args []any) ([]source.Record, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// placeholders returns n comma-separated `?` placeholders
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// scanRows scans all rows into records keyed by column name
func scanRows(rows *sql.Rows) ([]source.Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []source.Record
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		record := make(source.Record, len(columns))
		for i, col := range columns {
			// Text columns may arrive as []byte depending on the driver.
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = values[i]
			}
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
