package source

import (
	"context"
	"fmt"

	"github.com/relpack/relpack/eager"
	"github.com/relpack/relpack/schema"
)

// Memory is an in-memory Source backed by fixture tables. It implements the
// same loading contract as the SQL source - batch fetch, filter once per
// batch, skip relations already cached, recurse into nested requirements -
// which makes it suitable both for tests and for hosts whose data is already
// resident.
type Memory struct {
	registry *schema.Registry
	tables   map[string][]Record
}

// NewMemory creates an in-memory source over the given metadata registry
func NewMemory(registry *schema.Registry) *Memory {
	return &Memory{
		registry: registry,
		tables:   make(map[string][]Record),
	}
}

// Insert appends rows to a model's table, preserving insertion order
func (m *Memory) Insert(model string, records ...Record) error {
	if _, ok := m.registry.Get(model); !ok {
		return fmt.Errorf("%w: %s", schema.ErrUnknownResource, model)
	}
	m.tables[model] = append(m.tables[model], records...)
	return nil
}

type memoryQuery struct {
	model string
}

func (q memoryQuery) Model() string { return q.model }

// Query returns a lazy query over all rows of a model
func (m *Memory) Query(model string) Query {
	return memoryQuery{model: model}
}

// Materialize returns the query's rows in insertion order with reqs loaded
func (m *Memory) Materialize(ctx context.Context, q Query, reqs eager.Tree) ([]Record, error) {
	if _, ok := m.registry.Get(q.Model()); !ok {
		return nil, fmt.Errorf("%w: %s", schema.ErrUnknownResource, q.Model())
	}
	rows := m.tables[q.Model()]
	records := make([]Record, len(rows))
	copy(records, rows)

	if err := m.BulkLoad(ctx, q.Model(), records, reqs); err != nil {
		return nil, err
	}
	return records, nil
}

// BulkLoad populates relation caches on records according to reqs
func (m *Memory) BulkLoad(ctx context.Context, model string, records []Record, reqs eager.Tree) error {
	if len(records) == 0 || len(reqs) == 0 {
		return nil
	}
	res, ok := m.registry.Get(model)
	if !ok {
		return fmt.Errorf("%w: %s", schema.ErrUnknownResource, model)
	}

	for _, name := range reqs.Associations() {
		node := reqs[name]
		rel, ok := res.Relationship(name)
		if !ok {
			return fmt.Errorf("%w: %s.%s", schema.ErrUnknownRelationship, model, name)
		}

		if err := m.loadRelation(records, res, name, rel, node.Filter); err != nil {
			return err
		}

		if len(node.Nested) > 0 {
			related, err := m.relatedSet(records, name, rel)
			if err != nil {
				return err
			}
			if len(related) > 0 {
				if err := m.BulkLoad(ctx, rel.Target, related, node.Nested); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// loadRelation attaches one relation to every record that does not already
// have it cached. The filter runs once over the fetched batch, before the
// rows are partitioned back onto their parents.
func (m *Memory) loadRelation(records []Record, owner *schema.Resource, name string, rel *schema.Relationship, filter eager.Filter) error {
	var pending []Record
	for _, rec := range records {
		if _, loaded := rec[name]; !loaded {
			pending = append(pending, rec)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	target, ok := m.registry.Get(rel.Target)
	if !ok {
		return fmt.Errorf("%w: %s", schema.ErrUnknownResource, rel.Target)
	}
	fk := rel.ForeignKeyColumn(owner)

	switch rel.Type {
	case schema.BelongsTo:
		wanted := make(map[any]bool, len(pending))
		for _, rec := range pending {
			if id := rec[fk]; id != nil {
				wanted[id] = true
			}
		}
		var batch []Record
		for _, row := range m.tables[rel.Target] {
			if wanted[row[target.PrimaryKey]] {
				batch = append(batch, row)
			}
		}
		if filter != nil {
			batch = filter(batch)
		}
		byID := make(map[any]Record, len(batch))
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

	case schema.HasOne, schema.HasMany:
		parents := make(map[any]bool, len(pending))
		for _, rec := range pending {
			if id := rec[owner.PrimaryKey]; id != nil {
				parents[id] = true
			}
		}
		var batch []Record
		for _, row := range m.tables[rel.Target] {
			if parents[row[fk]] {
				batch = append(batch, row)
			}
		}
		if filter != nil {
			batch = filter(batch)
		}
		grouped := make(map[any][]Record)
		for _, row := range batch {
			grouped[row[fk]] = append(grouped[row[fk]], row)
		}
		for _, rec := range pending {
			rows := grouped[rec[owner.PrimaryKey]]
			if rel.Type == schema.HasMany {
				if rows == nil {
					rows = []Record{}
				}
				rec[name] = rows
			} else if len(rows) > 0 {
				rec[name] = rows[0]
			} else {
				rec[name] = nil
			}
		}

	default:
		return fmt.Errorf("%w: %s", schema.ErrInvalidRelationship, rel.Type)
	}
	return nil
}

// relatedSet gathers the distinct related records cached under name across
// all parents, preserving first-seen order.
func (m *Memory) relatedSet(records []Record, name string, rel *schema.Relationship) ([]Record, error) {
	target, ok := m.registry.Get(rel.Target)
	if !ok {
		return nil, fmt.Errorf("%w: %s", schema.ErrUnknownResource, rel.Target)
	}

	var out []Record
	seen := make(map[any]bool)
	add := func(row Record) {
		if row == nil {
			return
		}
		id := row[target.PrimaryKey]
		if id != nil && seen[id] {
			return
		}
		if id != nil {
			seen[id] = true
		}
		out = append(out, row)
	}

	for _, rec := range records {
		v, _ := Relation(rec, name)
		switch val := v.(type) {
		case Record:
			add(val)
		case []Record:
			for _, row := range val {
				add(row)
			}
		}
	}
	return out, nil
}
