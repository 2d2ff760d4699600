package pack

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/relpack/relpack/source"
)

// Packer drives the traversal: it bulk-loads associations for the whole
// input through its Source, runs precompute hooks exactly once per instance,
// then walks each record applying the instance's field list. A Packer is
// stateless across calls and safe for concurrent use with distinct instances.
type Packer struct {
	src    source.Source
	logger *zap.Logger
}

// Option configures a Packer
type Option func(*Packer)

// WithLogger sets the packer's logger; the default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Packer) {
		p.logger = logger
	}
}

// NewPacker creates a packer over the given loading collaborator
func NewPacker(src source.Source, opts ...Option) *Packer {
	p := &Packer{
		src:    src,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pack serializes input through inst. The result mirrors the input shape:
// nil in, nil out; a single record packs to a map; a slice or lazy query
// packs to a slice of maps in input order.
func (p *Packer) Pack(ctx context.Context, inst *Instance, input any) (any, error) {
	if inst == nil {
		return nil, fmt.Errorf("%w: nil instance", ErrInvalidInput)
	}

	switch in := input.(type) {
	case nil:
		return nil, nil

	case source.Query:
		p.logger.Debug("materializing query",
			zap.String("model", inst.Model()),
			zap.Strings("associations", inst.tree.Associations()))
		records, err := p.src.Materialize(ctx, in, inst.tree)
		if err != nil {
			return nil, fmt.Errorf("failed to materialize %s: %w", inst.Model(), err)
		}
		if err := p.runPrecompute(inst, records); err != nil {
			return nil, err
		}
		return p.packMany(inst, records)

	case source.Record:
		if in == nil {
			return nil, nil
		}
		records := []source.Record{in}
		if err := p.load(ctx, inst, records); err != nil {
			return nil, err
		}
		if err := p.runPrecompute(inst, records); err != nil {
			return nil, err
		}
		return p.packOne(inst, in)

	case []source.Record:
		if err := p.load(ctx, inst, in); err != nil {
			return nil, err
		}
		if err := p.runPrecompute(inst, in); err != nil {
			return nil, err
		}
		return p.packMany(inst, in)

	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidInput, input)
	}
}

// load triggers post-hoc bulk loading for already-materialized records.
func (p *Packer) load(ctx context.Context, inst *Instance, records []source.Record) error {
	if len(records) == 0 || len(inst.tree) == 0 {
		return nil
	}
	p.logger.Debug("bulk loading associations",
		zap.String("model", inst.Model()),
		zap.Int("records", len(records)),
		zap.Strings("associations", inst.tree.Associations()))
	if err := p.src.BulkLoad(ctx, inst.Model(), records, inst.tree); err != nil {
		return fmt.Errorf("failed to bulk load for %s: %w", inst.Model(), err)
	}
	return nil
}

// runPrecompute walks the instance tree depth-first, gathering each child's
// distinct related records and recursing before running this instance's own
// hooks on the full batch. Each instance's hooks run from exactly one call
// site - its direct parent's walk - so they execute once per pack call no
// matter how many parents share the child's records.
func (p *Packer) runPrecompute(inst *Instance, batch []source.Record) error {
	if !inst.hasPrecompute() {
		return nil
	}

	for _, name := range inst.bindingOrder {
		child := inst.children[name]
		if !child.hasPrecompute() {
			continue
		}
		related := gatherRelated(batch, name, child.def.resource.PrimaryKey)
		if err := p.runPrecompute(child, related); err != nil {
			return err
		}
	}

	for _, fn := range inst.precompute {
		if err := fn(inst, batch); err != nil {
			return fmt.Errorf("precompute on %s: %w", inst.def.name, err)
		}
	}
	return nil
}

// gatherRelated flattens the records' loaded relation into a distinct set:
// to-many values are concatenated, absent to-one values dropped, and
// duplicates removed by primary key, preserving first-seen order.
func gatherRelated(records []source.Record, name, primaryKey string) []source.Record {
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

// packOne applies the instance's field list to one record, in declaration
// order. Later fields may overwrite keys set by earlier ones; that is the
// escape hatch mutators exist for.
func (p *Packer) packOne(inst *Instance, rec source.Record) (map[string]any, error) {
	out := make(map[string]any, len(inst.fields))
	for _, f := range inst.fields {
		switch f.kind {
		case attributeField:
			out[f.name] = source.Attribute(rec, f.name)
		case computedField:
			out[f.name] = f.compute(inst, rec)
		case associationField:
			packed, err := p.packAssociation(inst, f.name, rec)
			if err != nil {
				return nil, err
			}
			out[f.name] = packed
		case mutatorField:
			f.mutate(inst, rec, out)
		}
	}
	return out, nil
}

// packAssociation packs a record's loaded relation through the child
// instance bound to it. An absent to-one relation packs to an explicit nil.
func (p *Packer) packAssociation(inst *Instance, name string, rec source.Record) (any, error) {
	child, ok := inst.children[name]
	if !ok {
		return nil, fmt.Errorf("%w: no child serializer for %q on %s",
			ErrInvalidChildSerializer, name, inst.def.name)
	}

	v, _ := source.Relation(rec, name)
	switch val := v.(type) {
	case nil:
		return nil, nil
	case source.Record:
		return p.packOne(child, val)
	case []source.Record:
		return p.packMany(child, val)
	default:
		return nil, fmt.Errorf("%w: %T under %q on %s", ErrInvalidRelationValue, v, name, inst.Model())
	}
}

// packMany packs records in input order. The order the source returned rows
// in is the order they serialize in; nothing re-sorts here.
func (p *Packer) packMany(inst *Instance, records []source.Record) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		m, err := p.packOne(inst, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
