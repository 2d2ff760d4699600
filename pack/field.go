package pack

import "github.com/relpack/relpack/source"

// Context is the opaque caller-supplied data threaded through a pack call.
// It is set once at instance construction and propagated by reference to
// every nested child instance; nothing in the core writes to it.
type Context map[string]any

// ComputeFunc derives a named field's value from a record.
type ComputeFunc func(inst *Instance, rec source.Record) any

// MutateFunc edits the in-progress output map directly. It runs in field
// declaration order, so it can overwrite keys set by earlier fields.
type MutateFunc func(inst *Instance, rec source.Record, out map[string]any)

// PrecomputeFunc runs once per instance per pack call with the full batch of
// records the instance will pack, before any record is packed. Results are
// typically stashed in the instance scratch area for field funcs to read.
type PrecomputeFunc func(inst *Instance, batch []source.Record) error

// TraitFunc is a trait's setup block, invoked against the instance under
// construction when the trait is selected.
type TraitFunc func(b *Builder) error

// SetupFunc is a context-setup hook, invoked at instance construction before
// trait resolution.
type SetupFunc func(b *Builder) error

type fieldKind int

const (
	attributeField fieldKind = iota
	computedField
	associationField
	mutatorField
)

// fieldSpec is one entry in a serializer's ordered field list. Exactly one
// variant is populated per kind.
type fieldSpec struct {
	kind    fieldKind
	name    string
	compute ComputeFunc
	mutate  MutateFunc
}

// binding wires an association name to the child serializer packing it.
type binding struct {
	child  *Definition
	traits []string
}

func (b binding) clone() binding {
	traits := make([]string, len(b.traits))
	copy(traits, b.traits)
	return binding{child: b.child, traits: traits}
}
