// Package pack implements the declarative object-graph serializer: type-level
// serializer definitions, per-call instances with trait resolution, and the
// traversal engine that bulk-loads associations up front and packs entity
// graphs into plain nested maps ready for JSON encoding.
package pack

import (
	"fmt"

	"github.com/relpack/relpack/eager"
	"github.com/relpack/relpack/schema"
)

// Definition is the type-level registry for one serializer: its model, its
// ordered field list, traits, association bindings, base eager-requirement
// tree, and hooks. Definitions are built once during startup and are
// read-only afterwards; instance construction never mutates them, so one
// definition is safely shared across concurrent pack calls.
type Definition struct {
	name     string
	resource *schema.Resource

	fields       []fieldSpec
	traits       map[string]TraitFunc
	bindings     map[string]binding
	bindingOrder []string
	tree         eager.Tree
	precompute   []PrecomputeFunc
	setups       []SetupFunc
}

// NewDefinition creates an empty serializer definition. The name is used in
// error messages only; identity is the *Definition pointer.
func NewDefinition(name string) *Definition {
	return &Definition{
		name:     name,
		traits:   make(map[string]TraitFunc),
		bindings: make(map[string]binding),
		tree:     eager.Tree{},
	}
}

// Name returns the definition's name
func (d *Definition) Name() string { return d.name }

// Resource returns the declared model metadata, or nil before Model is called
func (d *Definition) Resource() *schema.Resource { return d.resource }

// Model declares which entity type this serializer packs. It must be called
// before any field, binding, or eager declaration and may not be repeated.
func (d *Definition) Model(res *schema.Resource) error {
	if d.resource != nil {
		return fmt.Errorf("%w: %s already packs %s", ErrModelAlreadyDeclared, d.name, d.resource.Name)
	}
	if res == nil {
		return fmt.Errorf("%w: nil resource on %s", ErrInvalidField, d.name)
	}
	d.resource = res
	return nil
}

func (d *Definition) requireModel() error {
	if d.resource == nil {
		return fmt.Errorf("%w: %s", ErrModelNotDeclared, d.name)
	}
	return nil
}

// Attribute declares a field whose value is the record attribute of the same name.
func (d *Definition) Attribute(name string) error {
	if err := d.requireModel(); err != nil {
		return err
	}
	if err := validatePlainField(d.resource, name); err != nil {
		return err
	}
	d.fields = append(d.fields, fieldSpec{kind: attributeField, name: name})
	return nil
}

// Computed declares a field whose value fn derives from the record.
func (d *Definition) Computed(name string, fn ComputeFunc) error {
	if err := d.requireModel(); err != nil {
		return err
	}
	if err := validatePlainField(d.resource, name); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("%w: nil compute func for %q", ErrInvalidField, name)
	}
	d.fields = append(d.fields, fieldSpec{kind: computedField, name: name, compute: fn})
	return nil
}

// Association declares a field packed by a child serializer, and registers
// the corresponding binding.
func (d *Definition) Association(name string, child *Definition, traits ...string) error {
	if err := d.requireModel(); err != nil {
		return err
	}
	if err := validateBinding(d.resource, name, child, traits); err != nil {
		return err
	}
	d.fields = append(d.fields, fieldSpec{kind: associationField, name: name})
	d.storeBinding(name, child, traits)
	return nil
}

// Bind registers an association binding without adding an output field. Use
// it when a trait or mutator decides how the association surfaces.
func (d *Definition) Bind(name string, child *Definition, traits ...string) error {
	if err := d.requireModel(); err != nil {
		return err
	}
	if err := validateBinding(d.resource, name, child, traits); err != nil {
		return err
	}
	d.storeBinding(name, child, traits)
	return nil
}

func (d *Definition) storeBinding(name string, child *Definition, traits []string) {
	if _, exists := d.bindings[name]; !exists {
		d.bindingOrder = append(d.bindingOrder, name)
	}
	d.bindings[name] = binding{child: child, traits: traits}.clone()
}

// Mutator declares a keyless field that edits the output map directly.
// Mutators run in declaration order; last write wins.
func (d *Definition) Mutator(fn MutateFunc) error {
	if err := d.requireModel(); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("%w: nil mutate func", ErrInvalidField)
	}
	d.fields = append(d.fields, fieldSpec{kind: mutatorField, mutate: fn})
	return nil
}

// Eager merges additional eager requirements into the definition's base tree.
func (d *Definition) Eager(specs ...any) error {
	if err := d.requireModel(); err != nil {
		return err
	}
	tree, err := eager.Normalize(specs...)
	if err != nil {
		return fmt.Errorf("serializer %s: %w", d.name, err)
	}
	d.tree = eager.Merge(d.tree, tree)
	return nil
}

// Precompute appends a batch hook run once per instance per pack call.
func (d *Definition) Precompute(fn PrecomputeFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: nil precompute func", ErrInvalidField)
	}
	d.precompute = append(d.precompute, fn)
	return nil
}

// SetupContext appends a hook run at instance construction, before trait
// resolution, with the caller's context available through the builder.
func (d *Definition) SetupContext(fn SetupFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: nil setup func", ErrInvalidField)
	}
	d.setups = append(d.setups, fn)
	return nil
}

// Trait declares a named bundle of optional declarations, applied when an
// instance is constructed with the trait selected.
func (d *Definition) Trait(name string, fn TraitFunc) error {
	if err := validateFieldName(name); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("%w: nil trait block for %q", ErrInvalidField, name)
	}
	if _, exists := d.traits[name]; exists {
		return fmt.Errorf("%w: %q on %s", ErrDuplicateTrait, name, d.name)
	}
	d.traits[name] = fn
	return nil
}

// Extend creates a new definition carrying full independent copies of this
// definition's registries. Changes to either side never affect the other.
func (d *Definition) Extend(name string) *Definition {
	sub := &Definition{
		name:         name,
		resource:     d.resource,
		fields:       make([]fieldSpec, len(d.fields)),
		traits:       make(map[string]TraitFunc, len(d.traits)),
		bindings:     make(map[string]binding, len(d.bindings)),
		bindingOrder: make([]string, len(d.bindingOrder)),
		tree:         eager.Clone(d.tree),
		precompute:   make([]PrecomputeFunc, len(d.precompute)),
		setups:       make([]SetupFunc, len(d.setups)),
	}
	copy(sub.fields, d.fields)
	copy(sub.bindingOrder, d.bindingOrder)
	copy(sub.precompute, d.precompute)
	copy(sub.setups, d.setups)
	for name, fn := range d.traits {
		sub.traits[name] = fn
	}
	for name, b := range d.bindings {
		sub.bindings[name] = b.clone()
	}
	return sub
}
