package pack

import (
	"fmt"

	"github.com/relpack/relpack/eager"
)

// Builder is the declaration surface handed to trait blocks and
// context-setup hooks while an instance is under construction. Declarations
// land on the instance only; the underlying definition is never touched.
type Builder struct {
	inst *Instance
}

// Context returns the caller-supplied context for the instance under construction.
func (b *Builder) Context() Context { return b.inst.context }

// Attribute appends an attribute field to the instance's field list.
func (b *Builder) Attribute(name string) error {
	if err := validatePlainField(b.inst.def.resource, name); err != nil {
		return err
	}
	b.inst.fields = append(b.inst.fields, fieldSpec{kind: attributeField, name: name})
	return nil
}

// Computed appends a computed field to the instance's field list.
func (b *Builder) Computed(name string, fn ComputeFunc) error {
	if err := validatePlainField(b.inst.def.resource, name); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("%w: nil compute func for %q", ErrInvalidField, name)
	}
	b.inst.fields = append(b.inst.fields, fieldSpec{kind: computedField, name: name, compute: fn})
	return nil
}

// Association appends an association field and registers its binding.
func (b *Builder) Association(name string, child *Definition, traits ...string) error {
	if err := validateBinding(b.inst.def.resource, name, child, traits); err != nil {
		return err
	}
	b.inst.fields = append(b.inst.fields, fieldSpec{kind: associationField, name: name})
	b.storeBinding(name, child, traits)
	return nil
}

// Bind registers an association binding without adding an output field.
func (b *Builder) Bind(name string, child *Definition, traits ...string) error {
	if err := validateBinding(b.inst.def.resource, name, child, traits); err != nil {
		return err
	}
	b.storeBinding(name, child, traits)
	return nil
}

func (b *Builder) storeBinding(name string, child *Definition, traits []string) {
	if _, exists := b.inst.bindings[name]; !exists {
		b.inst.bindingOrder = append(b.inst.bindingOrder, name)
	}
	b.inst.bindings[name] = binding{child: child, traits: traits}.clone()
}

// Mutator appends a keyless output-editing field.
func (b *Builder) Mutator(fn MutateFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: nil mutate func", ErrInvalidField)
	}
	b.inst.fields = append(b.inst.fields, fieldSpec{kind: mutatorField, mutate: fn})
	return nil
}

// Eager merges additional eager requirements into the instance's tree.
func (b *Builder) Eager(specs ...any) error {
	tree, err := eager.Normalize(specs...)
	if err != nil {
		return fmt.Errorf("serializer %s: %w", b.inst.def.name, err)
	}
	b.inst.tree = eager.Merge(b.inst.tree, tree)
	return nil
}

// Precompute appends a batch hook to the instance.
func (b *Builder) Precompute(fn PrecomputeFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: nil precompute func", ErrInvalidField)
	}
	b.inst.precompute = append(b.inst.precompute, fn)
	return nil
}

// SetupContext is rejected at instance time: context is already available to
// trait blocks, so a setup hook here could only ever be a mistake.
func (b *Builder) SetupContext(SetupFunc) error {
	return fmt.Errorf("%w: on %s", ErrSetupInTrait, b.inst.def.name)
}
