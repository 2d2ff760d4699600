package pack

import (
	"fmt"

	"github.com/relpack/relpack/eager"
)

// Instance is a serializer definition resolved for one pack call: base
// registries copied, context-setup hooks run, selected traits applied, and a
// child instance constructed per association binding. Instances are built
// fresh per call and discarded afterwards, so trait selection and context
// never leak between calls; an instance must not be shared across concurrent
// pack calls.
type Instance struct {
	def *Definition

	fields       []fieldSpec
	bindings     map[string]binding
	bindingOrder []string
	tree         eager.Tree
	precompute   []PrecomputeFunc

	context  Context
	children map[string]*Instance
	scratch  map[string]any
}

// New constructs an instance of def with the selected traits applied in
// order and ctx propagated to every nested child instance. Construction is
// fail-fast: the first error aborts and no partial instance is returned.
func New(def *Definition, traits []string, ctx Context) (*Instance, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil definition", ErrInvalidInput)
	}
	if err := def.requireModel(); err != nil {
		return nil, err
	}

	inst := &Instance{
		def:          def,
		fields:       make([]fieldSpec, len(def.fields)),
		bindings:     make(map[string]binding, len(def.bindings)),
		bindingOrder: make([]string, len(def.bindingOrder)),
		tree:         eager.Clone(def.tree),
		precompute:   make([]PrecomputeFunc, len(def.precompute)),
		context:      ctx,
		children:     make(map[string]*Instance),
		scratch:      make(map[string]any),
	}
	copy(inst.fields, def.fields)
	copy(inst.bindingOrder, def.bindingOrder)
	copy(inst.precompute, def.precompute)
	for name, b := range def.bindings {
		inst.bindings[name] = b.clone()
	}

	b := &Builder{inst: inst}
	for _, fn := range def.setups {
		if err := fn(b); err != nil {
			return nil, fmt.Errorf("context setup on %s: %w", def.name, err)
		}
	}

	for _, name := range traits {
		fn, ok := def.traits[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q on %s", ErrUnknownTrait, name, def.name)
		}
		if err := fn(b); err != nil {
			return nil, fmt.Errorf("trait %q on %s: %w", name, def.name, err)
		}
	}

	// Wire a child instance per binding and pull its requirements up. The
	// binding itself contributes no filter; filters only enter through
	// explicit eager declarations.
	for _, name := range inst.bindingOrder {
		bnd := inst.bindings[name]
		child, err := New(bnd.child, bnd.traits, ctx)
		if err != nil {
			return nil, err
		}
		inst.children[name] = child
		inst.tree = eager.Merge(inst.tree, eager.Tree{name: eager.Node{Nested: child.tree}})
	}

	return inst, nil
}

// Definition returns the definition this instance was built from
func (inst *Instance) Definition() *Definition { return inst.def }

// Model returns the name of the entity type this instance packs
func (inst *Instance) Model() string { return inst.def.resource.Name }

// Context returns the caller-supplied context
func (inst *Instance) Context() Context { return inst.context }

// Requirements returns a copy of the instance's eager-requirement tree,
// suitable for handing to a loading collaborator outside a pack call.
func (inst *Instance) Requirements() eager.Tree { return eager.Clone(inst.tree) }

// Put stores a value in the instance's scratch area. Precompute hooks write
// derived batch results here for field funcs to read.
func (inst *Instance) Put(key string, value any) { inst.scratch[key] = value }

// Get reads a value from the instance's scratch area.
func (inst *Instance) Get(key string) (any, bool) {
	v, ok := inst.scratch[key]
	return v, ok
}

// hasPrecompute reports whether this instance or any instance below it has
// precompute hooks. Subtrees without hooks are skipped entirely during the
// precompute walk, avoiding needless association flattening.
func (inst *Instance) hasPrecompute() bool {
	if len(inst.precompute) > 0 {
		return true
	}
	for _, child := range inst.children {
		if child.hasPrecompute() {
			return true
		}
	}
	return false
}
