package pack

import (
	"fmt"

	"github.com/relpack/relpack/schema"
)

// Declaration-time validation. All checks run before any registry is
// mutated, so a failed declaration leaves the definition exactly as it was.

func validateFieldName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty field name", ErrInvalidField)
	}
	return nil
}

// validatePlainField rejects attribute/computed declarations whose name is a
// known relation; relations must be packed through a child serializer.
func validatePlainField(res *schema.Resource, name string) error {
	if err := validateFieldName(name); err != nil {
		return err
	}
	if res.HasRelationship(name) {
		return fmt.Errorf("%w: %q is a relation on %s, declare it with a child serializer",
			ErrInvalidChildSerializer, name, res.Name)
	}
	return nil
}

func validateBinding(res *schema.Resource, name string, child *Definition, traits []string) error {
	if err := validateFieldName(name); err != nil {
		return err
	}

	rel, ok := res.Relationship(name)
	if !ok {
		return fmt.Errorf("%w: %s has no relation %q", ErrUnknownAssociation, res.Name, name)
	}

	if child == nil {
		return fmt.Errorf("%w: nil serializer for association %q", ErrInvalidChildSerializer, name)
	}
	if child.resource == nil {
		return fmt.Errorf("%w: serializer %s for association %q has no model",
			ErrInvalidChildSerializer, child.name, name)
	}
	if child.resource.Name != rel.Target {
		return fmt.Errorf("%w: association %q relates %s but serializer %s packs %s",
			ErrInvalidChildSerializer, name, rel.Target, child.name, child.resource.Name)
	}

	// Bound traits resolve against the child's registry as it stands now, so
	// the child must be fully defined before being referenced.
	for _, trait := range traits {
		if _, ok := child.traits[trait]; !ok {
			return fmt.Errorf("%w: %q on serializer %s", ErrUnknownTrait, trait, child.name)
		}
	}
	return nil
}
