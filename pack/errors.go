package pack

import "errors"

// Every error here signals a programming mistake in a serializer declaration
// or its use, caught as early as possible - ideally while definitions are
// being built at process startup. None is retryable.
var (
	// ErrModelNotDeclared is returned when fields or bindings are declared
	// before the serializer's model
	ErrModelNotDeclared = errors.New("serializer model not declared")

	// ErrModelAlreadyDeclared is returned when a serializer declares its model twice
	ErrModelAlreadyDeclared = errors.New("serializer model already declared")

	// ErrDuplicateTrait is returned when a trait name is declared twice on one definition
	ErrDuplicateTrait = errors.New("trait already declared")

	// ErrUnknownTrait is returned when a requested trait is not declared on the definition
	ErrUnknownTrait = errors.New("unknown trait")

	// ErrInvalidField is returned when a field declaration is malformed
	ErrInvalidField = errors.New("invalid field declaration")

	// ErrUnknownAssociation is returned when a binding names a relation the
	// model does not have
	ErrUnknownAssociation = errors.New("association does not exist on model")

	// ErrInvalidChildSerializer is returned when an association's child
	// serializer is missing, not usable, or declares the wrong model
	ErrInvalidChildSerializer = errors.New("invalid child serializer")

	// ErrSetupInTrait is returned when a trait block declares a context-setup
	// hook; context is already available inside trait blocks
	ErrSetupInTrait = errors.New("context setup cannot be declared inside a trait block")

	// ErrInvalidInput is returned when Pack receives an unsupported input type
	ErrInvalidInput = errors.New("unsupported pack input")

	// ErrInvalidRelationValue is returned when a loaded relation holds a value
	// the traversal cannot pack
	ErrInvalidRelationValue = errors.New("unexpected relation value")
)
