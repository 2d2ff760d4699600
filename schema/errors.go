package schema

import "errors"

var (
	// ErrDuplicateResource is returned when a resource name is registered twice
	ErrDuplicateResource = errors.New("resource already registered")

	// ErrUnknownResource is returned when a resource name is not registered
	ErrUnknownResource = errors.New("unknown resource")

	// ErrUnknownRelationship is returned when a relationship is not found
	ErrUnknownRelationship = errors.New("unknown relationship")

	// ErrDuplicateRelationship is returned when a relationship name is registered twice on one resource
	ErrDuplicateRelationship = errors.New("relationship already registered")

	// ErrInvalidRelationship is returned when relationship metadata is malformed
	ErrInvalidRelationship = errors.New("invalid relationship")
)
