package sqlsource

import "errors"

var (
	// ErrMaxDepthExceeded is returned when nested eager requirements recurse
	// past the configured depth limit
	ErrMaxDepthExceeded = errors.New("maximum relation depth exceeded")

	// ErrInvalidQuery is returned when Materialize receives a query this
	// loader did not build
	ErrInvalidQuery = errors.New("invalid query for sql loader")
)
