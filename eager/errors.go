package eager

import "errors"

var (
	// ErrMixedFilterAndName is returned when one level of an eager spec mixes
	// a filtered entry with plain association entries
	ErrMixedFilterAndName = errors.New("eager spec mixes a filter with plain associations at one level")

	// ErrMultipleFilters is returned when one level of an eager spec declares
	// more than one filter
	ErrMultipleFilters = errors.New("eager spec declares multiple filters at one level")

	// ErrNestedFilter is returned when a filter is nested directly inside
	// another filter without an intervening association name
	ErrNestedFilter = errors.New("eager filter nested directly inside another filter")

	// ErrInvalidSpec is returned when an eager spec contains a value of an
	// unsupported kind
	ErrInvalidSpec = errors.New("invalid eager spec")
)
