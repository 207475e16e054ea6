package location

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Sentinel errors, matchable with errors.Is through wrap chains.
var (
	// ErrMissingStates and ErrMissingCities reject datasets lacking a
	// required collection at construction.
	ErrMissingStates = eris.New("location: dataset has no states")
	ErrMissingCities = eris.New("location: dataset has no cities")

	// ErrZeroStateWeight rejects datasets whose state weights sum to zero;
	// normalization would divide by zero.
	ErrZeroStateWeight = eris.New("location: total state weight is zero")

	// ErrInvalidInput marks upsert calls whose argument is not a
	// key-to-record mapping.
	ErrInvalidInput = eris.New("location: input is not a key to record mapping")

	// ErrNotFound marks lookups for cities, states, or postal data that are
	// absent from the current tables.
	ErrNotFound = eris.New("location: not found")
)

// IsNotFound reports whether err is a lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput reports whether err is an upsert type error.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
