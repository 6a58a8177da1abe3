package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into coded domain errors.
//
//   - ErrNotFound: row does not exist
//   - ErrAlreadyUsed: a uniqueness constraint rejected the write
//   - ErrInvalidState: a referenced row is missing or in the wrong state
//   - ErrUnavailable: backing service could not be reached
//
// Field validation never uses these; see pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
