package artifacts

import "errors"

var (
	// ErrInvalidToken indicates a string is not a well-formed artifact token.
	ErrInvalidToken = errors.New("invalid artifact token")
	// ErrNameExhausted indicates every candidate upload name already existed.
	ErrNameExhausted = errors.New("could not allocate a unique upload name")
)
