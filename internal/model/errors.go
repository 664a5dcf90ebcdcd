package model

import (
	"errors"
	"fmt"
)

var (
	// ErrArtifactMissing indicates the trained model file does not exist.
	ErrArtifactMissing = errors.New("model artifact missing")
	// ErrInvalidResult indicates a classifier returned an unusable prediction.
	ErrInvalidResult = errors.New("invalid classifier result")
)

// UnavailableError reports that inference could not run because the model
// artifact is absent. Message is suitable for display to the user.
type UnavailableError struct {
	Path    string
	Message string
}

func newUnavailableError(path string) *UnavailableError {
	return &UnavailableError{
		Path:    path,
		Message: fmt.Sprintf("Model file not found at %s. Please train or install the model and try again.", path),
	}
}

func (e *UnavailableError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is(err, ErrArtifactMissing) match.
func (e *UnavailableError) Unwrap() error {
	return ErrArtifactMissing
}
