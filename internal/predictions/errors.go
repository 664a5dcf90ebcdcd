package predictions

import (
	"errors"
	"net/http"
)

// Domain errors for prediction history.
var (
	ErrNotFound      = errors.New("prediction not found")
	ErrDuplicate     = errors.New("prediction already recorded")
	ErrInvalidID     = errors.New("invalid prediction id")
	ErrInvalidStatus = errors.New("invalid prediction status")
)

// MapHTTPStatus maps prediction domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidStatus):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
