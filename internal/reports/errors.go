package reports

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/cerebra/internal/artifacts"
	"github.com/JaimeStill/cerebra/internal/predictions"
)

var (
	// ErrIncomplete indicates the prediction has no chart to report on.
	ErrIncomplete = errors.New("prediction did not complete")
	// ErrSourceMissing indicates an artifact exists neither locally nor in the archive.
	ErrSourceMissing = errors.New("report source image missing")
)

// MapHTTPStatus maps report errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, artifacts.ErrInvalidToken):
		return http.StatusBadRequest
	case errors.Is(err, predictions.ErrNotFound), errors.Is(err, ErrSourceMissing):
		return http.StatusNotFound
	case errors.Is(err, ErrIncomplete):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
