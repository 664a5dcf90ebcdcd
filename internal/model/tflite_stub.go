//go:build !tflite

package model

import (
	"errors"
	"log/slog"
)

// ErrTFLiteUnavailable is returned when the binary was built without the tflite tag.
var ErrTFLiteUnavailable = errors.New("tflite backend not compiled in; rebuild with -tags tflite")

// NewTFLite reports that TensorFlow Lite support is not compiled into this binary.
func NewTFLite(file string, classes []string, logger *slog.Logger) (Classifier, error) {
	return nil, ErrTFLiteUnavailable
}
