package model

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"slices"
)

const sumTolerance = 0.01

// Adapter invokes a Classifier on behalf of the request pipeline.
type Adapter struct {
	classifier Classifier
	gate       Gate
	classes    []string
	logger     *slog.Logger
}

// NewAdapter wraps classifier. classes is the closed label set results must use.
func NewAdapter(classifier Classifier, gate Gate, classes []string, logger *slog.Logger) *Adapter {
	return &Adapter{
		classifier: classifier,
		gate:       gate,
		classes:    slices.Clone(classes),
		logger:     logger.With("system", "model"),
	}
}

// Gate returns the artifact gate.
func (a *Adapter) Gate() Gate {
	return a.gate
}

// Classes returns the closed label set.
func (a *Adapter) Classes() []string {
	return slices.Clone(a.classes)
}

// Predict classifies the image at path.
//
// A classifier failure wrapping ErrArtifactMissing becomes an *UnavailableError.
// Any other classifier error is returned unchanged. Successful results are
// validated against the label set; a probability sum that strays from 1 is
// logged but accepted.
func (a *Adapter) Predict(ctx context.Context, path string) (Result, error) {
	result, err := a.classifier.Classify(ctx, path)
	if err != nil {
		if errors.Is(err, ErrArtifactMissing) {
			var unavailable *UnavailableError
			if errors.As(err, &unavailable) {
				return Result{}, unavailable
			}
			return Result{}, newUnavailableError(a.gate.Path())
		}
		return Result{}, err
	}

	if err := result.Validate(a.classes); err != nil {
		return Result{}, err
	}

	if sum := result.Sum(); math.Abs(sum-1) > sumTolerance {
		a.logger.Warn("probabilities do not sum to 1", "sum", sum, "image", path)
	}

	a.logger.Debug("prediction complete", "image", path, "class", result.Class, "confidence", result.Confidence())
	return result, nil
}

// Close releases classifier resources when the backend holds any.
func (a *Adapter) Close() error {
	if c, ok := a.classifier.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
