// Package model gates and invokes the trained MRI classifier.
//
// A Classifier maps an image path to a predicted class and per-class
// probabilities. Backends run an external predictor command, an ONNX
// session, or a TensorFlow Lite interpreter. The Adapter turns a missing
// model artifact into an UnavailableError and validates every result.
package model

import (
	"context"
	"fmt"
	"math"
	"slices"
)

// Classifier produces a prediction for the image at path.
// Implementations report a missing model artifact with an error wrapping ErrArtifactMissing.
type Classifier interface {
	Classify(ctx context.Context, path string) (Result, error)
}

// Result is one prediction. Classes lists the labels in the classifier's output order.
type Result struct {
	Class         string             `json:"predicted_class"`
	Classes       []string           `json:"classes"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// Confidence returns the probability of the predicted class.
func (r Result) Confidence() float64 {
	return r.Probabilities[r.Class]
}

// Values returns the probabilities in Classes order.
func (r Result) Values() []float64 {
	values := make([]float64, len(r.Classes))
	for i, class := range r.Classes {
		values[i] = r.Probabilities[class]
	}
	return values
}

// Validate checks that the result covers exactly the allowed labels, each
// once, with every probability in [0,1].
func (r Result) Validate(allowed []string) error {
	if !slices.Contains(allowed, r.Class) {
		return fmt.Errorf("%w: unknown predicted class %q", ErrInvalidResult, r.Class)
	}
	if len(r.Classes) == 0 {
		return fmt.Errorf("%w: no probabilities", ErrInvalidResult)
	}

	seen := make(map[string]bool, len(r.Classes))
	for _, class := range r.Classes {
		if !slices.Contains(allowed, class) {
			return fmt.Errorf("%w: unknown class %q", ErrInvalidResult, class)
		}
		if seen[class] {
			return fmt.Errorf("%w: duplicate class %q", ErrInvalidResult, class)
		}
		seen[class] = true
	}

	for _, class := range allowed {
		if !seen[class] {
			return fmt.Errorf("%w: missing class %q", ErrInvalidResult, class)
		}
		p, ok := r.Probabilities[class]
		if !ok {
			return fmt.Errorf("%w: missing probability for %q", ErrInvalidResult, class)
		}
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%w: probability %v for %q outside [0,1]", ErrInvalidResult, p, class)
		}
	}
	if len(r.Probabilities) != len(allowed) {
		return fmt.Errorf("%w: %d probabilities for %d classes", ErrInvalidResult, len(r.Probabilities), len(allowed))
	}
	return nil
}

// Sum returns the total of all probabilities.
func (r Result) Sum() float64 {
	var sum float64
	for _, p := range r.Probabilities {
		sum += p
	}
	return sum
}

// resultFromScores builds a Result from scores aligned with classes, taking
// the highest score as the predicted class.
func resultFromScores(classes []string, scores []float32) (Result, error) {
	if len(scores) < len(classes) {
		return Result{}, fmt.Errorf("%w: %d scores for %d classes", ErrInvalidResult, len(scores), len(classes))
	}

	probs := make(map[string]float64, len(classes))
	best := 0
	for i, class := range classes {
		probs[class] = float64(scores[i])
		if scores[i] > scores[best] {
			best = i
		}
	}

	return Result{
		Class:         classes[best],
		Classes:       slices.Clone(classes),
		Probabilities: probs,
	}, nil
}

// softmax converts logits to probabilities in place.
func softmax(scores []float32) {
	if len(scores) == 0 {
		return
	}
	peak := slices.Max(scores)
	var sum float64
	for i, s := range scores {
		e := math.Exp(float64(s - peak))
		scores[i] = float32(e)
		sum += e
	}
	for i := range scores {
		scores[i] = float32(float64(scores[i]) / sum)
	}
}
