//go:build tflite

package model

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"sync"

	"github.com/mattn/go-tflite"
)

// TFLite classifies in-process with a TensorFlow Lite interpreter. The
// interpreter is created on first use and invocations are serialized.
type TFLite struct {
	file    string
	classes []string
	logger  *slog.Logger

	mu          sync.Mutex
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
}

// NewTFLite creates a TensorFlow Lite classifier for the model at file.
func NewTFLite(file string, classes []string, logger *slog.Logger) (Classifier, error) {
	return &TFLite{
		file:    file,
		classes: slices.Clone(classes),
		logger:  logger.With("backend", "tflite"),
	}, nil
}

func (t *TFLite) Classify(ctx context.Context, path string) (Result, error) {
	img, err := LoadImage(path)
	if err != nil {
		return Result{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if err := t.open(); err != nil {
		return Result{}, err
	}

	input := t.interpreter.GetInputTensor(0)
	if input.Type() != tflite.Float32 {
		return Result{}, fmt.Errorf("tflite: unsupported input type %v", input.Type())
	}

	height, width := input.Dim(1), input.Dim(2)
	copy(input.Float32s(), toTensor(img, width, height, LayoutNHWC))

	if status := t.interpreter.Invoke(); status != tflite.OK {
		return Result{}, fmt.Errorf("tflite inference failed: %v", status)
	}

	scores := slices.Clone(t.interpreter.GetOutputTensor(0).Float32s())
	return resultFromScores(t.classes, scores)
}

func (t *TFLite) open() error {
	if t.interpreter != nil {
		return nil
	}

	if _, err := os.Stat(t.file); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrArtifactMissing, t.file)
	}

	model := tflite.NewModelFromFile(t.file)
	if model == nil {
		return fmt.Errorf("tflite: cannot load model %s", t.file)
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(runtime.NumCPU())

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		options.Delete()
		model.Delete()
		return fmt.Errorf("tflite: cannot create interpreter")
	}

	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		options.Delete()
		model.Delete()
		return fmt.Errorf("tflite: allocate tensors failed: %v", status)
	}

	t.model, t.options, t.interpreter = model, options, interpreter
	t.logger.Info("tflite interpreter created", "file", t.file)
	return nil
}

// Close releases the interpreter, options, and model.
func (t *TFLite) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.interpreter == nil {
		return nil
	}

	t.interpreter.Delete()
	t.options.Delete()
	t.model.Delete()
	t.model, t.options, t.interpreter = nil, nil, nil
	return nil
}
