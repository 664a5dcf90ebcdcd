package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Metadata describes an exported model's tensors. It is read from a JSON
// sidecar file when one is configured.
type Metadata struct {
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	Layout      string   `json:"layout"`
	Softmax     bool     `json:"softmax"`
}

// ReadMetadata loads a metadata sidecar.
func ReadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("read metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("parse metadata: %w", err)
	}
	return meta, nil
}

// withDefaults fills unset fields from the configured classes and image size.
func (m Metadata) withDefaults(classes []string, imageSize int) Metadata {
	if m.InputName == "" {
		m.InputName = "input"
	}
	if m.OutputName == "" {
		m.OutputName = "output"
	}
	if len(m.Classes) == 0 {
		m.Classes = slices.Clone(classes)
	}
	if m.ImageSize == 0 {
		m.ImageSize = imageSize
	}
	if m.Layout == "" {
		m.Layout = LayoutNCHW
	}
	if len(m.InputShape) == 0 {
		size := int64(m.ImageSize)
		if m.Layout == LayoutNHWC {
			m.InputShape = []int64{1, size, size, 3}
		} else {
			m.InputShape = []int64{1, 3, size, size}
		}
	}
	if len(m.OutputShape) == 0 {
		m.OutputShape = []int64{1, int64(len(m.Classes))}
	}
	return m
}

// ONNX classifies in-process with an ONNX Runtime session. The session is
// created on first use so the server can start before the model exists, and
// runs are serialized because the session owns a single pair of tensors.
type ONNX struct {
	file          string
	sharedLibrary string
	meta          Metadata
	logger        *slog.Logger

	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewONNX creates an ONNX-backed classifier for the model at file.
func NewONNX(file, sharedLibrary string, meta Metadata, classes []string, imageSize int, logger *slog.Logger) *ONNX {
	return &ONNX{
		file:          file,
		sharedLibrary: sharedLibrary,
		meta:          meta.withDefaults(classes, imageSize),
		logger:        logger.With("backend", "onnx"),
	}
}

func (o *ONNX) Classify(ctx context.Context, path string) (Result, error) {
	img, err := LoadImage(path)
	if err != nil {
		return Result{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if err := o.open(); err != nil {
		return Result{}, err
	}

	copy(o.input.GetData(), toTensor(img, o.meta.ImageSize, o.meta.ImageSize, o.meta.Layout))

	if err := o.session.Run(); err != nil {
		return Result{}, fmt.Errorf("onnx inference: %w", err)
	}

	scores := slices.Clone(o.output.GetData())
	if o.meta.Softmax {
		softmax(scores)
	}

	return resultFromScores(o.meta.Classes, scores)
}

func (o *ONNX) open() error {
	if o.session != nil {
		return nil
	}

	if _, err := os.Stat(o.file); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrArtifactMissing, o.file)
	}

	if !ort.IsInitialized() {
		if o.sharedLibrary != "" {
			ort.SetSharedLibraryPath(o.sharedLibrary)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("initialize onnx environment: %w", err)
		}
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(o.meta.InputShape...))
	if err != nil {
		return fmt.Errorf("create input tensor: %w", err)
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(o.meta.OutputShape...))
	if err != nil {
		input.Destroy()
		return fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(o.file,
		[]string{o.meta.InputName}, []string{o.meta.OutputName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return fmt.Errorf("create onnx session: %w", err)
	}

	o.session, o.input, o.output = session, input, output
	o.logger.Info("onnx session created", "file", o.file, "input_shape", o.meta.InputShape)
	return nil
}

// Close destroys the session and its tensors.
func (o *ONNX) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session == nil {
		return nil
	}

	o.input.Destroy()
	o.output.Destroy()
	err := o.session.Destroy()
	o.session, o.input, o.output = nil, nil, nil

	if ort.IsInitialized() {
		if derr := ort.DestroyEnvironment(); derr != nil && err == nil {
			err = derr
		}
	}
	return err
}
