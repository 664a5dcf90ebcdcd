package model

import (
	"fmt"
	"log/slog"
)

// Backend names.
const (
	BackendExec   = "exec"
	BackendONNX   = "onnx"
	BackendTFLite = "tflite"
)

// Options selects and parameterizes a classifier backend.
type Options struct {
	Backend       string
	ModelPath     string
	File          string
	Command       []string
	Classes       []string
	Metadata      string
	SharedLibrary string
	ImageSize     int
}

// New builds the classifier for opts.Backend. In-process backends load
// opts.File, falling back to opts.ModelPath.
func New(opts Options, logger *slog.Logger) (Classifier, error) {
	file := opts.File
	if file == "" {
		file = opts.ModelPath
	}

	switch opts.Backend {
	case BackendExec:
		return NewExec(opts.Command, opts.ModelPath, opts.Classes, logger)
	case BackendONNX:
		var meta Metadata
		if opts.Metadata != "" {
			m, err := ReadMetadata(opts.Metadata)
			if err != nil {
				return nil, err
			}
			meta = m
		}
		return NewONNX(file, opts.SharedLibrary, meta, opts.Classes, opts.ImageSize, logger), nil
	case BackendTFLite:
		return NewTFLite(file, opts.Classes, logger)
	}
	return nil, fmt.Errorf("unsupported backend %q", opts.Backend)
}
