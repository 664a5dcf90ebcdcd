package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

const (
	EnvModelPath          = "CEREBRA_MODEL_PATH"
	EnvModelBackend       = "CEREBRA_MODEL_BACKEND"
	EnvModelClasses       = "CEREBRA_MODEL_CLASSES"
	EnvModelCommand       = "CEREBRA_MODEL_COMMAND"
	EnvModelFile          = "CEREBRA_MODEL_FILE"
	EnvModelMetadata      = "CEREBRA_MODEL_METADATA"
	EnvModelSharedLibrary = "CEREBRA_MODEL_SHARED_LIBRARY"
	EnvModelImageSize     = "CEREBRA_MODEL_IMAGE_SIZE"
)

// Classifier backends.
const (
	BackendExec   = "exec"
	BackendONNX   = "onnx"
	BackendTFLite = "tflite"
)

// DefaultClasses is the four-stage impairment scale in model output order.
var DefaultClasses = []string{
	"No Impairment",
	"Very Mild Impairment",
	"Mild Impairment",
	"Moderate Impairment",
}

// ModelConfig selects and parameterizes the classifier.
//
// Path is the artifact whose presence gates inference. The exec backend runs
// Command with {model} and {image} placeholders substituted. The onnx and
// tflite backends load File in-process, which defaults to Path.
type ModelConfig struct {
	Path          string   `toml:"path"`
	Backend       string   `toml:"backend"`
	Classes       []string `toml:"classes"`
	Command       []string `toml:"command"`
	File          string   `toml:"file"`
	Metadata      string   `toml:"metadata"`
	SharedLibrary string   `toml:"shared_library"`
	ImageSize     int      `toml:"image_size"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ModelConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ModelConfig) Merge(overlay *ModelConfig) {
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if len(overlay.Classes) > 0 {
		c.Classes = overlay.Classes
	}
	if len(overlay.Command) > 0 {
		c.Command = overlay.Command
	}
	if overlay.File != "" {
		c.File = overlay.File
	}
	if overlay.Metadata != "" {
		c.Metadata = overlay.Metadata
	}
	if overlay.SharedLibrary != "" {
		c.SharedLibrary = overlay.SharedLibrary
	}
	if overlay.ImageSize != 0 {
		c.ImageSize = overlay.ImageSize
	}
}

func (c *ModelConfig) loadDefaults() {
	if c.Path == "" {
		c.Path = "models/alzheimer_model.h5"
	}
	if c.Backend == "" {
		c.Backend = BackendExec
	}
	if len(c.Classes) == 0 {
		c.Classes = slices.Clone(DefaultClasses)
	}
	if len(c.Command) == 0 {
		c.Command = []string{"python3", "scripts/classify.py", "--model", "{model}", "--image", "{image}", "--json"}
	}
	if c.ImageSize == 0 {
		c.ImageSize = 128
	}
}

func (c *ModelConfig) loadEnv() {
	if v := os.Getenv(EnvModelPath); v != "" {
		c.Path = v
	}
	if v := os.Getenv(EnvModelBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvModelClasses); v != "" {
		var classes []string
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				classes = append(classes, part)
			}
		}
		c.Classes = classes
	}
	if v := os.Getenv(EnvModelCommand); v != "" {
		c.Command = strings.Fields(v)
	}
	if v := os.Getenv(EnvModelFile); v != "" {
		c.File = v
	}
	if v := os.Getenv(EnvModelMetadata); v != "" {
		c.Metadata = v
	}
	if v := os.Getenv(EnvModelSharedLibrary); v != "" {
		c.SharedLibrary = v
	}
	if v := os.Getenv(EnvModelImageSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ImageSize = n
		}
	}
}

func (c *ModelConfig) validate() error {
	switch c.Backend {
	case BackendExec:
		if len(c.Command) == 0 {
			return fmt.Errorf("command required for exec backend")
		}
	case BackendONNX, BackendTFLite:
	default:
		return fmt.Errorf("unsupported backend %q", c.Backend)
	}
	if len(c.Classes) == 0 {
		return fmt.Errorf("at least one class required")
	}
	seen := make(map[string]bool, len(c.Classes))
	for _, class := range c.Classes {
		if seen[class] {
			return fmt.Errorf("duplicate class %q", class)
		}
		seen[class] = true
	}
	if c.ImageSize < 1 {
		return fmt.Errorf("image_size must be positive")
	}
	return nil
}
