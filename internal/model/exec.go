package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"strings"

	"github.com/JaimeStill/cerebra/pkg/formatting"
)

// ExitArtifactMissing is the exit status a predictor command uses to report
// that it could not find the model file.
const ExitArtifactMissing = 3

const maxStderr = 512

// Exec classifies by running an external predictor command. The command's
// arguments may contain {model} and {image} placeholders. It must print a JSON
// object with predicted_class and all_probabilities to stdout.
type Exec struct {
	command   []string
	modelPath string
	classes   []string
	logger    *slog.Logger
}

// NewExec creates an exec-backed classifier.
func NewExec(command []string, modelPath string, classes []string, logger *slog.Logger) (*Exec, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("exec backend: empty command")
	}
	return &Exec{
		command:   slices.Clone(command),
		modelPath: modelPath,
		classes:   slices.Clone(classes),
		logger:    logger.With("backend", "exec"),
	}, nil
}

type execOutput struct {
	PredictedClass   string                 `json:"predicted_class"`
	AllProbabilities map[string]probability `json:"all_probabilities"`
}

// probability accepts a JSON number or a string such as "0.87" or "87.3%".
type probability float64

func (p *probability) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*p = probability(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("probability must be a number or string: %s", data)
	}

	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return fmt.Errorf("parse probability %q: %w", s, err)
	}
	if percent {
		f /= 100
	}
	*p = probability(f)
	return nil
}

// Classify runs the predictor. The request context bounds the subprocess, so a
// disconnected client terminates it.
func (e *Exec) Classify(ctx context.Context, path string) (Result, error) {
	if _, err := os.Stat(e.modelPath); errors.Is(err, fs.ErrNotExist) {
		return Result{}, fmt.Errorf("%w: %s", ErrArtifactMissing, e.modelPath)
	}

	args := e.args(path)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == ExitArtifactMissing {
			return Result{}, fmt.Errorf("%w: %s", ErrArtifactMissing, e.modelPath)
		}
		return Result{}, fmt.Errorf("run predictor: %w: %s", err, tail(stderr.String(), maxStderr))
	}

	out, err := formatting.Parse[execOutput](stdout.String())
	if err != nil {
		return Result{}, fmt.Errorf("predictor output: %w", err)
	}

	return e.result(out)
}

func (e *Exec) args(imagePath string) []string {
	replacer := strings.NewReplacer("{model}", e.modelPath, "{image}", imagePath)
	args := make([]string, len(e.command))
	for i, arg := range e.command {
		args[i] = replacer.Replace(arg)
	}
	return args
}

// Classes outside the configured set are kept so validation can reject them.
func (e *Exec) result(out execOutput) (Result, error) {
	if len(out.AllProbabilities) == 0 {
		return Result{}, fmt.Errorf("%w: predictor returned no probabilities", ErrInvalidResult)
	}

	classes := make([]string, 0, len(out.AllProbabilities))
	for _, class := range e.classes {
		if _, ok := out.AllProbabilities[class]; ok {
			classes = append(classes, class)
		}
	}
	var extra []string
	for class := range out.AllProbabilities {
		if !slices.Contains(e.classes, class) {
			extra = append(extra, class)
		}
	}
	slices.Sort(extra)
	classes = append(classes, extra...)

	probs := make(map[string]float64, len(classes))
	for class, p := range out.AllProbabilities {
		probs[class] = float64(p)
	}

	predicted := out.PredictedClass
	if predicted == "" {
		for _, class := range classes {
			if predicted == "" || probs[class] > probs[predicted] {
				predicted = class
			}
		}
	}

	return Result{Class: predicted, Classes: classes, Probabilities: probs}, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
