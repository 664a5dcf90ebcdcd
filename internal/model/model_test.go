package model_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/cerebra/internal/model"
	"github.com/JaimeStill/cerebra/pkg/logging"
)

var classes = []string{"No Impairment", "Very Mild Impairment", "Mild Impairment", "Moderate Impairment"}

type fakeClassifier struct {
	result model.Result
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, path string) (model.Result, error) {
	f.calls++
	return f.result, f.err
}

func validResult() model.Result {
	return model.Result{
		Class:   "Mild Impairment",
		Classes: classes,
		Probabilities: map[string]float64{
			"No Impairment":        0.1,
			"Very Mild Impairment": 0.2,
			"Mild Impairment":      0.6,
			"Moderate Impairment":  0.1,
		},
	}
}

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.SetGray(1, 1, color.Gray{Y: 200})

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestGate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models", "alzheimer_model.h5")
	gate := model.NewGate(path)

	if gate.Ready() {
		t.Error("gate ready before artifact exists")
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	if gate.Ready() {
		t.Error("gate ready for a directory")
	}
	os.Remove(path)

	writeFile(t, path, "weights", 0o644)
	if !gate.Ready() {
		t.Error("gate not ready after artifact appears")
	}
	if gate.Path() != path {
		t.Errorf("Path() = %q", gate.Path())
	}
}

func TestGateExtraFiles(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "alzheimer_model.h5")
	converted := filepath.Join(dir, "alzheimer_model.onnx")
	gate := model.NewGate(artifact, converted, "", artifact)

	if got := gate.Files(); len(got) != 2 || got[0] != artifact || got[1] != converted {
		t.Fatalf("Files() = %v", got)
	}

	writeFile(t, artifact, "weights", 0o644)
	if gate.Ready() {
		t.Error("gate ready without the converted file")
	}

	writeFile(t, converted, "weights", 0o644)
	if !gate.Ready() {
		t.Error("gate not ready with every file present")
	}
}

func TestAdapterArtifactMissing(t *testing.T) {
	gate := model.NewGate("models/alzheimer_model.h5")
	fake := &fakeClassifier{err: fmt.Errorf("load: %w", model.ErrArtifactMissing)}
	adapter := model.NewAdapter(fake, gate, classes, logging.Discard())

	_, err := adapter.Predict(context.Background(), "upload.png")

	var unavailable *model.UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("got %v, want *UnavailableError", err)
	}
	if !errors.Is(err, model.ErrArtifactMissing) {
		t.Error("UnavailableError should match ErrArtifactMissing")
	}
	if !strings.Contains(unavailable.Message, "models/alzheimer_model.h5") {
		t.Errorf("message %q does not name the artifact", unavailable.Message)
	}
}

func TestAdapterOtherErrorsPropagate(t *testing.T) {
	boom := errors.New("tensor shape mismatch")
	adapter := model.NewAdapter(&fakeClassifier{err: boom}, model.NewGate("m.h5"), classes, logging.Discard())

	_, err := adapter.Predict(context.Background(), "upload.png")
	if err != boom {
		t.Errorf("got %v, want the classifier's error unchanged", err)
	}

	var unavailable *model.UnavailableError
	if errors.As(err, &unavailable) {
		t.Error("non-missing error converted to UnavailableError")
	}
}

func TestAdapterValidatesResult(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Result)
	}{
		{"unknown predicted class", func(r *model.Result) { r.Class = "Severe" }},
		{"probability above one", func(r *model.Result) { r.Probabilities["Mild Impairment"] = 1.5 }},
		{"negative probability", func(r *model.Result) { r.Probabilities["No Impairment"] = -0.1 }},
		{"unknown class label", func(r *model.Result) {
			r.Classes = append(append([]string{}, r.Classes...), "Other")
			r.Probabilities["Other"] = 0
		}},
		{"missing probability", func(r *model.Result) { delete(r.Probabilities, "Moderate Impairment") }},
		{"partial class set", func(r *model.Result) {
			r.Classes = []string{"Mild Impairment", "No Impairment"}
			r.Probabilities = map[string]float64{"Mild Impairment": 0.6, "No Impairment": 0.4}
		}},
		{"duplicate class", func(r *model.Result) {
			r.Classes = []string{"No Impairment", "Very Mild Impairment", "Mild Impairment", "Mild Impairment"}
		}},
		{"stray probability", func(r *model.Result) { r.Probabilities["Other"] = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validResult()
			tt.mutate(&result)

			adapter := model.NewAdapter(&fakeClassifier{result: result}, model.NewGate("m.h5"), classes, logging.Discard())
			if _, err := adapter.Predict(context.Background(), "x.png"); !errors.Is(err, model.ErrInvalidResult) {
				t.Errorf("got %v, want ErrInvalidResult", err)
			}
		})
	}
}

func TestAdapterAcceptsUnnormalizedSum(t *testing.T) {
	result := validResult()
	result.Probabilities["No Impairment"] = 0.4

	adapter := model.NewAdapter(&fakeClassifier{result: result}, model.NewGate("m.h5"), classes, logging.Discard())
	got, err := adapter.Predict(context.Background(), "x.png")
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if got.Confidence() != 0.6 {
		t.Errorf("Confidence() = %v", got.Confidence())
	}
	if vals := got.Values(); len(vals) != 4 || vals[2] != 0.6 {
		t.Errorf("Values() = %v", vals)
	}
}

func predictorScript(t *testing.T, body string) []string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "predict.sh")
	writeFile(t, script, "#!/bin/sh\n"+body+"\n", 0o755)
	return []string{"sh", script, "{model}", "{image}"}
}

func modelFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alzheimer_model.h5")
	writeFile(t, path, "weights", 0o644)
	return path
}

func TestExecClassify(t *testing.T) {
	cmd := predictorScript(t, `echo "loading weights from $1"
echo "classifying $2" >&2
echo '{"predicted_class": "Very Mild Impairment", "all_probabilities": {"Moderate Impairment": "5%", "Very Mild Impairment": "70%", "No Impairment": 0.2, "Mild Impairment": "0.05"}}'`)

	exec, err := model.NewExec(cmd, modelFile(t), classes, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}

	result, err := exec.Classify(context.Background(), "/tmp/upload.png")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if result.Class != "Very Mild Impairment" {
		t.Errorf("Class = %q", result.Class)
	}
	if strings.Join(result.Classes, "|") != strings.Join(classes, "|") {
		t.Errorf("Classes not in configured order: %v", result.Classes)
	}

	want := map[string]float64{
		"No Impairment":        0.2,
		"Very Mild Impairment": 0.7,
		"Mild Impairment":      0.05,
		"Moderate Impairment":  0.05,
	}
	for class, p := range want {
		if got := result.Probabilities[class]; got < p-1e-9 || got > p+1e-9 {
			t.Errorf("%s = %v, want %v", class, got, p)
		}
	}
}

func TestExecPredictedClassFallsBackToArgmax(t *testing.T) {
	cmd := predictorScript(t, `echo '{"all_probabilities": {"No Impairment": 0.05, "Very Mild Impairment": 0.03, "Mild Impairment": 0.02, "Moderate Impairment": 0.9}}'`)
	exec, _ := model.NewExec(cmd, modelFile(t), classes, logging.Discard())

	result, err := exec.Classify(context.Background(), "x.png")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if result.Class != "Moderate Impairment" {
		t.Errorf("Class = %q", result.Class)
	}
	if len(result.Classes) != len(classes) {
		t.Errorf("Classes = %v", result.Classes)
	}
}

func TestAdapterRejectsPartialExecOutput(t *testing.T) {
	cmd := predictorScript(t, `echo '{"predicted_class": "Mild Impairment", "all_probabilities": {"Mild Impairment": 0.6, "No Impairment": 0.4}}'`)
	exec, _ := model.NewExec(cmd, modelFile(t), classes, logging.Discard())
	adapter := model.NewAdapter(exec, model.NewGate("m.h5"), classes, logging.Discard())

	if _, err := adapter.Predict(context.Background(), "x.png"); !errors.Is(err, model.ErrInvalidResult) {
		t.Errorf("got %v, want ErrInvalidResult", err)
	}
}

func TestExecArtifactMissing(t *testing.T) {
	t.Run("model file absent", func(t *testing.T) {
		cmd := predictorScript(t, `echo should-not-run; exit 1`)
		exec, _ := model.NewExec(cmd, filepath.Join(t.TempDir(), "missing.h5"), classes, logging.Discard())

		if _, err := exec.Classify(context.Background(), "x.png"); !errors.Is(err, model.ErrArtifactMissing) {
			t.Errorf("got %v, want ErrArtifactMissing", err)
		}
	})

	t.Run("predictor exit status", func(t *testing.T) {
		cmd := predictorScript(t, fmt.Sprintf(`echo "model gone" >&2; exit %d`, model.ExitArtifactMissing))
		exec, _ := model.NewExec(cmd, modelFile(t), classes, logging.Discard())

		if _, err := exec.Classify(context.Background(), "x.png"); !errors.Is(err, model.ErrArtifactMissing) {
			t.Errorf("got %v, want ErrArtifactMissing", err)
		}
	})
}

func TestExecFailures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"non-zero exit", `echo "CUDA error" >&2; exit 1`, "CUDA error"},
		{"garbage output", `echo "not json"`, "failed to parse output"},
		{"empty probabilities", `echo '{"predicted_class": "Mild Impairment", "all_probabilities": {}}'`, "no probabilities"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, _ := model.NewExec(predictorScript(t, tt.body), modelFile(t), classes, logging.Discard())

			_, err := exec.Classify(context.Background(), "x.png")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %v, want error containing %q", err, tt.wantErr)
			}
			if errors.Is(err, model.ErrArtifactMissing) {
				t.Error("failure misreported as missing artifact")
			}
		})
	}
}

func TestExecHonorsContext(t *testing.T) {
	exec, _ := model.NewExec(predictorScript(t, `sleep 30`), modelFile(t), classes, logging.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := exec.Classify(ctx, "x.png"); err == nil {
		t.Fatal("expected error after cancellation")
	}
	if time.Since(start) > 10*time.Second {
		t.Error("predictor was not terminated on cancellation")
	}
}

func TestNewExecEmptyCommand(t *testing.T) {
	if _, err := model.NewExec(nil, "m.h5", classes, logging.Discard()); err == nil {
		t.Error("expected error for empty command")
	}
}

func TestNewUnsupportedBackend(t *testing.T) {
	if _, err := model.New(model.Options{Backend: "torch"}, logging.Discard()); err == nil {
		t.Error("expected error for unsupported backend")
	}
}

func TestONNXArtifactMissing(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "upload.png")
	writePNG(t, image)

	classifier, err := model.New(model.Options{
		Backend:   model.BackendONNX,
		ModelPath: filepath.Join(dir, "alzheimer_model.h5"),
		File:      filepath.Join(dir, "alzheimer_model.onnx"),
		Classes:   classes,
		ImageSize: 8,
	}, logging.Discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := classifier.Classify(context.Background(), image); !errors.Is(err, model.ErrArtifactMissing) {
		t.Errorf("got %v, want ErrArtifactMissing", err)
	}
}

func TestReadMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	writeFile(t, path, `{"input_shape": [1, 128, 128, 3], "classes": ["A", "B"], "layout": "nhwc", "softmax": true}`, 0o644)

	meta, err := model.ReadMetadata(path)
	if err != nil {
		t.Fatalf("ReadMetadata() error = %v", err)
	}
	if meta.Layout != model.LayoutNHWC || !meta.Softmax || len(meta.Classes) != 2 {
		t.Errorf("unexpected metadata: %+v", meta)
	}

	if _, err := model.ReadMetadata(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Error("expected error for missing metadata")
	}
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.png")
	writePNG(t, path)

	img, err := model.LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage() error = %v", err)
	}
	if img.Bounds().Dx() != 4 {
		t.Errorf("width = %d", img.Bounds().Dx())
	}

	bad := filepath.Join(dir, "scan.bmp")
	writeFile(t, bad, "not an image", 0o644)
	if _, err := model.LoadImage(bad); err == nil {
		t.Error("expected decode error")
	}
}
