package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/cerebra/internal/config"
	"github.com/JaimeStill/cerebra/internal/infrastructure"
	"github.com/JaimeStill/cerebra/internal/migrations"
	"github.com/JaimeStill/cerebra/internal/predictions"
	"github.com/JaimeStill/cerebra/internal/watcher"
	"github.com/JaimeStill/cerebra/pkg/database"
	"github.com/JaimeStill/cerebra/pkg/lifecycle"
	"github.com/JaimeStill/cerebra/pkg/logging"
)

type cliEnv struct {
	root       string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv(config.EnvCerebraConfig, "")
	t.Setenv(config.EnvCerebraEnv, "")

	root := t.TempDir()
	configPath := filepath.Join(root, "config.toml")
	content := fmt.Sprintf(`
[paths]
root = %q

[logging]
level = "error"
format = "text"

[watcher]
command = ["sh", "-c", "true"]
`, root)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliEnv{root: root, configPath: configPath}
}

func (e *cliEnv) writeModel() error {
	path := filepath.Join(e.root, "models", "alzheimer_model.h5")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("weights"), 0o644)
}

func (e *cliEnv) installModel(t *testing.T) {
	t.Helper()
	if err := e.writeModel(); err != nil {
		t.Fatal(err)
	}
}

func runCLI(t *testing.T, env *cliEnv, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, s, want string) {
	t.Helper()
	if !strings.Contains(s, want) {
		t.Fatalf("output missing %q:\n%s", want, s)
	}
}

func TestGate(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "gate")
	if err == nil || !strings.Contains(err.Error(), watcher.ErrModelMissing.Error()) {
		t.Fatalf("gate without model: got %v", err)
	}

	env.installModel(t)

	out, _, err := runCLI(t, env, "gate")
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	requireContains(t, out, "Model ready")
}

func TestWatchOnce(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "watch", "--once"); err == nil {
		t.Fatal("expected error without model")
	}

	env.installModel(t)

	out, _, err := runCLI(t, env, "watch", "--once")
	if err != nil {
		t.Fatalf("watch --once: %v", err)
	}
	requireContains(t, out, "Server started")
}

func TestWatchPolls(t *testing.T) {
	env := setupCLITestEnv(t)

	installed := make(chan error, 1)
	go func() {
		time.Sleep(50 * time.Millisecond)
		installed <- env.writeModel()
	}()

	out, _, err := runCLI(t, env, "watch", "--interval", "10ms")
	if installErr := <-installed; installErr != nil {
		t.Fatalf("install model: %v", installErr)
	}
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	requireContains(t, out, "Server started")
}

func TestPredictions(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "predictions")
	if err != nil {
		t.Fatalf("predictions: %v", err)
	}
	requireContains(t, out, "No predictions recorded")

	seed(t, env, "20240309_140507_123456", "Mild Impairment")
	seed(t, env, "20240309_140508_000001", "No Impairment")

	out, _, err = runCLI(t, env, "predictions", "--limit", "5")
	if err != nil {
		t.Fatalf("predictions: %v", err)
	}
	requireContains(t, out, "20240309_140507_123456")
	requireContains(t, out, "Mild Impairment")
	requireContains(t, out, "Showing 2 of 2")

	out, _, err = runCLI(t, env, "predictions", "--class", "No Impairment")
	if err != nil {
		t.Fatalf("predictions --class: %v", err)
	}
	requireContains(t, out, "Showing 1 of 1")
}

func seed(t *testing.T, env *cliEnv, token, class string) {
	t.Helper()

	cfg := &config.Config{Paths: config.PathsConfig{Root: env.root}}
	if err := cfg.Finalize(); err != nil {
		t.Fatal(err)
	}

	dbCfg := infrastructure.DatabaseConfig(cfg)
	db, err := database.New(&dbCfg, logging.Discard(), migrations.Hook(logging.Discard()))
	if err != nil {
		t.Fatal(err)
	}

	lc := lifecycle.New()
	if err := db.Start(lc); err != nil {
		t.Fatal(err)
	}
	lc.WaitForStartup()
	defer lc.Shutdown(5 * time.Second)

	history := predictions.New(db.Connection(), logging.Discard(), cfg.Pagination)
	_, err = history.Record(context.Background(), predictions.RecordCommand{
		Token:         token,
		OriginalName:  "scan.png",
		ImageName:     "upload_" + token + ".png",
		ChartName:     "probs_" + token + ".png",
		Class:         class,
		Confidence:    0.9,
		Probabilities: map[string]float64{class: 0.9},
		Status:        predictions.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
}
