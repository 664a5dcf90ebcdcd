package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/JaimeStill/cerebra/internal/api"
	"github.com/JaimeStill/cerebra/internal/config"
	"github.com/JaimeStill/cerebra/internal/infrastructure"
	"github.com/JaimeStill/cerebra/internal/predictions"
	"github.com/JaimeStill/cerebra/pkg/logging"
	"github.com/JaimeStill/cerebra/pkg/module"
	"github.com/JaimeStill/cerebra/pkg/storage"
)

type fixture struct {
	cfg      *config.Config
	domain   *api.Domain
	router   *module.Router
	patterns []string
}

func setup(t *testing.T, configure func(*config.Config)) *fixture {
	t.Helper()

	cfg := &config.Config{Paths: config.PathsConfig{Root: t.TempDir()}}
	if configure != nil {
		configure(cfg)
	}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	infra, err := infrastructure.NewWithLogger(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	if err := infra.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	infra.Lifecycle.WaitForStartup()
	t.Cleanup(func() { infra.Lifecycle.Shutdown(5 * time.Second) })

	domain := api.NewDomain(cfg, infra)
	m, patterns, err := api.NewModule(cfg, infra, domain)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	router := module.NewRouter()
	router.Mount(m)

	return &fixture{cfg: cfg, domain: domain, router: router, patterns: patterns}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestPatterns(t *testing.T) {
	f := setup(t, nil)

	for _, want := range []string{
		"GET /api/predictions",
		"GET /api/predictions/{id}",
		"GET /api/reports/{token}",
		"GET /api/model",
		"GET /api/archive/{key...}",
		"GET /api/openapi.json",
	} {
		if !slices.Contains(f.patterns, want) {
			t.Errorf("patterns missing %q: %v", want, f.patterns)
		}
	}
}

func TestModelStatus(t *testing.T) {
	f := setup(t, nil)

	rec := f.get(t, "/api/model")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var status api.ModelStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Ready {
		t.Error("model should not be ready without an artifact")
	}
	if len(status.Classes) != len(config.DefaultClasses) {
		t.Errorf("classes: got %v", status.Classes)
	}

	if err := os.MkdirAll(filepath.Dir(f.cfg.ModelPath()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.cfg.ModelPath(), []byte("weights"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec = f.get(t, "/api/model/")
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.Ready {
		t.Error("model should be ready once the artifact exists")
	}
}

func TestPredictionsEndpoints(t *testing.T) {
	f := setup(t, nil)

	token := "20240309_140507_123456"
	_, err := f.domain.Predictions.Record(context.Background(), predictions.RecordCommand{
		Token:        token,
		OriginalName: "scan.png",
		ImageName:    "upload_" + token + ".png",
		Status:       predictions.StatusModelMissing,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	rec := f.get(t, "/api/predictions?status=model_missing")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status: got %d, want 200", rec.Code)
	}
	var page struct {
		Data  []predictions.Prediction `json:"data"`
		Total int                      `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 || len(page.Data) != 1 {
		t.Fatalf("list: got total %d, %d rows", page.Total, len(page.Data))
	}

	rec = f.get(t, "/api/predictions/"+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("find status: got %d, want 200", rec.Code)
	}

	rec = f.get(t, "/api/predictions/20000101_000000_000000")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing token: got %d, want 404", rec.Code)
	}
}

func TestReportErrors(t *testing.T) {
	f := setup(t, nil)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"malformed token", "/api/reports/not-a-token", http.StatusBadRequest},
		{"unknown token", "/api/reports/20240309_140507_123456", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := f.get(t, tt.path); rec.Code != tt.status {
				t.Errorf("status: got %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestArchiveDisabled(t *testing.T) {
	f := setup(t, nil)

	if rec := f.get(t, "/api/archive/uploads/upload_x.png"); rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestArchiveDownload(t *testing.T) {
	f := setup(t, func(cfg *config.Config) {
		cfg.Archive.Enabled = true
		cfg.Archive.Provider = storage.ProviderFilesystem
	})

	dir := filepath.Join(f.cfg.Paths.Resolve(f.cfg.Archive.Root), "uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "upload_x.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := f.get(t, "/api/archive/uploads/upload_x.png")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("Content-Type: got %q", got)
	}
	if got := rec.Body.String(); got != "png" {
		t.Errorf("body: got %q", got)
	}

	if rec := f.get(t, "/api/archive/uploads/missing.png"); rec.Code != http.StatusNotFound {
		t.Errorf("missing: got %d, want 404", rec.Code)
	}
}

func TestOpenAPISpec(t *testing.T) {
	f := setup(t, nil)

	rec := f.get(t, "/api/openapi.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var spec struct {
		OpenAPI string                     `json:"openapi"`
		Paths   map[string]json.RawMessage `json:"paths"`
		Servers []struct {
			URL string `json:"url"`
		} `json:"servers"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&spec); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if spec.OpenAPI != "3.1.0" {
		t.Errorf("openapi: got %q", spec.OpenAPI)
	}
	if len(spec.Servers) != 1 || spec.Servers[0].URL != api.BasePath {
		t.Errorf("servers: got %+v", spec.Servers)
	}
	for _, path := range []string{
		"/predictions",
		"/predictions/{id}",
		"/reports/{token}",
		"/model",
		"/archive/{key}",
	} {
		if _, ok := spec.Paths[path]; !ok {
			t.Errorf("paths missing %s", path)
		}
	}
}
