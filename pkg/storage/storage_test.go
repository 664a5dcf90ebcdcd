package storage_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/cerebra/pkg/lifecycle"
	"github.com/JaimeStill/cerebra/pkg/logging"
	"github.com/JaimeStill/cerebra/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func TestFinalize(t *testing.T) {
	t.Run("disabled skips validation", func(t *testing.T) {
		cfg := storage.Config{}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if cfg.Provider != storage.ProviderAzure || cfg.ContainerName != "cerebra" {
			t.Errorf("defaults not applied: %+v", cfg)
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_ARCHIVE_ENABLED", "true")
		t.Setenv("TEST_ARCHIVE_PROVIDER", "filesystem")
		t.Setenv("TEST_ARCHIVE_ROOT", "/tmp/archive")

		cfg := storage.Config{}
		err := cfg.Finalize(&storage.Env{
			Enabled:  "TEST_ARCHIVE_ENABLED",
			Provider: "TEST_ARCHIVE_PROVIDER",
			Root:     "TEST_ARCHIVE_ROOT",
		})
		if err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if !cfg.Enabled || cfg.Provider != storage.ProviderFilesystem || cfg.Root != "/tmp/archive" {
			t.Errorf("env not applied: %+v", cfg)
		}
	})

	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr string
	}{
		{"azure without credentials", storage.Config{Enabled: true}, "connection_string or account_url required"},
		{"unknown provider", storage.Config{Enabled: true, Provider: "s3"}, "unsupported provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := storage.Config{Provider: storage.ProviderAzure, ContainerName: "cerebra"}
	base.Merge(&storage.Config{Enabled: true, AccountURL: "https://acct.blob.core.windows.net"})

	if !base.Enabled {
		t.Error("enabled overlay not applied")
	}
	if base.ContainerName != "cerebra" {
		t.Errorf("container should remain cerebra, got %s", base.ContainerName)
	}
	if base.AccountURL == "" {
		t.Error("account_url overlay not applied")
	}
}

func TestNewAzure(t *testing.T) {
	sys, err := storage.New(&storage.Config{
		Provider:         storage.ProviderAzure,
		ContainerName:    "cerebra",
		ConnectionString: azuriteConnString,
	}, logging.Discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = sys.Exists(context.Background(), "../escape")
	if !errors.Is(err, storage.ErrInvalidKey) {
		t.Errorf("Exists() error = %v, want ErrInvalidKey", err)
	}

	_, err = storage.New(&storage.Config{
		Provider:         storage.ProviderAzure,
		ConnectionString: "not-a-connection-string",
	}, logging.Discard())
	if err == nil {
		t.Error("expected error for invalid connection string")
	}
}

func TestFilesystemRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "archive")
	sys, err := storage.New(&storage.Config{Provider: storage.ProviderFilesystem, Root: root}, logging.Discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	lc := lifecycle.New()
	sys.Start(lc)
	lc.WaitForStartup()
	defer lc.Shutdown(time.Second)

	ctx := context.Background()
	key := "20260101_120000_000001/upload_20260101_120000_000001.png"

	exists, err := sys.Exists(ctx, key)
	if err != nil || exists {
		t.Fatalf("Exists() before upload = %v, %v", exists, err)
	}

	if _, err := sys.Download(ctx, key); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Download() missing error = %v, want ErrNotFound", err)
	}

	if err := sys.Upload(ctx, key, strings.NewReader("image-bytes"), "image/png"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	exists, err = sys.Exists(ctx, key)
	if err != nil || !exists {
		t.Fatalf("Exists() after upload = %v, %v", exists, err)
	}

	rc, err := sys.Download(ctx, key)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "image-bytes" {
		t.Errorf("Download() = %q", data)
	}
}

func TestKeyValidation(t *testing.T) {
	sys := storage.NewFilesystem(t.TempDir(), logging.Discard())
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"empty", "", storage.ErrEmptyKey},
		{"traversal", "uploads/../secrets", storage.ErrInvalidKey},
		{"absolute", "/etc/passwd", storage.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := sys.Upload(ctx, tt.key, strings.NewReader(""), "image/png"); !errors.Is(err, tt.wantErr) {
				t.Errorf("Upload() error = %v, want %v", err, tt.wantErr)
			}
			if _, err := sys.Download(ctx, tt.key); !errors.Is(err, tt.wantErr) {
				t.Errorf("Download() error = %v, want %v", err, tt.wantErr)
			}
			if _, err := sys.Exists(ctx, tt.key); !errors.Is(err, tt.wantErr) {
				t.Errorf("Exists() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{storage.ErrNotFound, http.StatusNotFound},
		{storage.ErrEmptyKey, http.StatusBadRequest},
		{storage.ErrInvalidKey, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := storage.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}
