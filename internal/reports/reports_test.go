package reports_test

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	_ "modernc.org/sqlite"

	"github.com/JaimeStill/cerebra/internal/archive"
	"github.com/JaimeStill/cerebra/internal/artifacts"
	"github.com/JaimeStill/cerebra/internal/migrations"
	"github.com/JaimeStill/cerebra/internal/predictions"
	"github.com/JaimeStill/cerebra/internal/reports"
	"github.com/JaimeStill/cerebra/pkg/database"
	"github.com/JaimeStill/cerebra/pkg/logging"
	"github.com/JaimeStill/cerebra/pkg/pagination"
	"github.com/JaimeStill/cerebra/pkg/routes"
	"github.com/JaimeStill/cerebra/pkg/storage"
)

const token = "20240309_140507_123456"

type fixture struct {
	paths   artifacts.Paths
	history predictions.System
	store   storage.System
	gen     *reports.Generator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	db, err := sql.Open("sqlite", filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = migrations.Run(context.Background(), db, database.DriverSQLite)
	require.NoError(t, err)

	paths := artifacts.Paths{
		UploadsDir: filepath.Join(dir, "static", "uploads"),
		ChartsDir:  filepath.Join(dir, "static", "predictions"),
	}
	require.NoError(t, paths.Ensure())

	history := predictions.New(db, logging.Discard(), pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
	store := storage.NewFilesystem(filepath.Join(dir, "archive"), logging.Discard())
	arc := archive.New(store, logging.Discard())

	return &fixture{
		paths:   paths,
		history: history,
		store:   store,
		gen:     reports.New(paths, history, arc, logging.Discard()),
	}
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for i := range 32 {
		img.Set(i, i, color.RGBA{R: 200, A: 255})
	}
	return img
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func (f *fixture) record(t *testing.T, ext string) predictions.RecordCommand {
	t.Helper()
	cmd := predictions.RecordCommand{
		Token:         token,
		OriginalName:  "scan." + ext,
		ImageName:     "upload_" + token + "." + ext,
		ChartName:     "probs_" + token + ".png",
		Class:         "No Impairment",
		Confidence:    0.9,
		Probabilities: map[string]float64{"No Impairment": 0.9, "Mild Impairment": 0.1},
		Status:        predictions.StatusCompleted,
	}
	_, err := f.history.Record(context.Background(), cmd)
	require.NoError(t, err)
	return cmd
}

func pageCount(t *testing.T, pdf []byte) int {
	t.Helper()
	n, err := api.PageCount(bytes.NewReader(pdf), nil)
	require.NoError(t, err)
	return n
}

func TestWrite(t *testing.T) {
	f := newFixture(t)
	cmd := f.record(t, "bmp")

	out, err := os.Create(f.paths.UploadPath(cmd.ImageName))
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(out, testImage()))
	require.NoError(t, out.Close())
	writePNG(t, f.paths.ChartPath(cmd.ChartName))

	var buf bytes.Buffer
	require.NoError(t, f.gen.Write(context.Background(), &buf, token))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	assert.Equal(t, 2, pageCount(t, buf.Bytes()))
}

func TestWriteFallsBackToArchive(t *testing.T) {
	f := newFixture(t)
	cmd := f.record(t, "png")

	writePNG(t, f.paths.ChartPath(cmd.ChartName))

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, testImage()))
	require.NoError(t, f.store.Upload(context.Background(), archive.UploadKey(cmd.ImageName), &img, "image/png"))

	var buf bytes.Buffer
	require.NoError(t, f.gen.Write(context.Background(), &buf, token))
	assert.Equal(t, 2, pageCount(t, buf.Bytes()))
}

func TestWriteErrors(t *testing.T) {
	t.Run("unknown token", func(t *testing.T) {
		f := newFixture(t)
		err := f.gen.Write(context.Background(), &bytes.Buffer{}, token)
		assert.ErrorIs(t, err, predictions.ErrNotFound)
	})

	t.Run("sources missing", func(t *testing.T) {
		f := newFixture(t)
		f.record(t, "png")
		err := f.gen.Write(context.Background(), &bytes.Buffer{}, token)
		assert.ErrorIs(t, err, reports.ErrSourceMissing)
	})

	t.Run("model missing outcome", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.history.Record(context.Background(), predictions.RecordCommand{
			Token:        token,
			OriginalName: "scan.png",
			ImageName:    "upload_" + token + ".png",
			Status:       predictions.StatusModelMissing,
		})
		require.NoError(t, err)

		err = f.gen.Write(context.Background(), &bytes.Buffer{}, token)
		assert.ErrorIs(t, err, reports.ErrIncomplete)
	})
}

func TestHandler(t *testing.T) {
	f := newFixture(t)
	cmd := f.record(t, "png")
	writePNG(t, f.paths.UploadPath(cmd.ImageName))
	writePNG(t, f.paths.ChartPath(cmd.ChartName))

	mux := http.NewServeMux()
	routes.Register(mux, f.gen.Handler().Routes())

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"report", "/reports/" + token, http.StatusOK},
		{"malformed token", "/reports/not-a-token", http.StatusBadRequest},
		{"unknown token", "/reports/20000101_000000_000000", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
				assert.Contains(t, rec.Header().Get("Content-Disposition"), "report_"+token+".pdf")
			}
		})
	}
}
