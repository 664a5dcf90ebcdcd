package api

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"

	"github.com/JaimeStill/cerebra/internal/archive"
	"github.com/JaimeStill/cerebra/pkg/handlers"
	"github.com/JaimeStill/cerebra/pkg/routes"
	"github.com/JaimeStill/cerebra/pkg/storage"
)

type archiveHandler struct {
	archive *archive.Archive
	logger  *slog.Logger
}

func newArchiveHandler(arc *archive.Archive, logger *slog.Logger) *archiveHandler {
	return &archiveHandler{
		archive: arc,
		logger:  logger.With("handler", "archive"),
	}
}

func (h *archiveHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/archive",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{key...}", Handler: h.download},
		},
	}
}

// download streams a mirrored artifact. Keys are uploads/<name> or predictions/<name>.
func (h *archiveHandler) download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	body, err := h.archive.Open(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("archive download interrupted", "key", key, "error", err)
	}
}
