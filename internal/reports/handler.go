package reports

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/cerebra/internal/artifacts"
	"github.com/JaimeStill/cerebra/pkg/handlers"
	"github.com/JaimeStill/cerebra/pkg/routes"
)

// Handler serves report downloads.
type Handler struct {
	gen    *Generator
	logger *slog.Logger
}

// NewHandler creates a Handler over gen.
func NewHandler(gen *Generator, logger *slog.Logger) *Handler {
	return &Handler{
		gen:    gen,
		logger: logger.With("handler", "reports"),
	}
}

// Routes returns the route group definition for report endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/reports",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{token}", Handler: h.Download},
		},
	}
}

// Download renders and returns the PDF report for the token path value.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	token, err := artifacts.ParseToken(r.PathValue("token"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	var buf bytes.Buffer
	if err := h.gen.Write(r.Context(), &buf, token); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "report_"+string(token)+".pdf"),
	)
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
