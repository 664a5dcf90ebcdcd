package predictions

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/cerebra/pkg/handlers"
	"github.com/JaimeStill/cerebra/pkg/pagination"
	"github.com/JaimeStill/cerebra/pkg/routes"
)

// Handler provides HTTP endpoints for prediction history.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler over sys.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "predictions"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for history endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/predictions",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
		},
	}
}

// List returns a page of history, newest first unless sort says otherwise.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns one record by UUID, or by request token when the path value is not a UUID.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")

	var (
		p   *Prediction
		err error
	)
	if id, parseErr := uuid.Parse(raw); parseErr == nil {
		p, err = h.sys.Find(r.Context(), id)
	} else if raw != "" {
		p, err = h.sys.FindByToken(r.Context(), raw)
	} else {
		err = ErrInvalidID
	}

	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, p)
}
