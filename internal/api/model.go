package api

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/cerebra/internal/model"
	"github.com/JaimeStill/cerebra/pkg/handlers"
	"github.com/JaimeStill/cerebra/pkg/routes"
)

// ModelStatus reports the gate value and the label set results are drawn from.
// Files lists every path the gate requires; it holds more than Path when an
// in-process backend loads a separate converted model.
type ModelStatus struct {
	Ready   bool     `json:"model_ready"`
	Path    string   `json:"path"`
	Files   []string `json:"files"`
	Classes []string `json:"classes"`
}

type modelHandler struct {
	adapter *model.Adapter
	logger  *slog.Logger
}

func newModelHandler(adapter *model.Adapter, logger *slog.Logger) *modelHandler {
	return &modelHandler{
		adapter: adapter,
		logger:  logger.With("handler", "model"),
	}
}

func (h *modelHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/model",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.status},
		},
	}
}

func (h *modelHandler) status(w http.ResponseWriter, r *http.Request) {
	gate := h.adapter.Gate()
	handlers.RespondJSON(w, http.StatusOK, ModelStatus{
		Ready:   gate.Ready(),
		Path:    gate.Path(),
		Files:   gate.Files(),
		Classes: h.adapter.Classes(),
	})
}
