package main

import (
	"net/http"

	"github.com/JaimeStill/cerebra/internal/api"
	"github.com/JaimeStill/cerebra/internal/config"
	"github.com/JaimeStill/cerebra/internal/infrastructure"
	"github.com/JaimeStill/cerebra/pkg/handlers"
	"github.com/JaimeStill/cerebra/pkg/middleware"
	"github.com/JaimeStill/cerebra/pkg/module"
	"github.com/JaimeStill/cerebra/pkg/web"
	"github.com/JaimeStill/cerebra/web/app"
)

// Modules holds the prefix-mounted modules and the upload app served at the root.
type Modules struct {
	API      *module.Module
	Static   *module.Module
	App      http.Handler
	Patterns []string
}

// NewModules builds every HTTP surface over the shared domain.
func NewModules(cfg *config.Config, infra *infrastructure.Infrastructure, domain *api.Domain) (*Modules, error) {
	apiModule, patterns, err := api.NewModule(cfg, infra, domain)
	if err != nil {
		return nil, err
	}

	staticModule := module.New("/static", web.DirServer(cfg.Paths.StaticDir(), ""))
	staticModule.Use(middleware.Logger(infra.Logger))

	ui, err := app.New(domain.Pipeline, app.Options{
		Sessions:      app.NewSessionStore(cfg.Web.SecretKey, false),
		SessionName:   cfg.Web.SessionName,
		MaxUploadSize: cfg.Web.MaxUploadSizeBytes(),
	}, infra.Logger)
	if err != nil {
		return nil, err
	}

	uiHandler, err := ui.Handler()
	if err != nil {
		return nil, err
	}

	stack := middleware.New()
	stack.Use(middleware.Recover(infra.Logger))
	stack.Use(middleware.Logger(infra.Logger))

	patterns = append(patterns, "GET /", "POST /", "GET /static/{path...}")

	return &Modules{
		API:      apiModule,
		Static:   staticModule,
		App:      stack.Apply(uiHandler),
		Patterns: patterns,
	}, nil
}

// Mount registers the modules on router. The app takes every path no module claims.
func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
	router.Mount(m.Static)
	router.HandleNative("/", m.App)
}

type readiness struct {
	Status     string          `json:"status"`
	ModelReady bool            `json:"model_ready"`
	Checks     map[string]bool `json:"checks"`
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))

	router.HandleNative("GET /readyz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks := infra.Lifecycle.Checks()
		body := readiness{
			Status:     "ready",
			ModelReady: checks["model"],
			Checks:     checks,
		}
		if !infra.Lifecycle.Ready() {
			body.Status = "not ready"
			handlers.RespondJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		handlers.RespondJSON(w, http.StatusOK, body)
	}))

	return router
}
