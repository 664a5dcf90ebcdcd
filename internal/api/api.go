// Package api assembles the JSON API module from the history, report, and model systems.
package api

import (
	"net/http"
	"strings"

	"github.com/JaimeStill/cerebra/internal/config"
	"github.com/JaimeStill/cerebra/internal/infrastructure"
	"github.com/JaimeStill/cerebra/pkg/middleware"
	"github.com/JaimeStill/cerebra/pkg/module"
	"github.com/JaimeStill/cerebra/pkg/routes"
)

// BasePath is the prefix the API module is mounted under.
const BasePath = "/api"

// NewModule creates the API module with all domain handlers and middleware.
// It returns the registered route patterns alongside the module.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure, domain *Domain) (*module.Module, []string, error) {
	runtime := NewRuntime(cfg, infra)

	mux := http.NewServeMux()
	groups, err := registerRoutes(mux, domain, runtime, cfg.Version)
	if err != nil {
		return nil, nil, err
	}

	m := module.New(BasePath, mux)
	m.Use(middleware.CORS(&cfg.Web.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	patterns := routes.Patterns(groups...)
	for i, p := range patterns {
		method, pattern, _ := strings.Cut(p, " ")
		patterns[i] = method + " " + BasePath + pattern
	}
	return m, patterns, nil
}
