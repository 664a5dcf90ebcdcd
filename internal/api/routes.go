package api

import (
	"net/http"

	"github.com/JaimeStill/cerebra/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime, version string) ([]routes.Group, error) {
	groups := []routes.Group{
		domain.Predictions.Handler().Routes(),
		domain.Reports.Handler().Routes(),
		newModelHandler(runtime.Model, runtime.Logger).routes(),
		newArchiveHandler(runtime.Archive, runtime.Logger).routes(),
	}

	spec, err := newSpecRoutes(version, groups)
	if err != nil {
		return nil, err
	}
	groups = append(groups, spec)

	routes.Register(mux, groups...)
	return groups, nil
}
