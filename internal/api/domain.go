package api

import (
	"github.com/JaimeStill/cerebra/internal/artifacts"
	"github.com/JaimeStill/cerebra/internal/charts"
	"github.com/JaimeStill/cerebra/internal/config"
	"github.com/JaimeStill/cerebra/internal/diagnosis"
	"github.com/JaimeStill/cerebra/internal/infrastructure"
	"github.com/JaimeStill/cerebra/internal/predictions"
	"github.com/JaimeStill/cerebra/internal/reports"
)

// Domain holds the systems shared by the upload UI and the API.
type Domain struct {
	Predictions predictions.System
	Reports     *reports.Generator
	Pipeline    *diagnosis.Pipeline
}

// NewDomain creates all domain systems from the infrastructure.
func NewDomain(cfg *config.Config, infra *infrastructure.Infrastructure) *Domain {
	history := predictions.New(
		infra.Database.Connection(),
		infra.Logger,
		cfg.Pagination,
	)

	store := artifacts.NewStore(infra.Paths, artifacts.NewNamer(nil), infra.Logger)

	pipeline := diagnosis.New(
		store,
		infra.Model,
		charts.New(infra.Paths.ChartsDir, infra.Logger),
		history,
		infra.Archive,
		infra.Logger,
	)

	return &Domain{
		Predictions: history,
		Reports:     reports.New(infra.Paths, history, infra.Archive, infra.Logger),
		Pipeline:    pipeline,
	}
}
