package api

import (
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/config"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/infrastructure"
)

// Runtime is the infrastructure as seen by the API module: the shared
// subsystems with an api-scoped logger, plus the API and document settings.
type Runtime struct {
	*infrastructure.Infrastructure
	API       config.APIConfig
	Documents config.DocumentsConfig
}

func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &scoped,
		API:            cfg.API,
		Documents:      cfg.Documents,
	}
}
