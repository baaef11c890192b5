// Package api assembles the orchestration API module: domain systems, the
// certificate routes, and the middleware stack in front of them.
package api

import (
	"net/http"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/certificates"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/config"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/infrastructure"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/middleware"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/module"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/routes"
)

// NewModule mounts every route under the configured base path. Middleware
// runs in registration order, so CORS preflights and request logging happen
// before rate limiting and authentication. Every route requires a verified
// bearer token.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	handler := certificates.NewHandler(
		domain.Certificates,
		runtime.Logger,
		runtime.API.Pagination,
		runtime.API.MaxArtifactSizeBytes(),
	)

	mux := http.NewServeMux()
	routes.Register(mux, handler.Routes()...)

	m := module.New(runtime.API.BasePath, mux)
	m.Use(middleware.CORS(&runtime.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.RateLimit(&runtime.API.RateLimit))
	m.Use(middleware.MaxBytes(runtime.API.MaxBodySizeBytes()))
	m.Use(middleware.Authenticate(runtime.Verifier, runtime.Logger))

	return m, nil
}
