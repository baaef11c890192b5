package main

import (
	"net/http"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/api"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/config"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/infrastructure"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/handlers"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/lifecycle"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/module"
)

// Modules holds every prefix-mounted HTTP module. The orchestration API is
// the only one today.
type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

type probeStatus struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Failures map[string]string `json:"failures,omitempty"`
}

func buildRouter(lc *lifecycle.Coordinator, version string) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, probeStatus{Status: "ok", Version: version})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if lc.Ready() {
			handlers.RespondJSON(w, http.StatusOK, probeStatus{Status: "ready"})
			return
		}
		failures := map[string]string{}
		for name, err := range lc.Failures() {
			failures[name] = err.Error()
		}
		handlers.RespondJSON(w, http.StatusServiceUnavailable, probeStatus{Status: "not ready", Failures: failures})
	})

	return router
}
