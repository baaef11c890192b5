package main

import (
	"time"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/config"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/infrastructure"
)

// Server owns the process: shared infrastructure, the mounted modules, and
// the HTTP listener in front of them.
type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra.Lifecycle, cfg.Version)
	modules.Mount(router)

	infra.Logger.Info("server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"modules", router.Prefixes(),
	)

	return &Server{
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start launches subsystem startup hooks and the listener, then returns.
// Readiness is reported from a goroutine once every hook has finished;
// /readyz answers 503 until then.
func (s *Server) Start() error {
	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go s.reportReadiness()
	return nil
}

func (s *Server) reportReadiness() {
	lc := s.infra.Lifecycle
	lc.WaitForStartup()

	for name, err := range lc.Failures() {
		s.infra.Logger.Warn("subsystem startup failed", "hook", name, "error", err)
	}
	if lc.Ready() {
		s.infra.Logger.Info("all required subsystems ready")
		return
	}
	s.infra.Logger.Error("required subsystem unavailable, serving 503 on /readyz")
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("shutdown started", "timeout", timeout)
	return s.infra.Lifecycle.Shutdown(timeout)
}
