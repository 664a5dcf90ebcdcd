package main

import (
	"time"

	"github.com/JaimeStill/cerebra/internal/api"
	"github.com/JaimeStill/cerebra/internal/config"
	"github.com/JaimeStill/cerebra/internal/infrastructure"
	"github.com/JaimeStill/cerebra/pkg/formatting"
)

// Server owns the infrastructure and the HTTP listener for one process.
type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
}

// NewServer assembles the infrastructure, domain, and routes for cfg.
func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	domain := api.NewDomain(cfg, infra)

	modules, err := NewModules(cfg, infra, domain)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info(
		"cerebra starting",
		"version", cfg.Version,
		"addr", cfg.Server.Addr(),
		"env", cfg.Env(),
		"backend", cfg.Model.Backend,
		"model_path", cfg.ModelPath(),
		"max_upload", formatting.FormatBytes(cfg.Web.MaxUploadSizeBytes(), 0),
	)
	for _, p := range modules.Patterns {
		infra.Logger.Debug("route registered", "pattern", p)
	}
	if cfg.Web.InsecureSecret() {
		infra.Logger.Warn("using the development session secret; set SECRET_KEY in production")
	}

	return &Server{
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start brings the subsystems up and begins listening.
func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info(
			"all subsystems ready",
			"model_ready", s.infra.Model.Gate().Ready(),
			"archive", s.infra.Archive.Enabled(),
		)
	}()

	return nil
}

// Shutdown cancels the lifecycle context and waits for hooks within timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
