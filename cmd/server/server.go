package main

import (
	"time"

	"github.com/JaimeStill/missive/internal/api"
	"github.com/JaimeStill/missive/internal/config"
	"github.com/JaimeStill/missive/internal/infrastructure"
	"github.com/JaimeStill/missive/pkg/module"
)

// Server owns the infrastructure and the HTTP listener for one process.
type Server struct {
	infra *infrastructure.Infrastructure
	http  *httpServer
}

// NewServer wires infrastructure, the API module and the health endpoints.
// Nothing connects or listens until Start.
func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	router := module.NewRouter()
	router.Mount(apiModule)
	router.HandleNative("GET /healthz", healthz)
	router.HandleNative("GET /readyz", readyz(infra.Lifecycle))

	infra.Logger.Info("server initialized",
		"env", cfg.Env(),
		"addr", cfg.Server.Addr(),
		"api", cfg.API.BasePath,
		"storage", cfg.Storage.Provider,
		"nats", cfg.NATS.Enabled,
		"version", cfg.Version,
	)

	return &Server{
		infra: infra,
		http:  newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start registers infrastructure hooks, binds the listener and logs once
// every startup hook has finished.
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
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

// Shutdown cancels the lifecycle context and waits up to timeout for every
// shutdown hook.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
