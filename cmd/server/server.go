package main

import (
	"fmt"
	"time"

	"github.com/JaimeStill/warden/internal/config"
	"github.com/JaimeStill/warden/internal/infrastructure"
	"github.com/JaimeStill/warden/internal/schedule"
)

// Server owns the process systems from construction through shutdown.
type Server struct {
	infra     *infrastructure.Infrastructure
	modules   *Modules
	scheduler *schedule.Scheduler
	http      *httpServer
}

// NewServer builds every system from cfg without starting any of them.
func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	var scheduler *schedule.Scheduler
	if cfg.Schedule.Enabled() {
		scheduler, err = schedule.New(&cfg.Schedule, modules.Domain.Extraction, infra.Logger)
		if err != nil {
			return nil, err
		}
	}

	router := buildRouter(infra, cfg)
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
	)

	return &Server{
		infra:     infra,
		modules:   modules,
		scheduler: scheduler,
		http:      newHTTPServer(&cfg.Server, router, infra.Lifecycle, infra.Logger),
	}, nil
}

// Start brings up infrastructure, applies the task schema, then begins
// serving and scheduling.
func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.modules.Domain.Tasks.Init(s.infra.Lifecycle.Context()); err != nil {
		return fmt.Errorf("task store init failed: %w", err)
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	if s.scheduler != nil {
		s.scheduler.Start(s.infra.Lifecycle)
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

// Shutdown cancels in-flight runs and waits for every system to stop.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
