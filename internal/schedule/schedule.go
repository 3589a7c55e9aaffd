// Package schedule starts extraction runs on a cron expression.
package schedule

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/JaimeStill/warden/internal/extraction"
	"github.com/JaimeStill/warden/pkg/lifecycle"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Trigger starts a run. extraction.Runner satisfies it.
type Trigger interface {
	Start() (*extraction.Run, error)
}

// Scheduler fires Trigger on every cron tick.
type Scheduler struct {
	cron    *cron.Cron
	trigger Trigger
	spec    string
	logger  *slog.Logger
}

// New creates a Scheduler for a finalized, enabled config.
func New(cfg *Config, trigger Trigger, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(cfg.Location()), cron.WithParser(parser)),
		trigger: trigger,
		spec:    cfg.Cron,
		logger:  logger.With("system", "schedule"),
	}

	if _, err := s.cron.AddFunc(cfg.Cron, s.Fire); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", cfg.Cron, err)
	}
	return s, nil
}

// Fire starts one run. A run already in flight is skipped.
func (s *Scheduler) Fire() {
	run, err := s.trigger.Start()
	switch {
	case errors.Is(err, extraction.ErrRunInProgress):
		s.logger.Info("scheduled run skipped, run in progress")
	case err != nil:
		s.logger.Error("scheduled run failed to start", "error", err)
	default:
		s.logger.Info("scheduled run started", "run_id", run.ID)
	}
}

// Start runs the cron loop after startup and stops it on shutdown.
func (s *Scheduler) Start(lc *lifecycle.Coordinator) {
	lc.OnStartup(func() {
		s.cron.Start()
		s.logger.Info("scheduler started", "cron", s.spec)
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		<-s.cron.Stop().Done()
		s.logger.Info("scheduler stopped")
	})
}
