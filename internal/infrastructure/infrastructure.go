// Package infrastructure provides core service initialization for application startup.
// It assembles the shared systems (logging, lifecycle, database, the Azure
// DevOps client, the progress hub, and the optional run archive) that
// domain systems require.
package infrastructure

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JaimeStill/warden/internal/config"
	"github.com/JaimeStill/warden/pkg/broadcast"
	"github.com/JaimeStill/warden/pkg/database"
	"github.com/JaimeStill/warden/pkg/devops"
	"github.com/JaimeStill/warden/pkg/lifecycle"
	"github.com/JaimeStill/warden/pkg/storage"
)

// HubBuffer is the per-subscriber progress buffer. A run emits one
// message per item, so slow subscribers drop messages rather than stall.
const HubBuffer = 64

// Infrastructure holds the core systems required by all domain modules.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	DevOps    devops.Client
	Hub       *broadcast.Hub
	Archive   storage.System // nil when archiving is disabled
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter is New with log output sent to w.
func NewWithWriter(cfg *config.Config, w io.Writer) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := NewLogger(&cfg.Log, w)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	client, err := devops.New(&cfg.DevOps, logger)
	if err != nil {
		return nil, fmt.Errorf("devops client init failed: %w", err)
	}

	var archive storage.System
	if cfg.Archive.Enabled {
		archive, err = storage.New(&cfg.Archive, logger)
		if err != nil {
			return nil, fmt.Errorf("archive init failed: %w", err)
		}
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		DevOps:    client,
		Hub:       broadcast.NewHub(HubBuffer, logger),
		Archive:   archive,
	}, nil
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg *config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if i.Archive != nil {
		if err := i.Archive.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("archive start failed: %w", err)
		}
	}
	i.Hub.Start(i.Lifecycle)
	return nil
}
