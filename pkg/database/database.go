// Package database provides PostgreSQL and SQLite connection management
// with lifecycle coordination and embedded schema migrations.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/warden/pkg/lifecycle"
)

// System manages database connections and lifecycle coordination.
type System interface {
	// Connection returns the underlying database connection pool.
	Connection() *sql.DB
	// Dialect returns the migration directory name for the configured driver.
	Dialect() string
	// Migrate applies every pending up migration found under the dialect
	// directory of migrations. An already current schema is not an error.
	Migrate(migrations fs.FS) error
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type database struct {
	cfg         Config
	conn        *sql.DB
	logger      *slog.Logger
	connTimeout time.Duration
}

// New creates a database system with the given configuration.
// It calls sql.Open to validate the DSN and configure pool parameters,
// but does not establish a connection until Start is called.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	db, err := sql.Open(cfg.Driver, cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// a single connection keeps ":memory:" databases alive and
		// serializes writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())
	}

	return &database{
		cfg:         *cfg,
		conn:        db,
		logger:      logger.With("system", "database", "driver", cfg.Driver),
		connTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Dialect() string {
	if d.cfg.Driver == DriverSQLite {
		return "sqlite3"
	}
	return "postgres"
}

func (d *database) Migrate(migrations fs.FS) error {
	source, err := iofs.New(migrations, d.Dialect())
	if err != nil {
		return fmt.Errorf("%w: source: %w", ErrMigrate, err)
	}

	var m *migrate.Migrate
	if d.cfg.Driver == DriverSQLite {
		// the sqlite driver shares the pool; closing the migrator would close it
		driver, err := sqlite3.WithInstance(d.conn, &sqlite3.Config{})
		if err != nil {
			return fmt.Errorf("%w: driver: %w", ErrMigrate, err)
		}
		m, err = migrate.NewWithInstance("iofs", source, d.Dialect(), driver)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMigrate, err)
		}
	} else {
		m, err = migrate.NewWithSourceInstance("iofs", source, d.cfg.URL())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMigrate, err)
		}
		defer m.Close()
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: %w", ErrMigrate, err)
	}

	version, _, _ := m.Version()
	d.logger.Info("schema migrated", "version", version)
	return nil
}

func (d *database) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("starting database connection")

	lc.OnStartup(func() {
		pingCtx, cancel := context.WithTimeout(lc.Context(), d.connTimeout)
		defer cancel()

		if err := d.conn.PingContext(pingCtx); err != nil {
			d.logger.Error("database ping failed", "error", err)
			return
		}

		d.logger.Info("database connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		d.logger.Info("closing database connection")

		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}

		d.logger.Info("database connection closed")
	})

	return nil
}
