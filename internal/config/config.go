// Package config loads the service configuration from config.toml, an
// optional config.<WARDEN_ENV>.toml overlay, and WARDEN_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/warden/internal/extraction"
	"github.com/JaimeStill/warden/internal/schedule"
	"github.com/JaimeStill/warden/pkg/database"
	"github.com/JaimeStill/warden/pkg/devops"
	"github.com/JaimeStill/warden/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvWardenEnv             = "WARDEN_ENV"
	EnvWardenConfig          = "WARDEN_CONFIG"
	EnvWardenShutdownTimeout = "WARDEN_SHUTDOWN_TIMEOUT"
	EnvWardenVersion         = "WARDEN_VERSION"
)

var databaseEnv = &database.Env{
	Driver:          "WARDEN_DB_DRIVER",
	Path:            "WARDEN_DB_PATH",
	Host:            "WARDEN_DB_HOST",
	Port:            "WARDEN_DB_PORT",
	Name:            "WARDEN_DB_NAME",
	User:            "WARDEN_DB_USER",
	Password:        "WARDEN_DB_PASSWORD",
	SSLMode:         "WARDEN_DB_SSL_MODE",
	MaxOpenConns:    "WARDEN_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "WARDEN_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "WARDEN_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "WARDEN_DB_CONN_TIMEOUT",
}

var devopsEnv = &devops.Env{
	OrgURL:             "WARDEN_DEVOPS_ORG_URL",
	Project:            "WARDEN_DEVOPS_PROJECT",
	TagFilter:          "WARDEN_DEVOPS_TAG_FILTER",
	AuthType:           "WARDEN_DEVOPS_AUTH_TYPE",
	PAT:                "WARDEN_DEVOPS_PAT",
	APIVersion:         "WARDEN_DEVOPS_API_VERSION",
	CommentsAPIVersion: "WARDEN_DEVOPS_COMMENTS_API_VERSION",
	Timeout:            "WARDEN_DEVOPS_TIMEOUT",
	MaxRetries:         "WARDEN_DEVOPS_MAX_RETRIES",
	RetryBackoff:       "WARDEN_DEVOPS_RETRY_BACKOFF",
	RateLimit:          "WARDEN_DEVOPS_RATE_LIMIT",
	RateBurst:          "WARDEN_DEVOPS_RATE_BURST",
	MaxResponseSize:    "WARDEN_DEVOPS_MAX_RESPONSE_SIZE",
}

var extractionEnv = &extraction.Env{
	Workers:      "WARDEN_EXTRACTION_WORKERS",
	ChunkDetails: "WARDEN_EXTRACTION_CHUNK_DETAILS",
}

var scheduleEnv = &schedule.Env{
	Cron:     "WARDEN_SCHEDULE_CRON",
	Timezone: "WARDEN_SCHEDULE_TIMEZONE",
}

var archiveEnv = &storage.Env{
	Enabled:          "WARDEN_ARCHIVE_ENABLED",
	Container:        "WARDEN_ARCHIVE_CONTAINER",
	Prefix:           "WARDEN_ARCHIVE_PREFIX",
	ConnectionString: "WARDEN_ARCHIVE_CONNECTION_STRING",
	AccountURL:       "WARDEN_ARCHIVE_ACCOUNT_URL",
	MaxBlobSize:      "WARDEN_ARCHIVE_MAX_BLOB_SIZE",
}

// Config is the root configuration for the Warden service.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	Log             LogConfig         `toml:"log"`
	Database        database.Config   `toml:"database"`
	API             APIConfig         `toml:"api"`
	DevOps          devops.Config     `toml:"devops"`
	Extraction      extraction.Config `toml:"extraction"`
	Schedule        schedule.Config   `toml:"schedule"`
	Archive         storage.Config    `toml:"archive"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// Env returns the WARDEN_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvWardenEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (WARDEN_CONFIG or config.toml, if present),
// applies any environment overlay, and finalizes all values. Without a
// base file, defaults and environment variables provide everything.
func Load() (*Config, error) {
	cfg := &Config{}

	base := BaseConfigFile
	if v := os.Getenv(EnvWardenConfig); v != "" {
		base = v
	}

	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Log.Merge(&overlay.Log)
	c.Database.Merge(&overlay.Database)
	c.API.Merge(&overlay.API)
	c.DevOps.Merge(&overlay.DevOps)
	c.Extraction.Merge(&overlay.Extraction)
	c.Schedule.Merge(&overlay.Schedule)
	c.Archive.Merge(&overlay.Archive)
}

// Finalize applies defaults, environment overrides, and validation to
// every section.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}

	sections := []struct {
		name     string
		finalize func() error
	}{
		{"server", c.Server.Finalize},
		{"log", c.Log.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"api", c.API.Finalize},
		{"devops", func() error { return c.DevOps.Finalize(devopsEnv) }},
		{"extraction", func() error { return c.Extraction.Finalize(extractionEnv) }},
		{"schedule", func() error { return c.Schedule.Finalize(scheduleEnv) }},
		{"archive", func() error { return c.Archive.Finalize(archiveEnv) }},
	}

	for _, s := range sections {
		if err := s.finalize(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	setString(EnvWardenShutdownTimeout, &c.ShutdownTimeout)
	setString(EnvWardenVersion, &c.Version)
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvWardenEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
