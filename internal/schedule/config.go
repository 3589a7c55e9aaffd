package schedule

import (
	"fmt"
	"os"
	"time"
)

// Config holds the optional cron trigger for extraction runs.
// An empty Cron disables scheduling.
type Config struct {
	Cron     string `toml:"cron"`
	Timezone string `toml:"timezone"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Cron     string
	Timezone string
}

// Enabled reports whether a cron expression is configured.
func (c *Config) Enabled() bool {
	return c.Cron != ""
}

// Location resolves Timezone. Call after Finalize.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Cron != "" {
		c.Cron = overlay.Cron
	}
	if overlay.Timezone != "" {
		c.Timezone = overlay.Timezone
	}
}

func (c *Config) loadDefaults() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Cron != "" {
		if v := os.Getenv(env.Cron); v != "" {
			c.Cron = v
		}
	}
	if env.Timezone != "" {
		if v := os.Getenv(env.Timezone); v != "" {
			c.Timezone = v
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	if c.Cron == "" {
		return nil
	}
	if _, err := parser.Parse(c.Cron); err != nil {
		return fmt.Errorf("invalid cron %q: %w", c.Cron, err)
	}
	return nil
}
