package storage

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/JaimeStill/warden/pkg/formatting"
)

// Config holds run archive settings. Archiving is off unless Enabled.
type Config struct {
	Enabled          bool   `toml:"enabled"`
	Container        string `toml:"container"`
	Prefix           string `toml:"prefix"`
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
	MaxBlobSize      string `toml:"max_blob_size"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled          string
	Container        string
	Prefix           string
	ConnectionString string
	AccountURL       string
	MaxBlobSize      string
}

// MaxBlobBytes parses MaxBlobSize. Call after Finalize.
func (c *Config) MaxBlobBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxBlobSize)
	return n
}

// Finalize applies defaults, environment variable overrides, and validation.
// A disabled archive skips validation of the connection settings.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Container != "" {
		c.Container = overlay.Container
	}
	if overlay.Prefix != "" {
		c.Prefix = overlay.Prefix
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.AccountURL != "" {
		c.AccountURL = overlay.AccountURL
	}
	if overlay.MaxBlobSize != "" {
		c.MaxBlobSize = overlay.MaxBlobSize
	}
}

func (c *Config) loadDefaults() {
	if c.Container == "" {
		c.Container = "warden"
	}
	if c.Prefix == "" {
		c.Prefix = "runs"
	}
	if c.MaxBlobSize == "" {
		c.MaxBlobSize = "32MB"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Enabled = b
			}
		}
	}
	if env.Container != "" {
		if v := os.Getenv(env.Container); v != "" {
			c.Container = v
		}
	}
	if env.Prefix != "" {
		if v := os.Getenv(env.Prefix); v != "" {
			c.Prefix = v
		}
	}
	if env.ConnectionString != "" {
		if v := os.Getenv(env.ConnectionString); v != "" {
			c.ConnectionString = v
		}
	}
	if env.AccountURL != "" {
		if v := os.Getenv(env.AccountURL); v != "" {
			c.AccountURL = v
		}
	}
	if env.MaxBlobSize != "" {
		if v := os.Getenv(env.MaxBlobSize); v != "" {
			c.MaxBlobSize = v
		}
	}
}

func (c *Config) validate() error {
	if _, err := formatting.ParseBytes(c.MaxBlobSize); err != nil {
		return fmt.Errorf("invalid max_blob_size: %w", err)
	}
	if !c.Enabled {
		return nil
	}
	if c.Container == "" {
		return fmt.Errorf("container required")
	}
	if strings.Contains(c.Prefix, "..") {
		return fmt.Errorf("prefix must not contain ..")
	}
	if c.ConnectionString == "" && c.AccountURL == "" {
		return fmt.Errorf("connection_string or account_url required")
	}
	return nil
}
