package extraction

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds run orchestration settings.
type Config struct {
	// Workers bounds concurrent comment fetches.
	Workers int `toml:"workers"`
	// ChunkDetails splits the id set into successive detail requests of
	// devops.MaxBatchSize ids. When false a single capped request is made.
	ChunkDetails *bool `toml:"chunk_details"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Workers      string
	ChunkDetails string
}

// Chunked reports whether detail requests are chunked. Call after Finalize.
func (c *Config) Chunked() bool {
	return c.ChunkDetails == nil || *c.ChunkDetails
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
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.ChunkDetails != nil {
		v := *overlay.ChunkDetails
		c.ChunkDetails = &v
	}
}

func (c *Config) loadDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.ChunkDetails == nil {
		v := true
		c.ChunkDetails = &v
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Workers != "" {
		if v := os.Getenv(env.Workers); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Workers = n
			}
		}
	}
	if env.ChunkDetails != "" {
		if v := os.Getenv(env.ChunkDetails); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.ChunkDetails = &b
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}
