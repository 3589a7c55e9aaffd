package devops

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/warden/pkg/formatting"
)

// Supported authentication modes.
const (
	AuthPAT   = "pat"
	AuthAzure = "azure"
)

// Config holds Azure DevOps connection and transport parameters.
type Config struct {
	OrgURL             string  `toml:"org_url"`
	Project            string  `toml:"project"`
	TagFilter          string  `toml:"tag_filter"`
	AuthType           string  `toml:"auth_type"`
	PAT                string  `toml:"pat"`
	APIVersion         string  `toml:"api_version"`
	CommentsAPIVersion string  `toml:"comments_api_version"`
	Timeout            string  `toml:"timeout"`
	MaxRetries         int     `toml:"max_retries"`
	RetryBackoff       string  `toml:"retry_backoff"`
	RateLimit          float64 `toml:"rate_limit"`
	RateBurst          int     `toml:"rate_burst"`
	MaxResponseSize    string  `toml:"max_response_size"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	OrgURL             string
	Project            string
	TagFilter          string
	AuthType           string
	PAT                string
	APIVersion         string
	CommentsAPIVersion string
	Timeout            string
	MaxRetries         string
	RetryBackoff       string
	RateLimit          string
	RateBurst          string
	MaxResponseSize    string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// RetryBackoffDuration returns RetryBackoff as a time.Duration.
func (c *Config) RetryBackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryBackoff)
	return d
}

// MaxResponseBytes returns MaxResponseSize parsed to a byte count.
func (c *Config) MaxResponseBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxResponseSize)
	return n
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
	if overlay.OrgURL != "" {
		c.OrgURL = overlay.OrgURL
	}
	if overlay.Project != "" {
		c.Project = overlay.Project
	}
	if overlay.TagFilter != "" {
		c.TagFilter = overlay.TagFilter
	}
	if overlay.AuthType != "" {
		c.AuthType = overlay.AuthType
	}
	if overlay.PAT != "" {
		c.PAT = overlay.PAT
	}
	if overlay.APIVersion != "" {
		c.APIVersion = overlay.APIVersion
	}
	if overlay.CommentsAPIVersion != "" {
		c.CommentsAPIVersion = overlay.CommentsAPIVersion
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
	if overlay.RetryBackoff != "" {
		c.RetryBackoff = overlay.RetryBackoff
	}
	if overlay.RateLimit != 0 {
		c.RateLimit = overlay.RateLimit
	}
	if overlay.RateBurst != 0 {
		c.RateBurst = overlay.RateBurst
	}
	if overlay.MaxResponseSize != "" {
		c.MaxResponseSize = overlay.MaxResponseSize
	}
}

func (c *Config) loadDefaults() {
	if c.TagFilter == "" {
		c.TagFilter = "CoE"
	}
	if c.AuthType == "" {
		c.AuthType = AuthPAT
	}
	if c.APIVersion == "" {
		c.APIVersion = "7.0"
	}
	if c.CommentsAPIVersion == "" {
		c.CommentsAPIVersion = "6.0-preview.3"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == "" {
		c.RetryBackoff = "300ms"
	}
	if c.RateBurst == 0 {
		c.RateBurst = 1
	}
	if c.MaxResponseSize == "" {
		c.MaxResponseSize = "10MB"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.OrgURL != "" {
		if v := os.Getenv(env.OrgURL); v != "" {
			c.OrgURL = v
		}
	}
	if env.Project != "" {
		if v := os.Getenv(env.Project); v != "" {
			c.Project = v
		}
	}
	if env.TagFilter != "" {
		if v := os.Getenv(env.TagFilter); v != "" {
			c.TagFilter = v
		}
	}
	if env.AuthType != "" {
		if v := os.Getenv(env.AuthType); v != "" {
			c.AuthType = v
		}
	}
	if env.PAT != "" {
		if v := os.Getenv(env.PAT); v != "" {
			c.PAT = v
		}
	}
	if env.APIVersion != "" {
		if v := os.Getenv(env.APIVersion); v != "" {
			c.APIVersion = v
		}
	}
	if env.CommentsAPIVersion != "" {
		if v := os.Getenv(env.CommentsAPIVersion); v != "" {
			c.CommentsAPIVersion = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.MaxRetries != "" {
		if v := os.Getenv(env.MaxRetries); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxRetries = n
			}
		}
	}
	if env.RetryBackoff != "" {
		if v := os.Getenv(env.RetryBackoff); v != "" {
			c.RetryBackoff = v
		}
	}
	if env.RateLimit != "" {
		if v := os.Getenv(env.RateLimit); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.RateLimit = f
			}
		}
	}
	if env.RateBurst != "" {
		if v := os.Getenv(env.RateBurst); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.RateBurst = n
			}
		}
	}
	if env.MaxResponseSize != "" {
		if v := os.Getenv(env.MaxResponseSize); v != "" {
			c.MaxResponseSize = v
		}
	}
}

func (c *Config) validate() error {
	if c.OrgURL == "" {
		return fmt.Errorf("org_url required")
	}
	u, err := url.Parse(c.OrgURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid org_url %q", c.OrgURL)
	}
	c.OrgURL = strings.TrimRight(c.OrgURL, "/")

	if c.Project == "" {
		return fmt.Errorf("project required")
	}

	switch c.AuthType {
	case AuthPAT:
		if c.PAT == "" {
			return fmt.Errorf("pat required when auth_type is %q", AuthPAT)
		}
	case AuthAzure:
	default:
		return fmt.Errorf("unsupported auth_type %q", c.AuthType)
	}

	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.RetryBackoff); err != nil {
		return fmt.Errorf("invalid retry_backoff: %w", err)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	if _, err := formatting.ParseBytes(c.MaxResponseSize); err != nil {
		return fmt.Errorf("invalid max_response_size: %w", err)
	}
	return nil
}
