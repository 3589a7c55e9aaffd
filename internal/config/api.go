package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/JaimeStill/warden/pkg/middleware"
	"github.com/JaimeStill/warden/pkg/openapi"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "WARDEN_CORS_ENABLED",
	Origins:          "WARDEN_CORS_ORIGINS",
	AllowedMethods:   "WARDEN_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "WARDEN_CORS_ALLOWED_HEADERS",
	AllowCredentials: "WARDEN_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "WARDEN_CORS_MAX_AGE",
}

var authEnv = &middleware.AuthEnv{
	Enabled:  "WARDEN_AUTH_ENABLED",
	Issuer:   "WARDEN_AUTH_ISSUER",
	Audience: "WARDEN_AUTH_AUDIENCE",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "WARDEN_OPENAPI_TITLE",
	Description: "WARDEN_OPENAPI_DESCRIPTION",
	Path:        "WARDEN_OPENAPI_PATH",
}

// APIConfig holds API routing, CORS, trigger auth, and OpenAPI settings.
type APIConfig struct {
	BasePath string                `toml:"base_path"`
	AppPath  string                `toml:"app_path"`
	CORS     middleware.CORSConfig `toml:"cors"`
	Auth     middleware.AuthConfig `toml:"auth"`
	OpenAPI  openapi.Config        `toml:"openapi"`
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.AppPath != "" {
		c.AppPath = overlay.AppPath
	}

	c.CORS.Merge(&overlay.CORS)
	c.Auth.Merge(&overlay.Auth)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.AppPath == "" {
		c.AppPath = "/app"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("WARDEN_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("WARDEN_API_APP_PATH"); v != "" {
		c.AppPath = v
	}
}

func (c *APIConfig) validate() error {
	for name, p := range map[string]string{"base_path": c.BasePath, "app_path": c.AppPath} {
		if !strings.HasPrefix(p, "/") || strings.Count(p, "/") != 1 {
			return fmt.Errorf("%s must be a single-level path like /api: %q", name, p)
		}
	}
	if c.BasePath == c.AppPath {
		return fmt.Errorf("base_path and app_path must differ")
	}
	return nil
}
