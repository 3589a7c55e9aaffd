package devops_test

import (
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/warden/pkg/devops"
)

func TestConfigDefaults(t *testing.T) {
	cfg := devops.Config{OrgURL: "https://dev.azure.com/contoso/", Project: "Tooling", PAT: "x"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"org_url trimmed", cfg.OrgURL, "https://dev.azure.com/contoso"},
		{"tag_filter", cfg.TagFilter, "CoE"},
		{"auth_type", cfg.AuthType, devops.AuthPAT},
		{"api_version", cfg.APIVersion, "7.0"},
		{"comments_api_version", cfg.CommentsAPIVersion, "6.0-preview.3"},
		{"timeout", cfg.TimeoutDuration(), 30 * time.Second},
		{"max_retries", cfg.MaxRetries, 3},
		{"retry_backoff", cfg.RetryBackoffDuration(), 300 * time.Millisecond},
		{"max_response_size", cfg.MaxResponseBytes(), int64(10 * 1024 * 1024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("TEST_DEVOPS_ORG", "https://dev.azure.com/fabrikam")
	t.Setenv("TEST_DEVOPS_PROJECT", "Platform")
	t.Setenv("TEST_DEVOPS_TAG", "Docs")
	t.Setenv("TEST_DEVOPS_AUTH", "azure")
	t.Setenv("TEST_DEVOPS_RATE", "2.5")

	env := &devops.Env{
		OrgURL:    "TEST_DEVOPS_ORG",
		Project:   "TEST_DEVOPS_PROJECT",
		TagFilter: "TEST_DEVOPS_TAG",
		AuthType:  "TEST_DEVOPS_AUTH",
		RateLimit: "TEST_DEVOPS_RATE",
	}

	cfg := devops.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.OrgURL != "https://dev.azure.com/fabrikam" || cfg.Project != "Platform" || cfg.TagFilter != "Docs" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.AuthType != devops.AuthAzure || cfg.RateLimit != 2.5 {
		t.Errorf("auth_type = %s, rate_limit = %v", cfg.AuthType, cfg.RateLimit)
	}
}

func TestConfigValidation(t *testing.T) {
	base := func() devops.Config {
		return devops.Config{OrgURL: "https://dev.azure.com/contoso", Project: "Tooling", PAT: "x"}
	}

	tests := []struct {
		name    string
		mutate  func(*devops.Config)
		wantErr string
	}{
		{"missing org_url", func(c *devops.Config) { c.OrgURL = "" }, "org_url required"},
		{"relative org_url", func(c *devops.Config) { c.OrgURL = "contoso" }, "invalid org_url"},
		{"missing project", func(c *devops.Config) { c.Project = "" }, "project required"},
		{"missing pat", func(c *devops.Config) { c.PAT = "" }, "pat required"},
		{"unknown auth", func(c *devops.Config) { c.AuthType = "ntlm" }, "unsupported auth_type"},
		{"bad timeout", func(c *devops.Config) { c.Timeout = "soon" }, "invalid timeout"},
		{"bad size", func(c *devops.Config) { c.MaxResponseSize = "lots" }, "invalid max_response_size"},
		{"negative rate", func(c *devops.Config) { c.RateLimit = -1 }, "rate_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)

			err := cfg.Finalize(nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfigMerge(t *testing.T) {
	base := devops.Config{OrgURL: "https://dev.azure.com/contoso", Project: "Tooling", TagFilter: "CoE"}
	base.Merge(&devops.Config{Project: "Platform", MaxRetries: 5})

	if base.Project != "Platform" || base.MaxRetries != 5 {
		t.Errorf("overlay not applied: %+v", base)
	}
	if base.OrgURL != "https://dev.azure.com/contoso" || base.TagFilter != "CoE" {
		t.Errorf("zero overlay fields overwrote base: %+v", base)
	}
}
