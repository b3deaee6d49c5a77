package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"transmux/internal/config"
	"transmux/internal/services"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsWhenFileMissing(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.Stages.TimeoutSeconds != 3600 {
		t.Fatalf("unexpected default timeout %d", cfg.Stages.TimeoutSeconds)
	}
	if cfg.Translate.FallbackThreshold != 0.7 {
		t.Fatalf("unexpected fallback threshold %v", cfg.Translate.FallbackThreshold)
	}
	if len(cfg.Languages.Targets) == 0 {
		t.Fatal("expected default target language")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	path := writeConfig(t, `
[paths]
work_dir = "~/jobs"
log_dir = "~/logs"
cache_dir = "~/cache"

[runtimes.media]
interpreter = "/usr/bin/python3"
script_dir = "~/runtimes/media"

[languages]
source = "EN"
targets = ["ES", "es", " fr "]

[stages]
disabled = ["Separate"]
timeout_seconds = 120
`)
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Languages.Source != "en" {
		t.Fatalf("source not normalized: %q", cfg.Languages.Source)
	}
	if len(cfg.Languages.Targets) != 2 || cfg.Languages.Targets[0] != "es" || cfg.Languages.Targets[1] != "fr" {
		t.Fatalf("targets not deduped/normalized: %v", cfg.Languages.Targets)
	}
	if len(cfg.Stages.Disabled) != 1 || cfg.Stages.Disabled[0] != "separate" {
		t.Fatalf("disabled stages not normalized: %v", cfg.Stages.Disabled)
	}
	if !strings.HasPrefix(cfg.Paths.WorkDir, string(os.PathSeparator)) {
		t.Fatalf("work dir not expanded: %q", cfg.Paths.WorkDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*config.Config)
		fragment string
	}{
		{"missing work dir", func(c *config.Config) { c.Paths.WorkDir = "" }, "work_dir"},
		{"no runtimes", func(c *config.Config) { c.Runtimes = nil }, "runtimes"},
		{"zero timeout", func(c *config.Config) { c.Stages.TimeoutSeconds = 0 }, "timeout_seconds"},
		{"bad threshold", func(c *config.Config) { c.Translate.FallbackThreshold = 1.5 }, "fallback_threshold"},
		{"no targets", func(c *config.Config) { c.Languages.Targets = nil }, "targets"},
		{"enrichment without key", func(c *config.Config) { c.Enrichment.Enabled = true }, "enrichment.api_key"},
		{"zero ttl", func(c *config.Config) { c.Glossary.CacheTTLHours = 0 }, "cache_ttl_hours"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrConfigInvalid) {
				t.Fatalf("expected config-invalid marker, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.fragment) {
				t.Fatalf("expected %q in %q", tc.fragment, err.Error())
			}
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := writeConfig(t, `
[stages]
timeout_seconds = -5
`)
	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if !errors.Is(err, services.ErrConfigInvalid) {
		t.Fatalf("expected config-invalid marker, got %v", err)
	}
}
