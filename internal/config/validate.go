package config

import (
	"fmt"
	"strings"

	"transmux/internal/services"
)

// Validate checks the configuration for problems that would otherwise fail
// mid-job. Every error carries the configuration-invalid marker so callers
// abort before any stage executes.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		problems = append(problems, "paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		problems = append(problems, "paths.cache_dir must be set")
	}

	if len(c.Runtimes) == 0 {
		problems = append(problems, "at least one [runtimes.<name>] profile must be defined")
	}
	for name, rt := range c.Runtimes {
		if strings.TrimSpace(rt.Interpreter) == "" {
			problems = append(problems, fmt.Sprintf("runtimes.%s.interpreter must be set", name))
		}
		if strings.TrimSpace(rt.ScriptDir) == "" {
			problems = append(problems, fmt.Sprintf("runtimes.%s.script_dir must be set", name))
		}
	}

	if c.Stages.TimeoutSeconds <= 0 {
		problems = append(problems, "stages.timeout_seconds must be positive")
	}
	for name, timeout := range c.Stages.TimeoutOverride {
		if timeout <= 0 {
			problems = append(problems, fmt.Sprintf("stages.timeout_override.%s must be positive", name))
		}
	}

	if c.Workflow.RetryAttempts < 0 {
		problems = append(problems, "workflow.retry_attempts must not be negative")
	}
	if c.Workflow.TermGraceSeconds <= 0 {
		problems = append(problems, "workflow.term_grace_seconds must be positive")
	}
	if c.Workflow.MaxConcurrentLang <= 0 {
		problems = append(problems, "workflow.max_concurrent_languages must be positive")
	}

	if c.Glossary.CacheTTLHours <= 0 {
		problems = append(problems, "glossary.cache_ttl_hours must be positive")
	}
	if c.Glossary.MinLearnedSamples <= 0 {
		problems = append(problems, "glossary.min_learned_samples must be positive")
	}

	if c.Enrichment.Enabled {
		if c.Enrichment.APIKey == "" {
			problems = append(problems, "enrichment.api_key must be set when enrichment is enabled")
		}
		if c.Enrichment.BaseURL == "" {
			problems = append(problems, "enrichment.base_url must be set when enrichment is enabled")
		}
	}

	if c.Translate.FallbackThreshold <= 0 || c.Translate.FallbackThreshold > 1 {
		problems = append(problems, "translate.fallback_threshold must be in (0, 1]")
	}
	if c.Translate.CreativeThreshold < 0 || c.Translate.CreativeThreshold > 1 {
		problems = append(problems, "translate.creative_threshold must be in [0, 1]")
	}

	if strings.TrimSpace(c.Languages.Source) == "" {
		problems = append(problems, "languages.source must be set")
	}
	if len(c.Languages.Targets) == 0 {
		problems = append(problems, "languages.targets must list at least one language")
	}

	if len(problems) > 0 {
		return services.Wrap(services.ErrConfigInvalid, "", "validate", strings.Join(problems, "; "), nil)
	}
	return nil
}
