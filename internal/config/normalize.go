package config

import (
	"strings"
)

// normalize expands paths, trims string fields, and fills derived defaults.
// It runs after decoding and before validation.
func (c *Config) normalize() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}
	if c.Paths.CacheDir, err = expandPath(strings.TrimSpace(c.Paths.CacheDir)); err != nil {
		return err
	}

	for name, rt := range c.Runtimes {
		rt.Interpreter = strings.TrimSpace(rt.Interpreter)
		if rt.ScriptDir, err = expandPath(strings.TrimSpace(rt.ScriptDir)); err != nil {
			return err
		}
		c.Runtimes[name] = rt
	}

	for _, field := range []*string{&c.Glossary.OverridePath, &c.Glossary.MasterPath, &c.Glossary.LearnedDBPath} {
		trimmed := strings.TrimSpace(*field)
		if trimmed == "" {
			*field = ""
			continue
		}
		if *field, err = expandPath(trimmed); err != nil {
			return err
		}
	}

	c.Enrichment.APIKey = strings.TrimSpace(c.Enrichment.APIKey)
	c.Enrichment.BaseURL = strings.TrimRight(strings.TrimSpace(c.Enrichment.BaseURL), "/")
	c.Enrichment.Language = strings.TrimSpace(c.Enrichment.Language)

	normalizeEngine(&c.Translate.Fast)
	normalizeEngine(&c.Translate.Creative)

	c.Languages.Source = strings.ToLower(strings.TrimSpace(c.Languages.Source))
	targets := make([]string, 0, len(c.Languages.Targets))
	seen := make(map[string]struct{}, len(c.Languages.Targets))
	for _, target := range c.Languages.Targets {
		normalized := strings.ToLower(strings.TrimSpace(target))
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		targets = append(targets, normalized)
	}
	c.Languages.Targets = targets

	disabled := make([]string, 0, len(c.Stages.Disabled))
	for _, name := range c.Stages.Disabled {
		trimmed := strings.ToLower(strings.TrimSpace(name))
		if trimmed != "" {
			disabled = append(disabled, trimmed)
		}
	}
	c.Stages.Disabled = disabled

	return nil
}

func normalizeEngine(engine *Engine) {
	engine.APIKey = strings.TrimSpace(engine.APIKey)
	engine.BaseURL = strings.TrimSpace(engine.BaseURL)
	engine.Model = strings.TrimSpace(engine.Model)
}
