package config

import (
	"os"
	"path/filepath"
)

// Default returns the baseline configuration before any file overrides.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  "~/transmux/jobs",
			LogDir:   "~/transmux/logs",
			CacheDir: defaultCacheDir(),
		},
		Runtimes: map[string]Runtime{
			"media": {Interpreter: "/usr/bin/python3", ScriptDir: "~/transmux/runtimes/media"},
		},
		Stages: Stages{
			TimeoutSeconds:  3600,
			TimeoutOverride: map[string]int{},
		},
		Workflow: Workflow{
			RetryAttempts:     2,
			RetryBaseDelayMS:  500,
			TermGraceSeconds:  10,
			MaxConcurrentLang: 4,
		},
		Glossary: Glossary{
			OverridePath:      "",
			MasterPath:        "",
			LearnedDBPath:     "",
			CacheTTLHours:     24 * 7,
			MinLearnedSamples: 5,
		},
		Enrichment: Enrichment{
			Enabled:  false,
			BaseURL:  "https://api.themoviedb.org/3",
			Language: "en-US",
		},
		Translate: Translate{
			Fast: Engine{
				BaseURL:        "",
				TimeoutSeconds: 30,
			},
			Creative: Engine{
				BaseURL:        "https://openrouter.ai/api/v1/chat/completions",
				TimeoutSeconds: 120,
			},
			CreativeThreshold: 0.65,
			FallbackThreshold: 0.7,
		},
		Languages: Languages{
			Source:  "en",
			Targets: []string{"es"},
		},
		Logging: Logging{
			Format: "auto",
			Level:  "info",
		},
	}
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && base != "" {
		return filepath.Join(base, "transmux")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/transmux"
	}
	return filepath.Join(home, ".cache", "transmux")
}
