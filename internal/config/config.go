package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	LogDir   string `toml:"log_dir"`
	CacheDir string `toml:"cache_dir"`
}

// Runtime describes one isolated runtime profile a stage can execute in.
// Each profile owns its own interpreter and dependency tree and never shares
// an address space with another.
type Runtime struct {
	Interpreter string            `toml:"interpreter"`
	ScriptDir   string            `toml:"script_dir"`
	Env         map[string]string `toml:"env"`
}

// Stages contains per-stage toggles and timeout overrides.
type Stages struct {
	Disabled        []string       `toml:"disabled"`
	TimeoutSeconds  int            `toml:"timeout_seconds"`
	TimeoutOverride map[string]int `toml:"timeout_override"`
}

// Workflow contains retry and pacing configuration for the orchestrator.
type Workflow struct {
	RetryAttempts     int `toml:"retry_attempts"`
	RetryBaseDelayMS  int `toml:"retry_base_delay_ms"`
	TermGraceSeconds  int `toml:"term_grace_seconds"`
	MaxConcurrentLang int `toml:"max_concurrent_languages"`
}

// Glossary contains tier sources and cache behavior for term resolution.
type Glossary struct {
	OverridePath      string `toml:"override_path"`
	MasterPath        string `toml:"master_path"`
	LearnedDBPath     string `toml:"learned_db_path"`
	CacheTTLHours     int    `toml:"cache_ttl_hours"`
	MinLearnedSamples int    `toml:"min_learned_samples"`
}

// Enrichment contains configuration for the metadata enrichment service that
// seeds the enrichment-derived glossary tier.
type Enrichment struct {
	Enabled  bool   `toml:"enabled"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Language string `toml:"language"`
}

// Engine contains connection settings for one translation engine.
type Engine struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Translate contains routing thresholds and engine settings.
type Translate struct {
	Fast              Engine  `toml:"fast"`
	Creative          Engine  `toml:"creative"`
	CreativeThreshold float64 `toml:"creative_threshold"`
	FallbackThreshold float64 `toml:"fallback_threshold"`
}

// Languages contains source and target language configuration.
type Languages struct {
	Source  string   `toml:"source"`
	Targets []string `toml:"targets"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for transmux.
//
// Configuration sections by subsystem:
//   - Paths: job work directory, logs, shared glossary cache
//   - Runtimes: isolated runtime profiles for dispatched stages
//   - Stages: per-stage toggles and wall-clock timeouts
//   - Workflow: retry/backoff and termination grace settings
//   - Glossary: tier file paths, learned store, cache TTL
//   - Enrichment: metadata enrichment service connection
//   - Translate: engine connections and routing thresholds
//   - Languages: source and target languages
//   - Logging: log format and level
type Config struct {
	Paths      Paths              `toml:"paths"`
	Runtimes   map[string]Runtime `toml:"runtimes"`
	Stages     Stages             `toml:"stages"`
	Workflow   Workflow           `toml:"workflow"`
	Glossary   Glossary           `toml:"glossary"`
	Enrichment Enrichment         `toml:"enrichment"`
	Translate  Translate          `toml:"translate"`
	Languages  Languages          `toml:"languages"`
	Logging    Logging            `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/transmux/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The returned bool
// reports whether a config file was found on disk.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("transmux.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories required to run a job.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
