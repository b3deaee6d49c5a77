// Package config loads, normalizes, and validates the TOML configuration
// that drives the pipeline: directories, runtime profiles, stage toggles,
// glossary sources, and translation engine settings.
package config
