// Package logging provides slog construction and the standardized attribute
// helpers used across the pipeline. All components log through attrs built
// here so field names stay consistent between console and JSON output.
package logging
