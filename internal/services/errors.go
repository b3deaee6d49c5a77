package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingArtifact marks a required upstream output that is absent.
	ErrMissingArtifact = errors.New("missing artifact")
	// ErrTimeout marks a stage that exceeded its wall-clock budget.
	ErrTimeout = errors.New("timeout")
	// ErrEngineUnavailable marks an authoritative, non-transient translation
	// engine failure (quota, credits, auth).
	ErrEngineUnavailable = errors.New("engine unavailable")
	// ErrCacheCorrupt marks an unreadable or partially written cache entry.
	ErrCacheCorrupt = errors.New("cache corrupt")
	// ErrConfigInvalid marks configuration problems detected before any stage runs.
	ErrConfigInvalid = errors.New("configuration invalid")
	// ErrExternalTool marks a subprocess that exited non-zero.
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks bad input detected by a stage or service.
	ErrValidation = errors.New("validation error")
	// ErrTransient marks failures that are safe to retry.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether the dispatcher may retry the failed operation.
// Only transient classes qualify; deterministic failures (bad input, config,
// non-zero tool exits) are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

// IsFatalConfig reports whether the error should abort a job before any stage
// executes.
func IsFatalConfig(err error) bool {
	return errors.Is(err, ErrConfigInvalid)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
