// Package workflow drives jobs through the stage pipeline.
//
// The orchestrator walks the registry order, resolving each stage's inputs
// through the backward-walking resolver, dispatching subprocess stages into
// their runtime profiles, and running the translate stage in-process where
// routing state and usage counters live. All cross-stage state flows through
// the job manifest and the frozen glossary snapshot; resume re-verifies the
// manifest against the filesystem before continuing.
package workflow
