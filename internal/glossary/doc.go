// Package glossary resolves translation terminology through four prioritized
// tiers: production overrides, enrichment-derived terms, the curated master
// list, and usage-learned candidates.
//
// Tiers load independently and a failing tier degrades to empty rather than
// aborting a job. Enrichment terms flow through a TTL-bounded disk cache with
// cross-process single-flight regeneration; learned candidates come from a
// SQLite counter store fed by TrackUsage. Each job freezes the merged mapping
// into an immutable Snapshot so concurrent translation branches read one
// consistent view.
package glossary
