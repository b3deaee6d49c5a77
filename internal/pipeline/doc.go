// Package pipeline defines the stage registry and the artifact resolver.
// The ordered registry list is the only source of truth for stage ordinals,
// output directory names, and alias grouping; the resolver derives concrete
// input paths from it so optional stages can be toggled without touching
// downstream consumers.
package pipeline
