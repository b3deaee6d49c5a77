package glossary

import "strings"

// Tier identifies one of the four prioritized sources feeding the cascade.
type Tier string

const (
	// TierOverride is the production-specific override list, highest priority.
	TierOverride Tier = "production-override"
	// TierEnrichment holds terms derived from the metadata enrichment service.
	TierEnrichment Tier = "enrichment-derived"
	// TierMaster is the curated master list.
	TierMaster Tier = "curated-master"
	// TierLearned holds usage-learned candidates, lowest priority.
	TierLearned Tier = "usage-learned"
)

// tierOrder lists tiers highest priority first. Resolution walks this order,
// so the cascade is deterministic regardless of load order.
var tierOrder = []Tier{TierOverride, TierEnrichment, TierMaster, TierLearned}

// Term is one terminology mapping with its provenance.
type Term struct {
	Source      string   `json:"source"`
	Translation string   `json:"translation"`
	Tier        Tier     `json:"tier"`
	Aliases     []string `json:"aliases,omitempty"`
	// Weight is the usage confidence; only the learned tier populates it.
	Weight float64 `json:"weight,omitempty"`
}

// normalizeKey canonicalizes a source text for lookup.
func normalizeKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
