package glossary

import "context"

// FetchFunc regenerates enrichment terms for a subject on a cache miss.
type FetchFunc func(ctx context.Context) ([]Term, error)

// EnrichmentSource serves the enrichment-derived tier through the TTL disk
// cache. A nil cache or fetch degrades to an empty tier.
type EnrichmentSource struct {
	cache   *Cache
	subject string
	fetch   FetchFunc
}

// NewEnrichmentSource builds the enrichment tier for one subject.
func NewEnrichmentSource(cache *Cache, subject string, fetch FetchFunc) *EnrichmentSource {
	return &EnrichmentSource{cache: cache, subject: subject, fetch: fetch}
}

func (s *EnrichmentSource) Tier() Tier { return TierEnrichment }

func (s *EnrichmentSource) Load(ctx context.Context) (map[string]Term, error) {
	if s.cache == nil || s.fetch == nil || s.subject == "" {
		return map[string]Term{}, nil
	}
	terms, err := s.cache.GetOrFill(ctx, s.subject, s.fetch)
	if err != nil {
		return nil, err
	}
	indexed := make(map[string]Term, len(terms))
	for _, term := range terms {
		key := normalizeKey(term.Source)
		if key == "" || term.Translation == "" {
			continue
		}
		term.Source = key
		term.Tier = TierEnrichment
		indexed[key] = term
		for _, alias := range term.Aliases {
			if aliasKey := normalizeKey(alias); aliasKey != "" {
				indexed[aliasKey] = term
			}
		}
	}
	return indexed, nil
}
