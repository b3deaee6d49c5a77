package glossary

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"transmux/internal/logging"
)

// Strategy selects how the cascade treats the learned tier.
type Strategy string

const (
	// StrategyPriority resolves strictly by tier priority.
	StrategyPriority Strategy = "priority"
	// StrategyFrequency promotes a well-sampled learned candidate above the
	// enrichment and master tiers. Production overrides always win.
	StrategyFrequency Strategy = "frequency"
)

// Engine merges the four prioritized term tiers into one deterministic
// mapping. It owns its in-process state exclusively; concurrent jobs share
// only the on-disk enrichment cache and the learned store underneath the
// sources.
type Engine struct {
	logger     *slog.Logger
	sources    []Source
	learned    *LearnedStore
	minSamples int

	mu    sync.RWMutex
	tiers map[Tier]map[string]Term
}

// NewEngine builds an engine over the provided tier sources. learned may be
// nil when no learned store is configured; TrackUsage becomes a no-op.
func NewEngine(logger *slog.Logger, learned *LearnedStore, minSamples int, sources ...Source) *Engine {
	if minSamples <= 0 {
		minSamples = 5
	}
	return &Engine{
		logger:     logging.NewComponentLogger(logger, "glossary"),
		sources:    sources,
		learned:    learned,
		minSamples: minSamples,
		tiers:      make(map[Tier]map[string]Term, len(tierOrder)),
	}
}

// LoadAll loads every tier independently. A failing tier degrades to empty
// with a warning; it never aborts the cascade.
func (e *Engine) LoadAll(ctx context.Context) {
	loaded := make(map[Tier]map[string]Term, len(e.sources))
	for _, source := range e.sources {
		terms, err := source.Load(ctx)
		if err != nil {
			e.logger.Warn("glossary tier failed to load, degrading to empty",
				logging.String("tier", string(source.Tier())),
				logging.Error(err),
				logging.String(logging.FieldEventType, "glossary_tier_degraded"),
				logging.String(logging.FieldErrorHint, "job continues with fewer terms"),
			)
			terms = map[string]Term{}
		}
		loaded[source.Tier()] = terms
		e.logger.Debug("glossary tier loaded",
			logging.String("tier", string(source.Tier())),
			logging.Int("term_count", len(terms)),
		)
	}

	e.mu.Lock()
	e.tiers = loaded
	e.mu.Unlock()
}

// GetTerm resolves source text through the priority cascade and reports the
// winning mapping with its provenance.
func (e *Engine) GetTerm(text string) (Term, bool) {
	return e.GetTermWithStrategy(text, StrategyPriority)
}

// GetTermWithStrategy resolves source text using the given strategy. With
// StrategyFrequency, a learned candidate whose sample count reaches the
// minimum is promoted above the enrichment and master tiers; the production
// override tier is never outranked.
func (e *Engine) GetTermWithStrategy(text string, strategy Strategy) (Term, bool) {
	key := normalizeKey(text)
	if key == "" {
		return Term{}, false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if strategy == StrategyFrequency {
		if term, ok := e.tiers[TierOverride][key]; ok {
			return term, true
		}
		if learned, ok := e.tiers[TierLearned][key]; ok && learned.Weight >= float64(e.minSamples) {
			return learned, true
		}
	}

	for _, tier := range tierOrder {
		if term, ok := e.tiers[tier][key]; ok {
			return term, true
		}
	}
	return Term{}, false
}

// TrackUsage records one observation of a candidate translation for a term.
// Counters feed the learned tier on the next load.
func (e *Engine) TrackUsage(ctx context.Context, term, candidate string, success bool) error {
	if e.learned == nil {
		return nil
	}
	return e.learned.TrackUsage(ctx, normalizeKey(term), candidate, success)
}

// Snapshot freezes the merged mapping for one job. The snapshot is immutable
// and safe for concurrent readers; stages receive it instead of reaching
// back into the engine.
func (e *Engine) Snapshot(jobID string) *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	merged := make(map[string]ResolvedTerm)
	// Walk lowest priority first so higher tiers overwrite.
	for i := len(tierOrder) - 1; i >= 0; i-- {
		for key, term := range e.tiers[tierOrder[i]] {
			merged[key] = ResolvedTerm{
				Translation: term.Translation,
				Tier:        term.Tier,
				Aliases:     term.Aliases,
			}
		}
	}
	return &Snapshot{
		JobID:     jobID,
		CreatedAt: time.Now().UTC(),
		Terms:     merged,
	}
}
