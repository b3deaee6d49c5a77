package translate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"transmux/internal/logging"
	"transmux/internal/services"
)

// State tracks one segment's progress through the routing machine.
type State string

const (
	StateNotStarted        State = "not_started"
	StatePrimaryAttempted  State = "primary_attempted"
	StateScoredOK          State = "scored_ok"
	StateFallback          State = "fallback"
	StateFallbackAttempted State = "fallback_attempted"
	StateFinal             State = "final"
	StateErrored           State = "errored"
)

// unavailabilityTripCount is how many authoritative failures an engine gets
// before routing stops offering it segments for the rest of the process.
const unavailabilityTripCount = 2

// RouterConfig carries the routing thresholds.
type RouterConfig struct {
	// CreativeThreshold routes a segment to the creative engine when its
	// estimated creativity meets it.
	CreativeThreshold float64
	// FallbackThreshold triggers one fallback attempt when the primary
	// candidate scores below it.
	FallbackThreshold float64
}

// Decision is the router's final answer for one segment. Signals carries the
// per-signal breakdown behind Score so artifacts can show why the routing
// went the way it did.
type Decision struct {
	Text         string
	Engine       string
	Score        float64
	Signals      Signals
	Creativity   float64
	State        State
	FallbackUsed bool
}

// engineHealth is the sticky unavailability record for one engine.
type engineHealth struct {
	authoritativeFailures int
	unavailable           bool
	logged                bool
}

// Router picks an engine per segment, scores the candidate, and falls back
// across engines at most once. Engine unavailability is sticky: after
// repeated authoritative failures an engine is dropped for the rest of the
// process so dead quota does not burn every remaining segment.
type Router struct {
	logger   *slog.Logger
	fast     Engine
	creative Engine
	cfg      RouterConfig

	mu     sync.Mutex
	health map[string]*engineHealth
}

// NewRouter builds a router over the fast and creative engines.
func NewRouter(logger *slog.Logger, fast, creative Engine, cfg RouterConfig) *Router {
	if cfg.CreativeThreshold <= 0 {
		cfg.CreativeThreshold = 0.65
	}
	if cfg.FallbackThreshold <= 0 {
		cfg.FallbackThreshold = 0.7
	}
	return &Router{
		logger:   logging.NewComponentLogger(logger, "translate-router"),
		fast:     fast,
		creative: creative,
		cfg:      cfg,
		health: map[string]*engineHealth{
			fast.Name():     {},
			creative.Name(): {},
		},
	}
}

// TranslateSegment routes one segment through the state machine and returns
// the winning candidate.
func (r *Router) TranslateSegment(ctx context.Context, req Request) (Decision, error) {
	decision := Decision{State: StateNotStarted}
	decision.Creativity = estimateCreativity(req.Text)

	primary, secondary := r.pick(decision.Creativity)
	if primary == nil {
		decision.State = StateErrored
		return decision, services.Wrap(services.ErrEngineUnavailable, "translate", "route", "no engine available", nil)
	}

	primaryResult, err := primary.Translate(ctx, req)
	decision.State = StatePrimaryAttempted
	if err != nil {
		r.recordFailure(primary.Name(), err)
		if secondary == nil {
			decision.State = StateErrored
			return decision, err
		}
		return r.attemptFallback(ctx, req, decision, secondary, Decision{}, err)
	}

	decision.Text = primaryResult.Text
	decision.Engine = primaryResult.Engine
	decision.Score, decision.Signals = ScoreCandidate(req.Text, primaryResult.Text)
	if decision.Score >= r.cfg.FallbackThreshold {
		decision.State = StateFinal
		return decision, nil
	}

	decision.State = StateFallback
	if secondary == nil {
		// Nothing better on offer; a weak candidate beats none.
		decision.State = StateFinal
		return decision, nil
	}
	r.logger.Debug("primary candidate below threshold, trying fallback",
		logging.String("primary_engine", primary.Name()),
		logging.Float64("score", decision.Score),
		logging.Float64("threshold", r.cfg.FallbackThreshold),
	)
	return r.attemptFallback(ctx, req, decision, secondary, decision, nil)
}

// attemptFallback runs the secondary engine once. best carries the primary
// candidate when one exists; primaryErr carries the primary failure when it
// does not.
func (r *Router) attemptFallback(ctx context.Context, req Request, decision Decision, secondary Engine, best Decision, primaryErr error) (Decision, error) {
	fallbackResult, err := secondary.Translate(ctx, req)
	decision.State = StateFallbackAttempted
	decision.FallbackUsed = true
	if err != nil {
		r.recordFailure(secondary.Name(), err)
		if best.Engine != "" {
			best.State = StateFinal
			best.FallbackUsed = true
			return best, nil
		}
		decision.State = StateErrored
		if primaryErr != nil {
			return decision, errors.Join(primaryErr, err)
		}
		return decision, err
	}

	fallbackScore, fallbackSignals := ScoreCandidate(req.Text, fallbackResult.Text)
	if best.Engine == "" || fallbackScore > best.Score {
		decision.Text = fallbackResult.Text
		decision.Engine = fallbackResult.Engine
		decision.Score = fallbackScore
		decision.Signals = fallbackSignals
	} else {
		decision.Text = best.Text
		decision.Engine = best.Engine
		decision.Score = best.Score
		decision.Signals = best.Signals
	}
	decision.State = StateFinal
	return decision, nil
}

// pick selects the primary and secondary engines for a segment, skipping
// engines that tripped the sticky unavailability breaker.
func (r *Router) pick(creativity float64) (primary, secondary Engine) {
	if creativity >= r.cfg.CreativeThreshold {
		primary, secondary = r.creative, r.fast
	} else {
		primary, secondary = r.fast, r.creative
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.health[primary.Name()].unavailable {
		primary = nil
	}
	if r.health[secondary.Name()].unavailable {
		secondary = nil
	}
	if primary == nil {
		primary, secondary = secondary, nil
	}
	return primary, secondary
}

// recordFailure counts authoritative unavailability failures and trips the
// breaker at the limit. The trip is logged exactly once per engine.
func (r *Router) recordFailure(engine string, err error) {
	if !errors.Is(err, services.ErrEngineUnavailable) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	health := r.health[engine]
	if health == nil {
		health = &engineHealth{}
		r.health[engine] = health
	}
	health.authoritativeFailures++
	if health.authoritativeFailures < unavailabilityTripCount || health.unavailable {
		return
	}
	health.unavailable = true
	if !health.logged {
		health.logged = true
		r.logger.Warn("translation engine marked unavailable for remainder of run",
			logging.String("engine", engine),
			logging.Int("authoritative_failures", health.authoritativeFailures),
			logging.String(logging.FieldEventType, "engine_unavailable_sticky"),
			logging.String(logging.FieldErrorHint, "remaining segments route to the other engine"),
		)
	}
}

// Available reports whether an engine can still receive segments.
func (r *Router) Available(engine string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	health, ok := r.health[engine]
	return ok && !health.unavailable
}

// estimateCreativity scores how much a segment relies on idiom, emphasis, or
// expressive register, in [0, 1]. It is a cheap structural heuristic: the
// router only needs a coarse split between literal and expressive segments.
func estimateCreativity(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	score := 0.0
	if strings.ContainsAny(trimmed, "!?") {
		score += 0.25
	}
	if strings.Contains(trimmed, "...") || strings.ContainsRune(trimmed, '…') {
		score += 0.15
	}
	if strings.ContainsAny(trimmed, "\"'“”") {
		score += 0.10
	}

	words := strings.Fields(trimmed)
	capsRun := 0
	interjections := 0
	for _, word := range words {
		clean := strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) })
		if clean == "" {
			continue
		}
		if len(clean) > 1 && clean == strings.ToUpper(clean) {
			capsRun++
		}
		switch strings.ToLower(clean) {
		case "oh", "ah", "hey", "wow", "ugh", "huh", "whoa", "damn", "hell":
			interjections++
		}
	}
	if capsRun > 0 {
		score += 0.25
	}
	if interjections > 0 {
		score += 0.25
	}
	// Short exclamatory fragments skew expressive.
	if len(words) <= 4 && strings.ContainsAny(trimmed, "!?") {
		score += 0.15
	}
	if score > 1 {
		score = 1
	}
	return score
}
