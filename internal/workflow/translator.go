package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"transmux/internal/config"
	"transmux/internal/fileutil"
	"transmux/internal/glossary"
	"transmux/internal/language"
	"transmux/internal/logging"
	"transmux/internal/services"
	"transmux/internal/subtitle"
	"transmux/internal/translate"
)

// maxHintsPerSegment caps how many glossary hints ride along with one
// segment; engines degrade with oversized instruction lists.
const maxHintsPerSegment = 8

// SegmentRouter routes one segment to an engine. *translate.Router is the
// production implementation.
type SegmentRouter interface {
	TranslateSegment(ctx context.Context, req translate.Request) (translate.Decision, error)
}

// UsageTracker records glossary term usage. *glossary.Engine is the
// production implementation; nil disables tracking.
type UsageTracker interface {
	TrackUsage(ctx context.Context, term, candidate string, success bool) error
}

// TranslateJob carries everything the in-process translate stage needs.
type TranslateJob struct {
	JobID       string
	AlignedPath string
	OutputDir   string
	Snapshot    *glossary.Snapshot
}

// Translator is the in-process translate stage. Unlike the dispatched
// stages it runs inside the orchestrator: routing state (sticky engine
// unavailability) and the usage counters live here, not in a subprocess.
type Translator struct {
	cfg     *config.Config
	logger  *slog.Logger
	router  SegmentRouter
	tracker UsageTracker
}

// NewTranslator builds the translate stage handler. tracker may be nil.
func NewTranslator(cfg *config.Config, logger *slog.Logger, router SegmentRouter, tracker UsageTracker) *Translator {
	return &Translator{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "translator"),
		router:  router,
		tracker: tracker,
	}
}

// Run translates the aligned transcript into every configured target
// language. Languages fan out across goroutines, bounded by the configured
// concurrency; segments within one language stay sequential so routing
// decisions see stable ordering.
func (t *Translator) Run(ctx context.Context, job TranslateJob) error {
	segments, err := ReadAligned(job.AlignedPath)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return services.Wrap(services.ErrValidation, "translate", "run", "aligned transcript has no segments", nil)
	}

	targets := t.cfg.Languages.Targets
	if len(targets) == 0 {
		return services.Wrap(services.ErrConfigInvalid, "translate", "run", "no target languages configured", nil)
	}

	limit := t.cfg.Workflow.MaxConcurrentLang
	if limit <= 0 {
		limit = 2
	}
	sem := make(chan struct{}, limit)
	errs := make(chan error, len(targets))
	var wg sync.WaitGroup

	for _, target := range targets {
		wg.Add(1)
		go func(lang string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if err := t.translateLanguage(ctx, job, segments, lang); err != nil {
				errs <- fmt.Errorf("target %s: %w", lang, err)
			}
		}(target)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		return err
	}

	return t.writeIndex(job, targets)
}

func (t *Translator) translateLanguage(ctx context.Context, job TranslateJob, segments []Segment, lang string) error {
	langCtx := services.WithLanguage(ctx, lang)
	logger := logging.WithContext(langCtx, t.logger)
	started := time.Now()

	translated := make([]TranslatedSegment, 0, len(segments))
	for _, segment := range segments {
		if err := langCtx.Err(); err != nil {
			return err
		}
		hints := t.hintsFor(job.Snapshot, segment.Text)
		decision, err := t.router.TranslateSegment(langCtx, translate.Request{
			Text:       segment.Text,
			SourceLang: t.cfg.Languages.Source,
			TargetLang: lang,
			Hints:      hints,
		})
		if err != nil {
			return err
		}

		// The glossary has the final word even when the engine ignored the
		// hints.
		text := job.Snapshot.ApplyToText(decision.Text)
		translated = append(translated, TranslatedSegment{
			Start:   segment.Start,
			End:     segment.End,
			Source:  segment.Text,
			Text:    text,
			Engine:  decision.Engine,
			Score:   decision.Score,
			Signals: decision.Signals,
		})
		t.trackHints(langCtx, hints, text)
	}

	if err := t.writeLanguage(job, lang, translated); err != nil {
		return err
	}
	logger.Info("language translated",
		logging.String("language_name", language.DisplayName(lang)),
		logging.Int("segments", len(translated)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// hintsFor selects the snapshot terms present in the segment text. Matching
// here is a cheap containment check; the authoritative substitution happens
// in ApplyToText afterwards.
func (t *Translator) hintsFor(snapshot *glossary.Snapshot, text string) []translate.Hint {
	if snapshot == nil || snapshot.Len() == 0 {
		return nil
	}
	lower := strings.ToLower(text)
	var keys []string
	for key := range snapshot.Terms {
		if strings.Contains(lower, key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if len(keys) > maxHintsPerSegment {
		keys = keys[:maxHintsPerSegment]
	}
	hints := make([]translate.Hint, 0, len(keys))
	for _, key := range keys {
		hints = append(hints, translate.Hint{Source: key, Translation: snapshot.Terms[key].Translation})
	}
	return hints
}

// trackHints feeds the learned tier: a hint counts as successful when its
// translation survived into the final text. Tracking failures are logged and
// swallowed; usage learning never fails a job.
func (t *Translator) trackHints(ctx context.Context, hints []translate.Hint, finalText string) {
	if t.tracker == nil {
		return
	}
	lower := strings.ToLower(finalText)
	for _, hint := range hints {
		applied := strings.Contains(lower, strings.ToLower(hint.Translation))
		if err := t.tracker.TrackUsage(ctx, hint.Source, hint.Translation, applied); err != nil {
			t.logger.Warn("usage tracking failed",
				logging.String("term", hint.Source),
				logging.Error(err),
			)
		}
	}
}

func (t *Translator) writeLanguage(job TranslateJob, lang string, segments []TranslatedSegment) error {
	payload := translationsFile{
		JobID:      job.JobID,
		SourceLang: t.cfg.Languages.Source,
		TargetLang: lang,
		Segments:   segments,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal translations: %w", err)
	}
	path := filepath.Join(job.OutputDir, languageFileName(lang))
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("persist translations: %w", err)
	}

	cues := make([]subtitle.Cue, 0, len(segments))
	for _, segment := range segments {
		cues = append(cues, subtitle.Cue{
			Start: time.Duration(segment.Start * float64(time.Second)),
			End:   time.Duration(segment.End * float64(time.Second)),
			Text:  segment.Text,
		})
	}
	srtPath := filepath.Join(job.OutputDir, fmt.Sprintf("subtitles.%s.srt", lang))
	if err := subtitle.WriteFile(srtPath, cues); err != nil {
		return fmt.Errorf("persist language subtitles: %w", err)
	}
	return nil
}

func (t *Translator) writeIndex(job TranslateJob, targets []string) error {
	index := translationsIndex{
		JobID:      job.JobID,
		SourceLang: t.cfg.Languages.Source,
		Targets:    targets,
		Files:      make(map[string]string, len(targets)),
	}
	for _, lang := range targets {
		index.Files[lang] = languageFileName(lang)
	}
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal translations index: %w", err)
	}
	path := filepath.Join(job.OutputDir, "translations.json")
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("persist translations index: %w", err)
	}
	return nil
}

func languageFileName(lang string) string {
	return fmt.Sprintf("translations.%s.json", lang)
}
