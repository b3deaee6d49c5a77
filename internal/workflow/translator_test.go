package workflow_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"transmux/internal/config"
	"transmux/internal/glossary"
	"transmux/internal/logging"
	"transmux/internal/translate"
	"transmux/internal/workflow"
)

type echoRouter struct{}

func (echoRouter) TranslateSegment(_ context.Context, req translate.Request) (translate.Decision, error) {
	return translate.Decision{
		Text:    req.Text,
		Engine:  "machine",
		Score:   1,
		Signals: translate.Signals{NonEmpty: 1, LengthRatio: 1, Repetition: 1, Variety: 1},
		State:   translate.StateFinal,
	}, nil
}

type recordingTracker struct {
	mu      sync.Mutex
	entries []string
}

func (r *recordingTracker) TrackUsage(_ context.Context, term, candidate string, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if success {
		r.entries = append(r.entries, term+"->"+candidate)
	}
	return nil
}

func writeAligned(t *testing.T, dir string, segments []workflow.Segment) string {
	t.Helper()
	payload := struct {
		Segments []workflow.Segment `json:"segments"`
	}{Segments: segments}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "aligned.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func translatorConfig(targets ...string) *config.Config {
	cfg := config.Default()
	cfg.Languages.Source = "en"
	cfg.Languages.Targets = targets
	cfg.Workflow.MaxConcurrentLang = 2
	return &cfg
}

func TestTranslatorAppliesGlossaryAndTracksUsage(t *testing.T) {
	dir := t.TempDir()
	aligned := writeAligned(t, dir, []workflow.Segment{
		{Start: 0, End: 2, Text: "We left Bombay at dawn."},
		{Start: 2, End: 4, Text: "Nothing to replace here."},
	})

	snapshot := &glossary.Snapshot{
		JobID:     "job-1",
		CreatedAt: time.Now(),
		Terms: map[string]glossary.ResolvedTerm{
			"bombay": {Translation: "mumbai", Tier: glossary.TierOverride},
		},
	}
	tracker := &recordingTracker{}
	translator := workflow.NewTranslator(translatorConfig("es"), logging.NewNop(), echoRouter{}, tracker)

	outDir := filepath.Join(dir, "06_translate")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	err := translator.Run(context.Background(), workflow.TranslateJob{
		JobID:       "job-1",
		AlignedPath: aligned,
		OutputDir:   outDir,
		Snapshot:    snapshot,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "translations.es.json"))
	if err != nil {
		t.Fatalf("read translations: %v", err)
	}
	var parsed struct {
		TargetLang string `json:"target_lang"`
		Segments   []struct {
			Text    string            `json:"text"`
			Engine  string            `json:"engine"`
			Score   float64           `json:"score"`
			Signals translate.Signals `json:"signals"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("parse translations: %v", err)
	}
	if parsed.TargetLang != "es" || len(parsed.Segments) != 2 {
		t.Fatalf("unexpected payload %+v", parsed)
	}
	if parsed.Segments[0].Text != "We left Mumbai at dawn." {
		t.Fatalf("glossary not applied: %q", parsed.Segments[0].Text)
	}
	if parsed.Segments[1].Text != "Nothing to replace here." {
		t.Fatalf("untouched segment changed: %q", parsed.Segments[1].Text)
	}
	if parsed.Segments[0].Signals.NonEmpty != 1 {
		t.Fatalf("signal breakdown not persisted: %+v", parsed.Segments[0].Signals)
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if len(tracker.entries) != 1 || tracker.entries[0] != "bombay->mumbai" {
		t.Fatalf("usage tracking entries %v", tracker.entries)
	}
}

func TestTranslatorWritesIndexAndPerLanguageArtifacts(t *testing.T) {
	dir := t.TempDir()
	aligned := writeAligned(t, dir, []workflow.Segment{{Start: 0, End: 1, Text: "Hello there."}})

	translator := workflow.NewTranslator(translatorConfig("es", "fr"), logging.NewNop(), echoRouter{}, nil)
	outDir := filepath.Join(dir, "06_translate")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := translator.Run(context.Background(), workflow.TranslateJob{
		JobID: "job-2", AlignedPath: aligned, OutputDir: outDir,
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, name := range []string{
		"translations.json",
		"translations.es.json", "subtitles.es.srt",
		"translations.fr.json", "subtitles.fr.srt",
	} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("missing artifact %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(outDir, "translations.json"))
	if err != nil {
		t.Fatal(err)
	}
	var index struct {
		Targets []string          `json:"targets"`
		Files   map[string]string `json:"files"`
	}
	if err := json.Unmarshal(data, &index); err != nil {
		t.Fatal(err)
	}
	if len(index.Targets) != 2 || index.Files["es"] != "translations.es.json" {
		t.Fatalf("unexpected index %+v", index)
	}
}

func TestTranslatorRejectsEmptyTranscript(t *testing.T) {
	dir := t.TempDir()
	aligned := writeAligned(t, dir, nil)
	translator := workflow.NewTranslator(translatorConfig("es"), logging.NewNop(), echoRouter{}, nil)
	err := translator.Run(context.Background(), workflow.TranslateJob{
		JobID: "job-3", AlignedPath: aligned, OutputDir: dir,
	})
	if err == nil {
		t.Fatal("expected error for empty transcript")
	}
}
