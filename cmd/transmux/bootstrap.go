package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"transmux/internal/config"
	"transmux/internal/dispatch"
	"transmux/internal/glossary"
	"transmux/internal/glossary/enrichment"
	"transmux/internal/logging"
	"transmux/internal/pipeline"
	"transmux/internal/translate"
	"transmux/internal/workflow"
)

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		LogDir: cfg.Paths.LogDir,
	})
}

// buildGlossary wires the four tier sources. The learned store is returned
// separately so callers can close it.
func buildGlossary(cfg *config.Config, logger *slog.Logger, subject string) (*glossary.Engine, *glossary.LearnedStore, error) {
	var learned *glossary.LearnedStore
	if cfg.Glossary.LearnedDBPath != "" {
		store, err := glossary.OpenLearnedStore(cfg.Glossary.LearnedDBPath)
		if err != nil {
			return nil, nil, err
		}
		learned = store
	}

	sources := []glossary.Source{
		glossary.NewFileSource(cfg.Glossary.OverridePath, glossary.TierOverride),
		glossary.NewFileSource(cfg.Glossary.MasterPath, glossary.TierMaster),
		glossary.NewLearnedSource(learned),
	}

	if cfg.Enrichment.Enabled && subject != "" {
		client, err := enrichment.New(cfg.Enrichment.APIKey, cfg.Enrichment.BaseURL, cfg.Enrichment.Language)
		if err != nil {
			if learned != nil {
				_ = learned.Close()
			}
			return nil, nil, fmt.Errorf("configure enrichment client: %w", err)
		}
		cache := glossary.NewCache(cfg.Paths.CacheDir, time.Duration(cfg.Glossary.CacheTTLHours)*time.Hour)
		target := ""
		if len(cfg.Languages.Targets) > 0 {
			target = cfg.Languages.Targets[0]
		}
		sources = append(sources, glossary.NewEnrichmentSource(cache, subject, func(ctx context.Context) ([]glossary.Term, error) {
			return client.FetchTerms(ctx, subject, target)
		}))
	}

	engine := glossary.NewEngine(logger, learned, cfg.Glossary.MinLearnedSamples, sources...)
	return engine, learned, nil
}

func buildOrchestrator(cfg *config.Config, logger *slog.Logger, glossaryEngine *glossary.Engine) (*workflow.Orchestrator, error) {
	registry, err := pipeline.DefaultRegistry()
	if err != nil {
		return nil, err
	}

	fast := translate.NewMachineEngine(translate.MachineConfig{
		BaseURL:        cfg.Translate.Fast.BaseURL,
		APIKey:         cfg.Translate.Fast.APIKey,
		Model:          cfg.Translate.Fast.Model,
		TimeoutSeconds: cfg.Translate.Fast.TimeoutSeconds,
	})
	creative := translate.NewLLMEngine(translate.LLMConfig{
		APIKey:         cfg.Translate.Creative.APIKey,
		BaseURL:        cfg.Translate.Creative.BaseURL,
		Model:          cfg.Translate.Creative.Model,
		TimeoutSeconds: cfg.Translate.Creative.TimeoutSeconds,
	})
	router := translate.NewRouter(logger, fast, creative, translate.RouterConfig{
		CreativeThreshold: cfg.Translate.CreativeThreshold,
		FallbackThreshold: cfg.Translate.FallbackThreshold,
	})

	var tracker workflow.UsageTracker
	if glossaryEngine != nil {
		tracker = glossaryEngine
	}
	translator := workflow.NewTranslator(cfg, logger, router, tracker)
	dispatcher := dispatch.New(cfg, logger)
	return workflow.New(cfg, logger, registry, dispatcher, glossaryEngine, translator), nil
}
