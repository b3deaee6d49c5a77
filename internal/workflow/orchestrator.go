package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"transmux/internal/config"
	"transmux/internal/dispatch"
	"transmux/internal/fileutil"
	"transmux/internal/glossary"
	"transmux/internal/logging"
	"transmux/internal/manifest"
	"transmux/internal/pipeline"
	"transmux/internal/services"
)

// SnapshotFileName is the frozen glossary mapping written into each job
// directory before the first stage runs.
const SnapshotFileName = "glossary_snapshot.json"

// workflowKind tags manifests produced by this pipeline shape.
const workflowKind = "dub-subtitle-v1"

// nativeProfile marks a stage the orchestrator runs in-process instead of
// dispatching to a runtime profile.
const nativeProfile = "native"

// Orchestrator drives one job through the registry order: resolving inputs,
// dispatching subprocess stages, running the translate stage in-process, and
// recording every transition in the job manifest.
type Orchestrator struct {
	cfg        *config.Config
	logger     *slog.Logger
	registry   *pipeline.Registry
	dispatcher *dispatch.Dispatcher
	glossary   *glossary.Engine
	translator *Translator
}

// New builds an orchestrator. glossaryEngine may be nil when no glossary is
// configured; the translate stage then runs without hints.
func New(cfg *config.Config, logger *slog.Logger, registry *pipeline.Registry, dispatcher *dispatch.Dispatcher, glossaryEngine *glossary.Engine, translator *Translator) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "orchestrator"),
		registry:   registry,
		dispatcher: dispatcher,
		glossary:   glossaryEngine,
		translator: translator,
	}
}

// Start creates a fresh job for the source file and runs it to completion.
// It returns the job directory so callers can inspect artifacts afterwards.
func (o *Orchestrator) Start(ctx context.Context, source string) (string, error) {
	source, err := filepath.Abs(source)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "", "start", "resolve source path", err)
	}
	if !fileutil.FileExists(source) {
		return "", services.Wrap(services.ErrValidation, "", "start", fmt.Sprintf("source file %s does not exist", source), nil)
	}

	jobID := uuid.NewString()
	jobDir := filepath.Join(o.cfg.Paths.WorkDir, jobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return "", fmt.Errorf("create job directory: %w", err)
	}
	m, err := manifest.Create(jobID, workflowKind, source, jobDir, o.registry)
	if err != nil {
		return "", err
	}
	return jobDir, o.run(ctx, m, jobDir)
}

// Resume picks up an interrupted job. The manifest is re-verified against the
// filesystem first: completed stages with missing outputs revert to pending
// and re-run; everything else is skipped over.
func (o *Orchestrator) Resume(ctx context.Context, jobDir string) error {
	m, err := manifest.Load(jobDir)
	if err != nil {
		return fmt.Errorf("load manifest for resume: %w", err)
	}
	reset, err := m.Verify(o.registry, jobDir)
	if err != nil {
		return err
	}
	if len(reset) > 0 {
		o.logger.Info("resume verification reset stages with missing outputs",
			logging.String(logging.FieldJobID, m.JobID),
			logging.Any("stages", reset),
		)
	}
	return o.run(ctx, m, jobDir)
}

func (o *Orchestrator) run(ctx context.Context, m *manifest.Manifest, jobDir string) error {
	ctx = services.WithJobID(ctx, m.JobID)
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("job started",
		logging.String("source", m.Source),
		logging.String("job_dir", jobDir),
	)

	snapshot, err := o.prepareGlossary(ctx, m.JobID, jobDir)
	if err != nil {
		return err
	}
	resolver := pipeline.NewResolver(o.registry, jobDir, m.Ran)

	for _, def := range o.registry.Stages() {
		if err := ctx.Err(); err != nil {
			return err
		}

		state, _ := m.StateOf(def.Name)
		switch state {
		case manifest.StateCompleted:
			logger.Debug("stage already completed, skipping", logging.String(logging.FieldStage, def.Name))
			continue
		case manifest.StateSkipped:
			continue
		case manifest.StateFailed:
			return services.Wrap(services.ErrValidation, def.Name, "resume",
				"stage previously failed; start a new job for this source", nil)
		}

		if o.stageDisabled(def.Name) {
			if def.Policy != pipeline.PolicySkippable {
				return services.Wrap(services.ErrConfigInvalid, def.Name, "run",
					"required stage is disabled in configuration", nil)
			}
			if err := m.MarkSkipped(def.Name, "disabled in configuration"); err != nil {
				return err
			}
			logger.Info("stage disabled, skipping", logging.String(logging.FieldStage, def.Name))
			continue
		}

		if err := o.runStage(ctx, m, resolver, def, jobDir, snapshot); err != nil {
			if ctx.Err() != nil {
				// Interruption is not a stage failure. The manifest entry
				// stays running; Verify resets it to pending on resume.
				logger.Info("job interrupted, resume to continue",
					logging.String(logging.FieldStage, def.Name),
				)
				return err
			}
			if def.Policy == pipeline.PolicySkippable {
				if markErr := m.MarkSkipped(def.Name, fmt.Sprintf("failed, continuing without it: %v", err)); markErr != nil {
					return markErr
				}
				logger.Warn("skippable stage failed, continuing",
					logging.String(logging.FieldStage, def.Name),
					logging.Error(err),
				)
				continue
			}
			if markErr := m.MarkFailed(def.Name, err.Error()); markErr != nil {
				logger.Error("failed to record stage failure", logging.Error(markErr))
			}
			o.skipRemaining(m, def.Name)
			logger.Error("job failed",
				logging.String(logging.FieldStage, def.Name),
				logging.Error(err),
			)
			return err
		}
	}

	logger.Info("job completed", logging.String("job_dir", jobDir))
	return nil
}

func (o *Orchestrator) runStage(ctx context.Context, m *manifest.Manifest, resolver *pipeline.Resolver, def pipeline.StageDefinition, jobDir string, snapshot *glossary.Snapshot) error {
	// Each stage attempt gets its own correlation id so its log lines can be
	// grepped apart from earlier attempts of the same stage.
	stageCtx := services.WithRequestID(services.WithStage(ctx, def.Name), uuid.NewString())
	logger := logging.WithContext(stageCtx, o.logger)

	inputs, err := o.resolveInputs(resolver, def, m.Source)
	if err != nil {
		return err
	}
	outputDir, err := resolver.OutputDir(def.Name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create stage output directory: %w", err)
	}

	if err := m.MarkRunning(def.Name); err != nil {
		return err
	}
	logger.Info("stage started", logging.Int("inputs", len(inputs)))
	started := time.Now()

	if def.RuntimeProfile == nativeProfile {
		err = o.translator.Run(stageCtx, TranslateJob{
			JobID:       m.JobID,
			AlignedPath: inputs[pipeline.ArtifactAligned],
			OutputDir:   outputDir,
			Snapshot:    snapshot,
		})
	} else {
		_, err = o.dispatcher.RunWithRetry(stageCtx, dispatch.Request{
			Stage:     def.Name,
			Profile:   def.RuntimeProfile,
			JobDir:    jobDir,
			Inputs:    inputs,
			OutputDir: outputDir,
			Timeout:   o.stageTimeout(def.Name),
		})
	}
	if err != nil {
		return err
	}

	// The output contract is part of the stage's definition of done.
	for _, artifact := range def.Outputs {
		path := filepath.Join(outputDir, artifact)
		if !fileutil.FileExists(path) {
			return services.Wrap(services.ErrMissingArtifact, def.Name, "verify outputs",
				fmt.Sprintf("stage exited successfully but did not produce %s", artifact), nil)
		}
	}

	duration := time.Since(started)
	if err := m.MarkCompleted(def.Name, duration); err != nil {
		return err
	}
	logger.Info("stage completed", logging.Duration("elapsed", duration))
	return nil
}

// resolveInputs maps each declared input artifact to a concrete path. Stages
// with no declared inputs receive the original source file.
func (o *Orchestrator) resolveInputs(resolver *pipeline.Resolver, def pipeline.StageDefinition, source string) (map[string]string, error) {
	inputs := make(map[string]string, len(def.Inputs)+1)
	if len(def.Inputs) == 0 {
		inputs["source"] = source
		return inputs, nil
	}
	for _, ref := range def.Inputs {
		path, err := resolver.GetInput(def.Name, ref.Name, ref.From)
		if err != nil {
			return nil, err
		}
		inputs[ref.Name] = path
	}
	return inputs, nil
}

// prepareGlossary loads the tiers and freezes the job's snapshot to disk. A
// nil engine yields an empty snapshot: translation proceeds without hints.
func (o *Orchestrator) prepareGlossary(ctx context.Context, jobID, jobDir string) (*glossary.Snapshot, error) {
	if o.glossary == nil {
		return nil, nil
	}
	o.glossary.LoadAll(ctx)
	snapshot := o.glossary.Snapshot(jobID)
	if err := snapshot.WriteFile(filepath.Join(jobDir, SnapshotFileName)); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// skipRemaining marks every still-pending stage skipped after a fatal
// failure, so the manifest reads as a complete record instead of trailing
// off in pending rows.
func (o *Orchestrator) skipRemaining(m *manifest.Manifest, failedStage string) {
	seen := false
	for _, def := range o.registry.Stages() {
		if def.Name == failedStage {
			seen = true
			continue
		}
		if !seen {
			continue
		}
		if state, ok := m.StateOf(def.Name); ok && state == manifest.StatePending {
			_ = m.MarkSkipped(def.Name, fmt.Sprintf("upstream stage %s failed", failedStage))
		}
	}
}

func (o *Orchestrator) stageDisabled(name string) bool {
	for _, disabled := range o.cfg.Stages.Disabled {
		if disabled == name {
			return true
		}
	}
	return false
}

func (o *Orchestrator) stageTimeout(name string) time.Duration {
	seconds := o.cfg.Stages.TimeoutSeconds
	if override, ok := o.cfg.Stages.TimeoutOverride[name]; ok {
		seconds = override
	}
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
