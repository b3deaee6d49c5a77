package pipeline

import (
	"fmt"
	"path/filepath"

	"transmux/internal/services"
)

// RanFunc reports whether a stage actually executed for the current job.
// The resolver uses it to look through skippable stages that were disabled
// or failed without hardcoding paths in every downstream consumer.
type RanFunc func(stage string) bool

// Resolver maps (stage, artifact) pairs to concrete paths inside a job
// directory by walking the registry order.
type Resolver struct {
	registry *Registry
	jobDir   string
	ran      RanFunc
}

// NewResolver builds a resolver for one job directory. ran may be nil, in
// which case every stage is assumed to have run.
func NewResolver(registry *Registry, jobDir string, ran RanFunc) *Resolver {
	return &Resolver{registry: registry, jobDir: jobDir, ran: ran}
}

// OutputDir returns the concrete output directory for a stage.
func (r *Resolver) OutputDir(stage string) (string, error) {
	dir, ok := r.registry.StageDir(stage)
	if !ok {
		return "", services.Wrap(services.ErrConfigInvalid, stage, "resolve", "unknown stage", nil)
	}
	return filepath.Join(r.jobDir, dir), nil
}

// OutputPath returns the concrete path a stage must write one artifact to.
func (r *Resolver) OutputPath(stage, artifact string) (string, error) {
	dir, err := r.OutputDir(stage)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, artifact), nil
}

// GetInput resolves artifact for consumption by stage. When fromStage is
// non-empty the producer is pinned; otherwise the resolver walks backward
// from stage, skipping skippable stages that did not run, until it finds a
// stage declaring artifact in its output contract.
func (r *Resolver) GetInput(stage, artifact, fromStage string) (string, error) {
	if fromStage != "" {
		producer, ok := r.registry.Definition(fromStage)
		if !ok {
			return "", services.Wrap(services.ErrConfigInvalid, stage, "resolve", fmt.Sprintf("unknown producer stage %q", fromStage), nil)
		}
		if !declares(producer, artifact) {
			return "", services.Wrap(services.ErrMissingArtifact, stage, "resolve",
				fmt.Sprintf("stage %q does not declare artifact %q", producer.Name, artifact), nil)
		}
		return r.OutputPath(producer.Name, artifact)
	}

	ordinal, ok := r.registry.Ordinal(stage)
	if !ok {
		return "", services.Wrap(services.ErrConfigInvalid, stage, "resolve", "unknown stage", nil)
	}

	stages := r.registry.stages
	for i := ordinal - 2; i >= 0; i-- {
		candidate := stages[i]
		if !declares(candidate, artifact) {
			continue
		}
		if candidate.Policy == PolicySkippable && !r.stageRan(candidate.Name) {
			continue
		}
		return r.OutputPath(candidate.Name, artifact)
	}

	return "", services.Wrap(services.ErrMissingArtifact, stage, "resolve",
		fmt.Sprintf("no prior stage produces artifact %q", artifact), nil)
}

func (r *Resolver) stageRan(name string) bool {
	if r.ran == nil {
		return true
	}
	return r.ran(name)
}

func declares(def StageDefinition, artifact string) bool {
	for _, out := range def.Outputs {
		if out == artifact {
			return true
		}
	}
	return false
}
