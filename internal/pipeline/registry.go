package pipeline

import (
	"fmt"
	"strings"

	"transmux/internal/services"
)

// FailurePolicy controls how the orchestrator reacts when a stage fails.
type FailurePolicy string

const (
	// PolicyFatal aborts the job when the stage fails.
	PolicyFatal FailurePolicy = "fatal"
	// PolicySkippable logs the failure and lets the job continue with
	// reduced output.
	PolicySkippable FailurePolicy = "skippable"
)

// ArtifactRef names a required input artifact. From optionally pins the
// producing stage; when empty the resolver walks backward through registry
// order to find the nearest producer.
type ArtifactRef struct {
	Name string
	From string
}

// StageDefinition declares one unit of pipeline work. Ordinals, directory
// names, and alias resolution are all derived from the registry's ordered
// list; nothing else encodes stage ordering.
type StageDefinition struct {
	Name           string
	RuntimeProfile string
	Aliases        []string
	Inputs         []ArtifactRef
	Outputs        []string
	Policy         FailurePolicy
}

// Registry is the single source of truth for stage ordering. All numbering
// and directory derivation is a pure function of the ordered stage list.
type Registry struct {
	stages []StageDefinition
	index  map[string]int // canonical names and aliases -> stage slice index
}

// NewRegistry validates the ordered definitions and builds the alias index.
// Duplicate names, duplicate directories, or aliases that collide with
// existing stages fail fast with the configuration-invalid marker.
func NewRegistry(defs []StageDefinition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, services.Wrap(services.ErrConfigInvalid, "", "registry", "stage list must not be empty", nil)
	}

	index := make(map[string]int, len(defs)*2)
	dirs := make(map[string]string, len(defs))
	for i, def := range defs {
		name := strings.ToLower(strings.TrimSpace(def.Name))
		if name == "" {
			return nil, services.Wrap(services.ErrConfigInvalid, "", "registry", fmt.Sprintf("stage at position %d has no name", i+1), nil)
		}
		if _, dup := index[name]; dup {
			return nil, services.Wrap(services.ErrConfigInvalid, "", "registry", fmt.Sprintf("duplicate stage name %q", name), nil)
		}
		index[name] = i

		dir := stageDir(i+1, name)
		if owner, dup := dirs[dir]; dup {
			return nil, services.Wrap(services.ErrConfigInvalid, "", "registry", fmt.Sprintf("stage directory %q for %q collides with %q", dir, name, owner), nil)
		}
		dirs[dir] = name

		if def.Policy == "" {
			defs[i].Policy = PolicyFatal
		}
		defs[i].Name = name
	}

	// Aliases resolve to a canonical stage once, at load time, so
	// interchangeable implementations share one ordinal and directory.
	for i, def := range defs {
		for _, alias := range def.Aliases {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if alias == "" {
				continue
			}
			if existing, dup := index[alias]; dup {
				return nil, services.Wrap(services.ErrConfigInvalid, "", "registry",
					fmt.Sprintf("alias %q of stage %q collides with stage %q", alias, def.Name, defs[existing].Name), nil)
			}
			index[alias] = i
		}
	}

	return &Registry{stages: defs, index: index}, nil
}

// Stages returns the ordered stage definitions.
func (r *Registry) Stages() []StageDefinition {
	out := make([]StageDefinition, len(r.stages))
	copy(out, r.stages)
	return out
}

// Canonical resolves a stage name or alias to its canonical stage name.
func (r *Registry) Canonical(name string) (string, bool) {
	idx, ok := r.lookup(name)
	if !ok {
		return "", false
	}
	return r.stages[idx].Name, true
}

// Definition returns the stage definition for a name or alias.
func (r *Registry) Definition(name string) (StageDefinition, bool) {
	idx, ok := r.lookup(name)
	if !ok {
		return StageDefinition{}, false
	}
	return r.stages[idx], true
}

// Ordinal returns the 1-based position of the stage (aliases share the
// ordinal of their canonical stage).
func (r *Registry) Ordinal(name string) (int, bool) {
	idx, ok := r.lookup(name)
	if !ok {
		return 0, false
	}
	return idx + 1, true
}

// StageDir returns the job-relative output directory for the stage,
// derived purely from its ordinal and canonical name.
func (r *Registry) StageDir(name string) (string, bool) {
	idx, ok := r.lookup(name)
	if !ok {
		return "", false
	}
	return stageDir(idx+1, r.stages[idx].Name), true
}

func (r *Registry) lookup(name string) (int, bool) {
	idx, ok := r.index[strings.ToLower(strings.TrimSpace(name))]
	return idx, ok
}

func stageDir(ordinal int, name string) string {
	return fmt.Sprintf("%02d_%s", ordinal, name)
}
