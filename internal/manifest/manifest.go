package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"transmux/internal/fileutil"
	"transmux/internal/pipeline"
)

// State represents the lifecycle of one stage within a job.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateSkipped   State = "skipped"
)

// FileName is the manifest file name inside a job directory.
const FileName = "manifest.json"

// StageStatus is one row of the persisted per-job status table.
type StageStatus struct {
	Name        string     `json:"name"`
	State       State      `json:"state"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationSec float64    `json:"duration_seconds,omitempty"`
	Error       string     `json:"error,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

// Manifest is the persisted status table for one job. The orchestrator owns
// it exclusively; all cross-stage state flows through it or the glossary
// snapshot, never through in-process globals.
type Manifest struct {
	JobID        string        `json:"job_id"`
	WorkflowKind string        `json:"workflow_kind"`
	Source       string        `json:"source"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Stages       []StageStatus `json:"stages"`

	path string
}

// ErrUnknownStage is returned when a stage name is not present in the table.
var ErrUnknownStage = errors.New("stage not present in manifest")

// Create seeds a manifest with every registry stage in pending state and
// persists it to the job directory.
func Create(jobID, workflowKind, source, jobDir string, registry *pipeline.Registry) (*Manifest, error) {
	now := time.Now().UTC()
	stages := registry.Stages()
	m := &Manifest{
		JobID:        jobID,
		WorkflowKind: workflowKind,
		Source:       source,
		CreatedAt:    now,
		UpdatedAt:    now,
		Stages:       make([]StageStatus, 0, len(stages)),
		path:         filepath.Join(jobDir, FileName),
	}
	for _, def := range stages {
		m.Stages = append(m.Stages, StageStatus{Name: def.Name, State: StatePending})
	}
	if err := m.Save(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads an existing manifest from a job directory. A missing file is
// reported via fs.ErrNotExist so callers can fall back to Create.
func Load(jobDir string) (*Manifest, error) {
	path := filepath.Join(jobDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.path = path
	return &m, nil
}

// Save persists the manifest atomically (write-to-temp, then rename) so a
// crash mid-write cannot leave a torn record.
func (m *Manifest) Save() error {
	m.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := fileutil.WriteFileAtomic(m.path, data, 0o644); err != nil {
		return fmt.Errorf("persist manifest: %w", err)
	}
	return nil
}

// Verify re-checks the table against the filesystem before a resume. A
// completed stage whose declared outputs are missing reverts to pending so
// resume stays idempotent under partial disk loss; a stage still marked
// running was interrupted mid-flight and reverts as well. Returns the names
// of reset stages.
func (m *Manifest) Verify(registry *pipeline.Registry, jobDir string) ([]string, error) {
	var reset []string
	for i := range m.Stages {
		entry := &m.Stages[i]
		if entry.State == StateRunning {
			entry.State = StatePending
			entry.StartedAt = nil
			entry.Reason = "interrupted before completion"
			reset = append(reset, entry.Name)
			continue
		}
		if entry.State != StateCompleted {
			continue
		}
		def, ok := registry.Definition(entry.Name)
		if !ok {
			continue
		}
		dir, _ := registry.StageDir(entry.Name)
		for _, artifact := range def.Outputs {
			if fileutil.FileExists(filepath.Join(jobDir, dir, artifact)) {
				continue
			}
			entry.State = StatePending
			entry.StartedAt = nil
			entry.CompletedAt = nil
			entry.DurationSec = 0
			entry.Reason = fmt.Sprintf("output %s missing on resume", artifact)
			reset = append(reset, entry.Name)
			break
		}
	}
	if len(reset) > 0 {
		if err := m.Save(); err != nil {
			return reset, err
		}
	}
	return reset, nil
}

// MarkRunning transitions a pending (or reset) stage to running.
func (m *Manifest) MarkRunning(name string) error {
	entry, err := m.entry(name)
	if err != nil {
		return err
	}
	if entry.State != StatePending {
		return fmt.Errorf("stage %s: illegal transition %s -> %s", name, entry.State, StateRunning)
	}
	now := time.Now().UTC()
	entry.State = StateRunning
	entry.StartedAt = &now
	entry.Error = ""
	entry.Reason = ""
	return m.Save()
}

// MarkCompleted transitions a running stage to completed and records its
// duration.
func (m *Manifest) MarkCompleted(name string, duration time.Duration) error {
	entry, err := m.entry(name)
	if err != nil {
		return err
	}
	if entry.State != StateRunning {
		return fmt.Errorf("stage %s: illegal transition %s -> %s", name, entry.State, StateCompleted)
	}
	now := time.Now().UTC()
	entry.State = StateCompleted
	entry.CompletedAt = &now
	entry.DurationSec = duration.Seconds()
	return m.Save()
}

// MarkFailed transitions a running stage to failed with the classified error
// message.
func (m *Manifest) MarkFailed(name, message string) error {
	entry, err := m.entry(name)
	if err != nil {
		return err
	}
	if entry.State != StateRunning {
		return fmt.Errorf("stage %s: illegal transition %s -> %s", name, entry.State, StateFailed)
	}
	now := time.Now().UTC()
	entry.State = StateFailed
	entry.CompletedAt = &now
	entry.Error = message
	return m.Save()
}

// MarkSkipped records that a stage was bypassed (disabled, upstream fatal
// failure, or a tolerated skippable failure).
func (m *Manifest) MarkSkipped(name, reason string) error {
	entry, err := m.entry(name)
	if err != nil {
		return err
	}
	if entry.State == StateCompleted || entry.State == StateFailed {
		return fmt.Errorf("stage %s: illegal transition %s -> %s", name, entry.State, StateSkipped)
	}
	entry.State = StateSkipped
	entry.Reason = reason
	return m.Save()
}

// IsComplete reports whether a stage finished successfully.
func (m *Manifest) IsComplete(name string) bool {
	entry, err := m.entry(name)
	return err == nil && entry.State == StateCompleted
}

// StateOf returns the recorded state for a stage.
func (m *Manifest) StateOf(name string) (State, bool) {
	entry, err := m.entry(name)
	if err != nil {
		return "", false
	}
	return entry.State, true
}

// Ran reports whether a stage executed to completion; the resolver uses this
// to look through optional stages that were skipped.
func (m *Manifest) Ran(name string) bool {
	return m.IsComplete(name)
}

func (m *Manifest) entry(name string) (*StageStatus, error) {
	for i := range m.Stages {
		if m.Stages[i].Name == name {
			return &m.Stages[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownStage, name)
}
