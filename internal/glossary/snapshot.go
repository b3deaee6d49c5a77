package glossary

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"transmux/internal/fileutil"
)

// ResolvedTerm is one winning mapping inside a snapshot, with provenance.
type ResolvedTerm struct {
	Translation string   `json:"translation"`
	Tier        Tier     `json:"tier"`
	Aliases     []string `json:"aliases,omitempty"`
}

// Snapshot is the job-scoped merged term mapping. It is immutable once
// built: translation branches within a job share it read-only.
type Snapshot struct {
	JobID     string                  `json:"job_id"`
	CreatedAt time.Time               `json:"created_at"`
	Terms     map[string]ResolvedTerm `json:"terms"`
}

// GetTerm looks up the winning mapping for source text.
func (s *Snapshot) GetTerm(text string) (ResolvedTerm, bool) {
	if s == nil {
		return ResolvedTerm{}, false
	}
	term, ok := s.Terms[normalizeKey(text)]
	return term, ok
}

// Len reports the number of resolved terms.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Terms)
}

// WriteFile persists the snapshot as inspectable JSON for debugging and
// external monitoring. The write is atomic.
func (s *Snapshot) WriteFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal glossary snapshot: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("persist glossary snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a persisted snapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glossary snapshot: %w", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parse glossary snapshot: %w", err)
	}
	return &snapshot, nil
}
