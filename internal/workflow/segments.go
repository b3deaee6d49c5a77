package workflow

import (
	"encoding/json"
	"fmt"
	"os"

	"transmux/internal/services"
	"transmux/internal/translate"
)

// Segment is one time-aligned transcript line as produced by the alignment
// stage.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type alignedFile struct {
	Segments []Segment `json:"segments"`
}

// ReadAligned parses the alignment stage's output artifact.
func ReadAligned(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrMissingArtifact, "translate", "read aligned",
			fmt.Sprintf("aligned transcript %s", path), err)
	}
	var parsed alignedFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, services.Wrap(services.ErrValidation, "translate", "read aligned",
			fmt.Sprintf("aligned transcript %s is not valid JSON", path), err)
	}
	return parsed.Segments, nil
}

// TranslatedSegment is one translated line with routing provenance: which
// engine produced it, its composite score, and the per-signal breakdown
// behind that score.
type TranslatedSegment struct {
	Start   float64           `json:"start"`
	End     float64           `json:"end"`
	Source  string            `json:"source"`
	Text    string            `json:"text"`
	Engine  string            `json:"engine"`
	Score   float64           `json:"score"`
	Signals translate.Signals `json:"signals"`
}

// translationsFile is the per-language translation artifact.
type translationsFile struct {
	JobID      string              `json:"job_id"`
	SourceLang string              `json:"source_lang"`
	TargetLang string              `json:"target_lang"`
	Segments   []TranslatedSegment `json:"segments"`
}

// translationsIndex is the stage's primary artifact: one entry per target
// language pointing at its translation file.
type translationsIndex struct {
	JobID      string            `json:"job_id"`
	SourceLang string            `json:"source_lang"`
	Targets    []string          `json:"targets"`
	Files      map[string]string `json:"files"`
}
