package subtitle

import (
	"fmt"
	"strings"
	"time"

	"transmux/internal/fileutil"
)

// Cue is one subtitle entry.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// FormatSRT renders cues as SubRip text. Cue numbering is 1-based in input
// order; callers sort by start time before rendering.
func FormatSRT(cues []Cue) string {
	var b strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1,
			formatTimestamp(cue.Start),
			formatTimestamp(cue.End),
			strings.TrimSpace(cue.Text),
		)
	}
	return b.String()
}

// WriteFile renders cues and writes them atomically.
func WriteFile(path string, cues []Cue) error {
	return fileutil.WriteFileAtomic(path, []byte(FormatSRT(cues)), 0o644)
}

// formatTimestamp renders a duration as the SubRip HH:MM:SS,mmm form.
func formatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
