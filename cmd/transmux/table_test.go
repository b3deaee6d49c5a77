package main

import (
	"strings"
	"testing"

	"transmux/internal/glossary"
	"transmux/internal/manifest"
)

func TestFormatStageDuration(t *testing.T) {
	if got := formatStageDuration(0); got != "-" {
		t.Fatalf("zero duration rendered %q, want dash", got)
	}
	if got := formatStageDuration(1.5); got != "1.5s" {
		t.Fatalf("duration rendered %q, want 1.5s", got)
	}
}

func TestStageTablePrefersErrorOverReason(t *testing.T) {
	out := stageTable([]manifest.StageStatus{
		{Name: "transcribe", State: manifest.StateFailed, Error: "tool exited 1", Reason: "stale reason"},
		{Name: "mux", State: manifest.StatePending},
	})
	if !strings.Contains(out, "tool exited 1") {
		t.Fatalf("error detail missing from table:\n%s", out)
	}
	if strings.Contains(out, "stale reason") {
		t.Fatalf("error must override the skip reason:\n%s", out)
	}
}

func TestLearnedTableRendersCounters(t *testing.T) {
	out := learnedTable([]glossary.LearnedTerm{
		{Term: "bombay", Candidate: "mumbai", Count: 12, SuccessCount: 9},
	})
	for _, want := range []string{"bombay", "mumbai", "12", "9"} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered table missing %q:\n%s", want, out)
		}
	}
}
