package glossary_test

import (
	"context"
	"path/filepath"
	"testing"

	"transmux/internal/glossary"
)

func openLearned(t *testing.T) *glossary.LearnedStore {
	t.Helper()
	store, err := glossary.OpenLearnedStore(filepath.Join(t.TempDir(), "learned.db"))
	if err != nil {
		t.Fatalf("OpenLearnedStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestTrackUsageAccumulates(t *testing.T) {
	store := openLearned(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.TrackUsage(ctx, "Bombay", "mumbai", true); err != nil {
			t.Fatalf("TrackUsage: %v", err)
		}
	}
	if err := store.TrackUsage(ctx, "bombay", "bombaim", false); err != nil {
		t.Fatalf("TrackUsage: %v", err)
	}

	all, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d rows, want 2", len(all))
	}
	// Deterministic ordering: success count first.
	if all[0].Candidate != "mumbai" || all[0].Count != 3 || all[0].SuccessCount != 3 {
		t.Fatalf("unexpected top row %+v", all[0])
	}
	if all[1].Candidate != "bombaim" || all[1].SuccessCount != 0 {
		t.Fatalf("unexpected second row %+v", all[1])
	}
}

func TestBestPicksStrongestCandidatePerTerm(t *testing.T) {
	store := openLearned(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := store.TrackUsage(ctx, "gateway", "puerta", true); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.TrackUsage(ctx, "gateway", "portal", true); err != nil {
		t.Fatal(err)
	}
	if err := store.TrackUsage(ctx, "harbor", "puerto", false); err != nil {
		t.Fatal(err)
	}

	best, err := store.Best(ctx)
	if err != nil {
		t.Fatalf("Best: %v", err)
	}
	if best["gateway"].Candidate != "puerta" {
		t.Fatalf("best candidate %+v", best["gateway"])
	}
	if best["harbor"].Candidate != "puerto" {
		t.Fatalf("best candidate %+v", best["harbor"])
	}
}

func TestLearnedSourceCarriesSampleWeight(t *testing.T) {
	store := openLearned(t)
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		if err := store.TrackUsage(ctx, "bombay", "mumbai", true); err != nil {
			t.Fatal(err)
		}
	}

	terms, err := glossary.NewLearnedSource(store).Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	term, ok := terms["bombay"]
	if !ok || term.Tier != glossary.TierLearned {
		t.Fatalf("missing learned term: %+v ok=%v", term, ok)
	}
	if term.Weight != 6 {
		t.Fatalf("weight %v, want 6", term.Weight)
	}
}

func TestTrackUsageIgnoresEmptyInputs(t *testing.T) {
	store := openLearned(t)
	ctx := context.Background()
	if err := store.TrackUsage(ctx, "  ", "mumbai", true); err != nil {
		t.Fatal(err)
	}
	if err := store.TrackUsage(ctx, "bombay", "", true); err != nil {
		t.Fatal(err)
	}
	all, err := store.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("empty inputs must not create rows, got %d", len(all))
	}
}
