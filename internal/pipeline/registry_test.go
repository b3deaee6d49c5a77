package pipeline_test

import (
	"errors"
	"testing"

	"transmux/internal/pipeline"
	"transmux/internal/services"
)

func TestDefaultRegistryOrdinalsAreTotal(t *testing.T) {
	registry, err := pipeline.DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}

	seenDirs := make(map[string]struct{})
	prev := 0
	for _, def := range registry.Stages() {
		ordinal, ok := registry.Ordinal(def.Name)
		if !ok {
			t.Fatalf("no ordinal for %q", def.Name)
		}
		if ordinal != prev+1 {
			t.Fatalf("ordinal for %q = %d, want %d (strictly increasing, contiguous)", def.Name, ordinal, prev+1)
		}
		prev = ordinal

		dir, ok := registry.StageDir(def.Name)
		if !ok {
			t.Fatalf("no stage dir for %q", def.Name)
		}
		if _, dup := seenDirs[dir]; dup {
			t.Fatalf("stage dir %q not unique", dir)
		}
		seenDirs[dir] = struct{}{}
	}
}

func TestStageDirFormat(t *testing.T) {
	registry, err := pipeline.DefaultRegistry()
	if err != nil {
		t.Fatal(err)
	}
	dir, ok := registry.StageDir(pipeline.StageExtract)
	if !ok || dir != "01_extract" {
		t.Fatalf("StageDir(extract) = %q, %v", dir, ok)
	}
	dir, ok = registry.StageDir(pipeline.StageTranslate)
	if !ok || dir != "06_translate" {
		t.Fatalf("StageDir(translate) = %q, %v", dir, ok)
	}
}

func TestAliasesShareOrdinalAndDirectory(t *testing.T) {
	registry, err := pipeline.DefaultRegistry()
	if err != nil {
		t.Fatal(err)
	}
	canonicalOrdinal, _ := registry.Ordinal(pipeline.StageTranslate)
	canonicalDir, _ := registry.StageDir(pipeline.StageTranslate)

	for _, alias := range []string{"translate_batch", "translate_llm"} {
		canonical, ok := registry.Canonical(alias)
		if !ok || canonical != pipeline.StageTranslate {
			t.Fatalf("Canonical(%q) = %q, %v", alias, canonical, ok)
		}
		if ordinal, _ := registry.Ordinal(alias); ordinal != canonicalOrdinal {
			t.Fatalf("alias %q ordinal %d != canonical %d", alias, ordinal, canonicalOrdinal)
		}
		if dir, _ := registry.StageDir(alias); dir != canonicalDir {
			t.Fatalf("alias %q dir %q != canonical %q", alias, dir, canonicalDir)
		}
	}
}

func TestNewRegistryRejectsDuplicatesAndCollisions(t *testing.T) {
	cases := []struct {
		name string
		defs []pipeline.StageDefinition
	}{
		{
			"duplicate stage name",
			[]pipeline.StageDefinition{
				{Name: "extract", RuntimeProfile: "media"},
				{Name: "extract", RuntimeProfile: "media"},
			},
		},
		{
			"alias collides with stage",
			[]pipeline.StageDefinition{
				{Name: "extract", RuntimeProfile: "media"},
				{Name: "translate", RuntimeProfile: "native", Aliases: []string{"extract"}},
			},
		},
		{
			"empty list",
			nil,
		},
		{
			"unnamed stage",
			[]pipeline.StageDefinition{{Name: "  "}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := pipeline.NewRegistry(tc.defs)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, services.ErrConfigInvalid) {
				t.Fatalf("expected config-invalid marker, got %v", err)
			}
		})
	}
}

func TestDefaultPolicyIsFatal(t *testing.T) {
	registry, err := pipeline.NewRegistry([]pipeline.StageDefinition{
		{Name: "extract", RuntimeProfile: "media", Outputs: []string{"audio.wav"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	def, _ := registry.Definition("extract")
	if def.Policy != pipeline.PolicyFatal {
		t.Fatalf("expected fatal default policy, got %q", def.Policy)
	}
}
