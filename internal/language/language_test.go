package language_test

import (
	"errors"
	"testing"

	"transmux/internal/language"
	"transmux/internal/services"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"es", "es", false},
		{"spa", "es", false},
		{"es-MX", "es", false},
		{"EN", "en", false},
		{"", "", true},
		{"not-a-language-code!", "", true},
	}
	for _, tc := range tests {
		got, err := language.Normalize(tc.in)
		if tc.wantErr {
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("Normalize(%q) error = %v, want validation marker", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Normalize(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if name := language.DisplayName("es"); name != "Spanish" {
		t.Fatalf("DisplayName(es) = %q", name)
	}
}

func TestValidatePairRejectsIdenticalLanguages(t *testing.T) {
	if err := language.ValidatePair("en", "eng"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("identical pair must fail validation, got %v", err)
	}
	if err := language.ValidatePair("en", "es"); err != nil {
		t.Fatalf("distinct pair must validate, got %v", err)
	}
}
