package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"transmux/internal/services"
)

// Normalize canonicalizes a language identifier to its ISO 639-1 base code.
// It accepts anything BCP 47 understands ("es", "spa", "es-MX", "Spanish" is
// not BCP 47 and is rejected).
func Normalize(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", services.Wrap(services.ErrValidation, "", "normalize language", "empty language code", nil)
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "", "normalize language",
			fmt.Sprintf("unrecognized language code %q", code), err)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// DisplayName returns the English name for a language code, or the code
// itself when it cannot be parsed. Used in logs and status output only.
func DisplayName(code string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

// ValidatePair checks a source/target pair: both must parse and they must
// differ after normalization.
func ValidatePair(source, target string) error {
	src, err := Normalize(source)
	if err != nil {
		return err
	}
	dst, err := Normalize(target)
	if err != nil {
		return err
	}
	if src == dst {
		return services.Wrap(services.ErrValidation, "", "validate language pair",
			fmt.Sprintf("source and target are both %q", src), nil)
	}
	return nil
}
