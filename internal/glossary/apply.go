package glossary

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ApplyToText rewrites every glossary hit in text with the snapshot's winning
// translation. Matching is case-insensitive on word boundaries; longer source
// terms win over shorter ones so "new bombay" never degrades into a partial
// "bombay" hit. Replacement preserves leading capitalization of the matched
// span.
func (s *Snapshot) ApplyToText(text string) string {
	if s == nil || len(s.Terms) == 0 || text == "" {
		return text
	}

	keys := make([]string, 0, len(s.Terms))
	for key := range s.Terms {
		keys = append(keys, key)
	}
	// Longest first; lexicographic tiebreak keeps output deterministic.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	lower := strings.ToLower(text)
	var out strings.Builder
	out.Grow(len(text))

	pos := 0
	for pos < len(text) {
		matched := false
		for _, key := range keys {
			end := pos + len(key)
			if end > len(lower) || lower[pos:end] != key {
				continue
			}
			if !boundaryBefore(lower, pos) || !boundaryAfter(lower, end) {
				continue
			}
			out.WriteString(matchCase(text[pos:end], s.Terms[key].Translation))
			pos = end
			matched = true
			break
		}
		if !matched {
			r, size := utf8.DecodeRuneInString(text[pos:])
			out.WriteRune(r)
			pos += size
		}
	}
	return out.String()
}

func boundaryBefore(text string, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(text string, pos int) bool {
	if pos >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[pos:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// matchCase shapes the replacement after the matched span: an uppercase
// first rune in the match capitalizes the replacement's first rune, a
// lowercase one lowercases it, so a capitalized stored translation does not
// leak into lowercase prose.
func matchCase(matched, replacement string) string {
	first, _ := utf8.DecodeRuneInString(matched)
	r, size := utf8.DecodeRuneInString(replacement)
	if r == utf8.RuneError && size <= 1 {
		return replacement
	}
	switch {
	case unicode.IsUpper(first):
		return string(unicode.ToUpper(r)) + replacement[size:]
	case unicode.IsLower(first):
		return string(unicode.ToLower(r)) + replacement[size:]
	default:
		return replacement
	}
}
