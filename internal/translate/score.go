package translate

import (
	"strings"
	"unicode"
)

// Composite score weights. The four signals are each in [0, 1] and the
// weights sum to 1; an empty candidate zeroes every signal, so it lands at 0
// without a special gate.
const (
	weightNonEmpty    = 0.10
	weightLengthRatio = 0.40
	weightRepetition  = 0.35
	weightVariety     = 0.15

	lengthRatioMin = 0.30
	lengthRatioMax = 3.00
)

// Signals is the per-signal breakdown behind one composite score. It rides
// along with every candidate so the translation artifacts record why a
// segment scored the way it did.
type Signals struct {
	NonEmpty    float64 `json:"non_empty"`
	LengthRatio float64 `json:"length_ratio"`
	Repetition  float64 `json:"repetition"`
	Variety     float64 `json:"variety"`
}

// ScoreCandidate estimates translation quality in [0, 1] and returns the
// signal breakdown. No ground truth exists at runtime, so the score is a
// composite of cheap structural signals; it gates fallback routing, not
// acceptance.
func ScoreCandidate(source, candidate string) (float64, Signals) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return 0, Signals{}
	}
	signals := Signals{
		NonEmpty:    1,
		LengthRatio: lengthRatioScore(source, candidate),
		Repetition:  repetitionScore(candidate),
		Variety:     varietyScore(candidate),
	}
	composite := weightNonEmpty*signals.NonEmpty +
		weightLengthRatio*signals.LengthRatio +
		weightRepetition*signals.Repetition +
		weightVariety*signals.Variety
	return composite, signals
}

// lengthRatioScore rewards candidates whose length lands inside the plausible
// band relative to the source. Subtitle translations rarely shrink below 30%
// or grow past 300% of the original; outside the band the penalty grows with
// the square of the distance.
func lengthRatioScore(source, candidate string) float64 {
	srcLen := len([]rune(strings.TrimSpace(source)))
	if srcLen == 0 {
		return 1
	}
	ratio := float64(len([]rune(candidate))) / float64(srcLen)
	switch {
	case ratio >= lengthRatioMin && ratio <= lengthRatioMax:
		return 1
	case ratio < lengthRatioMin:
		frac := ratio / lengthRatioMin
		return frac * frac
	default:
		frac := lengthRatioMax / ratio
		return frac * frac
	}
}

// repetitionScore is one minus the fraction of tokens that belong to a token
// occurring more than twice, so degenerate loops where one token dominates
// the output score near zero while ordinary article repetition barely
// registers.
func repetitionScore(candidate string) float64 {
	tokens := strings.Fields(strings.ToLower(candidate))
	if len(tokens) == 0 {
		return 0
	}
	counts := make(map[string]int, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	repeated := 0
	for _, count := range counts {
		if count > 2 {
			repeated += count
		}
	}
	return 1 - float64(repeated)/float64(len(tokens))
}

// varietyScore checks that the candidate contains letters at all; a candidate
// made of punctuation or digits only is suspect.
func varietyScore(candidate string) float64 {
	letters := 0
	total := 0
	for _, r := range candidate {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if total == 0 {
		return 0
	}
	frac := float64(letters) / float64(total)
	if frac >= 0.5 {
		return 1
	}
	return frac * 2
}
