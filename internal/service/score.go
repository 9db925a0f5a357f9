package service

import (
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/timmy/mojiscan/internal/domain"
)

var lineBreaks = strings.NewReplacer("\r", "", "\n", "")

// Score compares a candidate transcription with a reference text after removing
// every line break from both.
//
// EditDistance is the unit-cost Levenshtein distance over code points.
// SimilarityPercent is the block-matching ratio 2M/T scaled to [0,100], and is
// 100 for two empty strings.
func Score(candidate, reference string) domain.ScoreReport {
	a := lineBreaks.Replace(candidate)
	b := lineBreaks.Replace(reference)

	report := domain.ScoreReport{
		EditDistance:      matchr.Levenshtein(a, b),
		SimilarityPercent: difflib.NewMatcher(runes(a), runes(b)).Ratio() * 100,
	}

	if a == "" && b == "" {
		report.JaroWinkler = 1
	} else {
		report.JaroWinkler = matchr.JaroWinkler(a, b, false)
	}
	return report
}

// runes splits s into one element per code point, so multi-byte characters
// match as single units.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
