package service

import (
	"math"
	"testing"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name           string
		candidate      string
		reference      string
		wantDistance   int
		wantSimilarity float64
	}{
		{name: "identical", candidate: "abc", reference: "abc", wantDistance: 0, wantSimilarity: 100},
		{name: "both empty", candidate: "", reference: "", wantDistance: 0, wantSimilarity: 100},
		{name: "kitten sitting", candidate: "kitten", reference: "sitting", wantDistance: 3, wantSimilarity: 100 * 2 * 4 / 13.0},
		{name: "line feed ignored", candidate: "a\nb", reference: "ab", wantDistance: 0, wantSimilarity: 100},
		{name: "crlf ignored", candidate: "a\r\nb\r\n", reference: "\nab", wantDistance: 0, wantSimilarity: 100},
		{name: "one empty", candidate: "abc", reference: "", wantDistance: 3, wantSimilarity: 0},
		{name: "block matching", candidate: "abcd", reference: "bcde", wantDistance: 2, wantSimilarity: 75},
		{name: "multibyte", candidate: "こんにちは", reference: "こんにちわ", wantDistance: 1, wantSimilarity: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.candidate, tt.reference)
			if got.EditDistance != tt.wantDistance {
				t.Errorf("edit distance: expected %d, got %d", tt.wantDistance, got.EditDistance)
			}
			if math.Abs(got.SimilarityPercent-tt.wantSimilarity) > 1e-9 {
				t.Errorf("similarity: expected %.4f, got %.4f", tt.wantSimilarity, got.SimilarityPercent)
			}
			if got.SimilarityPercent < 0 || got.SimilarityPercent > 100 {
				t.Errorf("similarity out of range: %f", got.SimilarityPercent)
			}
		})
	}
}

func TestScoreJaroWinkler(t *testing.T) {
	if got := Score("", "").JaroWinkler; got != 1 {
		t.Errorf("expected 1 for two empty strings, got %f", got)
	}
	if got := Score("abc", "abc").JaroWinkler; got != 1 {
		t.Errorf("expected 1 for identical strings, got %f", got)
	}
	if got := Score("abc", "").JaroWinkler; got != 0 {
		t.Errorf("expected 0 against empty reference, got %f", got)
	}
	if got := Score("martha", "marhta").JaroWinkler; got <= 0.9 || got >= 1 {
		t.Errorf("expected high but imperfect similarity, got %f", got)
	}
}
