package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnitSimilarityPercent(t *testing.T) {
	tests := map[string]struct {
		a    string
		b    string
		want float64
	}{
		"identical":       {a: "bicikli", b: "bicikli", want: 100},
		"both empty":      {a: "", b: "", want: 0},
		"one empty":       {a: "bicikli", b: "", want: 0},
		"nothing shared":  {a: "abc", b: "xyz", want: 0},
		"exactly eighty":  {a: "aaaa", b: "aaaaaa", want: 80},
		"above threshold": {a: "aaaaa", b: "aaaaaa", want: 1000.0 / 11.0},
		"typo":            {a: "bicikli", b: "biciklo", want: 600.0 / 7.0},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := similarityPercent(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 0.001, "similarity of %q and %q", tt.a, tt.b)
			assert.InDelta(t, tt.want, similarityPercent(tt.b, tt.a), 0.001, "score should be symmetric")
		})
	}
}

func TestUnitSimilarityPercentUnicode(t *testing.T) {
	got := similarityPercent("kotači", "kotaci")

	// Five of six runes shared on each side.
	assert.InDelta(t, 1000.0/12.0, got, 0.001, "should score runes, not bytes")
}
