package matching

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "ABC Pharmacy", "ABC Pharmacy", 100},
		{"case insensitive", "ABC Pharmacy", "abc PHARMACY", 100},
		{"one substitution", "ABC Pharmacy", "ABD Pharmacy", 92},
		{"nothing in common", "abc", "xyz", 0},
		{"empty against text", "", "abc", 0},
		{"both empty", "", "", 100},
		{"insertion", "Dis-Chem", "Dis-Chem 1", 80},
		{"unicode normalisation", "Caf\u00e9 Pharmacy", "Cafe\u0301 Pharmacy", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Ratio(tt.a, tt.b))
		})
	}
}

func TestRatioIsSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Clicks Pharmacy Sandton", "Clicks Sandton"},
		{"Medirite", "MEDIRITE PHARMACY"},
		{"XYZ Chemist", "None"},
	}
	for _, p := range pairs {
		assert.Equal(t, Ratio(p[0], p[1]), Ratio(p[1], p[0]), "%q vs %q", p[0], p[1])
	}
}

func TestRatioNeverReportsFullScoreForDifferentNames(t *testing.T) {
	long := strings.Repeat("a", 300)
	score := Ratio(long, long[:299]+"b")

	assert.Equal(t, 99, score)
}

func TestRatioBounds(t *testing.T) {
	inputs := []string{"", "a", "Pharmacy", "ZZZZZZZZZZZZZZZZZZZZ", "Ünïcödé Apteek", "None"}
	for _, a := range inputs {
		for _, b := range inputs {
			score := Ratio(a, b)
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
			if Fold(a) != Fold(b) {
				assert.Less(t, score, 100, "%q vs %q", a, b)
			}
		}
	}
}
