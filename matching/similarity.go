// Package matching scores how closely a submitted pharmacy name resembles a
// register entry.
package matching

import (
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// MaxScore is the score of two names that are equal once case-folded
const MaxScore = 100

var lower = cases.Lower(language.Und)

// Fold normalises a name to NFC and lower case so that visually identical
// names compare equal
func Fold(s string) string {
	return lower.String(norm.NFC.String(s))
}

// Ratio returns a similarity score in [0,100] between two names, based on
// the rune-level Levenshtein distance normalised by the longer name:
//
//	round(100 * (1 - distance/max(len(a), len(b))))
//
// Names are folded first. Two empty names score 100; any non-zero distance
// scores at most 99, so 100 means the folded names are identical.
func Ratio(a, b string) int {
	a, b = Fold(a), Fold(b)
	if a == b {
		return MaxScore
	}

	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	distance := levenshtein.ComputeDistance(a, b)

	score := int(math.Round(MaxScore * (1 - float64(distance)/float64(longest))))
	return min(max(score, 0), MaxScore-1)
}
