package similarity

import (
	"strings"
	"unicode"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// NormalizeText lowercases s, trims it and collapses runs of whitespace.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// fullProcess keeps only letters and digits, lowercased, separated by
// single spaces.
func fullProcess(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// Ratio is the InDel similarity of two normalized strings, counted in
// characters.
func Ratio(a, b string) int {
	return fuzzy.Ratio(NormalizeText(a), NormalizeText(b))
}

// PartialRatio is the best Ratio of the shorter normalized string against
// an equally long window of the longer one.
func PartialRatio(a, b string) int {
	a, b = NormalizeText(a), NormalizeText(b)
	if a == "" || b == "" {
		return 0
	}
	return fuzzy.PartialRatio(a, b)
}

// TokenSortRatio compares the strings after sorting their words.
func TokenSortRatio(a, b string) int {
	return fuzzy.TokenSortRatio(fullProcess(a), fullProcess(b))
}

// TokenSetRatio compares the shared words of both strings against each
// string's shared-plus-remaining words and returns the best Ratio.
func TokenSetRatio(a, b string) int {
	return fuzzy.TokenSetRatio(fullProcess(a), fullProcess(b))
}

// WRatio combines the other metrics, weighting partial comparisons down
// as the length difference between the strings grows. Non-ASCII letters
// take part in the comparison.
func WRatio(a, b string) int {
	pa, pb := fullProcess(a), fullProcess(b)
	if pa == "" || pb == "" {
		return 0
	}
	return fuzzy.UWRatio(pa, pb)
}

// TextSimilarity is the mean of Ratio, PartialRatio, TokenSortRatio,
// TokenSetRatio and WRatio, in [0,100]. Equal non-blank names score 100
// even when they hold no letters or digits.
func TextSimilarity(a, b string) float64 {
	a, b = NormalizeText(a), NormalizeText(b)
	if a != "" && a == b {
		return 100
	}
	sum := Ratio(a, b) +
		PartialRatio(a, b) +
		TokenSortRatio(a, b) +
		TokenSetRatio(a, b) +
		WRatio(a, b)
	return float64(sum) / 5
}
