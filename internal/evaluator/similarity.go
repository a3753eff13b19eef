package evaluator

import (
	"math"
	"strings"
	"unicode"
)

// MaxSimilarityRunes caps the normalised length of either side of a
// similarity comparison. The edit distance is quadratic in input size.
const MaxSimilarityRunes = 10000

// NormalizeForSimilarity removes all whitespace and lowercases the input.
func NormalizeForSimilarity(code string) string {
	var builder strings.Builder
	builder.Grow(len(code))
	for _, r := range code {
		if unicode.IsSpace(r) {
			continue
		}
		builder.WriteRune(unicode.ToLower(r))
	}
	return builder.String()
}

// Similarity returns the percentage similarity of two code strings after
// normalisation. Two empty inputs are identical; one empty input scores 0.
func Similarity(a, b string) int {
	return similarityOfNormalized([]rune(NormalizeForSimilarity(a)), []rune(NormalizeForSimilarity(b)))
}

func similarityOfNormalized(a, b []rune) int {
	if len(a) == 0 && len(b) == 0 {
		return 100
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	distance := Levenshtein(a, b)
	percent := int(math.Round((1 - float64(distance)/float64(maxLen)) * 100))
	if percent < 0 {
		return 0
	}
	return percent
}

// Levenshtein computes the edit distance between two rune slices using two
// rolling rows.
func Levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	previous := make([]int, len(b)+1)
	current := make([]int, len(b)+1)
	for j := range previous {
		previous[j] = j
	}

	for i := 1; i <= len(a); i++ {
		current[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			current[j] = min3(previous[j]+1, current[j-1]+1, previous[j-1]+cost)
		}
		previous, current = current, previous
	}

	return previous[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
