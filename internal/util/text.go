package util

import (
	"regexp"
	"strings"
)

var (
	reNonAllowed = regexp.MustCompile(`[^A-Z0-9\s]`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// NormalizeText folds a name or extracted text into the canonical comparison
// form: upper-case, punctuation stripped, whitespace collapsed. Matching and
// indexing always operate on this form, never on raw text.
func NormalizeText(input string) string {
	s := strings.ToUpper(input)
	repl := strings.NewReplacer("&", " AND ", "#", " NO ", " ", " ")
	s = repl.Replace(s)
	s = reNonAllowed.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokenize splits normalized text into comparison tokens. Single-character
// fragments are dropped; they match everything and score nothing.
func Tokenize(input string) []string {
	norm := NormalizeText(input)
	parts := strings.Split(norm, " ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) >= 2 {
			out = append(out, p)
		}
	}
	return out
}

// DiceCoefficient computes bigram similarity between two strings in [0,1].
func DiceCoefficient(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	pairs := func(s string) []string {
		r := []rune(s)
		if len(r) < 2 {
			return nil
		}
		out := make([]string, 0, len(r)-1)
		for i := 0; i < len(r)-1; i++ {
			out = append(out, string(r[i:i+2]))
		}
		return out
	}

	aPairs := pairs(a)
	bPairs := pairs(b)
	if len(aPairs) == 0 || len(bPairs) == 0 {
		return 0
	}

	bCount := map[string]int{}
	for _, p := range bPairs {
		bCount[p]++
	}
	inter := 0
	for _, p := range aPairs {
		if bCount[p] > 0 {
			inter++
			bCount[p]--
		}
	}

	return float64(2*inter) / float64(len(aPairs)+len(bPairs))
}

func StringPtr(v string) *string { return &v }

func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }
