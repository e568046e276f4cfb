package matching

import (
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Scorer rates the similarity of two normalized strings in [0, 1].
type Scorer func(a, b string) float64

// legalSuffixes are dropped from the tail of payer names so "Acme Corp"
// and "ACME Corporation" normalize to the same key.
var legalSuffixes = map[string]struct{}{
	"co":           {},
	"corp":         {},
	"corporation":  {},
	"company":      {},
	"inc":          {},
	"incorporated": {},
	"llc":          {},
	"llp":          {},
	"ltd":          {},
	"limited":      {},
	"gmbh":         {},
	"plc":          {},
	"sa":           {},
}

// NormalizeReference lowercases a payment reference and strips spaces
// and hyphens, the separators bank statements most often mangle.
func NormalizeReference(ref string) string {
	var b strings.Builder
	b.Grow(len(ref))
	for _, r := range strings.ToLower(strings.TrimSpace(ref)) {
		if r == ' ' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizePayerName lowercases a payer name, replaces punctuation with
// spaces, collapses whitespace and drops trailing legal suffixes.
func NormalizePayerName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	for len(fields) > 1 {
		if _, ok := legalSuffixes[fields[len(fields)-1]]; !ok {
			break
		}
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// LevenshteinScorer scores two normalized strings. Equality and
// containment count as a full match; otherwise the score is the
// edit distance scaled by the longer string's length.
func LevenshteinScorer(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 1
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	dist := levenshtein.DistanceForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	return 1 - float64(dist)/float64(maxLen)
}
