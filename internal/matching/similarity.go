package matching

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// NameThreshold and AddressThreshold are strict lower bounds: a candidate
	// must score above both to be merged.
	NameThreshold    = 0.85
	AddressThreshold = 0.80
)

// Normalize folds case, strips accents and collapses whitespace so that
// "Café  Bustelo" and "cafe bustelo" compare equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(cases.Fold().String(out)), " ")
}

// Similarity is an edit-distance ratio in [0,1] between the normalized forms
// of a and b. Two empty strings are identical; one empty string matches
// nothing.
func Similarity(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}
	longest := la
	if lb > longest {
		longest = lb
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// AddressSimilarity is Similarity, except that a missing street on either side
// never counts as a match.
func AddressSimilarity(a, b string) float64 {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return 0
	}
	return Similarity(a, b)
}

// Accept applies both thresholds.
func Accept(nameSim, addrSim float64) bool {
	return nameSim > NameThreshold && addrSim > AddressThreshold
}
