// Package fuzzy scores string similarity for matching free-text values
// against stored database values.
//
// The scorer is a token-set ratio on a 0-100 scale: identical token sets
// score 100, disjoint sets score 0, and partial overlap interpolates. Token
// order and duplicates are ignored, which makes the score stable against the
// word-shuffling LLMs tend to produce.
package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold removes accents and diacritics: "São Paulo" -> "Sao Paulo".
func Fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeToken lowercases, folds accents, collapses whitespace and hyphens
// to underscores, and strips everything that is not alphanumeric or
// underscore. "Credit Card" and "credit_card" normalize identically.
func NormalizeToken(s string) string {
	s = strings.ToLower(Fold(s))
	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r) || r == '-':
			pendingSep = true
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Initials returns the uppercase first letters of each word, Unicode-aware:
// "São Paulo" -> "SP". Non-letter runes act as word separators.
func Initials(s string) string {
	var b strings.Builder
	inWord := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !inWord {
				b.WriteRune(unicode.ToUpper(r))
				inWord = true
			}
		} else {
			inWord = false
		}
	}
	return Fold(b.String())
}

// HasLetter reports whether the string contains any alphabetic character in
// any script. Predicates without letters (pure numbers, operators) are not
// candidates for fuzzy matching.
func HasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		set[tok] = struct{}{}
	}
	return set
}

// TokenSetRatio scores two strings 0-100 by token-set overlap.
func TokenSetRatio(a, b string) int {
	sa, sb := tokenSet(a), tokenSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		if len(sa) == 0 && len(sb) == 0 {
			return 100
		}
		return 0
	}
	common := 0
	for tok := range sa {
		if _, ok := sb[tok]; ok {
			common++
		}
	}
	union := len(sa) + len(sb) - common
	return (200*common + union) / (2 * union) // rounded 100*common/union
}

// BestMatch returns the choice with the highest TokenSetRatio against value,
// along with its score. An empty choice list scores 0 and returns the value
// unchanged.
func BestMatch(value string, choices []string) (string, int) {
	best, bestScore := value, 0
	for _, c := range choices {
		if score := TokenSetRatio(value, c); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, bestScore
}
