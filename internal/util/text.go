package util

import (
	"regexp"
	"strings"
)

var (
	reQuotes     = regexp.MustCompile(`["'` + "`" + `«»“”]`)
	reNonAllowed = regexp.MustCompile(`[^A-Z0-9\-/\s.]`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// NormalizeName upper-cases a product name and strips everything that is not
// a letter, digit, dash, slash or dot so that cosmetic differences between an
// order line and a catalog entry do not defeat matching.
func NormalizeName(input string) string {
	s := strings.ToUpper(input)
	repl := strings.NewReplacer("×", "X", "*", "X", "№", "NO.", "，", " ", "、", " ")
	s = repl.Replace(s)
	s = reQuotes.ReplaceAllString(s, " ")
	s = reNonAllowed.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func NormalizeCode(input string) string {
	s := strings.ToUpper(input)
	s = strings.ReplaceAll(s, " ", "")
	out := strings.Builder{}
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '/' || r == '.' {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func Tokenize(input string) []string {
	norm := NormalizeName(input)
	parts := strings.Split(norm, " ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len([]rune(p)) >= 2 {
			out = append(out, p)
		}
	}
	return out
}

// TokenOverlap returns the fraction of query tokens present in the candidate
// token set. Zero when either side has no tokens.
func TokenOverlap(queryTokens, candidateTokens []string) float64 {
	if len(queryTokens) == 0 || len(candidateTokens) == 0 {
		return 0
	}
	set := map[string]struct{}{}
	for _, t := range candidateTokens {
		set[t] = struct{}{}
	}
	overlap := 0
	for _, t := range queryTokens {
		if _, ok := set[t]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(queryTokens))
}

func LooksLikeCode(input string) bool {
	if len(strings.TrimSpace(input)) < 3 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, r := range input {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			hasLetter = true
		}
		if r >= '0' && r <= '9' {
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }
