package query

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	minYear = 1870
	maxYear = 2100
)

var (
	trailingYearPattern    = regexp.MustCompile(`\s*[\(\[]\s*(\d{4})\s*[\)\]]\s*$`)
	trailingArticlePattern = regexp.MustCompile(`(?i),\s*(the|a|an)\s*$`)
	whitespacePattern      = regexp.MustCompile(`\s+`)

	punctuationReplacer = strings.NewReplacer(
		"‘", "'", "’", "'", "ʼ", "'", "`", "'",
		"“", `"`, "”", `"`,
		"‐", "-", "‑", "-", "–", "-", "—", "-",
		"&", " and ", "+", " and ",
	)
)

// leadingArticles is the fixed stoplist removed from the front of titles.
var leadingArticles = map[string]struct{}{
	"the": {},
	"a":   {},
	"an":  {},
}

// Normalize canonicalizes a title (and optional year) into a lookup query.
//
// Diacritics are folded, a trailing "(YYYY)" becomes the year when none is
// supplied, library-sort suffixes such as ", The" are dropped, punctuation is
// stripped except apostrophes and hyphens inside words, and leading articles
// are removed while something else remains.
func Normalize(title string, year *int, kind Kind) NormalizedQuery {
	q := NormalizedQuery{Kind: kind}
	if year != nil {
		y := *year
		q.Year = &y
	}

	working := strings.ToLower(foldDiacritics(strings.TrimSpace(title)))
	working = punctuationReplacer.Replace(working)

	if match := trailingYearPattern.FindStringSubmatch(working); match != nil {
		working = working[:len(working)-len(match[0])]
		if q.Year == nil {
			if parsed, err := strconv.Atoi(match[1]); err == nil && parsed >= minYear && parsed <= maxYear {
				q.Year = &parsed
			}
		}
	}
	working = trailingArticlePattern.ReplaceAllString(working, "")

	working = stripPunctuation(working)
	working = strings.TrimSpace(whitespacePattern.ReplaceAllString(working, " "))
	working = dropLeadingArticles(working)

	if working == "" {
		working = strings.ToLower(strings.TrimSpace(title))
	}
	q.CanonicalTitle = working
	return q
}

// CleanTitle applies the title rules of Normalize without touching the year.
// Candidate titles from external services are compared in this form.
func CleanTitle(title string) string {
	return Normalize(title, nil, "").CanonicalTitle
}

// ExtractYear returns the trailing "(YYYY)" of a title when present.
func ExtractYear(title string) (*int, bool) {
	match := trailingYearPattern.FindStringSubmatch(strings.TrimSpace(title))
	if match == nil {
		return nil, false
	}
	parsed, err := strconv.Atoi(match[1])
	if err != nil || parsed < minYear || parsed > maxYear {
		return nil, false
	}
	return &parsed, true
}

func foldDiacritics(value string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return folded
}

// stripPunctuation keeps letters, digits, and spaces. Apostrophes and hyphens
// survive only when both neighbours are letters or digits.
func stripPunctuation(value string) string {
	rs := []rune(value)
	var b strings.Builder
	b.Grow(len(value))
	for i, r := range rs {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '-':
			if i > 0 && i < len(rs)-1 && isWordRune(rs[i-1]) && isWordRune(rs[i+1]) {
				b.WriteRune(r)
			} else if r == '-' {
				b.WriteByte(' ')
			}
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func dropLeadingArticles(value string) string {
	words := strings.Fields(value)
	for len(words) > 1 {
		if _, ok := leadingArticles[words[0]]; !ok {
			break
		}
		words = words[1:]
	}
	return strings.Join(words, " ")
}
