package util

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

var (
	rePunct  = regexp.MustCompile("[.,!?;:()\\[\\]{}<>/\\\\\"'`~@#$%^&*_+=|]")
	reSpaces = regexp.MustCompile(`\s+`)
)

// LatinLookalikes maps Latin letters to the Cyrillic letters they visually
// resemble. Normalization applies it to every occurrence regardless of
// context, so genuinely Latin words get corrupted too; pass an empty table
// to NormalizeNameWith to disable the substitution.
var LatinLookalikes = map[rune]rune{
	'a': 'а',
	'b': 'в',
	'c': 'с',
	'e': 'е',
	'h': 'н',
	'k': 'к',
	'm': 'м',
	'o': 'о',
	'p': 'р',
	't': 'т',
	'x': 'х',
	'y': 'у',
}

// nameAbbreviations expands common truncated first names. Keys are stored
// without the trailing dot because punctuation is stripped before expansion.
var nameAbbreviations = map[string]string{
	"дмитр":    "дмитрий",
	"александ": "александр",
	"екатер":   "екатерина",
	"анастас":  "анастасия",
	"елиз":     "елизавета",
	"валент":   "валентина",
	"конст":    "константин",
}

// NormalizeName canonicalizes a raw person name for comparison: lowercase,
// punctuation stripped, whitespace collapsed, Latin lookalikes transliterated,
// truncated first names expanded and the likely surname moved to the front.
// The result is never displayed. Normalization is idempotent.
func NormalizeName(raw string) string {
	return NormalizeNameWith(LatinLookalikes, raw)
}

func NormalizeNameWith(translit map[rune]rune, raw string) string {
	s := strings.ToLower(raw)
	s = rePunct.ReplaceAllString(s, " ")
	s = strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
	if s == "" {
		return ""
	}

	if len(translit) > 0 {
		var b strings.Builder
		b.Grow(len(s))
		for _, r := range s {
			if repl, ok := translit[r]; ok {
				r = repl
			}
			b.WriteRune(r)
		}
		s = b.String()
	}

	tokens := strings.Fields(s)
	for i, t := range tokens {
		if full, ok := nameAbbreviations[t]; ok {
			tokens[i] = full
		}
	}
	if len(tokens) < 2 {
		return strings.Join(tokens, " ")
	}
	return strings.Join(surnameFirst(tokens), " ")
}

// surnameFirst moves the likely surname to position 0: the first token when
// it is longer than three runes, otherwise the longest token. Remaining
// tokens keep their relative order.
func surnameFirst(tokens []string) []string {
	idx := 0
	if utf8.RuneCountInString(tokens[0]) <= 3 {
		for i, t := range tokens {
			if utf8.RuneCountInString(t) > utf8.RuneCountInString(tokens[idx]) {
				idx = i
			}
		}
	}
	if idx == 0 {
		return tokens
	}
	out := make([]string, 0, len(tokens))
	out = append(out, tokens[idx])
	out = append(out, tokens[:idx]...)
	out = append(out, tokens[idx+1:]...)
	return out
}

// NameTokens splits an already-normalized name into its tokens.
func NameTokens(normalized string) []string {
	return strings.Fields(normalized)
}

// reShortForm recognizes "Фамилия И.О." style abbreviations on a normalized
// name: a Cyrillic surname followed by one or two single-letter tokens.
var reShortForm = regexp.MustCompile(`^[а-яё-]{2,}( [а-яё]){1,2}$`)

// IsShortForm reports whether a normalized name is a surname-plus-initials
// abbreviation such as "иванов и и".
func IsShortForm(normalized string) bool {
	return reShortForm.MatchString(normalized)
}

// IsInitialsOnly reports whether a normalized name consists solely of
// single-letter tokens, e.g. "и и".
func IsInitialsOnly(normalized string) bool {
	tokens := strings.Fields(normalized)
	if len(tokens) < 2 {
		return false
	}
	for _, t := range tokens {
		if utf8.RuneCountInString(t) != 1 {
			return false
		}
	}
	return true
}

// InitialsOf concatenates the first letters of the given tokens.
func InitialsOf(tokens []string) string {
	var b strings.Builder
	for _, t := range tokens {
		for _, r := range t {
			b.WriteRune(r)
			break
		}
	}
	return b.String()
}

// NameSimilarity is a general-purpose "probably the same name" probe based
// on normalized Levenshtein distance: 1 - distance/maxLen over the
// normalized forms. It is independent of the layered matcher and meant for
// registry lookups and deduplication.
func NameSimilarity(a, b string) float64 {
	na := NormalizeName(a)
	nb := NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	maxLen := utf8.RuneCountInString(na)
	if l := utf8.RuneCountInString(nb); l > maxLen {
		maxLen = l
	}
	dist := levenshtein.ComputeDistance(na, nb)
	return 1 - float64(dist)/float64(maxLen)
}
