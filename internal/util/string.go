package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// honorifics are stripped from the front of a name before searching providers.
var honorifics = map[string]struct{}{
	"sheikh": {}, "shaykh": {}, "shaikh": {}, "shaik": {}, "sh": {},
	"imam": {}, "mufti": {}, "maulana": {}, "mawlana": {}, "moulana": {},
	"ustadh": {}, "ustadha": {}, "ustaz": {}, "ustad": {}, "ustadhah": {},
	"dr": {}, "doctor": {}, "prof": {}, "professor": {},
	"hafiz": {}, "hafidh": {}, "qari": {}, "sayyid": {}, "syed": {},
	"brother": {}, "sister": {}, "br": {}, "sr": {},
}

var parentheticalPattern = regexp.MustCompile(`\s*[\(\[][^\)\]]*[\)\]]`)

// TruncateString truncates a string to maxRunes characters (rune-based, not byte-based)
// If truncated, appends "..." to the result
func TruncateString(s string, maxRunes int) string {
	rs := []rune(s)
	if len(rs) <= maxRunes {
		return s
	}
	return string(rs[:maxRunes]) + "..."
}

// Normalize performs basic string normalization (lowercase + trim)
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CollapseSpace trims s and folds every whitespace run (including NBSP and
// newlines) into a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanName strips honorific titles and parenthetical qualifiers:
// "Sheikh Dr. Omar Suleiman (scholar)" -> "Omar Suleiman".
func CleanName(name string) string {
	name = parentheticalPattern.ReplaceAllString(name, "")
	words := strings.Fields(CollapseSpace(name))

	start := 0
	for start < len(words)-1 {
		key := strings.ToLower(strings.Trim(words[start], ".,"))
		if _, ok := honorifics[key]; !ok {
			break
		}
		start++
	}

	return strings.Join(words[start:], " ")
}

// StripQualifier removes parenthetical qualifiers: "Omar Suleiman (imam)" -> "Omar Suleiman".
func StripQualifier(s string) string {
	return CollapseSpace(parentheticalPattern.ReplaceAllString(s, ""))
}

// NameTokens returns the lowercase words of the cleaned name that are at least
// three characters long, with diacritics folded.
func NameTokens(name string) []string {
	cleaned := FoldDiacritics(strings.ToLower(CleanName(name)))
	fields := strings.FieldsFunc(cleaned, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) >= 3 {
			tokens = append(tokens, f)
		}
	}
	return UniqueStrings(tokens)
}

// NormalizeForCompare lowercases, folds diacritics, drops punctuation and
// collapses whitespace so that two provider strings can be compared.
func NormalizeForCompare(s string) string {
	s = FoldDiacritics(strings.ToLower(s))
	var builder strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			builder.WriteRune(r)
		case unicode.IsSpace(r):
			builder.WriteRune(' ')
		}
	}
	return CollapseSpace(builder.String())
}

// FoldDiacritics maps "Yāsir Qāḍī" to "Yasir Qadi".
func FoldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// Slugify converts a name to URL-friendly slug format
func Slugify(name string) string {
	name = FoldDiacritics(Normalize(name))

	var builder strings.Builder
	lastDash := true
	for _, r := range name {
		switch {
		case r == '\'' || r == '’' || r == '.':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			builder.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				builder.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(builder.String(), "-")
}

// NameFromSlug rebuilds a searchable display name from a slug:
// "omar-suleiman" -> "Omar Suleiman".
func NameFromSlug(slug string) string {
	parts := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, p := range parts {
		rs := []rune(p)
		rs[0] = unicode.ToUpper(rs[0])
		parts[i] = string(rs)
	}
	return strings.Join(parts, " ")
}
