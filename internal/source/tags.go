package source

import (
	"sort"
	"strings"

	"github.com/kapu/creator-directory-go/internal/util"
)

// tagKeywords maps a category tag to words that signal it in channel text.
var tagKeywords = map[string][]string{
	"quran":        {"quran", "qur'an", "koran", "recitation", "tilawah", "tajweed", "tajwid"},
	"tafsir":       {"tafsir", "tafseer", "exegesis"},
	"hadith":       {"hadith", "hadeeth", "sunnah", "bukhari"},
	"fiqh":         {"fiqh", "fatwa", "jurisprudence", "halal", "haram", "rulings"},
	"seerah":       {"seerah", "sirah", "prophet's life", "life of the prophet", "prophet muhammad"},
	"aqeedah":      {"aqeedah", "aqidah", "creed", "tawheed", "tawhid"},
	"lectures":     {"lecture", "lectures", "khutbah", "khutba", "sermon", "halaqa", "halaqah"},
	"history":      {"history", "historical", "caliphate", "ottoman", "andalus"},
	"spirituality": {"spirituality", "spiritual", "tazkiyah", "purification", "sufi", "ihsan"},
	"youth":        {"youth", "teens", "young muslims"},
	"family":       {"family", "marriage", "parenting", "children", "spouse"},
}

// DeriveTags returns the sorted category tags whose keywords appear in texts.
func DeriveTags(texts ...string) []string {
	haystack := " " + util.NormalizeForCompare(strings.Join(texts, " ")) + " "

	var tags []string
	for tag, keywords := range tagKeywords {
		for _, kw := range keywords {
			if strings.Contains(haystack, " "+util.NormalizeForCompare(kw)+" ") {
				tags = append(tags, tag)
				break
			}
		}
	}
	sort.Strings(tags)
	return tags
}
