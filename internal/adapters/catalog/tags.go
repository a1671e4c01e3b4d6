package catalog

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/startupforworld/coach/internal/domain/recommend"
)

// tagKeywords maps folded title words or phrases to the category they imply.
var tagKeywords = []struct {
	phrase   string
	category recommend.Category
}{
	{"omega", recommend.CategoryCardio},
	{"salmon oil", recommend.CategoryCardio},
	{"pro vitality", recommend.CategoryCardio},
	{"pro vitality", recommend.CategoryMetabolic},
	{"antioxidant", recommend.CategoryMetabolic},
	{"carotenoid", recommend.CategoryMetabolic},
	{"tre", recommend.CategoryBaseline},
}

// foldTitle lowercases s, strips diacritics and collapses every run of
// non alphanumerics to a single space, padding both ends.
func foldTitle(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

// TagsForTitle derives category tags from a product title. Matching is on
// whole words so "Tré" tags the baseline but "Treat" does not.
func TagsForTitle(title string) []recommend.Category {
	folded := foldTitle(title)
	var tags []recommend.Category
	for _, kw := range tagKeywords {
		if !strings.Contains(folded, " "+kw.phrase+" ") {
			continue
		}
		if !slices.Contains(tags, kw.category) {
			tags = append(tags, kw.category)
		}
	}
	return tags
}
