package reference

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldName reduces a name to the form used for duplicate detection:
// accents removed, case folded, inner whitespace collapsed.
func FoldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}

	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}

// SortByName orders items the way a pt-BR reader expects ("Água" next to "Agua", before "Banco").
func SortByName[T any](items []T, name func(T) string) {
	c := collate.New(language.BrazilianPortuguese, collate.IgnoreCase)

	slices.SortStableFunc(items, func(a, b T) int {
		return c.CompareString(name(a), name(b))
	})
}
