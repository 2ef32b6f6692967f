package directory

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold reduces s to its search form: compatibility-decomposed, stripped of
// combining marks, case-folded and with whitespace collapsed. "José
// Ñúñez" and "jose nunez" fold to the same key.
func Fold(s string) string {
	// Transformers carry state, so each call builds its own chain.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(cases.Fold().String(out)), " ")
}

// searchKey joins the folded words a contact can be found by. The key
// starts with a space so that a word prefix match is a substring match on
// " " + prefix.
func searchKey(c Contact) string {
	parts := []string{c.Name, c.FirstName, c.LastName, c.SlackUsername}
	parts = append(parts, c.SlackUsernames...)
	if local, _, ok := strings.Cut(c.Email, "@"); ok {
		parts = append(parts, local)
	}
	parts = append(parts, c.Email)
	return " " + Fold(strings.Join(parts, " "))
}

// likePattern builds a LIKE pattern matching a word that starts with
// prefix. Wildcards in prefix are escaped with '\'.
func likePattern(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "% " + r.Replace(prefix) + "%"
}
