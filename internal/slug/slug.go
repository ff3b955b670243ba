// Package slug builds URL-safe book identifiers of the form
// "{id}-{slugified sort title}".
package slug

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var fold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make lowercases the input, folds diacritics to their base letters
// and drops everything that is not ASCII alphanumeric, turning runs
// of spaces into single dashes.
func Make(input string) string {
	if folded, _, err := transform.String(fold, input); err == nil {
		input = folded
	}

	var b strings.Builder
	dash := false
	for _, c := range input {
		switch {
		case c >= 'a' && c <= 'z' || c >= '0' && c <= '9':
			b.WriteRune(c)
			dash = false
		case c >= 'A' && c <= 'Z':
			b.WriteRune(c + ('a' - 'A'))
			dash = false
		case c == ' ':
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

var ErrInvalidID = errors.New("slug: invalid id prefix")

// ExtractID parses the numeric book id a slug starts with.
func ExtractID(input string) (int64, error) {
	var n int64
	i := 0
	for ; i < len(input) && input[i] >= '0' && input[i] <= '9'; i++ {
		n = n*10 + int64(input[i]-'0')
	}
	if i == 0 {
		return 0, ErrInvalidID
	}
	return n, nil
}
