// Package cdtext prepares CD-TEXT values from a transcript for display.
// The index model keeps values exactly as written; these helpers are for
// output only.
package cdtext

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Decode expands backslash escapes (\", \\ and three-digit octal \000 to \377)
// and returns the result as UTF-8. Byte strings that are not valid UTF-8
// after unescaping are decoded as ISO-8859-1, the encoding cdrdao writes.
func Decode(s string) string {
	if !strings.Contains(s, `\`) && utf8.ValidString(s) {
		return s
	}

	b := unescape(s)
	if utf8.Valid(b) {
		return string(b)
	}

	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func unescape(s string) []byte {
	b := make([]byte, 0, len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b = append(b, c)
			continue
		}

		next := s[i+1]
		switch {
		case next == '\\' || next == '"':
			b = append(b, next)
			i++
		case i+3 < len(s) && s[i+1] >= '0' && s[i+1] <= '3' && isOctal(s[i+2]) && isOctal(s[i+3]):
			v := (s[i+1]-'0')<<6 | (s[i+2]-'0')<<3 | (s[i+3] - '0')
			b = append(b, v)
			i += 3
		default:
			b = append(b, c)
		}
	}

	return b
}

func isOctal(c byte) bool {
	return c >= '0' && c <= '7'
}

// ASCII decodes s and folds it to ASCII.
// Uses NFKD normalization to decompose characters (ō→o, é→e, etc.)
// and strips any remaining non-ASCII characters.
func ASCII(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	result, _, _ := transform.String(t, Decode(s))

	var b strings.Builder
	for _, r := range result {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
