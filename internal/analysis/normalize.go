// Package analysis turns raw text into the normalized, stemmed tokens the
// relevance engine compares. Everything here is pure and total: any string,
// including invalid UTF-8 or markup, yields a (possibly empty) result.
package analysis

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacriticalMarks is the Combining Diacritical Marks block (U+0300–U+036F).
// Marks outside this block are not stripped; they fall to the character
// class filter instead.
var diacriticalMarks = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Normalize lowercases s, decomposes it (NFD), drops combining diacritical
// marks, strips <...> tags, replaces every rune that is not a letter, digit,
// whitespace or hyphen with a space, collapses whitespace and trims.
//
// Normalize is idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	stripped := tagPattern.ReplaceAllString(stripMarks(strings.ToLower(s)), " ")
	return collapse(strings.Map(keepOrSpace, stripped))
}

// Fold is Normalize without tag stripping: markup is treated as ordinary
// characters and filtered by class like everything else.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	return collapse(strings.Map(keepOrSpace, stripMarks(strings.ToLower(s))))
}

func stripMarks(s string) string {
	// A fresh chain per call: transform.Chain keeps internal buffers and is
	// not safe for concurrent use.
	out, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(diacriticalMarks))),
		s,
	)
	if err != nil {
		return s
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func keepOrSpace(r rune) rune {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '-' {
		return r
	}
	return ' '
}
