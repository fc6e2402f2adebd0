package match

import (
	"strings"
	"unicode"
)

// keySuffixes are trailing words that decorate a key without naming the
// value: "customer_id", "createdAt", "updated_utc".
var keySuffixes = map[string]bool{
	"id":        true,
	"ids":       true,
	"at":        true,
	"utc":       true,
	"timestamp": true,
}

// KeyWords splits a record key or property name into lowercase words at
// separators and case changes. An upper-case run followed by a lower-case
// letter ends one word early: "XMLPayload" gives [xml payload].
func KeyWords(s string) []string {
	var (
		words []string
		cur   []rune
	)

	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if isKeySeparator(r) {
			flush()
			continue
		}

		if i > 0 && startsWord(runes, i) {
			flush()
		}

		cur = append(cur, r)
	}
	flush()

	return words
}

func isKeySeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' '
}

func startsWord(runes []rune, i int) bool {
	r, prev := runes[i], runes[i-1]
	if !unicode.IsUpper(r) {
		return false
	}

	if !unicode.IsUpper(prev) {
		return !isKeySeparator(prev)
	}

	return i+1 < len(runes) && unicode.IsLower(runes[i+1])
}

// NormalizeKey joins the words of s: "Created_At", "created-at" and
// "createdAt" all give "createdat".
func NormalizeKey(s string) string {
	return strings.Join(KeyWords(s), "")
}

// StripKeySuffix normalizes s without its last word when that word is one of
// the identifier-like suffixes and other words remain.
func StripKeySuffix(s string) string {
	words := KeyWords(s)
	if n := len(words); n > 1 && keySuffixes[words[n-1]] {
		words = words[:n-1]
	}

	return strings.Join(words, "")
}
