package cache

import (
	"sort"
	"strings"
	"unicode"
)

// cacheStopWords are dropped during Tier-2 normalization so near-duplicate
// phrasings of the same question collapse to the same token set.
var cacheStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"my": true, "your": true, "me": true, "i": true, "you": true,
	"of": true, "to": true, "in": true, "on": true, "at": true,
	"for": true, "about": true, "and": true, "or": true, "it": true,
	"that": true, "this": true, "what": true, "whats": true,
	"please": true, "tell": true,
}

// NormalizeQuery produces the Tier-1 key: trimmed, lowercased, with
// whitespace runs collapsed to single spaces.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// TokenSetKey produces the Tier-2 key: punctuation stripped, stop words
// dropped, remaining tokens deduplicated and sorted. Two queries with the
// same token set compare equal regardless of word order or filler words.
func TokenSetKey(query string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(query) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	seen := make(map[string]bool)
	tokens := []string{}
	for _, tok := range strings.Fields(b.String()) {
		if cacheStopWords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
