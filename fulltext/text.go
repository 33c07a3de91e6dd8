package fulltext

import (
	"strings"
	"unicode"
)

// Stop words are dropped from both indexed text and queries.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "or": true, "we": true, "our": true, "what": true,
	"did": true, "how": true, "were": true, "about": true, "which": true,
}

// IsStopWord reports whether term is ignored by the index.
func IsStopWord(term string) bool {
	return stopWords[term]
}

// words splits text into lower-cased runs of letters and digits.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Tokenize splits text into words, lowercases them and removes stop words.
// Order and repetition are preserved.
func Tokenize(text string) []string {
	all := words(text)
	filtered := all[:0]
	for _, w := range all {
		if !stopWords[w] {
			filtered = append(filtered, w)
		}
	}
	return filtered
}

// Terms returns the distinct tokens of text in first-seen order.
func Terms(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range Tokenize(text) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// TermFrequencies counts every token of text.
func TermFrequencies(text string) (map[string]int, int) {
	tokens := Tokenize(text)
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf, len(tokens)
}

// ContainsAllTerms checks if all query terms appear in the document.
func ContainsAllTerms(document, query string) bool {
	queryTerms := Terms(query)
	if len(queryTerms) == 0 {
		return false
	}

	docTerms := make(map[string]bool)
	for _, t := range Tokenize(document) {
		docTerms[t] = true
	}

	for _, q := range queryTerms {
		if !docTerms[q] {
			return false
		}
	}
	return true
}
