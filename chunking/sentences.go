package chunking

import (
	"strings"
	"unicode"
)

// SentenceSplitter segments text into sentences.
type SentenceSplitter interface {
	Split(text string) []string
}

// SentenceSplitterFunc adapts a function to SentenceSplitter.
type SentenceSplitterFunc func(text string) []string

// Split calls f(text).
func (f SentenceSplitterFunc) Split(text string) []string {
	return f(text)
}

// abbreviations never end a sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true, "st": true,
	"inc": true, "corp": true, "co": true, "ltd": true, "jr": true, "sr": true,
	"vs": true, "etc": true, "approx": true, "no": true, "fig": true,
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’', '»':
		return true
	}
	return false
}

// SplitSentences segments text on terminal punctuation followed by
// whitespace or the end of the text. Closing quotes and brackets after the
// punctuation stay with the sentence. Decimal numbers ("3.5"), dotted
// initials ("U.S.") and common abbreviations ("Mr.", "Inc.") do not split.
// A trailing fragment without punctuation is its own sentence. Sentences
// are trimmed; empty ones are dropped.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	emit := func(s []rune) {
		if t := strings.TrimSpace(string(s)); t != "" {
			out = append(out, t)
		}
	}

	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && (isTerminal(runes[j]) || isCloser(runes[j])) {
			j++
		}
		if j < len(runes) && !unicode.IsSpace(runes[j]) {
			i = j - 1
			continue
		}
		if runes[i] == '.' && j == i+1 && isAbbreviation(runes[start:i]) {
			continue
		}
		emit(runes[start:j])
		start = j
		i = j - 1
	}
	emit(runes[start:])
	return out
}

// isAbbreviation reports whether the word ending the text is a known
// abbreviation or a dotted initial such as the "S" of "U.S".
func isAbbreviation(text []rune) bool {
	k := len(text)
	for k > 0 && !unicode.IsSpace(text[k-1]) {
		k--
	}
	word := string(text[k:])
	if word == "" || word == "I" {
		return false
	}
	if abbreviations[strings.ToLower(word)] {
		return true
	}
	// A single letter, or a dotted sequence of single letters.
	for _, part := range strings.Split(word, ".") {
		if len([]rune(part)) != 1 || !unicode.IsLetter([]rune(part)[0]) {
			return false
		}
	}
	return true
}
