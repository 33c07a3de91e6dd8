// Package fulltext holds the lexical side of hybrid retrieval: tokenization,
// BM25 scoring and highlighted snippets.
//
// Storage backends with a native full-text engine (SQLite FTS5) use Terms to
// build their match expressions; backends without one (badger) maintain an
// inverted index of the same tokens and rank with BM25.
package fulltext

// Mode selects how query terms combine.
type Mode int

const (
	// MatchAll requires every query term to appear in a document.
	MatchAll Mode = iota
	// MatchAny requires at least one query term.
	MatchAny
)
