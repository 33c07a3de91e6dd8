// Package source fetches earnings call transcripts as ordered paragraphs.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/earningsrag/core"
)

var (
	// ErrNotFound is returned when a source has no transcript for the
	// requested period, or the transcript has no paragraphs.
	ErrNotFound = fmt.Errorf("source: transcript %w", core.ErrNotFound)

	// ErrMalformed is returned for transcript files that cannot be parsed.
	ErrMalformed = fmt.Errorf("source: %w: malformed transcript", core.ErrUpstream)
)

// Document is a fetched transcript before preprocessing.
type Document struct {
	Source     string
	SourceURL  string
	Paragraphs []core.Paragraph
	FetchedAt  time.Time
}

// Source fetches the transcript of a company for a fiscal period.
// Implementations must be thread-safe for concurrent use.
type Source interface {
	Fetch(ctx context.Context, ticker string, year, quarter int) (*Document, error)
}
