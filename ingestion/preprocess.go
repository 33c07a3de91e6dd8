package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/poiesic/earningsrag/ai"
	"github.com/poiesic/earningsrag/chunking"
	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/source"
)

// Preprocess derives a storable transcript from a fetched document: the raw
// text is the paragraph contents joined by single spaces, hashed for
// duplicate detection and measured. When extractor is not nil, organization
// mentions are extracted, normalized and counted.
//
// The returned transcript has no ID; storage assigns one.
func Preprocess(ctx context.Context, companyID uuid.UUID, year, quarter int, doc *source.Document, extractor ai.EntityExtractor) (*core.Transcript, error) {
	if doc == nil || len(doc.Paragraphs) == 0 {
		return nil, source.ErrNotFound
	}

	parts := make([]string, len(doc.Paragraphs))
	for i, p := range doc.Paragraphs {
		parts[i] = p.Content
	}
	raw := strings.Join(parts, " ")

	var orgs core.OrgData
	if extractor != nil {
		entities, err := extractor.ExtractEntities(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("extracting organizations: %w", err)
		}
		orgs = core.CountOrgMentions(ai.Organizations(entities))
	} else {
		orgs = core.OrgData{Frequencies: []core.OrgFrequency{}}
	}

	return &core.Transcript{
		CompanyID:     companyID,
		FiscalYear:    year,
		FiscalQuarter: quarter,
		Source:        doc.Source,
		SourceURL:     doc.SourceURL,
		RawText:       raw,
		Paragraphs:    doc.Paragraphs,
		ContentHash:   core.ContentHash(raw),
		OrgData:       orgs,
		DocumentMeta: core.DocumentMeta{
			CharCount:     utf8.RuneCountInString(raw),
			WordCount:     len(strings.Fields(raw)),
			SentenceCount: len(chunking.SplitSentences(raw)),
		},
		FetchedAt:      doc.FetchedAt,
		PreprocessedAt: time.Now().UTC(),
	}, nil
}
