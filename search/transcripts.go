package search

import (
	"context"
	"strings"

	"github.com/poiesic/earningsrag/core"
)

// TranscriptSearch is a full-text query over whole transcripts.
type TranscriptSearch struct {
	Query string
	// Company is a ticker or company name. Empty searches every company.
	Company string
	Year    *int
	Quarter *int
	// Limit defaults to 20 when zero.
	Limit  int
	Offset int
}

// SearchTranscripts runs a full-text search. Every query term must appear
// in a hit. A company filter that matches no stored company yields an
// empty page.
func (r *Retriever) SearchTranscripts(ctx context.Context, req TranscriptSearch) (*core.TranscriptPage, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	if err := core.ValidateFilters(core.Filters{Year: req.Year, Quarter: req.Quarter}); err != nil {
		return nil, err
	}

	query := core.TranscriptQuery{
		Query:         req.Query,
		FiscalYear:    req.Year,
		FiscalQuarter: req.Quarter,
		Limit:         req.Limit,
		Offset:        req.Offset,
	}
	if company := strings.TrimSpace(req.Company); company != "" {
		companies, err := r.MatchCompanies(ctx, company)
		if err != nil {
			return nil, err
		}
		if len(companies) == 0 {
			return &core.TranscriptPage{Hits: []core.TranscriptHit{}}, nil
		}
		if len(companies) > 1 {
			r.logger.Warn("company matches several listings, searching the first",
				"company", company, "matches", len(companies), "ticker", companies[0].Ticker)
		}
		query.CompanyID = &companies[0].ID
	}

	page, err := r.store.SearchTranscripts(ctx, query)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("searched transcripts", "query", req.Query, "total", page.Total, "hits", len(page.Hits))
	return page, nil
}
