package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/earningsrag/ai"
	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/resolver"
	"github.com/poiesic/earningsrag/storage"
)

// Retrieval defaults.
const (
	DefaultTopK              = 5
	DefaultMinScore          = 0.3
	DefaultFTSCandidateLimit = 50
)

// Store is the storage the Retriever reads from.
type Store interface {
	storage.CompanyRepository
	storage.TranscriptRepository
	storage.ChunkRepository
}

// Retriever finds the transcript chunks most similar to a question.
type Retriever struct {
	store    Store
	embedder ai.Embedder
	resolver resolver.Resolver

	topK              int
	minScore          float32
	lexicalPrefilter  bool
	ftsCandidateLimit int

	monitor Monitor
	logger  *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithTopK sets the number of chunks returned before the score threshold
// is applied. Default is DefaultTopK.
func WithTopK(k int) Option {
	return func(r *Retriever) error {
		if k < 1 {
			return fmt.Errorf("%w: top k must be positive, got %d", ErrInvalidOptions, k)
		}
		r.topK = k
		return nil
	}
}

// WithMinScore sets the minimum cosine similarity of a returned chunk.
// Default is DefaultMinScore.
func WithMinScore(score float32) Option {
	return func(r *Retriever) error {
		if score < -1 || score > 1 {
			return fmt.Errorf("%w: min score must be in [-1,1], got %g", ErrInvalidOptions, score)
		}
		r.minScore = score
		return nil
	}
}

// WithLexicalPrefilter restricts similarity search to the limit transcripts
// that match the question best by full-text rank. A limit of zero uses
// DefaultFTSCandidateLimit.
func WithLexicalPrefilter(limit int) Option {
	return func(r *Retriever) error {
		if limit < 0 {
			return fmt.Errorf("%w: candidate limit must not be negative, got %d", ErrInvalidOptions, limit)
		}
		if limit == 0 {
			limit = DefaultFTSCandidateLimit
		}
		r.lexicalPrefilter = true
		r.ftsCandidateLimit = limit
		return nil
	}
}

// WithResolver resolves company filters the same way ingestion resolved the
// stored companies, so aliases and plain names select the listing they were
// ingested under. Without a resolver, filters match stored tickers and names.
func WithResolver(res resolver.Resolver) Option {
	return func(r *Retriever) error {
		r.resolver = res
		return nil
	}
}

// WithMonitor sets the monitor used when none is passed per call.
func WithMonitor(monitor Monitor) Option {
	return func(r *Retriever) error {
		if monitor == nil {
			monitor = noopMonitor{}
		}
		r.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a retriever. Questions are embedded with the
// provider's embedder, which must be the one chunks were stored with.
func NewRetriever(store Store, provider ai.AIProvider, opts ...Option) (*Retriever, error) {
	if store == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	r := &Retriever{
		store:             store,
		embedder:          provider.Embedder(),
		topK:              DefaultTopK,
		minScore:          DefaultMinScore,
		ftsCandidateLimit: DefaultFTSCandidateLimit,
		monitor:           noopMonitor{},
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "retriever")
	return r, nil
}

// RetrieveTopK returns up to TopK embedded chunks ordered by cosine
// similarity to question, highest first with ties broken by chunk ID. Chunks
// scoring below the minimum score are dropped. No match is an empty slice,
// not an error.
func (r *Retriever) RetrieveTopK(ctx context.Context, question string, filters core.Filters) ([]core.ScoredChunk, error) {
	return r.RetrieveTopKWithMonitor(ctx, question, filters, nil)
}

// RetrieveTopKWithMonitor is RetrieveTopK reporting to monitor instead of
// the retriever's own monitor.
func (r *Retriever) RetrieveTopKWithMonitor(ctx context.Context, question string, filters core.Filters, monitor Monitor) ([]core.ScoredChunk, error) {
	if monitor == nil {
		monitor = r.monitor
	}
	start := time.Now()
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuery
	}
	if err := core.ValidateFilters(filters); err != nil {
		return nil, err
	}
	monitor.Start(question)

	vector, err := r.embedder.EmbedText(ctx, question)
	if err != nil {
		r.logger.Error("error generating embedding for question", "err", err)
		return nil, ai.UpstreamError("embed question", err)
	}
	if err := ai.CheckEmbeddings([][]float32{vector}, 1, r.embedder.Dimensions()); err != nil {
		return nil, err
	}

	transcriptIDs, restricted, err := r.candidates(ctx, question, filters, monitor)
	if err != nil {
		return nil, err
	}
	if restricted && len(transcriptIDs) == 0 {
		results := []core.ScoredChunk{}
		monitor.Finish(results, time.Since(start))
		return results, nil
	}

	hits, err := r.store.FindSimilar(ctx, core.SimilarityQuery{
		Vector:        vector,
		TranscriptIDs: transcriptIDs,
		Limit:         r.topK,
	})
	if err != nil {
		r.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	monitor.AfterSimilaritySearch(hits)

	results := make([]core.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		if hit.Score >= r.minScore {
			results = append(results, hit)
		}
	}
	r.logger.Debug("retrieved chunks", "hits", len(hits), "kept", len(results), "min_score", r.minScore)
	monitor.Finish(results, time.Since(start))
	return results, nil
}

// candidates returns the transcripts similarity search is restricted to.
// restricted is false when no prefilter or filter applies, in which case
// every transcript is searched.
func (r *Retriever) candidates(ctx context.Context, question string, filters core.Filters, monitor Monitor) ([]uuid.UUID, bool, error) {
	var (
		ids        []uuid.UUID
		restricted bool
	)

	if r.lexicalPrefilter {
		lexical, err := r.store.LexicalCandidates(ctx, question, r.ftsCandidateLimit)
		if err != nil {
			return nil, false, fmt.Errorf("lexical prefilter: %w", err)
		}
		monitor.AfterLexicalPrefilter(len(lexical))
		ids, restricted = lexical, true
		if len(ids) == 0 {
			return nil, true, nil
		}
	}

	company := strings.TrimSpace(filters.Company)
	if company == "" && filters.Year == nil && filters.Quarter == nil {
		return ids, restricted, nil
	}

	var companyIDs []uuid.UUID
	if company != "" {
		companies, err := r.MatchCompanies(ctx, company)
		if err != nil {
			return nil, false, err
		}
		if len(companies) == 0 {
			r.logger.Debug("no stored company matches filter", "company", company)
			monitor.AfterFilters(0)
			return nil, true, nil
		}
		for _, c := range companies {
			companyIDs = append(companyIDs, c.ID)
		}
	}

	transcripts, err := r.store.FindTranscripts(ctx, core.TranscriptFilter{
		CompanyIDs: companyIDs,
		Year:       filters.Year,
		Quarter:    filters.Quarter,
	})
	if err != nil {
		return nil, false, err
	}
	filtered := make([]uuid.UUID, len(transcripts))
	for i, t := range transcripts {
		filtered[i] = t.ID
	}
	if restricted {
		filtered = intersect(ids, filtered)
	}
	monitor.AfterFilters(len(filtered))
	return filtered, true, nil
}

// MatchCompanies returns the stored companies a company reference selects.
// With a resolver the reference is resolved first and matched by ticker and
// exchange; a reference the resolver does not know, or whose listing was
// never stored, falls back to matching stored tickers and names.
func (r *Retriever) MatchCompanies(ctx context.Context, ref string) ([]*core.Company, error) {
	ref = strings.TrimSpace(ref)
	if r.resolver != nil {
		resolved, err := r.resolver.Resolve(ctx, resolver.Query{Company: ref})
		switch {
		case err == nil:
			listed, err := r.store.FindCompanies(ctx, resolved.Ticker)
			if err != nil {
				return nil, err
			}
			var matched []*core.Company
			for _, c := range listed {
				if c.Ticker == core.NormalizeTicker(resolved.Ticker) && strings.EqualFold(c.ExchangeCode, resolved.ExchangeCode) {
					matched = append(matched, c)
				}
			}
			if len(matched) > 0 {
				return matched, nil
			}
			r.logger.Debug("resolved company is not stored", "company", ref, "ticker", resolved.Ticker)
		case !errors.Is(err, core.ErrNotFound):
			return nil, fmt.Errorf("resolving company filter %q: %w", ref, err)
		}
	}
	return r.store.FindCompanies(ctx, ref)
}

// intersect returns the IDs of a that are also in b, in the order of a.
func intersect(a, b []uuid.UUID) []uuid.UUID {
	in := make(map[uuid.UUID]bool, len(b))
	for _, id := range b {
		in[id] = true
	}
	out := make([]uuid.UUID, 0, len(a))
	for _, id := range a {
		if in[id] {
			out = append(out, id)
		}
	}
	return out
}
