package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/earningsrag/ai"
	"github.com/poiesic/earningsrag/chunking"
	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/resolver"
	"github.com/poiesic/earningsrag/source"
	"github.com/poiesic/earningsrag/storage"
)

// Pipeline ingests earnings call transcripts: resolve, fetch, preprocess,
// persist, chunk and embed.
type Pipeline struct {
	repository      storage.Repository
	resolver        resolver.Resolver
	source          source.Source
	chunker         *chunking.Chunker
	extractor       ai.EntityExtractor
	cache           *EmbeddingCache
	pool            *ants.Pool
	deferEmbeddings bool
	observer        Observer
	logger          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size used by IngestAll.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithDeferredEmbeddings stores chunks without vectors. They are embedded
// later by reembed.
func WithDeferredEmbeddings(deferred bool) Option {
	return func(p *Pipeline) error {
		p.deferEmbeddings = deferred
		return nil
	}
}

// WithObserver reports ingestion events to observer.
func WithObserver(observer Observer) Option {
	return func(p *Pipeline) error {
		if observer != nil {
			p.observer = observer
		}
		return nil
	}
}

// WithoutEntityExtraction skips organization extraction during preprocessing.
func WithoutEntityExtraction() Option {
	return func(p *Pipeline) error {
		p.extractor = nil
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline. The provider supplies the
// embedder for stored chunks and the organization extractor.
func NewPipeline(
	repository storage.Repository,
	provider ai.AIProvider,
	res resolver.Resolver,
	src source.Source,
	chunker *chunking.Chunker,
	opts ...Option,
) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if res == nil {
		return nil, ErrResolverRequired
	}
	if src == nil {
		return nil, ErrSourceRequired
	}
	if chunker == nil {
		return nil, ErrChunkerRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		repository: repository,
		resolver:   res,
		source:     src,
		chunker:    chunker,
		extractor:  provider.EntityExtractor(),
		pool:       pool,
		observer:   noopObserver{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	p.cache, err = NewEmbeddingCache(repository, provider.Embedder(),
		WithCacheLogger(p.logger), WithCacheObserver(p.observer))
	if err != nil {
		p.Release()
		return nil, err
	}
	p.logger = p.logger.With("component", "ingestion")
	return p, nil
}

// EmbeddingCache returns the cache the pipeline embeds chunks through.
func (p *Pipeline) EmbeddingCache() *EmbeddingCache {
	return p.cache
}

// Request identifies a transcript to ingest.
type Request struct {
	// Company is a company name or ticker passed to the resolver.
	Company      string
	SecurityType string
	ExchangeCode string
	Year         int
	Quarter      int
}

// Validate checks that the request names a company and a valid fiscal period.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Company) == "" {
		return fmt.Errorf("%w: company is required", ErrInvalidRequest)
	}
	if err := core.ValidateFiscalPeriod(r.Year, r.Quarter); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

// Result describes an ingested transcript.
type Result struct {
	Company    *core.Company
	Transcript *core.Transcript
	Chunks     int
	// Deferred is true when chunks were stored without embeddings.
	Deferred bool
}

// Ingest runs the full workflow for one request. A period that is already
// stored fails with ErrTranscriptExists before the source is contacted and
// leaves the stored transcript unchanged.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	logger := p.logger.With("company", req.Company, "year", req.Year, "quarter", req.Quarter)

	resolved, err := p.resolver.Resolve(ctx, resolver.Query{
		Company:      req.Company,
		SecurityType: req.SecurityType,
		ExchangeCode: req.ExchangeCode,
	})
	if err != nil {
		return nil, p.fail(StageResolve, fmt.Errorf("resolving %q: %w", req.Company, err))
	}

	company, created, err := p.repository.GetOrCreateCompany(ctx, resolved)
	if err != nil {
		return nil, p.fail(StageCompany, err)
	}
	if created {
		logger.Info("created company", "ticker", company.Ticker, "name", company.Name)
	}

	_, err = p.repository.FindTranscriptByPeriod(ctx, company.ID, req.Year, req.Quarter)
	switch {
	case err == nil:
		return nil, p.fail(StagePersist, fmt.Errorf("%w: %s %d Q%d", ErrTranscriptExists, company.Ticker, req.Year, req.Quarter))
	case !errors.Is(err, storage.ErrNotFound):
		return nil, p.fail(StagePersist, err)
	}

	doc, err := p.source.Fetch(ctx, company.Ticker, req.Year, req.Quarter)
	if err != nil {
		return nil, p.fail(StageFetch, err)
	}

	transcript, err := Preprocess(ctx, company.ID, req.Year, req.Quarter, doc, p.extractor)
	if err != nil {
		return nil, p.fail(StagePreprocess, err)
	}

	if transcript.ID == uuid.Nil {
		transcript.ID = uuid.New()
	}
	chunks, err := p.chunker.Build(ctx, transcript)
	if err != nil {
		return nil, p.fail(StageChunk, err)
	}

	// The transcript, its organization rows and its unembedded chunks are
	// written atomically. Embedding happens after commit so that a failed
	// embedding call leaves chunks for reembed rather than an empty period.
	err = p.repository.WithTransaction(ctx, func(ctx context.Context) error {
		stored, err := p.repository.AddTranscript(ctx, transcript,
			core.OrgEntities(uuid.Nil, transcript.OrgData, transcript.PreprocessedAt))
		if err != nil {
			return err
		}
		transcript = stored
		_, err = p.cache.StoreChunks(ctx, chunks)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicatePeriod) {
			err = fmt.Errorf("%w: %s %d Q%d", ErrTranscriptExists, company.Ticker, req.Year, req.Quarter)
		}
		return nil, p.fail(StagePersist, err)
	}
	logger.Info("stored transcript", "transcript_id", transcript.ID,
		"orgs", transcript.OrgData.UniqueCount, "chunks", len(chunks))

	if !p.deferEmbeddings {
		if err := p.cache.EmbedChunks(ctx, chunks); err != nil {
			logger.Warn("embedding failed, chunks kept for reembed", "error", err)
			return nil, p.fail(StageEmbed, err)
		}
	}

	p.observer.TranscriptIngested(company.Ticker, len(chunks), time.Since(start))
	logger.Info("ingested transcript", "transcript_id", transcript.ID, "chunks", len(chunks),
		"deferred", p.deferEmbeddings, "elapsed", time.Since(start))
	return &Result{
		Company:    company,
		Transcript: transcript,
		Chunks:     len(chunks),
		Deferred:   p.deferEmbeddings,
	}, nil
}

func (p *Pipeline) fail(stage string, err error) error {
	p.observer.IngestFailed(stage, err)
	return err
}

// Outcome is the result of one request of an IngestAll batch.
type Outcome struct {
	Request Request
	Result  *Result
	Err     error
}

// IngestAll runs requests concurrently on the pipeline's worker pool and
// returns one outcome per request, in request order. A failing request does
// not stop the others.
func (p *Pipeline) IngestAll(ctx context.Context, requests []Request) []Outcome {
	outcomes := make([]Outcome, len(requests))
	var wg sync.WaitGroup
	for i, req := range requests {
		outcomes[i].Request = req
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			outcomes[i].Result, outcomes[i].Err = p.Ingest(ctx, req)
		})
		if err != nil {
			wg.Done()
			outcomes[i].Err = err
		}
	}
	wg.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	p.logger.Info("batch ingestion finished", "requests", len(requests), "failed", failed)
	return outcomes
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
