// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package earningsrag answers questions about earnings call transcripts.
// Database wires storage, model providers, ingestion, retrieval and
// answering from one configuration.
package earningsrag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/poiesic/earningsrag/ai"
	"github.com/poiesic/earningsrag/ai/local"
	"github.com/poiesic/earningsrag/ai/ollama"
	"github.com/poiesic/earningsrag/ai/openai"
	"github.com/poiesic/earningsrag/chunking"
	"github.com/poiesic/earningsrag/config"
	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/ingestion"
	"github.com/poiesic/earningsrag/metric"
	"github.com/poiesic/earningsrag/qa"
	"github.com/poiesic/earningsrag/reembed"
	"github.com/poiesic/earningsrag/resolver"
	"github.com/poiesic/earningsrag/search"
	"github.com/poiesic/earningsrag/source"
	"github.com/poiesic/earningsrag/storage"
	"github.com/poiesic/earningsrag/storage/badger"
	"github.com/poiesic/earningsrag/storage/sqlite"
)

// ErrCompanyNotFound is returned when no stored company matches a reference.
var ErrCompanyNotFound = fmt.Errorf("earningsrag: %w: company", core.ErrNotFound)

// Database is an open transcript store with its pipeline, retriever and
// answerer.
type Database struct {
	cfg       *config.Config
	repo      storage.Repository
	provider  ai.AIProvider
	source    source.Source
	chunker   *chunking.Chunker
	pipeline  *ingestion.Pipeline
	retriever *search.Retriever
	answerer  *qa.Answerer
	metrics   *metric.Metrics
	logger    *slog.Logger
}

// Option configures Open.
type Option func(*options)

type options struct {
	repo     storage.Repository
	provider ai.AIProvider
	resolver resolver.Resolver
	source   source.Source
	logger   *slog.Logger
}

// WithRepository uses repo instead of opening the configured backend.
// The Database takes ownership and closes it.
func WithRepository(repo storage.Repository) Option {
	return func(o *options) { o.repo = repo }
}

// WithAIProvider uses provider instead of the configured one.
// The Database takes ownership and closes it.
func WithAIProvider(provider ai.AIProvider) Option {
	return func(o *options) { o.provider = provider }
}

// WithResolver uses res instead of the configured company resolver.
func WithResolver(res resolver.Resolver) Option {
	return func(o *options) { o.resolver = res }
}

// WithSource uses src instead of the transcripts directory.
func WithSource(src source.Source) Option {
	return func(o *options) { o.source = src }
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Open validates cfg and builds every component it selects. Components
// opened here are closed again if a later one fails.
func Open(cfg *config.Config, opts ...Option) (db *Database, err error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	db = &Database{cfg: cfg, metrics: metric.New(), logger: o.logger}
	defer func() {
		if err != nil {
			db.Close()
			db = nil
		}
	}()

	db.repo = o.repo
	if db.repo == nil {
		if db.repo, err = OpenRepository(cfg.Storage); err != nil {
			return db, err
		}
	}
	db.provider = o.provider
	if db.provider == nil {
		if db.provider, err = NewAIProvider(cfg.AIConfig()); err != nil {
			return db, err
		}
	}

	res := o.resolver
	if res == nil {
		if res, err = newResolver(cfg.OpenFIGI, o.logger); err != nil {
			return db, err
		}
	}
	db.source = o.source
	if db.source == nil {
		db.source = source.NewDirectory(cfg.Ingestion.TranscriptsDir)
	}

	db.chunker, err = chunking.New(cfg.ChunkingOptions(),
		chunking.WithSentenceEmbedder(db.provider.Embedder()),
		chunking.WithLogger(o.logger))
	if err != nil {
		return db, err
	}

	pipelineOpts := []ingestion.Option{
		ingestion.WithLogger(o.logger),
		ingestion.WithObserver(db.metrics),
		ingestion.WithDeferredEmbeddings(cfg.Ingestion.DeferEmbeddings),
	}
	if cfg.Ingestion.Workers > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithPoolSize(cfg.Ingestion.Workers))
	}
	if !cfg.Ingestion.ExtractEntities {
		pipelineOpts = append(pipelineOpts, ingestion.WithoutEntityExtraction())
	}
	db.pipeline, err = ingestion.NewPipeline(db.repo, db.provider, res, db.source, db.chunker, pipelineOpts...)
	if err != nil {
		return db, err
	}

	retrieverOpts := append(cfg.RetrieverOptions(),
		search.WithResolver(res),
		search.WithMonitor(db.metrics),
		search.WithLogger(o.logger))
	db.retriever, err = search.NewRetriever(db.repo, db.provider, retrieverOpts...)
	if err != nil {
		return db, err
	}

	db.answerer, err = qa.NewAnswerer(db.retriever, db.provider.Generator(), cfg.QAOptions(), qa.WithLogger(o.logger))
	if err != nil {
		return db, err
	}
	return db, nil
}

// OpenRepository opens the configured storage backend.
func OpenRepository(cfg config.StorageConfig) (storage.Repository, error) {
	switch cfg.Backend {
	case config.BackendBadger:
		return badger.NewRepository(cfg.Path)
	case config.BackendSQLite:
		return sqlite.NewRepository(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

// NewAIProvider creates the provider cfg names.
func NewAIProvider(cfg *ai.Config) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ai.ProviderOllama:
		return ollama.NewProvider(cfg)
	case ai.ProviderOpenAI:
		return openai.NewProvider(cfg)
	case ai.ProviderLocal:
		return local.NewProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ai.ErrUnknownProvider, cfg.Provider)
	}
}

func newResolver(cfg config.OpenFIGIConfig, logger *slog.Logger) (resolver.Resolver, error) {
	if cfg.CompaniesFile != "" {
		return resolver.LoadStatic(cfg.CompaniesFile)
	}
	return resolver.NewOpenFIGI(cfg.BaseURL,
		resolver.WithAPIKey(cfg.APIKey),
		resolver.WithLogger(logger)), nil
}

// Close releases the worker pool, the provider and the repository.
func (db *Database) Close() error {
	if db.pipeline != nil {
		db.pipeline.Release()
	}
	var errs []error
	if db.provider != nil {
		if err := db.provider.Close(); err != nil {
			db.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if db.repo != nil {
		if err := db.repo.Close(); err != nil {
			db.logger.Error("error closing repository", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config returns the validated configuration.
func (db *Database) Config() *config.Config { return db.cfg }

// Repository returns the storage handle.
func (db *Database) Repository() storage.Repository { return db.repo }

// Metrics returns the Prometheus metrics every component reports to.
func (db *Database) Metrics() *metric.Metrics { return db.metrics }

// Pipeline returns the ingestion pipeline.
func (db *Database) Pipeline() *ingestion.Pipeline { return db.pipeline }

// Retriever returns the chunk retriever.
func (db *Database) Retriever() *search.Retriever { return db.retriever }

// Ingest ingests one transcript.
func (db *Database) Ingest(ctx context.Context, req ingestion.Request) (*ingestion.Result, error) {
	return db.pipeline.Ingest(ctx, req)
}

// IngestAll ingests transcripts concurrently. Outcomes are in request order.
func (db *Database) IngestAll(ctx context.Context, requests []ingestion.Request) []ingestion.Outcome {
	return db.pipeline.IngestAll(ctx, requests)
}

// Ask answers question from the stored transcripts matching filters.
func (db *Database) Ask(ctx context.Context, question string, filters core.Filters) (*qa.Response, error) {
	return db.answerer.Answer(ctx, question, filters)
}

// Retrieve returns the chunks most similar to question.
func (db *Database) Retrieve(ctx context.Context, question string, filters core.Filters) ([]core.ScoredChunk, error) {
	return db.retriever.RetrieveTopK(ctx, question, filters)
}

// SearchTranscripts runs a full-text search over stored transcripts.
func (db *Database) SearchTranscripts(ctx context.Context, req search.TranscriptSearch) (*core.TranscriptPage, error) {
	return db.retriever.SearchTranscripts(ctx, req)
}

// Reembed embeds every stored chunk that has no vector. Progress lines go
// to progress, which may be nil.
func (db *Database) Reembed(ctx context.Context, progress io.Writer) (reembed.Stats, error) {
	cfg := reembed.DefaultConfig()
	cfg.BatchSize = db.cfg.Ingestion.ReembedBatchSize
	cfg.ReportInterval = db.cfg.Ingestion.ReembedBatchSize
	r, err := reembed.NewReembedder(db.repo, db.pipeline.EmbeddingCache(), cfg, progress, reembed.WithLogger(db.logger))
	if err != nil {
		return reembed.Stats{}, err
	}
	return r.Run(ctx)
}

// TranscriptSummary is one row of a transcript listing.
type TranscriptSummary struct {
	Company    *core.Company
	Transcript *core.Transcript
}

// ListTranscripts returns the transcripts of the companies matching ref,
// newest fiscal period first. An empty ref lists every transcript.
func (db *Database) ListTranscripts(ctx context.Context, ref string) ([]TranscriptSummary, error) {
	companies, err := db.companies(ctx, ref)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*core.Company, len(companies))
	filter := core.TranscriptFilter{}
	for _, c := range companies {
		byID[c.ID] = c
		filter.CompanyIDs = append(filter.CompanyIDs, c.ID)
	}

	transcripts, err := db.repo.FindTranscripts(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]TranscriptSummary, 0, len(transcripts))
	for _, t := range transcripts {
		out = append(out, TranscriptSummary{Company: byID[t.CompanyID], Transcript: t})
	}
	return out, nil
}

// TranscriptView is a stored transcript with its company and organization
// mentions.
type TranscriptView struct {
	Company    *core.Company
	Transcript *core.Transcript
	Orgs       []core.OrgEntity
	Chunks     int
}

// ViewTranscript returns the transcript of the company matching ref for a
// fiscal period.
func (db *Database) ViewTranscript(ctx context.Context, ref string, year, quarter int) (*TranscriptView, error) {
	if err := core.ValidateFiscalPeriod(year, quarter); err != nil {
		return nil, err
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: company is required", core.ErrInvalid)
	}
	companies, err := db.companies(ctx, ref)
	if err != nil {
		return nil, err
	}
	for _, company := range companies {
		t, err := db.repo.FindTranscriptByPeriod(ctx, company.ID, year, quarter)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		orgs, err := db.repo.GetOrgEntities(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		chunks, err := db.repo.ListChunks(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		return &TranscriptView{Company: company, Transcript: t, Orgs: orgs, Chunks: len(chunks)}, nil
	}
	return nil, fmt.Errorf("%w: no transcript for %s %dQ%d", storage.ErrNotFound, ref, year, quarter)
}

// PreviewChunks fetches a transcript from the source and chunks it without
// storing anything. Chunk and transcript IDs are placeholders.
func (db *Database) PreviewChunks(ctx context.Context, ticker string, year, quarter int) ([]core.Chunk, error) {
	if err := core.ValidateFiscalPeriod(year, quarter); err != nil {
		return nil, err
	}
	doc, err := db.source.Fetch(ctx, core.NormalizeTicker(ticker), year, quarter)
	if err != nil {
		return nil, err
	}
	t, err := ingestion.Preprocess(ctx, uuid.Nil, year, quarter, doc, nil)
	if err != nil {
		return nil, err
	}
	t.ID = uuid.New()
	return db.chunker.Build(ctx, t)
}

func (db *Database) companies(ctx context.Context, ref string) ([]*core.Company, error) {
	if ref == "" {
		return db.repo.ListCompanies(ctx)
	}
	companies, err := db.retriever.MatchCompanies(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(companies) == 0 {
		return nil, fmt.Errorf("%w %q", ErrCompanyNotFound, ref)
	}
	return companies, nil
}
