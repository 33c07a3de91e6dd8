package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/earningsrag/ai"
	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/storage"
)

// ChunkStore is the storage the EmbeddingCache writes through.
type ChunkStore interface {
	storage.TransactionManager
	storage.ChunkRepository
}

// EmbeddingCache embeds chunks at most once. Chunks whose stored row already
// carries a vector are never sent to the embedding model again.
type EmbeddingCache struct {
	store    ChunkStore
	embedder ai.Embedder
	observer Observer
	logger   *slog.Logger
}

// CacheOption configures an EmbeddingCache.
type CacheOption func(*EmbeddingCache)

// WithCacheLogger sets a custom logger.
// Default is slog.Default().
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *EmbeddingCache) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// WithCacheObserver reports every EmbedChunks call to observer.
func WithCacheObserver(observer Observer) CacheOption {
	return func(c *EmbeddingCache) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// NewEmbeddingCache creates an embedding cache.
func NewEmbeddingCache(store ChunkStore, embedder ai.Embedder, opts ...CacheOption) (*EmbeddingCache, error) {
	if store == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	c := &EmbeddingCache{
		store:    store,
		embedder: embedder,
		observer: noopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "embedding-cache")
	return c, nil
}

// EmbedChunks stores chunks with embeddings using fill-missing-only upserts.
//
// Repeated keys are reduced to their first occurrence. Chunks already stored
// with a vector are skipped; the rest are embedded with a single model call
// and written in one transaction. A count or dimension mismatch in the model
// response aborts before any row is written.
func (c *EmbeddingCache) EmbedChunks(ctx context.Context, chunks []core.Chunk) error {
	_, err := c.embedChunks(ctx, chunks)
	return err
}

func (c *EmbeddingCache) embedChunks(ctx context.Context, chunks []core.Chunk) (storage.UpsertResult, error) {
	start := time.Now()
	unique := dedupe(chunks)
	if len(unique) == 0 {
		return storage.UpsertResult{}, nil
	}

	keys := make([]core.ChunkKey, len(unique))
	for i := range unique {
		keys[i] = unique[i].Key()
	}
	embedded, err := c.store.EmbeddedKeys(ctx, keys)
	if err != nil {
		return storage.UpsertResult{}, fmt.Errorf("looking up embedded chunks: %w", err)
	}

	pending := make([]core.Chunk, 0, len(unique))
	for _, chunk := range unique {
		if !embedded[chunk.Key()] {
			pending = append(pending, chunk)
		}
	}
	if len(pending) == 0 {
		c.logger.Debug("all chunks already embedded", "chunks", len(unique))
		result := storage.UpsertResult{Skipped: len(unique)}
		c.observer.ChunksEmbedded(result, 0, time.Since(start))
		return result, nil
	}

	texts := make([]string, len(pending))
	for i := range pending {
		texts[i] = pending[i].Text()
	}
	c.logger.Debug("embedding chunks", "pending", len(pending), "cached", len(unique)-len(pending))
	vectors, err := c.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return storage.UpsertResult{}, ai.UpstreamError("embed chunks", err)
	}
	if err := ai.CheckEmbeddings(vectors, len(texts), c.embedder.Dimensions()); err != nil {
		return storage.UpsertResult{}, err
	}

	model := c.embedder.Model()
	records := make([]*core.ChunkRecord, len(pending))
	for i := range pending {
		records[i] = &core.ChunkRecord{
			Chunk:          pending[i],
			Embedding:      vectors[i],
			EmbeddingModel: model,
		}
	}

	var result storage.UpsertResult
	err = c.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		result, err = c.store.UpsertChunks(ctx, records)
		return err
	})
	if err != nil {
		return storage.UpsertResult{}, fmt.Errorf("storing embeddings: %w", err)
	}
	result.Skipped += len(unique) - len(pending)

	c.logger.Info("embedded chunks",
		"inserted", result.Inserted, "filled", result.Filled, "skipped", result.Skipped)
	c.observer.ChunksEmbedded(result, len(pending), time.Since(start))
	return result, nil
}

// StoreChunks persists chunks without embeddings. Existing rows are left
// untouched.
func (c *EmbeddingCache) StoreChunks(ctx context.Context, chunks []core.Chunk) (storage.UpsertResult, error) {
	unique := dedupe(chunks)
	records := make([]*core.ChunkRecord, len(unique))
	for i := range unique {
		records[i] = &core.ChunkRecord{Chunk: unique[i]}
	}
	var result storage.UpsertResult
	err := c.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		result, err = c.store.UpsertChunks(ctx, records)
		return err
	})
	return result, err
}

// dedupe keeps the first chunk of every key, preserving order.
func dedupe(chunks []core.Chunk) []core.Chunk {
	seen := make(map[core.ChunkKey]bool, len(chunks))
	out := make([]core.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		key := chunk.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, chunk)
	}
	return out
}
