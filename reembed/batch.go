package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/earningsrag/core"
)

// ChunkEmbedder embeds and stores chunks. *ingestion.EmbeddingCache
// satisfies it.
type ChunkEmbedder interface {
	EmbedChunks(ctx context.Context, chunks []core.Chunk) error
}

// BatchProcessor embeds batches of chunks with retries.
type BatchProcessor struct {
	cache          ChunkEmbedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts per batch
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(cache ChunkEmbedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		cache:          cache,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds the chunks of records and writes the vectors back. The
// cache never overwrites a stored embedding, so a retry after a partial
// failure only fills what is still missing.
func (bp *BatchProcessor) Process(ctx context.Context, records []*core.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	chunks := make([]core.Chunk, len(records))
	for i, record := range records {
		chunks[i] = record.Chunk
	}

	err := RetryWithBackoff(ctx, func() error {
		return bp.cache.EmbedChunks(ctx, chunks)
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}
	return nil
}
