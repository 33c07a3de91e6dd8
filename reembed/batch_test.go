package reembed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/earningsrag/ai"
	"github.com/poiesic/earningsrag/core"
)

func TestBatchProcessor_Process(t *testing.T) {
	repo := setupTestDB(t)
	chunks := seedUnembedded(t, repo, 3)
	cache, embedder := setupCache(t, repo)

	records := make([]*core.ChunkRecord, len(chunks))
	for i := range chunks {
		records[i] = &core.ChunkRecord{Chunk: chunks[i]}
	}
	require.NoError(t, NewBatchProcessor(cache, 3, time.Millisecond).Process(context.Background(), records))

	assert.Equal(t, 1, embedder.CallCount())
	for _, c := range chunks {
		stored, err := repo.GetChunk(context.Background(), c.Key())
		require.NoError(t, err)
		assert.Len(t, stored.Embedding, 8)
		assert.Equal(t, "mock-embedding", stored.EmbeddingModel)
	}
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	repo := setupTestDB(t)
	cache, embedder := setupCache(t, repo)

	require.NoError(t, NewBatchProcessor(cache, 3, time.Millisecond).Process(context.Background(), nil))
	assert.Equal(t, 0, embedder.CallCount())
}

func TestBatchProcessor_RetriesUpstreamFailures(t *testing.T) {
	repo := setupTestDB(t)
	chunks := seedUnembedded(t, repo, 2)
	cache, embedder := setupCache(t, repo)

	calls := 0
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset")
		}
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{1, 0, 0, 0, 0, 0, 0, 0}
		}
		return out, nil
	}

	records := []*core.ChunkRecord{{Chunk: chunks[0]}, {Chunk: chunks[1]}}
	require.NoError(t, NewBatchProcessor(cache, 5, time.Millisecond).Process(context.Background(), records))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, missingCount(t, repo))
}

func TestBatchProcessor_DimensionMismatchIsNotRetried(t *testing.T) {
	repo := setupTestDB(t)
	chunks := seedUnembedded(t, repo, 1)
	cache, embedder := setupCache(t, repo)
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1, 2}}, nil
	}

	err := NewBatchProcessor(cache, 5, time.Millisecond).Process(context.Background(), []*core.ChunkRecord{{Chunk: chunks[0]}})
	require.ErrorIs(t, err, ai.ErrDimensionMismatch)
	assert.Equal(t, 1, embedder.CallCount())
	assert.Equal(t, 1, missingCount(t, repo))
}
