package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/earningsrag/ai"
	"github.com/poiesic/earningsrag/ai/mock"
	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/storage"
	"github.com/poiesic/earningsrag/storage/badger"
	"github.com/poiesic/earningsrag/storage/storagetest"
)

func setupTestRepository(t *testing.T) storage.Repository {
	t.Helper()
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// storedTranscript creates a company and a transcript to hang chunks off.
func storedTranscript(t *testing.T, repo storage.Repository) *core.Transcript {
	t.Helper()
	ctx := context.Background()
	company, _, err := repo.GetOrCreateCompany(ctx, &core.Company{Name: "Microsoft", Ticker: "MSFT", ExchangeCode: "US"})
	require.NoError(t, err)
	transcript, err := repo.AddTranscript(ctx, storagetest.NewTranscript(company.ID, 2024, 1, "Azure grew."), nil)
	require.NoError(t, err)
	return transcript
}

func testChunks(t *core.Transcript, texts ...string) []core.Chunk {
	chunks := make([]core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = core.NewChunk(t.ID, t.CompanyID, i+1, core.ChunkData{core.KeyChunkText: text})
	}
	return chunks
}

func TestNewEmbeddingCache(t *testing.T) {
	repo := setupTestRepository(t)

	_, err := NewEmbeddingCache(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrRepositoryRequired)

	_, err = NewEmbeddingCache(repo, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	cache, err := NewEmbeddingCache(repo, mock.NewMockEmbedder())
	require.NoError(t, err)
	assert.NotNil(t, cache.logger)
}

func TestEmbedChunks_SecondCallAvoidsEmbedder(t *testing.T) {
	repo := setupTestRepository(t)
	embedder := mock.NewMockEmbedderWithDimensions(8)
	cache, err := NewEmbeddingCache(repo, embedder)
	require.NoError(t, err)
	ctx := context.Background()

	transcript := storedTranscript(t, repo)
	chunks := testChunks(transcript, "Azure revenue grew.", "Margins expanded.")

	require.NoError(t, cache.EmbedChunks(ctx, chunks))
	assert.Equal(t, 1, embedder.CallCount(), "one batched call for all chunks")

	require.NoError(t, cache.EmbedChunks(ctx, chunks))
	assert.Equal(t, 1, embedder.CallCount(), "cached chunks are not embedded again")

	for _, c := range chunks {
		got, err := repo.GetChunk(ctx, c.Key())
		require.NoError(t, err)
		assert.Len(t, got.Embedding, 8)
		assert.Equal(t, "mock-embedding", got.EmbeddingModel)
		assert.False(t, got.UpdatedAt.IsZero())
	}
}

func TestEmbedChunks_EmptyInput(t *testing.T) {
	repo := setupTestRepository(t)
	embedder := mock.NewMockEmbedder()
	cache, err := NewEmbeddingCache(repo, embedder)
	require.NoError(t, err)

	require.NoError(t, cache.EmbedChunks(context.Background(), nil))
	assert.Equal(t, 0, embedder.CallCount())
}

func TestEmbedChunks_DeduplicatesFirstWins(t *testing.T) {
	repo := setupTestRepository(t)
	embedder := mock.NewMockEmbedderWithDimensions(4)
	cache, err := NewEmbeddingCache(repo, embedder)
	require.NoError(t, err)
	ctx := context.Background()

	transcript := storedTranscript(t, repo)
	first := core.NewChunk(transcript.ID, transcript.CompanyID, 1, core.ChunkData{core.KeyChunkText: "first"})
	dup := first
	dup.Data = core.ChunkData{core.KeyChunkText: "second"}

	result, err := cache.embedChunks(ctx, []core.Chunk{first, dup})
	require.NoError(t, err)
	assert.Equal(t, storage.UpsertResult{Inserted: 1}, result)
	assert.Equal(t, []string{"first"}, embedder.EmbeddedTexts())

	got, err := repo.GetChunk(ctx, first.Key())
	require.NoError(t, err)
	assert.Equal(t, "first", got.Text())
}

func TestEmbedChunks_FillsMissingOnly(t *testing.T) {
	repo := setupTestRepository(t)
	embedder := mock.NewMockEmbedderWithDimensions(2)
	embedder.Vectors = map[string][]float32{
		"bare":     {0, 1},
		"embedded": {9, 9},
		"new":      {1, 1},
	}
	cache, err := NewEmbeddingCache(repo, embedder)
	require.NoError(t, err)
	ctx := context.Background()

	transcript := storedTranscript(t, repo)
	chunks := testChunks(transcript, "bare", "embedded", "new")
	_, err = repo.UpsertChunks(ctx, []*core.ChunkRecord{
		{Chunk: chunks[0]},
		{Chunk: chunks[1], Embedding: []float32{1, 0}, EmbeddingModel: "old-model"},
	})
	require.NoError(t, err)

	result, err := cache.embedChunks(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, storage.UpsertResult{Inserted: 1, Filled: 1, Skipped: 1}, result)
	assert.ElementsMatch(t, []string{"bare", "new"}, embedder.EmbeddedTexts())

	bare, err := repo.GetChunk(ctx, chunks[0].Key())
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, bare.Embedding)

	embedded, err := repo.GetChunk(ctx, chunks[1].Key())
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, embedded.Embedding, "existing vector is never overwritten")
	assert.Equal(t, "old-model", embedded.EmbeddingModel)
}

func TestEmbedChunks_MismatchWritesNothing(t *testing.T) {
	tests := []struct {
		name    string
		vectors func(texts []string) [][]float32
	}{
		{"too few vectors", func(texts []string) [][]float32 {
			return [][]float32{{1, 0}}
		}},
		{"wrong dimensions", func(texts []string) [][]float32 {
			out := make([][]float32, len(texts))
			for i := range out {
				out[i] = []float32{1, 0, 0}
			}
			return out
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := setupTestRepository(t)
			embedder := mock.NewMockEmbedderWithDimensions(2)
			embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
				return tt.vectors(texts), nil
			}
			cache, err := NewEmbeddingCache(repo, embedder)
			require.NoError(t, err)
			ctx := context.Background()

			transcript := storedTranscript(t, repo)
			chunks := testChunks(transcript, "a", "b")
			err = cache.EmbedChunks(ctx, chunks)
			assert.ErrorIs(t, err, ai.ErrDimensionMismatch)
			assert.Equal(t, core.ClassConfiguration, core.Classify(err))

			stored, err := repo.ListChunks(ctx, transcript.ID)
			require.NoError(t, err)
			assert.Empty(t, stored)
		})
	}
}

func TestEmbedChunks_EmbedderFailureIsUpstream(t *testing.T) {
	repo := setupTestRepository(t)
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("connection refused")
	}
	cache, err := NewEmbeddingCache(repo, embedder)
	require.NoError(t, err)

	transcript := storedTranscript(t, repo)
	err = cache.EmbedChunks(context.Background(), testChunks(transcript, "a"))
	assert.ErrorIs(t, err, ai.ErrUpstream)
	assert.Equal(t, core.ClassUpstream, core.Classify(err))
}

func TestStoreChunks_WithoutEmbeddings(t *testing.T) {
	repo := setupTestRepository(t)
	embedder := mock.NewMockEmbedder()
	cache, err := NewEmbeddingCache(repo, embedder)
	require.NoError(t, err)
	ctx := context.Background()

	transcript := storedTranscript(t, repo)
	result, err := cache.StoreChunks(ctx, testChunks(transcript, "a", "b"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, embedder.CallCount())

	missing, err := repo.ChunksMissingEmbeddings(ctx, nil, 10)
	require.NoError(t, err)
	assert.Len(t, missing, 2)
}

func TestDedupe(t *testing.T) {
	tid := uuid.New()
	a := core.NewChunk(tid, uuid.New(), 1, core.ChunkData{core.KeyChunkText: "a"})
	b := core.NewChunk(tid, uuid.New(), 2, core.ChunkData{core.KeyChunkText: "b"})
	assert.Equal(t, []core.Chunk{a, b}, dedupe([]core.Chunk{a, b, a}))
	assert.Empty(t, dedupe(nil))
}
