package reembed

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/earningsrag/ai/mock"
	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/ingestion"
	"github.com/poiesic/earningsrag/storage"
	"github.com/poiesic/earningsrag/storage/badger"
)

func setupTestDB(t *testing.T) storage.Repository {
	t.Helper()
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func setupCache(t *testing.T, repo storage.Repository) (*ingestion.EmbeddingCache, *mock.MockEmbedder) {
	t.Helper()
	embedder := mock.NewMockEmbedderWithDimensions(8)
	cache, err := ingestion.NewEmbeddingCache(repo, embedder)
	require.NoError(t, err)
	return cache, embedder
}

// seedUnembedded stores n chunks of one transcript without vectors.
func seedUnembedded(t *testing.T, repo storage.Repository, n int) []core.Chunk {
	t.Helper()
	cache, _ := setupCache(t, repo)
	transcriptID, companyID := uuid.New(), uuid.New()
	chunks := make([]core.Chunk, n)
	for i := range chunks {
		chunks[i] = core.NewChunk(transcriptID, companyID, i, core.ChunkData{
			core.KeyChunkText: fmt.Sprintf("Chunk %d of the prepared remarks.", i),
		})
	}
	result, err := cache.StoreChunks(context.Background(), chunks)
	require.NoError(t, err)
	require.Equal(t, n, result.Inserted)
	return chunks
}

func missingCount(t *testing.T, repo storage.Repository) int {
	t.Helper()
	n, err := NewMissingIterator(repo, 5).Count(context.Background())
	require.NoError(t, err)
	return n
}
