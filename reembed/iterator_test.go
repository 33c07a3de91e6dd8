package reembed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/earningsrag/core"
)

func TestMissingIterator_ForEach(t *testing.T) {
	repo := setupTestDB(t)
	seedUnembedded(t, repo, 7)

	var sizes []int
	seen := map[core.ChunkKey]bool{}
	err := NewMissingIterator(repo, 3).ForEach(context.Background(), func(batch []*core.ChunkRecord) error {
		sizes = append(sizes, len(batch))
		for _, r := range batch {
			assert.False(t, seen[r.Key()], "chunk returned twice")
			seen[r.Key()] = true
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 1}, sizes)
	assert.Len(t, seen, 7)
}

func TestMissingIterator_ExactMultiple(t *testing.T) {
	repo := setupTestDB(t)
	seedUnembedded(t, repo, 6)

	batches := 0
	err := NewMissingIterator(repo, 3).ForEach(context.Background(), func([]*core.ChunkRecord) error {
		batches++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, batches)
}

func TestMissingIterator_SkipsEmbedded(t *testing.T) {
	repo := setupTestDB(t)
	chunks := seedUnembedded(t, repo, 4)
	cache, _ := setupCache(t, repo)
	require.NoError(t, cache.EmbedChunks(context.Background(), chunks[:2]))

	assert.Equal(t, 2, missingCount(t, repo))
}

func TestMissingIterator_Empty(t *testing.T) {
	repo := setupTestDB(t)
	called := false
	err := NewMissingIterator(repo, 0).ForEach(context.Background(), func([]*core.ChunkRecord) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestMissingIterator_Errors(t *testing.T) {
	repo := setupTestDB(t)
	seedUnembedded(t, repo, 5)

	boom := errors.New("boom")
	err := NewMissingIterator(repo, 2).ForEach(context.Background(), func([]*core.ChunkRecord) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewMissingIterator(repo, 2).ForEach(ctx, func([]*core.ChunkRecord) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
