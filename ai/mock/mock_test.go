package mock

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/poiesic/earningsrag/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ai.AIProvider = (*MockProvider)(nil)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	v1, err := m.EmbedText(context.Background(), "guidance")
	require.NoError(t, err)
	v2, err := m.EmbedText(context.Background(), "guidance")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, DefaultDimensions)

	var norm float64
	for _, v := range v1 {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4)
}

func TestMockEmbedder_PinnedVectorsAndCounts(t *testing.T) {
	m := NewMockEmbedderWithDimensions(2)
	m.Vectors = map[string][]float32{"query": {1, 0}}

	vs, err := m.EmbedTexts(context.Background(), []string{"query", "other"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vs[0])
	assert.Len(t, vs[1], 2)
	assert.Equal(t, 1, m.CallCount())
	assert.Equal(t, []string{"query", "other"}, m.EmbeddedTexts())

	m.Reset()
	assert.Zero(t, m.CallCount())
	assert.Empty(t, m.EmbeddedTexts())
}

func TestMockEmbedder_ConcurrentUse(t *testing.T) {
	m := NewMockEmbedder()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.EmbedText(context.Background(), "x")
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, m.CallCount())
}

func TestMockGeneratorAndExtractor(t *testing.T) {
	p := NewMockProvider()

	answer, err := p.Generator().Generate(context.Background(), "sys", "question")
	require.NoError(t, err)
	assert.Equal(t, "mock answer", answer)
	assert.Equal(t, 1, p.GetMockGenerator().CallCount())
	assert.Equal(t, "question", p.GetMockGenerator().LastUserPrompt())

	entities, err := p.EntityExtractor().ExtractEntities(context.Background(), "Apple and Foxconn grew.")
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "Foxconn"}, ai.Organizations(entities))
	assert.Equal(t, 1, p.GetMockExtractor().CallCount())
}
