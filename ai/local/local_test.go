package local

import (
	"context"
	"math"
	"testing"

	"github.com/poiesic/earningsrag/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestEmbedder_Deterministic(t *testing.T) {
	e := NewEmbedder(64)
	ctx := context.Background()

	v1, err := e.EmbedText(ctx, "Cloud revenue grew strongly")
	require.NoError(t, err)
	v2, err := e.EmbedText(ctx, "Cloud revenue grew strongly")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 64)
	assert.InDelta(t, 1.0, cosine(v1, v1), 1e-6)
	assert.Equal(t, "hashed-bow-64", e.Model())
	assert.Equal(t, 64, e.Dimensions())
}

func TestEmbedder_SimilarTextsScoreHigher(t *testing.T) {
	e := NewEmbedder(384)
	vs, err := e.EmbedTexts(context.Background(), []string{
		"cloud revenue growth",
		"growth in cloud revenue",
		"dividend payout ratio",
	})
	require.NoError(t, err)

	assert.Greater(t, cosine(vs[0], vs[1]), cosine(vs[0], vs[2]))
	assert.InDelta(t, 1.0, cosine(vs[0], vs[1]), 1e-6, "same bag of words")
}

func TestEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	v, err := NewEmbedder(8).EmbedText(context.Background(), "the of and")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), v)
}

func TestEmbedder_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEmbedder(8).EmbedTexts(ctx, []string{"a"})
	assert.ErrorIs(t, err, ai.ErrUpstream)
}

func TestEntityExtractor(t *testing.T) {
	x := NewEntityExtractor()
	got, err := x.ExtractEntities(context.Background(),
		"Thanks. Demand from Apple Inc. and TSMC stayed strong, while Acme Holdings lagged. TSMC again.")
	require.NoError(t, err)

	assert.Equal(t, []string{"Apple Inc", "TSMC", "Acme Holdings", "TSMC"}, ai.Organizations(got))
}

func TestProvider(t *testing.T) {
	p, err := NewProvider(ai.NewConfig(ai.WithProvider(ai.ProviderLocal), ai.WithEmbeddingDimensions(32)))
	require.NoError(t, err)
	assert.Equal(t, 32, p.Embedder().Dimensions())

	_, err = p.Generator().Generate(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ai.ErrNotSupported)
	assert.NoError(t, p.Close())
}
