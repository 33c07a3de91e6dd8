// Package local provides AI services that run in-process without a model
// server: a feature-hashing embedder for offline ingestion and a heuristic
// organization extractor. It offers no answer generation.
package local

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/poiesic/earningsrag/ai"
	"github.com/poiesic/earningsrag/fulltext"
)

// Embedder produces lexical embeddings by hashing tokens into a fixed number
// of signed buckets. Vectors are L2 normalized so cosine similarity applies.
// The mapping is stateless: the same text always gives the same vector.
type Embedder struct {
	dims int
}

// NewEmbedder creates an embedder producing vectors of dims entries.
func NewEmbedder(dims int) *Embedder {
	if dims <= 0 {
		dims = 384
	}
	return &Embedder{dims: dims}
}

// EmbedText embeds a single text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, ai.UpstreamError("embed", err)
	}
	return e.vector(text), nil
}

// EmbedTexts embeds texts in order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, ai.UpstreamError("embed", err)
			}
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

// Model identifies the hashing scheme and width.
func (e *Embedder) Model() string {
	return fmt.Sprintf("hashed-bow-%d", e.dims)
}

// Dimensions returns the vector length.
func (e *Embedder) Dimensions() int {
	return e.dims
}

func (e *Embedder) vector(text string) []float32 {
	vec := make([]float32, e.dims)
	tf, _ := fulltext.TermFrequencies(text)
	if len(tf) == 0 {
		return vec
	}

	for term, count := range tf {
		h := fnv.New64a()
		_, _ = h.Write([]byte(term))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dims))
		sign := float32(1)
		if sum>>63 == 1 {
			sign = -1
		}
		// Sublinear term frequency damps repeated words.
		vec[idx] += sign * float32(1+math.Log(float64(count)))
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
