package chunking

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/poiesic/earningsrag/core"
)

// ClusterSentences groups sentences into chunk texts with single-pass greedy
// online clustering. vectors[i] is the embedding of sentences[i].
//
// The first sentence seeds the running chunk and its mean. Each following
// sentence joins when its cosine similarity to the mean is at least
// threshold and the running chunk's token estimate (characters/4, rounded
// down) is below maxTokens; the mean then becomes the elementwise average
// of the old mean and the sentence vector. Otherwise the running chunk is
// closed and the sentence seeds a new one.
//
// The mean is not reweighted by chunk size, so later sentences pull it
// harder than earlier ones.
func ClusterSentences(sentences []string, vectors [][]float32, threshold float64, maxTokens int) ([]string, error) {
	if len(sentences) != len(vectors) {
		return nil, fmt.Errorf("chunking: %d sentences but %d vectors", len(sentences), len(vectors))
	}
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []string
	current := []string{sentences[0]}
	mean := append([]float32(nil), vectors[0]...)

	for i := 1; i < len(sentences); i++ {
		sim := cosine(mean, vectors[i])
		tokens := utf8.RuneCountInString(strings.Join(current, " ")) / 4

		if sim >= threshold && tokens < maxTokens {
			current = append(current, sentences[i])
			mean = average(mean, vectors[i])
			continue
		}
		chunks = append(chunks, strings.Join(current, " "))
		current = []string{sentences[i]}
		mean = append(mean[:0:0], vectors[i]...)
	}
	chunks = append(chunks, strings.Join(current, " "))
	return chunks, nil
}

// SemanticChunks stamps clustered texts as chunks. Indices are 1-based
// positions in the transcript's chunk list.
func SemanticChunks(transcriptID, companyID uuid.UUID, texts []string) []core.Chunk {
	chunks := make([]core.Chunk, 0, len(texts))
	for i, text := range texts {
		idx := i + 1
		data := textStats(text)
		data[core.KeyChunkIndex] = idx
		chunks = append(chunks, core.NewChunk(transcriptID, companyID, idx, data))
	}
	return chunks
}

// cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or their lengths differ.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
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

func average(a, b []float32) []float32 {
	out := make([]float32, len(a))
	for i := range a {
		out[i] = (a[i] + b[i]) / 2
	}
	return out
}
