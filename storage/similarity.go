package storage

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/poiesic/earningsrag/core"
)

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length or with zero magnitude score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
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
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// CheckDimension reports ErrDimensionMismatch when a stored vector cannot be
// compared with the query vector.
func CheckDimension(query, stored []float32, key core.ChunkKey) error {
	if len(query) != len(stored) {
		return fmt.Errorf("%w: chunk %s/%s has %d dimensions, query has %d",
			ErrDimensionMismatch, key.TranscriptID, key.ChunkID, len(stored), len(query))
	}
	return nil
}

// SortScored orders hits by score descending, breaking ties by chunk ID
// ascending, and truncates the result to limit when limit is positive.
func SortScored(hits []core.ScoredChunk, limit int) []core.ScoredChunk {
	slices.SortFunc(hits, func(a, b core.ScoredChunk) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return strings.Compare(a.Chunk.ChunkID.String(), b.Chunk.ChunkID.String())
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// CompareChunkKeys orders chunk keys by transcript ID, then chunk ID.
func CompareChunkKeys(a, b core.ChunkKey) int {
	if c := strings.Compare(a.TranscriptID.String(), b.TranscriptID.String()); c != 0 {
		return c
	}
	return strings.Compare(a.ChunkID.String(), b.ChunkID.String())
}
