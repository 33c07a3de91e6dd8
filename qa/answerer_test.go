package qa

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/earningsrag/ai"
	"github.com/poiesic/earningsrag/ai/mock"
	"github.com/poiesic/earningsrag/chunking"
	"github.com/poiesic/earningsrag/core"
)

type stubRetriever struct {
	results []core.ScoredChunk
	err     error
	filters core.Filters
}

func (s *stubRetriever) RetrieveTopK(_ context.Context, _ string, filters core.Filters) ([]core.ScoredChunk, error) {
	s.filters = filters
	return s.results, s.err
}

func TestNewAnswerer(t *testing.T) {
	generator := mock.NewMockGenerator("answer")

	_, err := NewAnswerer(nil, generator, DefaultOptions())
	assert.ErrorIs(t, err, ErrRetrieverRequired)

	_, err = NewAnswerer(&stubRetriever{}, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrGeneratorRequired)

	_, err = NewAnswerer(&stubRetriever{}, generator, Options{})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	a, err := NewAnswerer(&stubRetriever{}, generator, DefaultOptions(), WithLogger(nil))
	require.NoError(t, err)
	assert.NotNil(t, a.logger)
}

func TestAnswer_NoEvidenceSkipsGenerator(t *testing.T) {
	generator := mock.NewMockGenerator("should not be used")
	a, err := NewAnswerer(&stubRetriever{results: []core.ScoredChunk{}}, generator, DefaultOptions())
	require.NoError(t, err)

	resp, err := a.Answer(context.Background(), "What was capex?", core.Filters{})
	require.NoError(t, err)
	assert.Equal(t, InsufficientEvidenceAnswer, resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, 0, generator.CallCount())
}

func TestAnswer_ParagraphSources(t *testing.T) {
	year := 2024
	retriever := &stubRetriever{results: []core.ScoredChunk{
		scored("Azure and other cloud services revenue grew 31%.", 0.91, core.ChunkData{
			core.KeyParaSpeaker: "Amy Hood",
			core.KeyParaNumber:  7,
		}),
		scored("Short.", 0.74, nil),
	}}
	generator := mock.NewMockGenerator("  Azure grew 31% [chunk_id=x].")
	a, err := NewAnswerer(retriever, generator, DefaultOptions())
	require.NoError(t, err)

	resp, err := a.Answer(context.Background(), "How did Azure do?", core.Filters{Year: &year, Company: "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, "  Azure grew 31% [chunk_id=x].", resp.Answer)
	assert.Equal(t, 1, generator.CallCount())
	assert.Contains(t, generator.LastUserPrompt(), "How did Azure do?")
	assert.Equal(t, "MSFT", retriever.filters.Company)

	require.Len(t, resp.Sources, 2)
	first := resp.Sources[0]
	assert.Equal(t, "Azure and other clou", first.Snippet)
	assert.Equal(t, "Amy Hood", first.Speaker)
	assert.Equal(t, 7, first.ParagraphNumber)
	assert.InDelta(t, 0.91, first.Score, 1e-6)
	assert.Equal(t, retriever.results[0].Chunk.ChunkID, first.ChunkID)
	assert.Equal(t, retriever.results[0].Chunk.TranscriptID, first.TranscriptID)
	assert.Equal(t, retriever.results[0].Chunk.CompanyID, first.CompanyID)

	assert.Equal(t, "Short.", resp.Sources[1].Snippet)
	assert.Equal(t, "", resp.Sources[1].Speaker)
}

func TestAnswer_SemanticSources(t *testing.T) {
	retriever := &stubRetriever{results: []core.ScoredChunk{
		scored("Margins expanded across segments this quarter.", 0.8, nil),
	}}
	a, err := NewAnswerer(retriever, mock.NewMockGenerator("ok"), Options{Strategy: chunking.StrategySemantic, MaxContextChars: 2000})
	require.NoError(t, err)

	resp, err := a.Answer(context.Background(), "margins?", core.Filters{})
	require.NoError(t, err)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, MultiSpeaker, resp.Sources[0].Speaker)
	assert.Equal(t, 0, resp.Sources[0].ParagraphNumber)
}

func TestAnswer_Errors(t *testing.T) {
	t.Run("retrieval failure", func(t *testing.T) {
		boom := errors.New("boom")
		a, err := NewAnswerer(&stubRetriever{err: boom}, mock.NewMockGenerator("x"), DefaultOptions())
		require.NoError(t, err)
		_, err = a.Answer(context.Background(), "q", core.Filters{})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("generator failure is upstream", func(t *testing.T) {
		generator := mock.NewMockGenerator("")
		generator.GenerateFunc = func(context.Context, string, string) (string, error) {
			return "", errors.New("502 bad gateway")
		}
		a, err := NewAnswerer(&stubRetriever{results: []core.ScoredChunk{scored("text", 0.9, nil)}}, generator, DefaultOptions())
		require.NoError(t, err)
		_, err = a.Answer(context.Background(), "q", core.Filters{})
		assert.ErrorIs(t, err, ai.ErrUpstream)
		assert.Equal(t, core.ClassUpstream, core.Classify(err))
	})
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "abc", snippet("abc", 20))
	assert.Equal(t, "ab", snippet("abc", 2))
	assert.Equal(t, "éé", snippet("ééé", 2))
}
