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
	"github.com/poiesic/earningsrag/source"
)

func speaker(name string) *string { return &name }

func testDocument() *source.Document {
	return &source.Document{
		Source:    "test",
		SourceURL: "https://example.com/msft-2024-q1",
		Paragraphs: []core.Paragraph{
			{Number: 1, Speaker: speaker("Operator"), Content: "Welcome to the call."},
			{Number: 2, Speaker: speaker("CEO"), Content: "Azure grew 31%. Office was steady."},
		},
	}
}

func TestPreprocess(t *testing.T) {
	companyID := uuid.New()
	extractor := mock.NewMockEntityExtractor()
	extractor.ExtractEntitiesFunc = func(_ context.Context, text string) ([]ai.Entity, error) {
		return []ai.Entity{
			{Text: "OpenAI", Label: ai.LabelOrganization},
			{Text: "Satya", Label: ai.LabelPerson},
			{Text: "Nvidia Corp.", Label: ai.LabelOrganization},
			{Text: "openai", Label: ai.LabelOrganization},
		}, nil
	}

	transcript, err := Preprocess(context.Background(), companyID, 2024, 1, testDocument(), extractor)
	require.NoError(t, err)

	raw := "Welcome to the call. Azure grew 31%. Office was steady."
	assert.Equal(t, raw, transcript.RawText)
	assert.Equal(t, core.ContentHash(raw), transcript.ContentHash)
	assert.Equal(t, uuid.Nil, transcript.ID)
	assert.Equal(t, companyID, transcript.CompanyID)
	assert.Equal(t, 2024, transcript.FiscalYear)
	assert.Equal(t, 1, transcript.FiscalQuarter)
	assert.Equal(t, "test", transcript.Source)
	assert.Len(t, transcript.Paragraphs, 2)
	assert.False(t, transcript.PreprocessedAt.IsZero())

	assert.Equal(t, core.DocumentMeta{CharCount: len(raw), WordCount: 10, SentenceCount: 3}, transcript.DocumentMeta)

	assert.Equal(t, core.OrgData{
		UniqueCount: 2,
		Frequencies: []core.OrgFrequency{{Name: "openai", Count: 2}, {Name: "nvidia", Count: 1}},
	}, transcript.OrgData)
	assert.Equal(t, 1, extractor.CallCount())
}

func TestPreprocess_WithoutExtractor(t *testing.T) {
	transcript, err := Preprocess(context.Background(), uuid.New(), 2024, 1, testDocument(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, transcript.OrgData.UniqueCount)
	assert.NotNil(t, transcript.OrgData.Frequencies)
}

func TestPreprocess_EmptyDocument(t *testing.T) {
	_, err := Preprocess(context.Background(), uuid.New(), 2024, 1, &source.Document{}, nil)
	assert.ErrorIs(t, err, source.ErrNotFound)

	_, err = Preprocess(context.Background(), uuid.New(), 2024, 1, nil, nil)
	assert.ErrorIs(t, err, source.ErrNotFound)
}

func TestPreprocess_ExtractorFailure(t *testing.T) {
	extractor := mock.NewMockEntityExtractor()
	extractor.ExtractEntitiesFunc = func(context.Context, string) ([]ai.Entity, error) {
		return nil, errors.New("model unavailable")
	}
	_, err := Preprocess(context.Background(), uuid.New(), 2024, 1, testDocument(), extractor)
	assert.ErrorContains(t, err, "extracting organizations")
}
