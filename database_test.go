package earningsrag

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/earningsrag/ai"
	"github.com/poiesic/earningsrag/ai/mock"
	"github.com/poiesic/earningsrag/config"
	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/ingestion"
	"github.com/poiesic/earningsrag/qa"
	"github.com/poiesic/earningsrag/search"
	"github.com/poiesic/earningsrag/source"
	"github.com/poiesic/earningsrag/storage"
)

const (
	azureText = "Azure and other cloud services revenue grew 29%. OpenAI remains a key partner."
	question  = "How did Azure perform?"
)

const msftQ1 = `source_url: https://example.com/msft-2024-q1
paragraphs:
  - paragraph_number: 1
    speaker: Operator
    content: Welcome to the Microsoft fiscal 2024 first quarter call.
  - paragraph_number: 2
    speaker: Satya Nadella
    content: ` + azureText + `
`

const msftQ2 = `paragraphs:
  - paragraph_number: 1
    speaker: Amy Hood
    content: Second quarter revenue was 62 billion dollars, up 18%.
`

const companies = `- name: Microsoft Corp
  ticker: MSFT
  aliases: [microsoft]
- name: Apple Inc
  ticker: AAPL
`

type fixture struct {
	cfg      *config.Config
	provider *mock.MockProvider
	db       *Database
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	transcripts := filepath.Join(dir, "transcripts")
	for _, f := range []struct {
		year, quarter int
		body          string
	}{{2024, 1, msftQ1}, {2024, 2, msftQ2}} {
		path := source.NewDirectory(transcripts).Path("MSFT", f.year, f.quarter)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(f.body), 0o644))
	}
	companiesFile := filepath.Join(dir, "companies.yaml")
	require.NoError(t, os.WriteFile(companiesFile, []byte(companies), 0o644))

	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(dir, "db")
	cfg.Ingestion.TranscriptsDir = transcripts
	cfg.Ingestion.Workers = 2
	cfg.OpenFIGI.CompaniesFile = companiesFile
	return cfg
}

func setup(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := testConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	provider := mock.NewMockProviderWithServices(nil, mock.NewMockGenerator("Azure grew 29% [1]."), nil)

	// Pin the question to the Azure chunk's vector.
	embedder := provider.GetMockEmbedder()
	vector, err := embedder.EmbedText(context.Background(), azureText)
	require.NoError(t, err)
	embedder.Vectors = map[string][]float32{question: vector}
	embedder.Reset()

	db, err := Open(cfg, WithAIProvider(provider))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &fixture{cfg: cfg, provider: provider, db: db}
}

func ingest(t *testing.T, db *Database, quarters ...int) {
	t.Helper()
	for _, q := range quarters {
		_, err := db.Ingest(context.Background(), ingestion.Request{Company: "microsoft", Year: 2024, Quarter: q})
		require.NoError(t, err)
	}
}

func TestOpen(t *testing.T) {
	t.Run("badger", func(t *testing.T) {
		f := setup(t, nil)
		assert.NotNil(t, f.db.Repository())
		assert.NotNil(t, f.db.Pipeline())
		assert.NotNil(t, f.db.Retriever())
		assert.NotNil(t, f.db.Metrics())
		assert.Equal(t, config.BackendBadger, f.db.Config().Storage.Backend)
	})

	t.Run("sqlite", func(t *testing.T) {
		f := setup(t, func(c *config.Config) {
			c.Storage.Backend = config.BackendSQLite
			c.Storage.Path = filepath.Join(t.TempDir(), "rag.db")
		})
		ingest(t, f.db, 1)
		list, err := f.db.ListTranscripts(context.Background(), "MSFT")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("local provider", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.LLM.Provider = ai.ProviderLocal
		db, err := Open(cfg)
		require.NoError(t, err)
		require.NoError(t, db.Close())
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Retrieval.TopK = 0
		db, err := Open(cfg)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
		assert.Nil(t, db)
	})

	t.Run("storage path is a file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.Path = filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(cfg.Storage.Path, []byte("test"), 0o644))
		db, err := Open(cfg, WithAIProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("missing companies file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.OpenFIGI.CompaniesFile = filepath.Join(t.TempDir(), "nope.yaml")
		_, err := Open(cfg, WithAIProvider(mock.NewMockProvider()))
		assert.Error(t, err)
	})
}

func TestDatabase_IngestAndAsk(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	ingest(t, f.db, 1)

	resp, err := f.db.Ask(ctx, question, core.Filters{Company: "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, "Azure grew 29% [1].", resp.Answer)
	require.NotEmpty(t, resp.Sources)
	assert.Equal(t, "Satya Nadella", resp.Sources[0].Speaker)
	assert.Equal(t, 2, resp.Sources[0].ParagraphNumber)
	assert.InDelta(t, 1.0, resp.Sources[0].Score, 1e-5)
	assert.Contains(t, f.provider.GetMockGenerator().LastUserPrompt(), azureText)

	// The alias used at ingestion selects the same company.
	resp, err = f.db.Ask(ctx, question, core.Filters{Company: "microsoft"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Sources)
	assert.Equal(t, "Satya Nadella", resp.Sources[0].Speaker)

	// A company with no transcripts has no evidence.
	resp, err = f.db.Ask(ctx, question, core.Filters{Company: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, qa.InsufficientEvidenceAnswer, resp.Answer)
	assert.Equal(t, 2, f.provider.GetMockGenerator().CallCount())
}

func TestDatabase_IngestAll(t *testing.T) {
	f := setup(t, nil)
	outcomes := f.db.IngestAll(context.Background(), []ingestion.Request{
		{Company: "MSFT", Year: 2024, Quarter: 1},
		{Company: "MSFT", Year: 2024, Quarter: 2},
		{Company: "MSFT", Year: 2024, Quarter: 3},
	})
	require.Len(t, outcomes, 3)
	assert.NoError(t, outcomes[0].Err)
	assert.NoError(t, outcomes[1].Err)
	assert.ErrorIs(t, outcomes[2].Err, source.ErrNotFound)
}

func TestDatabase_ListAndView(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	ingest(t, f.db, 1, 2)

	list, err := f.db.ListTranscripts(ctx, "microsoft corp")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].Transcript.FiscalQuarter, "newest first")
	assert.Equal(t, 1, list[1].Transcript.FiscalQuarter)
	assert.Equal(t, "MSFT", list[0].Company.Ticker)

	all, err := f.db.ListTranscripts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.db.ListTranscripts(ctx, "GOOG")
	assert.ErrorIs(t, err, ErrCompanyNotFound)
	assert.Equal(t, core.ClassNotFound, core.Classify(err))

	view, err := f.db.ViewTranscript(ctx, "MSFT", 2024, 1)
	require.NoError(t, err)
	assert.Contains(t, view.Transcript.RawText, azureText)
	assert.Equal(t, 2, view.Chunks)
	assert.NotEmpty(t, view.Transcript.OrgData.Frequencies)
	assert.NotEmpty(t, view.Orgs)

	_, err = f.db.ViewTranscript(ctx, "MSFT", 2024, 4)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = f.db.ViewTranscript(ctx, "MSFT", 2024, 5)
	assert.Equal(t, core.ClassInvalid, core.Classify(err))
}

func TestDatabase_SearchTranscripts(t *testing.T) {
	f := setup(t, nil)
	ingest(t, f.db, 1, 2)

	page, err := f.db.SearchTranscripts(context.Background(), search.TranscriptSearch{Query: "azure revenue", Company: "MSFT"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.Hits[0].FiscalQuarter)
	assert.Contains(t, page.Hits[0].Snippet, "<mark>")
}

func TestDatabase_PreviewChunks(t *testing.T) {
	f := setup(t, nil)

	chunks, err := f.db.PreviewChunks(context.Background(), "msft", 2024, 1)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, azureText, chunks[1].Text())

	list, err := f.db.ListTranscripts(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, list, "preview stores nothing")

	_, err = f.db.PreviewChunks(context.Background(), "MSFT", 2023, 4)
	assert.ErrorIs(t, err, source.ErrNotFound)
}

func TestDatabase_DeferredThenReembed(t *testing.T) {
	f := setup(t, func(c *config.Config) { c.Ingestion.DeferEmbeddings = true })
	ctx := context.Background()
	ingest(t, f.db, 1)

	resp, err := f.db.Ask(ctx, question, core.Filters{})
	require.NoError(t, err)
	assert.Equal(t, qa.InsufficientEvidenceAnswer, resp.Answer, "no vectors yet")

	var progress bytes.Buffer
	stats, err := f.db.Reembed(ctx, &progress)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Embedded)
	assert.Contains(t, progress.String(), "2/2")

	resp, err = f.db.Ask(ctx, question, core.Filters{})
	require.NoError(t, err)
	assert.Equal(t, "Azure grew 29% [1].", resp.Answer)
}

func TestDatabase_Close(t *testing.T) {
	cfg := testConfig(t)
	db, err := Open(cfg, WithAIProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}
