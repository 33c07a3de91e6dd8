package search

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/earningsrag/ai"
	"github.com/poiesic/earningsrag/ai/mock"
	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/resolver"
	"github.com/poiesic/earningsrag/storage"
	"github.com/poiesic/earningsrag/storage/badger"
	"github.com/poiesic/earningsrag/storage/storagetest"
)

const question = "how did azure do"

type fixture struct {
	t        *testing.T
	repo     storage.Repository
	provider *mock.MockProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	embedder := mock.NewMockEmbedderWithDimensions(2)
	embedder.Vectors = map[string][]float32{question: {1, 0}}
	provider := mock.NewMockProviderWithServices(embedder, nil, nil)
	return &fixture{t: t, repo: repo, provider: provider}
}

func (f *fixture) company(ticker, name string) *core.Company {
	c, _, err := f.repo.GetOrCreateCompany(context.Background(), &core.Company{Name: name, Ticker: ticker, ExchangeCode: "US"})
	require.NoError(f.t, err)
	return c
}

func (f *fixture) transcript(c *core.Company, year, quarter int, text string) *core.Transcript {
	tr, err := f.repo.AddTranscript(context.Background(), storagetest.NewTranscript(c.ID, year, quarter, text), nil)
	require.NoError(f.t, err)
	return tr
}

func (f *fixture) chunk(tr *core.Transcript, index int, text string, vector []float32) *core.ChunkRecord {
	record := storagetest.NewChunkRecord(tr, index, text, vector)
	_, err := f.repo.UpsertChunks(context.Background(), []*core.ChunkRecord{record})
	require.NoError(f.t, err)
	return record
}

func (f *fixture) retriever(opts ...Option) *Retriever {
	r, err := NewRetriever(f.repo, f.provider, opts...)
	require.NoError(f.t, err)
	return r
}

func chunkIDs(results []core.ScoredChunk) []uuid.UUID {
	ids := make([]uuid.UUID, len(results))
	for i, r := range results {
		ids[i] = r.Chunk.ChunkID
	}
	return ids
}

func intPtr(v int) *int { return &v }

func TestNewRetriever(t *testing.T) {
	f := newFixture(t)

	t.Run("valid configuration", func(t *testing.T) {
		r, err := NewRetriever(f.repo, f.provider, WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.Equal(t, DefaultTopK, r.topK)
		assert.InDelta(t, DefaultMinScore, r.minScore, 1e-6)
		assert.False(t, r.lexicalPrefilter)
	})

	t.Run("missing dependencies", func(t *testing.T) {
		_, err := NewRetriever(nil, f.provider)
		assert.ErrorIs(t, err, ErrRepositoryRequired)
		_, err = NewRetriever(f.repo, nil)
		assert.ErrorIs(t, err, ErrAIProviderRequired)
	})

	t.Run("invalid options", func(t *testing.T) {
		for _, opt := range []Option{WithTopK(0), WithMinScore(1.5), WithLexicalPrefilter(-1)} {
			_, err := NewRetriever(f.repo, f.provider, opt)
			assert.ErrorIs(t, err, ErrInvalidOptions)
			assert.Equal(t, core.ClassConfiguration, core.Classify(err))
		}
	})

	t.Run("prefilter default limit", func(t *testing.T) {
		r := f.retriever(WithLexicalPrefilter(0))
		assert.True(t, r.lexicalPrefilter)
		assert.Equal(t, DefaultFTSCandidateLimit, r.ftsCandidateLimit)
	})
}

func TestRetrieveTopK_MinScore(t *testing.T) {
	f := newFixture(t)
	tr := f.transcript(f.company("MSFT", "Microsoft"), 2024, 1, "Azure grew.")
	same := f.chunk(tr, 1, "aligned", []float32{1, 0})
	f.chunk(tr, 2, "orthogonal", []float32{0, 1})

	results, err := f.retriever(WithTopK(3), WithMinScore(0.5)).RetrieveTopK(context.Background(), question, core.Filters{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, same.ChunkID, results[0].Chunk.ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "aligned", results[0].Chunk.Text())
}

func TestRetrieveTopK_OrderingAndTopK(t *testing.T) {
	f := newFixture(t)
	tr := f.transcript(f.company("MSFT", "Microsoft"), 2024, 1, "Azure grew.")
	best := f.chunk(tr, 1, "best", []float32{1, 0})
	tieA := f.chunk(tr, 2, "tie a", []float32{1, 1})
	tieB := f.chunk(tr, 3, "tie b", []float32{2, 2})
	f.chunk(tr, 4, "worst", []float32{-1, 0})
	f.chunk(tr, 5, "unembedded", nil)

	results, err := f.retriever(WithTopK(3), WithMinScore(-1)).RetrieveTopK(context.Background(), question, core.Filters{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	ties := []uuid.UUID{tieA.ChunkID, tieB.ChunkID}
	slices.SortFunc(ties, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	assert.Equal(t, []uuid.UUID{best.ChunkID, ties[0], ties[1]}, chunkIDs(results))
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestRetrieveTopK_Filters(t *testing.T) {
	f := newFixture(t)
	msft := f.company("MSFT", "Microsoft Corp")
	aapl := f.company("AAPL", "Apple Inc")
	msftQ1 := f.chunk(f.transcript(msft, 2024, 1, "Azure grew in the first quarter."), 1, "msft q1", []float32{1, 0})
	msftQ2 := f.chunk(f.transcript(msft, 2024, 2, "Azure grew in the second quarter."), 1, "msft q2", []float32{1, 0.1})
	aaplQ1 := f.chunk(f.transcript(aapl, 2024, 1, "iPhone sales rose."), 1, "aapl q1", []float32{1, 0.2})
	f.chunk(f.transcript(aapl, 2023, 4, "Services revenue hit a record."), 1, "aapl 2023", []float32{1, 0.3})

	r := f.retriever(WithTopK(10), WithMinScore(0))
	ctx := context.Background()

	tests := []struct {
		name    string
		filters core.Filters
		want    []uuid.UUID
	}{
		{"ticker", core.Filters{Company: "msft"}, []uuid.UUID{msftQ1.ChunkID, msftQ2.ChunkID}},
		{"canonical name", core.Filters{Company: "microsoft corp"}, []uuid.UUID{msftQ1.ChunkID, msftQ2.ChunkID}},
		{"quarter", core.Filters{Year: intPtr(2024), Quarter: intPtr(1)}, []uuid.UUID{msftQ1.ChunkID, aaplQ1.ChunkID}},
		{"company and quarter", core.Filters{Company: "AAPL", Year: intPtr(2024), Quarter: intPtr(1)}, []uuid.UUID{aaplQ1.ChunkID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := r.RetrieveTopK(ctx, question, tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, chunkIDs(results))
		})
	}

	t.Run("unknown company", func(t *testing.T) {
		results, err := r.RetrieveTopK(ctx, question, core.Filters{Company: "Nvidia"})
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("no transcript in period", func(t *testing.T) {
		results, err := r.RetrieveTopK(ctx, question, core.Filters{Year: intPtr(2022)})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("invalid quarter", func(t *testing.T) {
		_, err := r.RetrieveTopK(ctx, question, core.Filters{Quarter: intPtr(7)})
		assert.Equal(t, core.ClassInvalid, core.Classify(err))
	})
}

type failingResolver struct{ err error }

func (r failingResolver) Resolve(context.Context, resolver.Query) (*core.Company, error) {
	return nil, r.err
}

func TestRetrieveTopK_ResolvedCompanyFilter(t *testing.T) {
	f := newFixture(t)
	msft := f.company("MSFT", "MICROSOFT CORP")
	aapl := f.company("AAPL", "APPLE INC")
	msftChunk := f.chunk(f.transcript(msft, 2024, 1, "Azure grew."), 1, "msft", []float32{1, 0})
	aaplChunk := f.chunk(f.transcript(aapl, 2024, 1, "iPhone sales rose."), 1, "aapl", []float32{1, 0.2})

	res := resolver.NewStatic(
		resolver.StaticEntry{Name: "Microsoft Corp", Ticker: "MSFT", Aliases: []string{"microsoft"}},
		resolver.StaticEntry{Name: "Apple", Ticker: "aapl"},
	)
	r := f.retriever(WithTopK(10), WithMinScore(0), WithResolver(res))
	ctx := context.Background()

	tests := []struct {
		name    string
		company string
		want    []uuid.UUID
	}{
		{"alias", "microsoft", []uuid.UUID{msftChunk.ChunkID}},
		{"resolver name", "Apple", []uuid.UUID{aaplChunk.ChunkID}},
		{"stored name", "apple inc", []uuid.UUID{aaplChunk.ChunkID}},
		{"unknown", "Nvidia", []uuid.UUID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := r.RetrieveTopK(ctx, question, core.Filters{Company: tt.company})
			require.NoError(t, err)
			assert.Equal(t, tt.want, chunkIDs(results))
		})
	}

	t.Run("without resolver the alias matches nothing", func(t *testing.T) {
		results, err := f.retriever(WithMinScore(0)).RetrieveTopK(ctx, question, core.Filters{Company: "microsoft"})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("resolver failure", func(t *testing.T) {
		failing := f.retriever(WithResolver(failingResolver{err: ai.UpstreamError("openfigi", errors.New("bad gateway"))}))
		_, err := failing.RetrieveTopK(ctx, question, core.Filters{Company: "microsoft"})
		assert.Equal(t, core.ClassUpstream, core.Classify(err))
	})
}

func TestRetrieveTopK_LexicalPrefilter(t *testing.T) {
	f := newFixture(t)
	msft := f.company("MSFT", "Microsoft")
	azure := f.chunk(f.transcript(msft, 2024, 1, "Azure revenue grew strongly."), 1, "azure chunk", []float32{1, 0.2})
	f.chunk(f.transcript(msft, 2024, 2, "Gaming revenue declined."), 1, "gaming chunk", []float32{1, 0})

	ctx := context.Background()
	results, err := f.retriever(WithTopK(5), WithMinScore(0)).RetrieveTopK(ctx, question, core.Filters{})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = f.retriever(WithTopK(5), WithMinScore(0), WithLexicalPrefilter(10)).RetrieveTopK(ctx, question, core.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{azure.ChunkID}, chunkIDs(results))

	results, err = f.retriever(WithLexicalPrefilter(10)).RetrieveTopK(ctx, "dividends", core.Filters{})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = f.retriever(WithMinScore(0), WithLexicalPrefilter(10)).RetrieveTopK(ctx, question, core.Filters{Year: intPtr(2024), Quarter: intPtr(2)})
	require.NoError(t, err)
	assert.Empty(t, results, "prefilter and period filter intersect")
}

func TestRetrieveTopK_Errors(t *testing.T) {
	f := newFixture(t)
	r := f.retriever()

	_, err := r.RetrieveTopK(context.Background(), "   ", core.Filters{})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	f.provider.GetMockEmbedder().EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1, 0, 0}}, nil
	}
	_, err = r.RetrieveTopK(context.Background(), question, core.Filters{})
	assert.Equal(t, core.ClassConfiguration, core.Classify(err))

	f.provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, _ []string) ([][]float32, error) {
		return nil, context.DeadlineExceeded
	}
	_, err = r.RetrieveTopK(context.Background(), question, core.Filters{})
	assert.Equal(t, core.ClassUpstream, core.Classify(err))
}

func TestRetrieveTopK_StaleEmbeddings(t *testing.T) {
	f := newFixture(t)
	c := f.company("MSFT", "Microsoft")
	tr := f.transcript(c, 2024, 1, "azure")
	f.chunk(tr, 1, "Azure grew 31%", []float32{1, 0, 0, 0})

	_, err := f.retriever().RetrieveTopK(context.Background(), question, core.Filters{})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	assert.Equal(t, core.ClassConfiguration, core.Classify(err))
}

type recordingMonitor struct {
	started  string
	lexical  int
	filtered int
	hits     int
	finished []core.ScoredChunk
	elapsed  time.Duration
}

func (m *recordingMonitor) Start(q string) { m.started = q }
func (m *recordingMonitor) AfterLexicalPrefilter(n int) { m.lexical = n }
func (m *recordingMonitor) AfterFilters(n int) { m.filtered = n }
func (m *recordingMonitor) AfterSimilaritySearch(hits []core.ScoredChunk) { m.hits = len(hits) }
func (m *recordingMonitor) Finish(r []core.ScoredChunk, elapsed time.Duration) {
	m.finished, m.elapsed = r, elapsed
}

func TestRetrieveTopKWithMonitor(t *testing.T) {
	f := newFixture(t)
	msft := f.company("MSFT", "Microsoft")
	f.chunk(f.transcript(msft, 2024, 1, "Azure revenue grew."), 1, "aligned", []float32{1, 0})
	f.chunk(f.transcript(msft, 2024, 2, "Azure margins expanded."), 1, "orthogonal", []float32{0, 1})

	monitor := &recordingMonitor{}
	r := f.retriever(WithMinScore(0.5), WithLexicalPrefilter(10))
	results, err := r.RetrieveTopKWithMonitor(context.Background(), question, core.Filters{Year: intPtr(2024)}, monitor)
	require.NoError(t, err)

	assert.Equal(t, question, monitor.started)
	assert.Equal(t, 2, monitor.lexical)
	assert.Equal(t, 2, monitor.filtered)
	assert.Equal(t, 2, monitor.hits)
	assert.Equal(t, results, monitor.finished)
	assert.Len(t, results, 1)
	assert.Positive(t, monitor.elapsed)
}

func TestIntersect(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	assert.Equal(t, []uuid.UUID{c, a}, intersect([]uuid.UUID{c, b, a}, []uuid.UUID{a, c}))
	assert.Empty(t, intersect([]uuid.UUID{a}, nil))
}
