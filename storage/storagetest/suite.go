// Package storagetest provides a conformance suite that every
// storage.Repository implementation runs from its own tests:
//
//	func TestRepository(t *testing.T) {
//	    suite.Run(t, &storagetest.Suite{Open: func(t *testing.T) storage.Repository {
//	        repo, err := NewMemoryRepository()
//	        require.NoError(t, err)
//	        return repo
//	    }})
//	}
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/storage"
)

// Suite exercises the storage.Repository contract.
type Suite struct {
	suite.Suite

	// Open returns an empty repository. It is called before every test.
	Open func(t *testing.T) storage.Repository

	repo storage.Repository
	ctx  context.Context
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.Open, "Suite.Open must be set")
	s.repo = s.Open(s.T())
	s.ctx = context.Background()
}

func (s *Suite) TearDownTest() {
	s.Require().NoError(s.repo.Close())
}

func (s *Suite) company(ticker, name string) *core.Company {
	c, _, err := s.repo.GetOrCreateCompany(s.ctx, &core.Company{
		Name:         name,
		Ticker:       ticker,
		ExchangeCode: "US",
		SecurityType: "Common Stock",
	})
	s.Require().NoError(err)
	return c
}

func (s *Suite) transcript(companyID uuid.UUID, year, quarter int, text string) *core.Transcript {
	t, err := s.repo.AddTranscript(s.ctx, NewTranscript(companyID, year, quarter, text), nil)
	s.Require().NoError(err)
	return t
}

// NewTranscript builds a valid single-paragraph transcript.
func NewTranscript(companyID uuid.UUID, year, quarter int, text string) *core.Transcript {
	speaker := "Chief Executive Officer"
	return &core.Transcript{
		ID:            uuid.New(),
		CompanyID:     companyID,
		FiscalYear:    year,
		FiscalQuarter: quarter,
		Source:        "test",
		RawText:       text,
		Paragraphs:    []core.Paragraph{{Number: 1, Speaker: &speaker, Content: text}},
		ContentHash:   core.ContentHash(text),
		FetchedAt:     time.Now().UTC(),
	}
}

// NewChunkRecord builds a chunk of t with the given index and text, embedded
// with vector when it is non-nil.
func NewChunkRecord(t *core.Transcript, index int, text string, vector []float32) *core.ChunkRecord {
	chunk := core.NewChunk(t.ID, t.CompanyID, index, core.ChunkData{
		core.KeyChunkText:  text,
		core.KeyChunkIndex: index,
	})
	record := &core.ChunkRecord{Chunk: chunk, Embedding: vector}
	if vector != nil {
		record.EmbeddingModel = "test-model"
	}
	return record
}

func (s *Suite) TestGetOrCreateCompany() {
	first, created, err := s.repo.GetOrCreateCompany(s.ctx, &core.Company{Name: "Apple Inc.", Ticker: " aapl ", ExchangeCode: "US"})
	s.Require().NoError(err)
	s.True(created)
	s.Equal("AAPL", first.Ticker)
	s.NotEqual(uuid.Nil, first.ID)
	s.False(first.CreatedAt.IsZero())

	second, created, err := s.repo.GetOrCreateCompany(s.ctx, &core.Company{Name: "Apple", Ticker: "AAPL", ExchangeCode: "US"})
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.ID, second.ID)
	s.Equal("Apple Inc.", second.Name)

	other, created, err := s.repo.GetOrCreateCompany(s.ctx, &core.Company{Name: "Apple", Ticker: "AAPL", ExchangeCode: "LN"})
	s.Require().NoError(err)
	s.True(created)
	s.NotEqual(first.ID, other.ID)

	fetched, err := s.repo.GetCompany(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(first.Name, fetched.Name)
}

func (s *Suite) TestGetOrCreateCompanyValidates() {
	_, _, err := s.repo.GetOrCreateCompany(s.ctx, &core.Company{Name: "Nameless"})
	s.ErrorIs(err, core.ErrEmptyTicker)
	s.Equal(core.ClassInvalid, core.Classify(err))
}

func (s *Suite) TestGetCompanyNotFound() {
	_, err := s.repo.GetCompany(s.ctx, uuid.New())
	s.ErrorIs(err, storage.ErrNotFound)
	s.Equal(core.ClassNotFound, core.Classify(err))
}

func (s *Suite) TestFindCompanies() {
	msft := s.company("MSFT", "Microsoft")
	s.company("AAPL", "Apple")

	byTicker, err := s.repo.FindCompanies(s.ctx, "msft")
	s.Require().NoError(err)
	s.Require().Len(byTicker, 1)
	s.Equal(msft.ID, byTicker[0].ID)

	byName, err := s.repo.FindCompanies(s.ctx, "MICROSOFT")
	s.Require().NoError(err)
	s.Require().Len(byName, 1)
	s.Equal(msft.ID, byName[0].ID)

	none, err := s.repo.FindCompanies(s.ctx, "Alphabet")
	s.Require().NoError(err)
	s.Empty(none)

	all, err := s.repo.ListCompanies(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal("AAPL", all[0].Ticker)
}

func (s *Suite) TestAddTranscriptConflictOnPeriod() {
	c := s.company("MSFT", "Microsoft")
	original := s.transcript(c.ID, 2024, 2, "Cloud revenue grew strongly this quarter.")

	_, err := s.repo.AddTranscript(s.ctx, NewTranscript(c.ID, 2024, 2, "A completely different call."), nil)
	s.Require().Error(err)
	s.ErrorIs(err, storage.ErrConflict)
	s.ErrorIs(err, storage.ErrDuplicatePeriod)
	s.Equal(core.ClassConflict, core.Classify(err))

	stored, err := s.repo.FindTranscriptByPeriod(s.ctx, c.ID, 2024, 2)
	s.Require().NoError(err)
	s.Equal(original.ID, stored.ID)
	s.Equal("Cloud revenue grew strongly this quarter.", stored.RawText)

	hits, err := s.repo.LexicalCandidates(s.ctx, "completely different", 10)
	s.Require().NoError(err)
	s.Empty(hits, "rejected transcript must not be indexed")
}

func (s *Suite) TestAddTranscriptConflictOnContent() {
	c := s.company("MSFT", "Microsoft")
	s.transcript(c.ID, 2024, 2, "Same words twice.")

	_, err := s.repo.AddTranscript(s.ctx, NewTranscript(c.ID, 2024, 3, "Same words twice."), nil)
	s.ErrorIs(err, storage.ErrDuplicateContent)
	s.ErrorIs(err, core.ErrConflict)

	other := s.company("AAPL", "Apple")
	_, err = s.repo.AddTranscript(s.ctx, NewTranscript(other.ID, 2024, 2, "Same words twice."), nil)
	s.NoError(err, "content uniqueness is per company")
}

func (s *Suite) TestGetTranscriptRoundTrip() {
	c := s.company("MSFT", "Microsoft")
	added := s.transcript(c.ID, 2023, 4, "Operator: welcome to the call.")

	got, err := s.repo.GetTranscript(s.ctx, added.ID)
	s.Require().NoError(err)
	s.Equal(added.CompanyID, got.CompanyID)
	s.Equal(2023, got.FiscalYear)
	s.Equal(4, got.FiscalQuarter)
	s.Equal(added.ContentHash, got.ContentHash)
	s.Require().Len(got.Paragraphs, 1)
	s.Equal("Chief Executive Officer", got.Paragraphs[0].SpeakerName())

	_, err = s.repo.GetTranscript(s.ctx, uuid.New())
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *Suite) TestFindTranscriptsNewestFirst() {
	c := s.company("MSFT", "Microsoft")
	other := s.company("AAPL", "Apple")
	s.transcript(c.ID, 2024, 1, "first quarter call")
	s.transcript(c.ID, 2023, 4, "fourth quarter call")
	s.transcript(c.ID, 2024, 3, "third quarter call")
	s.transcript(other.ID, 2024, 2, "apple second quarter call")

	list, err := s.repo.FindTranscripts(s.ctx, core.TranscriptFilter{CompanyIDs: []uuid.UUID{c.ID}})
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal([]int{2024, 2024, 2023}, []int{list[0].FiscalYear, list[1].FiscalYear, list[2].FiscalYear})
	s.Equal([]int{3, 1, 4}, []int{list[0].FiscalQuarter, list[1].FiscalQuarter, list[2].FiscalQuarter})

	year := 2024
	list, err = s.repo.FindTranscripts(s.ctx, core.TranscriptFilter{Year: &year})
	s.Require().NoError(err)
	s.Len(list, 3)

	quarter := 2
	list, err = s.repo.FindTranscripts(s.ctx, core.TranscriptFilter{Year: &year, Quarter: &quarter})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(other.ID, list[0].CompanyID)
}

func (s *Suite) TestOrgEntities() {
	c := s.company("MSFT", "Microsoft")
	t := NewTranscript(c.ID, 2024, 1, "Microsoft and OpenAI and Nvidia.")
	orgs := core.OrgEntities(t.ID, core.CountOrgMentions([]string{"Nvidia", "OpenAI", "Nvidia Corp."}), time.Time{})
	_, err := s.repo.AddTranscript(s.ctx, t, orgs)
	s.Require().NoError(err)

	got, err := s.repo.GetOrgEntities(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("nvidia", got[0].Name)
	s.Equal(2, got[0].MentionCount)
	s.Equal("openai", got[1].Name)
	s.Equal(t.ID, got[1].TranscriptID)
	s.False(got[1].CreatedAt.IsZero())
}

func (s *Suite) TestTransactionRollback() {
	c := s.company("MSFT", "Microsoft")
	t := NewTranscript(c.ID, 2024, 1, "Rolled back call.")
	boom := errors.New("boom")

	err := s.repo.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := s.repo.AddTranscript(ctx, t, nil); err != nil {
			return err
		}
		_, err := s.repo.UpsertChunks(ctx, []*core.ChunkRecord{NewChunkRecord(t, 1, "Rolled back call.", []float32{1, 0})})
		s.Require().NoError(err)
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.repo.GetTranscript(s.ctx, t.ID)
	s.ErrorIs(err, storage.ErrNotFound)
	_, err = s.repo.FindTranscriptByPeriod(s.ctx, c.ID, 2024, 1)
	s.ErrorIs(err, storage.ErrNotFound)
	chunks, err := s.repo.ListChunks(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Empty(chunks)

	// The period is free again.
	_, err = s.repo.AddTranscript(s.ctx, t, nil)
	s.NoError(err)
}

func (s *Suite) TestTransactionCommit() {
	c := s.company("MSFT", "Microsoft")
	t := NewTranscript(c.ID, 2024, 1, "Committed call.")

	err := s.repo.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := s.repo.AddTranscript(ctx, t, nil); err != nil {
			return err
		}
		// Reads inside the transaction see its own writes.
		if _, err := s.repo.GetTranscript(ctx, t.ID); err != nil {
			return err
		}
		_, err := s.repo.UpsertChunks(ctx, []*core.ChunkRecord{NewChunkRecord(t, 1, "Committed call.", []float32{1, 0})})
		return err
	})
	s.Require().NoError(err)

	chunks, err := s.repo.ListChunks(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Len(chunks, 1)
}

func (s *Suite) TestUpsertChunksFillMissingOnly() {
	c := s.company("MSFT", "Microsoft")
	t := s.transcript(c.ID, 2024, 1, "alpha beta gamma")

	bare := NewChunkRecord(t, 1, "alpha", nil)
	embedded := NewChunkRecord(t, 2, "beta", []float32{1, 0})
	res, err := s.repo.UpsertChunks(s.ctx, []*core.ChunkRecord{bare, embedded})
	s.Require().NoError(err)
	s.Equal(storage.UpsertResult{Inserted: 2}, res)

	got, err := s.repo.GetChunk(s.ctx, bare.Key())
	s.Require().NoError(err)
	s.False(got.HasEmbedding())
	s.Empty(got.EmbeddingModel)
	s.True(got.UpdatedAt.IsZero())

	// Fill the missing vector and overwrite the embedded one.
	fill := NewChunkRecord(t, 1, "alpha", []float32{0, 1})
	fill.Data[core.KeyParaSpeaker] = "CFO"
	overwrite := NewChunkRecord(t, 2, "beta", []float32{0, 1})
	overwrite.EmbeddingModel = "other-model"
	res, err = s.repo.UpsertChunks(s.ctx, []*core.ChunkRecord{fill, overwrite})
	s.Require().NoError(err)
	s.Equal(storage.UpsertResult{Filled: 1, Skipped: 1}, res)

	got, err = s.repo.GetChunk(s.ctx, bare.Key())
	s.Require().NoError(err)
	s.Equal([]float32{0, 1}, got.Embedding)
	s.Equal("test-model", got.EmbeddingModel)
	s.False(got.UpdatedAt.IsZero())
	speaker, ok := got.Data.Speaker()
	s.True(ok, "payload is replaced together with the vector")
	s.Equal("CFO", speaker)

	got, err = s.repo.GetChunk(s.ctx, embedded.Key())
	s.Require().NoError(err)
	s.Equal([]float32{1, 0}, got.Embedding)
	s.Equal("test-model", got.EmbeddingModel)

	// A bare record never clears a stored vector.
	res, err = s.repo.UpsertChunks(s.ctx, []*core.ChunkRecord{NewChunkRecord(t, 2, "beta", nil)})
	s.Require().NoError(err)
	s.Equal(storage.UpsertResult{Skipped: 1}, res)
	got, err = s.repo.GetChunk(s.ctx, embedded.Key())
	s.Require().NoError(err)
	s.Equal([]float32{1, 0}, got.Embedding)
}

func (s *Suite) TestUpsertChunksFirstDuplicateWins() {
	c := s.company("MSFT", "Microsoft")
	t := s.transcript(c.ID, 2024, 1, "alpha")

	first := NewChunkRecord(t, 1, "alpha", []float32{1, 0})
	second := NewChunkRecord(t, 1, "alpha", []float32{0, 1})
	res, err := s.repo.UpsertChunks(s.ctx, []*core.ChunkRecord{first, second})
	s.Require().NoError(err)
	s.Equal(storage.UpsertResult{Inserted: 1, Skipped: 1}, res)

	got, err := s.repo.GetChunk(s.ctx, first.Key())
	s.Require().NoError(err)
	s.Equal([]float32{1, 0}, got.Embedding)
}

func (s *Suite) TestUpsertChunksRejectsInvalid() {
	c := s.company("MSFT", "Microsoft")
	t := s.transcript(c.ID, 2024, 1, "alpha")
	good := NewChunkRecord(t, 1, "alpha", []float32{1, 0})
	bad := NewChunkRecord(t, 2, "beta", []float32{1, 0})
	bad.ChunkHash = "tampered"

	_, err := s.repo.UpsertChunks(s.ctx, []*core.ChunkRecord{good, bad})
	s.ErrorIs(err, core.ErrInvalidChunk)

	_, err = s.repo.GetChunk(s.ctx, good.Key())
	s.ErrorIs(err, storage.ErrNotFound, "nothing is written when any record is invalid")
}

func (s *Suite) TestEmbeddedKeys() {
	c := s.company("MSFT", "Microsoft")
	t := s.transcript(c.ID, 2024, 1, "alpha beta")
	bare := NewChunkRecord(t, 1, "alpha", nil)
	embedded := NewChunkRecord(t, 2, "beta", []float32{1, 0})
	_, err := s.repo.UpsertChunks(s.ctx, []*core.ChunkRecord{bare, embedded})
	s.Require().NoError(err)

	unknown := core.ChunkKey{TranscriptID: t.ID, ChunkID: uuid.New()}
	keys, err := s.repo.EmbeddedKeys(s.ctx, []core.ChunkKey{bare.Key(), embedded.Key(), unknown})
	s.Require().NoError(err)
	s.Equal(map[core.ChunkKey]bool{embedded.Key(): true}, keys)
}

func (s *Suite) TestChunksMissingEmbeddingsPaging() {
	c := s.company("MSFT", "Microsoft")
	t := s.transcript(c.ID, 2024, 1, "a b c d")
	records := []*core.ChunkRecord{
		NewChunkRecord(t, 1, "a", nil),
		NewChunkRecord(t, 2, "b", nil),
		NewChunkRecord(t, 3, "c", []float32{1, 0}),
		NewChunkRecord(t, 4, "d", nil),
	}
	_, err := s.repo.UpsertChunks(s.ctx, records)
	s.Require().NoError(err)

	var seen []string
	var after *core.ChunkKey
	for range 5 {
		page, err := s.repo.ChunksMissingEmbeddings(s.ctx, after, 2)
		s.Require().NoError(err)
		if len(page) == 0 {
			break
		}
		s.LessOrEqual(len(page), 2)
		for i, r := range page {
			s.False(r.HasEmbedding())
			if i > 0 {
				s.Negative(storage.CompareChunkKeys(page[i-1].Key(), r.Key()))
			}
			seen = append(seen, r.Text())
		}
		last := page[len(page)-1].Key()
		after = &last
	}
	s.ElementsMatch([]string{"a", "b", "d"}, seen)
}

func (s *Suite) TestFindSimilar() {
	c := s.company("MSFT", "Microsoft")
	t1 := s.transcript(c.ID, 2024, 1, "one")
	t2 := s.transcript(c.ID, 2024, 2, "two")
	_, err := s.repo.UpsertChunks(s.ctx, []*core.ChunkRecord{
		NewChunkRecord(t1, 1, "exact", []float32{1, 0}),
		NewChunkRecord(t1, 2, "orthogonal", []float32{0, 1}),
		NewChunkRecord(t1, 3, "bare", nil),
		NewChunkRecord(t2, 1, "close", []float32{0.8, 0.6}),
	})
	s.Require().NoError(err)

	hits, err := s.repo.FindSimilar(s.ctx, core.SimilarityQuery{Vector: []float32{2, 0}, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(hits, 3)
	s.Equal("exact", hits[0].Chunk.Text())
	s.InDelta(1.0, hits[0].Score, 1e-6)
	s.Equal("close", hits[1].Chunk.Text())
	s.InDelta(0.8, hits[1].Score, 1e-6)
	s.Equal("orthogonal", hits[2].Chunk.Text())
	s.InDelta(0.0, hits[2].Score, 1e-6)
	s.Equal(c.ID, hits[0].Chunk.CompanyID)

	hits, err = s.repo.FindSimilar(s.ctx, core.SimilarityQuery{Vector: []float32{1, 0}, Limit: 1})
	s.Require().NoError(err)
	s.Require().Len(hits, 1)
	s.Equal("exact", hits[0].Chunk.Text())

	hits, err = s.repo.FindSimilar(s.ctx, core.SimilarityQuery{Vector: []float32{1, 0}, TranscriptIDs: []uuid.UUID{t2.ID}, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(hits, 1)
	s.Equal("close", hits[0].Chunk.Text())

	_, err = s.repo.FindSimilar(s.ctx, core.SimilarityQuery{Limit: 10})
	s.ErrorIs(err, storage.ErrInvalidQuery)
}

func (s *Suite) TestFindSimilarDimensionMismatch() {
	c := s.company("MSFT", "Microsoft")
	t1 := s.transcript(c.ID, 2024, 1, "old model")
	t2 := s.transcript(c.ID, 2024, 2, "new model")
	_, err := s.repo.UpsertChunks(s.ctx, []*core.ChunkRecord{
		NewChunkRecord(t1, 1, "four dims", []float32{1, 0, 0, 0}),
		NewChunkRecord(t2, 1, "two dims", []float32{1, 0}),
	})
	s.Require().NoError(err)

	_, err = s.repo.FindSimilar(s.ctx, core.SimilarityQuery{Vector: []float32{1, 0}, Limit: 10})
	s.Require().Error(err)
	s.ErrorIs(err, storage.ErrDimensionMismatch)
	s.Equal(core.ClassConfiguration, core.Classify(err))

	// Restricting the scan to matching transcripts avoids the stale vectors.
	hits, err := s.repo.FindSimilar(s.ctx, core.SimilarityQuery{Vector: []float32{1, 0}, TranscriptIDs: []uuid.UUID{t2.ID}, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(hits, 1)
	s.Equal("two dims", hits[0].Chunk.Text())
}

func (s *Suite) TestFindSimilarTieBreak() {
	c := s.company("MSFT", "Microsoft")
	t := s.transcript(c.ID, 2024, 1, "ties")
	var records []*core.ChunkRecord
	for i, text := range []string{"w", "x", "y", "z"} {
		records = append(records, NewChunkRecord(t, i+1, text, []float32{0.6, 0.8}))
	}
	_, err := s.repo.UpsertChunks(s.ctx, records)
	s.Require().NoError(err)

	hits, err := s.repo.FindSimilar(s.ctx, core.SimilarityQuery{Vector: []float32{0.6, 0.8}, Limit: 4})
	s.Require().NoError(err)
	s.Require().Len(hits, 4)
	for i := 1; i < len(hits); i++ {
		s.Less(hits[i-1].Chunk.ChunkID.String(), hits[i].Chunk.ChunkID.String())
	}
}

func (s *Suite) TestSearchTranscripts() {
	msft := s.company("MSFT", "Microsoft")
	aapl := s.company("AAPL", "Apple")
	cloud := s.transcript(msft.ID, 2024, 1, "Azure cloud revenue grew 31 percent and cloud margins expanded.")
	s.transcript(msft.ID, 2024, 2, "Gaming revenue declined while search advertising grew.")
	s.transcript(aapl.ID, 2024, 1, "Services revenue set a record and the cloud business grew.")

	page, err := s.repo.SearchTranscripts(s.ctx, core.TranscriptQuery{Query: "cloud revenue"})
	s.Require().NoError(err)
	s.Equal(2, page.Total)
	s.Require().Len(page.Hits, 2)
	s.Equal(cloud.ID, page.Hits[0].TranscriptID, "two cloud mentions rank first")
	s.Greater(page.Hits[0].Rank, page.Hits[1].Rank)
	s.Contains(page.Hits[0].Snippet, "<mark>cloud</mark>")
	s.Contains(page.Hits[0].Snippet, "<mark>revenue</mark>")

	page, err = s.repo.SearchTranscripts(s.ctx, core.TranscriptQuery{Query: "cloud revenue", CompanyID: &aapl.ID})
	s.Require().NoError(err)
	s.Equal(1, page.Total)
	s.Equal(aapl.ID, page.Hits[0].CompanyID)

	quarter := 2
	page, err = s.repo.SearchTranscripts(s.ctx, core.TranscriptQuery{Query: "cloud revenue", FiscalQuarter: &quarter})
	s.Require().NoError(err)
	s.Equal(0, page.Total)
	s.Empty(page.Hits)

	page, err = s.repo.SearchTranscripts(s.ctx, core.TranscriptQuery{Query: "revenue", Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Equal(3, page.Total)
	s.Len(page.Hits, 1)

	page, err = s.repo.SearchTranscripts(s.ctx, core.TranscriptQuery{Query: "revenue", Offset: 10})
	s.Require().NoError(err)
	s.Equal(3, page.Total)
	s.Empty(page.Hits)

	_, err = s.repo.SearchTranscripts(s.ctx, core.TranscriptQuery{Query: "   "})
	s.ErrorIs(err, storage.ErrInvalidQuery)
	s.Equal(core.ClassInvalid, core.Classify(err))
}

func (s *Suite) TestLexicalCandidatesMatchAnyTerm() {
	c := s.company("MSFT", "Microsoft")
	cloud := s.transcript(c.ID, 2024, 1, "Cloud cloud cloud revenue.")
	margins := s.transcript(c.ID, 2024, 2, "Operating margins improved.")
	s.transcript(c.ID, 2024, 3, "Nothing relevant here.")

	ids, err := s.repo.LexicalCandidates(s.ctx, "What happened to cloud margins?", 10)
	s.Require().NoError(err)
	s.ElementsMatch([]uuid.UUID{cloud.ID, margins.ID}, ids)

	ids, err = s.repo.LexicalCandidates(s.ctx, "What happened to cloud margins?", 1)
	s.Require().NoError(err)
	s.Len(ids, 1)

	ids, err = s.repo.LexicalCandidates(s.ctx, "the and of", 10)
	s.Require().NoError(err)
	s.Empty(ids)
}
