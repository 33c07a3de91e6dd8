package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID is a compact identifier for derived index entries such as full-text terms.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Company is an issuer whose earnings calls are ingested.
type Company struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Ticker       string    `json:"ticker"`
	ExchangeCode string    `json:"exchange_code"`
	SecurityType string    `json:"security_type"`
	MarketSector string    `json:"market_sector"`
	CreatedAt    time.Time `json:"created_at"`
}

// Paragraph is one speaker turn of a transcript.
type Paragraph struct {
	Number  int     `json:"paragraph_number" yaml:"paragraph_number"`
	Speaker *string `json:"speaker" yaml:"speaker"`
	Content string  `json:"content" yaml:"content"`
}

// SpeakerName returns the speaker or an empty string when unknown.
func (p Paragraph) SpeakerName() string {
	if p.Speaker == nil {
		return ""
	}
	return *p.Speaker
}

// DocumentMeta holds size statistics computed during preprocessing.
type DocumentMeta struct {
	CharCount     int `json:"char_count"`
	WordCount     int `json:"word_count"`
	SentenceCount int `json:"sentence_count"`
}

// OrgFrequency is a normalized organization name and how often it was mentioned.
type OrgFrequency struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// OrgData aggregates organization mentions for a transcript.
// Frequencies are sorted by count, highest first.
type OrgData struct {
	UniqueCount int            `json:"org_unique_count"`
	Frequencies []OrgFrequency `json:"org_freq_count_sorted"`
}

// Transcript is a single earnings call for a company and fiscal period.
// It is immutable once stored.
type Transcript struct {
	ID             uuid.UUID    `json:"id"`
	CompanyID      uuid.UUID    `json:"company_id"`
	FiscalYear     int          `json:"fiscal_year"`
	FiscalQuarter  int          `json:"fiscal_quarter"`
	Source         string       `json:"source"`
	SourceURL      string       `json:"source_url"`
	RawText        string       `json:"raw_text"`
	Paragraphs     []Paragraph  `json:"para_structured_text"`
	ContentHash    string       `json:"content_hash"`
	OrgData        OrgData      `json:"org_data"`
	DocumentMeta   DocumentMeta `json:"document_meta_data"`
	FetchedAt      time.Time    `json:"fetched_at"`
	PreprocessedAt time.Time    `json:"preprocessed_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// OrgEntity is one row of the per-transcript organization mention table.
type OrgEntity struct {
	TranscriptID uuid.UUID `json:"transcript_id"`
	Name         string    `json:"org_name"`
	MentionCount int       `json:"mention_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Chunk is a retrievable span of transcript text that has not been persisted yet.
type Chunk struct {
	TranscriptID uuid.UUID `json:"transcript_id"`
	CompanyID    uuid.UUID `json:"company_id"`
	ChunkID      uuid.UUID `json:"chunk_id"`
	ChunkHash    string    `json:"chunk_hash"`
	ChunkIndex   int       `json:"chunk_index"`
	Data         ChunkData `json:"chunk_data"`
}

// Key returns the storage identity of the chunk.
func (c *Chunk) Key() ChunkKey {
	return ChunkKey{TranscriptID: c.TranscriptID, ChunkID: c.ChunkID}
}

// Text returns the chunk text payload.
func (c *Chunk) Text() string {
	return c.Data.Text()
}

// ChunkKey identifies a persisted chunk.
type ChunkKey struct {
	TranscriptID uuid.UUID
	ChunkID      uuid.UUID
}

// ChunkRecord is a persisted chunk with an optional embedding.
// EmbeddingModel and UpdatedAt are only set together with Embedding.
type ChunkRecord struct {
	Chunk
	Embedding      []float32 `json:"-"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitzero"`
}

// HasEmbedding reports whether the record carries a vector.
func (r *ChunkRecord) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// Filters restricts retrieval to a fiscal period and company.
// Nil and empty fields do not filter.
type Filters struct {
	Year    *int
	Quarter *int
	// Company is a ticker or a company name.
	Company string
}

// ScoredChunk is a retrieval hit. Score is the cosine similarity to the query.
type ScoredChunk struct {
	Chunk *ChunkRecord
	Score float32
}

// TranscriptQuery is a full-text search over transcript text.
type TranscriptQuery struct {
	Query         string
	CompanyID     *uuid.UUID
	FiscalYear    *int
	FiscalQuarter *int
	Limit         int
	Offset        int
}

// TranscriptHit is one full-text search result.
type TranscriptHit struct {
	TranscriptID  uuid.UUID `json:"transcript_id"`
	CompanyID     uuid.UUID `json:"company_id"`
	FiscalYear    int       `json:"fiscal_year"`
	FiscalQuarter int       `json:"fiscal_quarter"`
	Rank          float64   `json:"rank"`
	Snippet       string    `json:"snippet"`
}

// TranscriptPage is a window of full-text hits plus the total number of matches.
type TranscriptPage struct {
	Total int             `json:"total"`
	Hits  []TranscriptHit `json:"hits"`
}

// TranscriptFilter selects stored transcripts by company and fiscal period.
type TranscriptFilter struct {
	CompanyIDs []uuid.UUID
	Year       *int
	Quarter    *int
}

// SimilarityQuery is a vector similarity scan over embedded chunks.
// An empty TranscriptIDs slice scans every transcript.
type SimilarityQuery struct {
	Vector        []float32
	TranscriptIDs []uuid.UUID
	Limit         int
}
