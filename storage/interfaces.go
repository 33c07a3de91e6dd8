package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/poiesic/earningsrag/core"
)

// TransactionManager provides transaction support.
//
// WithTransaction opens a read-write transaction and places it in the context
// passed to fn. Repository calls made with that context join the transaction
// instead of opening their own. The transaction commits exactly once when fn
// returns nil and is rolled back when fn returns an error. Nested calls join
// the outer transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// CompanyRepository stores issuers. Companies are unique per (ticker, exchange).
type CompanyRepository interface {
	// GetOrCreateCompany returns the stored company with the same normalized
	// ticker and exchange code, creating it from company when none exists.
	// The boolean reports whether a new row was created.
	GetOrCreateCompany(ctx context.Context, company *core.Company) (*core.Company, bool, error)

	// GetCompany retrieves a company by ID. Returns ErrNotFound if absent.
	GetCompany(ctx context.Context, id uuid.UUID) (*core.Company, error)

	// FindCompanies returns every company whose ticker or name matches ref.
	// Tickers compare after NormalizeTicker, names compare case-insensitively.
	FindCompanies(ctx context.Context, ref string) ([]*core.Company, error)

	// ListCompanies returns all companies ordered by ticker.
	ListCompanies(ctx context.Context) ([]*core.Company, error)
}

// TranscriptRepository stores transcripts and their organization mentions.
// Transcripts are immutable once added.
type TranscriptRepository interface {
	// AddTranscript stores a transcript together with its organization
	// entities. A nil ID is replaced by a random one. Returns an error
	// wrapping ErrConflict when the company already has a transcript for the
	// same fiscal period or with the same content hash.
	AddTranscript(ctx context.Context, transcript *core.Transcript, orgs []core.OrgEntity) (*core.Transcript, error)

	// GetTranscript retrieves a transcript by ID. Returns ErrNotFound if absent.
	GetTranscript(ctx context.Context, id uuid.UUID) (*core.Transcript, error)

	// FindTranscriptByPeriod retrieves the transcript of a company for a
	// fiscal period. Returns ErrNotFound if absent.
	FindTranscriptByPeriod(ctx context.Context, companyID uuid.UUID, year, quarter int) (*core.Transcript, error)

	// FindTranscripts returns the transcripts matching filter ordered by
	// fiscal year descending, then fiscal quarter descending.
	FindTranscripts(ctx context.Context, filter core.TranscriptFilter) ([]*core.Transcript, error)

	// GetOrgEntities returns the organization mentions of a transcript sorted
	// by mention count descending, then name.
	GetOrgEntities(ctx context.Context, transcriptID uuid.UUID) ([]core.OrgEntity, error)

	// SearchTranscripts runs a full-text query over transcript text. Every
	// query term must match. Hits are ranked by BM25 and carry a highlighted
	// snippet.
	SearchTranscripts(ctx context.Context, query core.TranscriptQuery) (*core.TranscriptPage, error)

	// LexicalCandidates returns the IDs of at most limit transcripts that
	// match any term of text, best lexical rank first.
	LexicalCandidates(ctx context.Context, text string, limit int) ([]uuid.UUID, error)
}

// UpsertResult counts what UpsertChunks did with each record.
type UpsertResult struct {
	// Inserted records had no stored row.
	Inserted int
	// Filled records replaced a stored row that had no embedding.
	Filled int
	// Skipped records were left alone because the stored row already
	// carries an embedding or because neither side has one.
	Skipped int
}

// ChunkRepository stores chunks and their embeddings.
// Chunks are unique per (transcript, chunk id).
type ChunkRepository interface {
	// GetChunk retrieves a chunk by key. Returns ErrNotFound if absent.
	GetChunk(ctx context.Context, key core.ChunkKey) (*core.ChunkRecord, error)

	// ListChunks returns the chunks of a transcript ordered by chunk index.
	ListChunks(ctx context.Context, transcriptID uuid.UUID) ([]*core.ChunkRecord, error)

	// EmbeddedKeys returns the subset of keys whose stored row carries an
	// embedding.
	EmbeddedKeys(ctx context.Context, keys []core.ChunkKey) (map[core.ChunkKey]bool, error)

	// UpsertChunks writes records with fill-missing-only semantics: new keys
	// are inserted, stored rows without an embedding are replaced (payload
	// included) by records that carry one, and stored rows with an embedding
	// are never modified. Records without an embedding only insert.
	UpsertChunks(ctx context.Context, records []*core.ChunkRecord) (UpsertResult, error)

	// ChunksMissingEmbeddings returns up to limit chunks without an
	// embedding, ordered by key, strictly after the given key. A nil after
	// starts from the beginning.
	ChunksMissingEmbeddings(ctx context.Context, after *core.ChunkKey, limit int) ([]*core.ChunkRecord, error)

	// FindSimilar scores every embedded chunk of the selected transcripts by
	// cosine similarity to the query vector. Results are sorted by score
	// descending with ties broken by chunk ID ascending, and truncated to the
	// query limit.
	FindSimilar(ctx context.Context, query core.SimilarityQuery) ([]core.ScoredChunk, error)
}

// Repository combines every storage operation behind one handle.
type Repository interface {
	TransactionManager
	CompanyRepository
	TranscriptRepository
	ChunkRepository

	// Close releases the underlying database.
	Close() error
}
