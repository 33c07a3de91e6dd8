package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/storage"
)

const chunkColumns = "transcript_id, chunk_id, company_id, chunk_hash, chunk_index, chunk_data, embedding, embedding_model, updated_at"

// GetChunk retrieves a chunk and its embedding, if any.
func (s *Store) GetChunk(ctx context.Context, key core.ChunkKey) (*core.ChunkRecord, error) {
	return scanChunk(s.conn(ctx).QueryRowContext(ctx,
		"SELECT "+chunkColumns+" FROM transcript_chunks WHERE transcript_id = ? AND chunk_id = ?",
		key.TranscriptID.String(), key.ChunkID.String()))
}

// ListChunks returns the chunks of a transcript in chunk index order.
func (s *Store) ListChunks(ctx context.Context, transcriptID uuid.UUID) ([]*core.ChunkRecord, error) {
	return s.queryChunks(ctx,
		"SELECT "+chunkColumns+" FROM transcript_chunks WHERE transcript_id = ? ORDER BY chunk_index",
		transcriptID.String())
}

// EmbeddedKeys returns the subset of keys that already carry an embedding.
func (s *Store) EmbeddedKeys(ctx context.Context, keys []core.ChunkKey) (map[core.ChunkKey]bool, error) {
	embedded := make(map[core.ChunkKey]bool)
	q := s.conn(ctx)
	for _, key := range keys {
		var n int
		err := q.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM transcript_chunks WHERE transcript_id = ? AND chunk_id = ? AND embedding IS NOT NULL",
			key.TranscriptID.String(), key.ChunkID.String()).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("checking embedding: %w", err)
		}
		if n > 0 {
			embedded[key] = true
		}
	}
	return embedded, nil
}

// UpsertChunks writes records with fill-missing-only semantics: new keys
// are inserted, stored rows without an embedding are filled by records that
// carry one, and everything else is left untouched.
func (s *Store) UpsertChunks(ctx context.Context, records []*core.ChunkRecord) (storage.UpsertResult, error) {
	for _, record := range records {
		if err := core.ValidateChunk(&record.Chunk); err != nil {
			return storage.UpsertResult{}, err
		}
	}

	var result storage.UpsertResult
	err := s.update(ctx, func(q querier) error {
		result = storage.UpsertResult{}
		now := time.Now().UTC()
		seen := make(map[core.ChunkKey]bool, len(records))
		for _, record := range records {
			key := record.Key()
			if seen[key] {
				result.Skipped++
				continue
			}
			seen[key] = true

			var embedded bool
			err := q.QueryRowContext(ctx,
				"SELECT embedding IS NOT NULL FROM transcript_chunks WHERE transcript_id = ? AND chunk_id = ?",
				key.TranscriptID.String(), key.ChunkID.String()).Scan(&embedded)
			stored := true
			if errors.Is(err, sql.ErrNoRows) {
				stored = false
			} else if err != nil {
				return fmt.Errorf("reading chunk: %w", err)
			}

			switch {
			case !stored:
				if err := insertChunk(ctx, q, record, now); err != nil {
					return err
				}
				result.Inserted++
			case !embedded && record.HasEmbedding():
				if err := fillChunk(ctx, q, record, now); err != nil {
					return err
				}
				result.Filled++
			default:
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return storage.UpsertResult{}, err
	}
	return result, nil
}

// vectorColumns returns the embedding, model and timestamp values of a
// record. They are all NULL when the record has no embedding.
func vectorColumns(record *core.ChunkRecord, now time.Time) (any, any, sql.NullInt64) {
	if !record.HasEmbedding() {
		return nil, nil, sql.NullInt64{}
	}
	return storage.MarshalVector(record.Embedding), record.EmbeddingModel, toUnix(now)
}

func insertChunk(ctx context.Context, q querier, record *core.ChunkRecord, now time.Time) error {
	data, err := storage.MarshalChunkData(record.Data)
	if err != nil {
		return err
	}
	vector, model, updatedAt := vectorColumns(record, now)
	_, err = q.ExecContext(ctx,
		"INSERT INTO transcript_chunks ("+chunkColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		record.TranscriptID.String(), record.ChunkID.String(), record.CompanyID.String(),
		record.ChunkHash, record.ChunkIndex, string(data), vector, model, updatedAt)
	if err != nil {
		return fmt.Errorf("inserting chunk: %w", mapError(err))
	}
	return nil
}

func fillChunk(ctx context.Context, q querier, record *core.ChunkRecord, now time.Time) error {
	data, err := storage.MarshalChunkData(record.Data)
	if err != nil {
		return err
	}
	vector, model, updatedAt := vectorColumns(record, now)
	_, err = q.ExecContext(ctx,
		`UPDATE transcript_chunks
		 SET company_id = ?, chunk_hash = ?, chunk_index = ?, chunk_data = ?,
		     embedding = ?, embedding_model = ?, updated_at = ?
		 WHERE transcript_id = ? AND chunk_id = ? AND embedding IS NULL`,
		record.CompanyID.String(), record.ChunkHash, record.ChunkIndex, string(data),
		vector, model, updatedAt,
		record.TranscriptID.String(), record.ChunkID.String())
	if err != nil {
		return fmt.Errorf("filling chunk embedding: %w", mapError(err))
	}
	return nil
}

// ChunksMissingEmbeddings pages through chunks without an embedding in key order.
func (s *Store) ChunksMissingEmbeddings(ctx context.Context, after *core.ChunkKey, limit int) ([]*core.ChunkRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	if after == nil {
		return s.queryChunks(ctx,
			"SELECT "+chunkColumns+" FROM transcript_chunks WHERE embedding IS NULL ORDER BY transcript_id, chunk_id LIMIT ?",
			limit)
	}
	tid, cid := after.TranscriptID.String(), after.ChunkID.String()
	return s.queryChunks(ctx,
		`SELECT `+chunkColumns+` FROM transcript_chunks
		 WHERE embedding IS NULL AND (transcript_id > ? OR (transcript_id = ? AND chunk_id > ?))
		 ORDER BY transcript_id, chunk_id LIMIT ?`,
		tid, tid, cid, limit)
}

// FindSimilar scores embedded chunks against the query vector. A stored
// vector of a different dimension fails the query with
// storage.ErrDimensionMismatch.
func (s *Store) FindSimilar(ctx context.Context, query core.SimilarityQuery) ([]core.ScoredChunk, error) {
	if len(query.Vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	stmt := "SELECT transcript_id, chunk_id, embedding FROM transcript_chunks WHERE embedding IS NOT NULL"
	var args []any
	if len(query.TranscriptIDs) > 0 {
		stmt += " AND transcript_id IN (" + placeholders(len(query.TranscriptIDs)) + ")"
		for _, id := range query.TranscriptIDs {
			args = append(args, id.String())
		}
	}

	q := s.conn(ctx)
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("scanning embeddings: %w", err)
	}
	var hits []core.ScoredChunk
	for rows.Next() {
		var (
			tid, cid string
			blob     []byte
		)
		if err := rows.Scan(&tid, &cid, &blob); err != nil {
			rows.Close()
			return nil, err
		}
		vector, err := storage.UnmarshalVector(blob)
		if err != nil {
			rows.Close()
			return nil, err
		}
		key, err := parseChunkKey(tid, cid)
		if err != nil {
			rows.Close()
			return nil, err
		}
		if err := storage.CheckDimension(query.Vector, vector, key); err != nil {
			rows.Close()
			return nil, err
		}
		hits = append(hits, core.ScoredChunk{
			Chunk: &core.ChunkRecord{Chunk: core.Chunk{TranscriptID: key.TranscriptID, ChunkID: key.ChunkID}},
			Score: storage.CosineSimilarity(query.Vector, vector),
		})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	hits = storage.SortScored(hits, query.Limit)
	for i := range hits {
		record, err := s.GetChunk(ctx, hits[i].Chunk.Key())
		if err != nil {
			return nil, err
		}
		hits[i].Chunk = record
	}
	if hits == nil {
		hits = []core.ScoredChunk{}
	}
	return hits, nil
}

func (s *Store) queryChunks(ctx context.Context, query string, args ...any) ([]*core.ChunkRecord, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var out []*core.ChunkRecord
	for rows.Next() {
		record, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func parseChunkKey(tid, cid string) (core.ChunkKey, error) {
	var (
		key core.ChunkKey
		err error
	)
	if key.TranscriptID, err = uuid.Parse(tid); err != nil {
		return key, fmt.Errorf("%w: transcript id: %w", storage.ErrSerializationFailed, err)
	}
	if key.ChunkID, err = uuid.Parse(cid); err != nil {
		return key, fmt.Errorf("%w: chunk id: %w", storage.ErrSerializationFailed, err)
	}
	return key, nil
}

func scanChunk(row scanner) (*core.ChunkRecord, error) {
	var (
		record         core.ChunkRecord
		tid, cid, coid string
		data           string
		blob           []byte
		model          sql.NullString
		updatedAt      sql.NullInt64
	)
	err := row.Scan(&tid, &cid, &coid, &record.ChunkHash, &record.ChunkIndex, &data, &blob, &model, &updatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	key, err := parseChunkKey(tid, cid)
	if err != nil {
		return nil, err
	}
	record.TranscriptID, record.ChunkID = key.TranscriptID, key.ChunkID
	if record.CompanyID, err = uuid.Parse(coid); err != nil {
		return nil, fmt.Errorf("%w: company id: %w", storage.ErrSerializationFailed, err)
	}
	if record.Data, err = storage.UnmarshalChunkData([]byte(data)); err != nil {
		return nil, err
	}
	if len(blob) > 0 {
		if record.Embedding, err = storage.UnmarshalVector(blob); err != nil {
			return nil, err
		}
		record.EmbeddingModel = model.String
		record.UpdatedAt = fromUnix(updatedAt)
	}
	return &record, nil
}
