package badger

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
// Chunk payloads and embeddings live under separate keys so that the
// embedded set can be checked without decoding payloads.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// GetChunk retrieves a chunk and its embedding, if any.
func (r *ChunkRepository) GetChunk(ctx context.Context, key core.ChunkKey) (*core.ChunkRecord, error) {
	var result *core.ChunkRecord
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = r.readChunk(tx, key)
		return err
	})
	return result, err
}

// ListChunks returns the chunks of a transcript in chunk index order.
func (r *ChunkRepository) ListChunks(ctx context.Context, transcriptID uuid.UUID) ([]*core.ChunkRecord, error) {
	var out []*core.ChunkRecord
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		var keys []core.ChunkKey
		err := scan(tx, makePartialChunkKey(transcriptID), false, func(key, _ []byte) error {
			if ck, ok := parseChunkKey(chunkRecordPrefix, key); ok {
				keys = append(keys, ck)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, key := range keys {
			record, err := r.readChunk(tx, key)
			if err != nil {
				return err
			}
			out = append(out, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b *core.ChunkRecord) int {
		return a.ChunkIndex - b.ChunkIndex
	})
	return out, nil
}

// EmbeddedKeys returns the subset of keys that already carry an embedding.
func (r *ChunkRepository) EmbeddedKeys(ctx context.Context, keys []core.ChunkKey) (map[core.ChunkKey]bool, error) {
	embedded := make(map[core.ChunkKey]bool)
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		for _, key := range keys {
			ok, err := exists(tx, makeVectorKey(key))
			if err != nil {
				return err
			}
			if ok {
				embedded[key] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return embedded, nil
}

// UpsertChunks writes records with fill-missing-only semantics.
// Repeated keys within records are written once, first occurrence wins.
func (r *ChunkRepository) UpsertChunks(ctx context.Context, records []*core.ChunkRecord) (storage.UpsertResult, error) {
	for _, record := range records {
		if err := core.ValidateChunk(&record.Chunk); err != nil {
			return storage.UpsertResult{}, err
		}
	}

	var result storage.UpsertResult
	err := r.backend.update(ctx, func(tx *badger.Txn) error {
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

			stored, err := exists(tx, makeChunkKey(key))
			if err != nil {
				return err
			}
			embedded := false
			if stored {
				embedded, err = exists(tx, makeVectorKey(key))
				if err != nil {
					return err
				}
			}

			switch {
			case !stored:
				result.Inserted++
			case !embedded && record.HasEmbedding():
				result.Filled++
			default:
				result.Skipped++
				continue
			}
			if err := r.writeChunk(tx, record, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storage.UpsertResult{}, err
	}
	return result, nil
}

func (r *ChunkRepository) writeChunk(tx *badger.Txn, record *core.ChunkRecord, now time.Time) error {
	row := core.ChunkRecord{Chunk: record.Chunk}
	if record.HasEmbedding() {
		row.EmbeddingModel = record.EmbeddingModel
		row.UpdatedAt = now
	}
	value, err := storage.MarshalChunkRecord(&row)
	if err != nil {
		return err
	}
	key := record.Key()
	if err := tx.Set(makeChunkKey(key), value); err != nil {
		return err
	}
	if record.HasEmbedding() {
		return tx.Set(makeVectorKey(key), storage.MarshalVector(record.Embedding))
	}
	return nil
}

// ChunksMissingEmbeddings pages through chunks without an embedding in key order.
func (r *ChunkRepository) ChunksMissingEmbeddings(ctx context.Context, after *core.ChunkKey, limit int) ([]*core.ChunkRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	var out []*core.ChunkRecord
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		var keys []core.ChunkKey
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		var start []byte
		if after != nil {
			start = makeChunkKey(*after)
		}
		for iter.Seek(start); iter.Valid() && len(keys) < limit; iter.Next() {
			raw := iter.Item().KeyCopy(nil)
			if start != nil && bytes.Equal(raw, start) {
				continue
			}
			key, ok := parseChunkKey(chunkRecordPrefix, raw)
			if !ok {
				continue
			}
			embedded, err := exists(tx, makeVectorKey(key))
			if err != nil {
				iter.Close()
				return err
			}
			if !embedded {
				keys = append(keys, key)
			}
		}
		iter.Close()

		for _, key := range keys {
			record, err := r.readChunk(tx, key)
			if err != nil {
				return err
			}
			out = append(out, record)
		}
		return nil
	})
	return out, err
}

// FindSimilar scores embedded chunks against the query vector. It fails
// with storage.ErrDimensionMismatch when a scanned vector has another
// dimension.
func (r *ChunkRepository) FindSimilar(ctx context.Context, query core.SimilarityQuery) ([]core.ScoredChunk, error) {
	if len(query.Vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []core.ScoredChunk
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		prefixes := [][]byte{[]byte(chunkVectorPrefix)}
		if len(query.TranscriptIDs) > 0 {
			prefixes = prefixes[:0]
			for _, id := range query.TranscriptIDs {
				prefixes = append(prefixes, concat(chunkVectorPrefix, id[:]))
			}
		}

		var hits []core.ScoredChunk
		for _, prefix := range prefixes {
			err := scan(tx, prefix, true, func(key, val []byte) error {
				ck, ok := parseChunkKey(chunkVectorPrefix, key)
				if !ok {
					return nil
				}
				vector, err := storage.UnmarshalVector(val)
				if err != nil {
					return err
				}
				if err := storage.CheckDimension(query.Vector, vector, ck); err != nil {
					return err
				}
				hits = append(hits, core.ScoredChunk{
					Chunk: &core.ChunkRecord{
						Chunk:     core.Chunk{TranscriptID: ck.TranscriptID, ChunkID: ck.ChunkID},
						Embedding: vector,
					},
					Score: storage.CosineSimilarity(query.Vector, vector),
				})
				return nil
			})
			if err != nil {
				return err
			}
		}

		hits = storage.SortScored(hits, query.Limit)
		for i := range hits {
			record, err := r.readChunk(tx, hits[i].Chunk.Key())
			if err != nil {
				return err
			}
			hits[i].Chunk = record
		}
		results = hits
		return nil
	})
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []core.ScoredChunk{}
	}
	return results, nil
}

func (r *ChunkRepository) readChunk(tx *badger.Txn, key core.ChunkKey) (*core.ChunkRecord, error) {
	value, err := get(tx, makeChunkKey(key))
	if err != nil {
		return nil, err
	}
	record, err := storage.UnmarshalChunkRecord(value)
	if err != nil {
		return nil, err
	}
	vector, err := get(tx, makeVectorKey(key))
	if errors.Is(err, storage.ErrNotFound) {
		return record, nil
	}
	if err != nil {
		return nil, err
	}
	record.Embedding, err = storage.UnmarshalVector(vector)
	if err != nil {
		return nil, err
	}
	return record, nil
}
