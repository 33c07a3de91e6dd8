package badger

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/fulltext"
	"github.com/poiesic/earningsrag/storage"
)

const defaultSearchLimit = 20

// TranscriptRepository implements storage.TranscriptRepository for BadgerDB.
// Transcript text is indexed in an inverted index keyed by term ID so that
// full-text queries can be ranked with BM25.
type TranscriptRepository struct {
	backend *Backend
	bm25    fulltext.BM25
	snippet fulltext.SnippetOptions
}

var _ storage.TranscriptRepository = (*TranscriptRepository)(nil)

// NewTranscriptRepository creates a new TranscriptRepository.
func NewTranscriptRepository(backend *Backend) *TranscriptRepository {
	return &TranscriptRepository{
		backend: backend,
		bm25:    fulltext.DefaultBM25(),
		snippet: fulltext.DefaultSnippetOptions(),
	}
}

// AddTranscript stores a transcript, its organization mentions and its
// full-text postings.
func (r *TranscriptRepository) AddTranscript(ctx context.Context, transcript *core.Transcript, orgs []core.OrgEntity) (*core.Transcript, error) {
	if err := core.ValidateTranscript(transcript); err != nil {
		return nil, err
	}

	stored := *transcript
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	now := time.Now().UTC()
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now
	}

	err := r.backend.update(ctx, func(tx *badger.Txn) error {
		periodKey := makeTranscriptPeriodKey(stored.CompanyID, stored.FiscalYear, stored.FiscalQuarter)
		taken, err := exists(tx, periodKey)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %d Q%d", storage.ErrDuplicatePeriod, stored.FiscalYear, stored.FiscalQuarter)
		}
		hashKey := makeTranscriptHashKey(stored.CompanyID, stored.ContentHash)
		taken, err = exists(tx, hashKey)
		if err != nil {
			return err
		}
		if taken {
			return storage.ErrDuplicateContent
		}

		if err := tx.Set(makeTranscriptKey(stored.ID), storage.MarshalTranscript(&stored)); err != nil {
			return err
		}
		if err := tx.Set(periodKey, stored.ID[:]); err != nil {
			return err
		}
		if err := tx.Set(hashKey, stored.ID[:]); err != nil {
			return err
		}

		for _, org := range orgs {
			org.TranscriptID = stored.ID
			if org.CreatedAt.IsZero() {
				org.CreatedAt = now
			}
			key := makeOrgEntityKey(stored.ID, org.Name)
			dup, err := exists(tx, key)
			if err != nil {
				return err
			}
			if dup {
				return fmt.Errorf("%w: organization %q listed twice", storage.ErrConflict, org.Name)
			}
			if err := tx.Set(key, storage.MarshalOrgEntity(&org)); err != nil {
				return err
			}
		}

		return r.indexText(tx, stored.ID, stored.RawText)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// indexText writes the postings and token count of a transcript.
func (r *TranscriptRepository) indexText(tx *badger.Txn, id uuid.UUID, text string) error {
	freqs, length := fulltext.TermFrequencies(text)
	for term, count := range freqs {
		if err := tx.Set(makePostingKey(core.IDFromContent(term), id), marshalCount(count)); err != nil {
			return err
		}
	}
	return tx.Set(makeDocLengthKey(id), marshalCount(length))
}

// GetTranscript retrieves a transcript by ID.
func (r *TranscriptRepository) GetTranscript(ctx context.Context, id uuid.UUID) (*core.Transcript, error) {
	var result *core.Transcript
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = r.readTranscript(tx, id)
		return err
	})
	return result, err
}

// FindTranscriptByPeriod retrieves the transcript of a company for a fiscal period.
func (r *TranscriptRepository) FindTranscriptByPeriod(ctx context.Context, companyID uuid.UUID, year, quarter int) (*core.Transcript, error) {
	var result *core.Transcript
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		id, err := getID(tx, makeTranscriptPeriodKey(companyID, year, quarter))
		if err != nil {
			return err
		}
		result, err = r.readTranscript(tx, id)
		return err
	})
	return result, err
}

// FindTranscripts returns the transcripts matching filter, newest period first.
func (r *TranscriptRepository) FindTranscripts(ctx context.Context, filter core.TranscriptFilter) ([]*core.Transcript, error) {
	var out []*core.Transcript
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		out, err = r.findTranscripts(tx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *TranscriptRepository) findTranscripts(tx *badger.Txn, filter core.TranscriptFilter) ([]*core.Transcript, error) {
	var all []*core.Transcript
	if len(filter.CompanyIDs) == 0 {
		err := scan(tx, []byte(transcriptRecordPrefix), true, func(_, val []byte) error {
			t, err := storage.UnmarshalTranscript(val)
			if err != nil {
				return err
			}
			all = append(all, t)
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		var ids []uuid.UUID
		for _, companyID := range filter.CompanyIDs {
			err := scan(tx, makePartialTranscriptPeriodKey(companyID), true, func(_, val []byte) error {
				id, err := uuid.FromBytes(val)
				if err != nil {
					return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
				}
				ids = append(ids, id)
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
		for _, id := range ids {
			t, err := r.readTranscript(tx, id)
			if err != nil {
				return nil, err
			}
			all = append(all, t)
		}
	}

	out := all[:0]
	for _, t := range all {
		if matchesPeriod(t, filter.Year, filter.Quarter) {
			out = append(out, t)
		}
	}
	return out, nil
}

func matchesPeriod(t *core.Transcript, year, quarter *int) bool {
	if year != nil && t.FiscalYear != *year {
		return false
	}
	if quarter != nil && t.FiscalQuarter != *quarter {
		return false
	}
	return true
}

func sortNewestFirst(ts []*core.Transcript) {
	slices.SortFunc(ts, func(a, b *core.Transcript) int {
		if a.FiscalYear != b.FiscalYear {
			return b.FiscalYear - a.FiscalYear
		}
		if a.FiscalQuarter != b.FiscalQuarter {
			return b.FiscalQuarter - a.FiscalQuarter
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}

// GetOrgEntities returns the organization mentions of a transcript, most
// mentioned first.
func (r *TranscriptRepository) GetOrgEntities(ctx context.Context, transcriptID uuid.UUID) ([]core.OrgEntity, error) {
	var out []core.OrgEntity
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		return scan(tx, makePartialOrgEntityKey(transcriptID), true, func(_, val []byte) error {
			e, err := storage.UnmarshalOrgEntity(val)
			if err != nil {
				return err
			}
			out = append(out, *e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b core.OrgEntity) int {
		if a.MentionCount != b.MentionCount {
			return b.MentionCount - a.MentionCount
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// SearchTranscripts ranks transcripts containing every query term.
func (r *TranscriptRepository) SearchTranscripts(ctx context.Context, query core.TranscriptQuery) (*core.TranscriptPage, error) {
	if strings.TrimSpace(query.Query) == "" || query.Offset < 0 || query.Limit < 0 {
		return nil, storage.ErrInvalidQuery
	}
	limit := query.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}
	terms := fulltext.Terms(query.Query)
	page := &core.TranscriptPage{Hits: []core.TranscriptHit{}}
	if len(terms) == 0 {
		return page, nil
	}

	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		ranked, err := r.rank(tx, terms, fulltext.MatchAll)
		if err != nil {
			return err
		}

		var matches []*core.Transcript
		for _, hit := range ranked {
			t, err := r.readTranscript(tx, hit.id)
			if err != nil {
				return err
			}
			if query.CompanyID != nil && t.CompanyID != *query.CompanyID {
				continue
			}
			if !matchesPeriod(t, query.FiscalYear, query.FiscalQuarter) {
				continue
			}
			matches = append(matches, t)
			page.Hits = append(page.Hits, core.TranscriptHit{
				TranscriptID:  t.ID,
				CompanyID:     t.CompanyID,
				FiscalYear:    t.FiscalYear,
				FiscalQuarter: t.FiscalQuarter,
				Rank:          hit.score,
			})
		}
		page.Total = len(page.Hits)

		start := min(query.Offset, len(page.Hits))
		end := min(start+limit, len(page.Hits))
		page.Hits = page.Hits[start:end]
		for i := range page.Hits {
			page.Hits[i].Snippet = fulltext.Snippet(matches[start+i].RawText, terms, r.snippet)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// LexicalCandidates returns the best ranked transcripts matching any term of text.
func (r *TranscriptRepository) LexicalCandidates(ctx context.Context, text string, limit int) ([]uuid.UUID, error) {
	terms := fulltext.Terms(text)
	if len(terms) == 0 {
		return []uuid.UUID{}, nil
	}
	var ids []uuid.UUID
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		ranked, err := r.rank(tx, terms, fulltext.MatchAny)
		if err != nil {
			return err
		}
		if limit > 0 && len(ranked) > limit {
			ranked = ranked[:limit]
		}
		ids = make([]uuid.UUID, len(ranked))
		for i, hit := range ranked {
			ids[i] = hit.id
		}
		return nil
	})
	return ids, err
}

type rankedDoc struct {
	id    uuid.UUID
	score float64
}

// rank scores every transcript matching terms under mode with BM25, best first.
func (r *TranscriptRepository) rank(tx *badger.Txn, terms []string, mode fulltext.Mode) ([]rankedDoc, error) {
	docLengths := make(map[uuid.UUID]int)
	var totalLength int
	err := scan(tx, []byte(fulltextDocLengthPrefix), true, func(key, val []byte) error {
		n := unmarshalCount(val)
		docLengths[uuidFromTail(key)] = n
		totalLength += n
		return nil
	})
	if err != nil {
		return nil, err
	}
	docCount := len(docLengths)
	if docCount == 0 {
		return nil, nil
	}
	avgLength := float64(totalLength) / float64(docCount)

	scores := make(map[uuid.UUID]float64)
	matched := make(map[uuid.UUID]int)
	for _, term := range terms {
		postings := make(map[uuid.UUID]int)
		err := scan(tx, makePartialPostingKey(core.IDFromContent(term)), true, func(key, val []byte) error {
			postings[uuidFromTail(key)] = unmarshalCount(val)
			return nil
		})
		if err != nil {
			return nil, err
		}
		for id, tf := range postings {
			scores[id] += r.bm25.Score(tf, docLengths[id], avgLength, len(postings), docCount)
			matched[id]++
		}
	}

	out := make([]rankedDoc, 0, len(scores))
	for id, score := range scores {
		if mode == fulltext.MatchAll && matched[id] < len(terms) {
			continue
		}
		out = append(out, rankedDoc{id: id, score: score})
	}
	slices.SortFunc(out, func(a, b rankedDoc) int {
		if a.score > b.score {
			return -1
		}
		if a.score < b.score {
			return 1
		}
		return strings.Compare(a.id.String(), b.id.String())
	})
	return out, nil
}

func (r *TranscriptRepository) readTranscript(tx *badger.Txn, id uuid.UUID) (*core.Transcript, error) {
	value, err := get(tx, makeTranscriptKey(id))
	if err != nil {
		return nil, err
	}
	return storage.UnmarshalTranscript(value)
}
