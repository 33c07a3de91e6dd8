package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/fulltext"
	"github.com/poiesic/earningsrag/storage"
)

const (
	defaultSearchLimit = 20

	transcriptColumns = "id, company_id, fiscal_year, fiscal_quarter, source, source_url, raw_text, " +
		"paragraphs, content_hash, org_data, document_meta, fetched_at, preprocessed_at, updated_at"
)

// AddTranscript stores a transcript and its organization mentions. The
// full-text index is maintained by trigger.
func (s *Store) AddTranscript(ctx context.Context, transcript *core.Transcript, orgs []core.OrgEntity) (*core.Transcript, error) {
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

	paragraphs, err := json.Marshal(stored.Paragraphs)
	if err != nil {
		return nil, fmt.Errorf("%w: paragraphs: %w", storage.ErrSerializationFailed, err)
	}
	orgData, err := json.Marshal(stored.OrgData)
	if err != nil {
		return nil, fmt.Errorf("%w: org data: %w", storage.ErrSerializationFailed, err)
	}
	meta, err := json.Marshal(stored.DocumentMeta)
	if err != nil {
		return nil, fmt.Errorf("%w: document meta: %w", storage.ErrSerializationFailed, err)
	}

	err = s.update(ctx, func(q querier) error {
		var n int
		err := q.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM transcripts WHERE company_id = ? AND fiscal_year = ? AND fiscal_quarter = ?",
			stored.CompanyID.String(), stored.FiscalYear, stored.FiscalQuarter).Scan(&n)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %d Q%d", storage.ErrDuplicatePeriod, stored.FiscalYear, stored.FiscalQuarter)
		}
		err = q.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM transcripts WHERE company_id = ? AND content_hash = ?",
			stored.CompanyID.String(), stored.ContentHash).Scan(&n)
		if err != nil {
			return err
		}
		if n > 0 {
			return storage.ErrDuplicateContent
		}

		_, err = q.ExecContext(ctx,
			"INSERT INTO transcripts ("+transcriptColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			stored.ID.String(), stored.CompanyID.String(), stored.FiscalYear, stored.FiscalQuarter,
			stored.Source, stored.SourceURL, stored.RawText, string(paragraphs), stored.ContentHash,
			string(orgData), string(meta), toUnix(stored.FetchedAt), toUnix(stored.PreprocessedAt),
			toUnix(stored.UpdatedAt))
		if err != nil {
			return fmt.Errorf("inserting transcript: %w", mapError(err))
		}

		for _, org := range orgs {
			createdAt := org.CreatedAt
			if createdAt.IsZero() {
				createdAt = now
			}
			_, err := q.ExecContext(ctx,
				"INSERT INTO org_entities (transcript_id, org_name, mention_count, created_at) VALUES (?, ?, ?, ?)",
				stored.ID.String(), org.Name, org.MentionCount, toUnix(createdAt))
			if err != nil {
				return fmt.Errorf("inserting organization %q: %w", org.Name, mapError(err))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetTranscript retrieves a transcript by ID.
func (s *Store) GetTranscript(ctx context.Context, id uuid.UUID) (*core.Transcript, error) {
	return scanTranscript(s.conn(ctx).QueryRowContext(ctx,
		"SELECT "+transcriptColumns+" FROM transcripts WHERE id = ?", id.String()))
}

// FindTranscriptByPeriod retrieves the transcript of a company for a fiscal period.
func (s *Store) FindTranscriptByPeriod(ctx context.Context, companyID uuid.UUID, year, quarter int) (*core.Transcript, error) {
	return scanTranscript(s.conn(ctx).QueryRowContext(ctx,
		"SELECT "+transcriptColumns+" FROM transcripts WHERE company_id = ? AND fiscal_year = ? AND fiscal_quarter = ?",
		companyID.String(), year, quarter))
}

// FindTranscripts returns the transcripts matching filter, newest period first.
func (s *Store) FindTranscripts(ctx context.Context, filter core.TranscriptFilter) ([]*core.Transcript, error) {
	where, args := transcriptWhere("", filter.CompanyIDs, filter.Year, filter.Quarter)
	rows, err := s.conn(ctx).QueryContext(ctx,
		"SELECT "+transcriptColumns+" FROM transcripts"+where+" ORDER BY fiscal_year DESC, fiscal_quarter DESC, id",
		args...)
	if err != nil {
		return nil, fmt.Errorf("querying transcripts: %w", err)
	}
	defer rows.Close()

	var out []*core.Transcript
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// transcriptWhere builds a WHERE clause over the transcripts table. alias
// qualifies column names when the table is joined.
func transcriptWhere(alias string, companyIDs []uuid.UUID, year, quarter *int) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if len(companyIDs) > 0 {
		clauses = append(clauses, alias+"company_id IN ("+placeholders(len(companyIDs))+")")
		for _, id := range companyIDs {
			args = append(args, id.String())
		}
	}
	if year != nil {
		clauses = append(clauses, alias+"fiscal_year = ?")
		args = append(args, *year)
	}
	if quarter != nil {
		clauses = append(clauses, alias+"fiscal_quarter = ?")
		args = append(args, *quarter)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// GetOrgEntities returns the organization mentions of a transcript, most
// mentioned first.
func (s *Store) GetOrgEntities(ctx context.Context, transcriptID uuid.UUID) ([]core.OrgEntity, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT org_name, mention_count, created_at FROM org_entities
		 WHERE transcript_id = ? ORDER BY mention_count DESC, org_name`,
		transcriptID.String())
	if err != nil {
		return nil, fmt.Errorf("querying org entities: %w", err)
	}
	defer rows.Close()

	var out []core.OrgEntity
	for rows.Next() {
		e := core.OrgEntity{TranscriptID: transcriptID}
		var createdAt sql.NullInt64
		if err := rows.Scan(&e.Name, &e.MentionCount, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = fromUnix(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SearchTranscripts ranks transcripts containing every query term with the
// FTS5 bm25 function. Ranks are negated so that higher is better.
func (s *Store) SearchTranscripts(ctx context.Context, query core.TranscriptQuery) (*core.TranscriptPage, error) {
	if strings.TrimSpace(query.Query) == "" || query.Offset < 0 || query.Limit < 0 {
		return nil, storage.ErrInvalidQuery
	}
	limit := query.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}
	page := &core.TranscriptPage{Hits: []core.TranscriptHit{}}
	match := matchExpression(fulltext.Terms(query.Query), fulltext.MatchAll)
	if match == "" {
		return page, nil
	}

	var companyIDs []uuid.UUID
	if query.CompanyID != nil {
		companyIDs = []uuid.UUID{*query.CompanyID}
	}
	where, filterArgs := transcriptWhere("t.", companyIDs, query.FiscalYear, query.FiscalQuarter)
	if where == "" {
		where = " WHERE transcripts_fts MATCH ?"
	} else {
		where += " AND transcripts_fts MATCH ?"
	}
	args := append(filterArgs, match)

	q := s.conn(ctx)
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transcripts_fts JOIN transcripts t ON t.rowid = transcripts_fts.rowid"+where,
		args...).Scan(&page.Total)
	if err != nil {
		return nil, fmt.Errorf("counting matches: %w", err)
	}
	if page.Total == 0 || query.Offset >= page.Total {
		return page, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT t.id, t.company_id, t.fiscal_year, t.fiscal_quarter,
		        -bm25(transcripts_fts) AS score,
		        snippet(transcripts_fts, 0, '<mark>', '</mark>', ' … ', 35)
		 FROM transcripts_fts JOIN transcripts t ON t.rowid = transcripts_fts.rowid`+where+`
		 ORDER BY score DESC, t.id
		 LIMIT ? OFFSET ?`,
		append(args, limit, query.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("searching transcripts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			hit           core.TranscriptHit
			id, companyID string
		)
		if err := rows.Scan(&id, &companyID, &hit.FiscalYear, &hit.FiscalQuarter, &hit.Rank, &hit.Snippet); err != nil {
			return nil, err
		}
		if hit.TranscriptID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("%w: transcript id: %w", storage.ErrSerializationFailed, err)
		}
		if hit.CompanyID, err = uuid.Parse(companyID); err != nil {
			return nil, fmt.Errorf("%w: company id: %w", storage.ErrSerializationFailed, err)
		}
		page.Hits = append(page.Hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return page, nil
}

// LexicalCandidates returns the best ranked transcripts matching any term of text.
func (s *Store) LexicalCandidates(ctx context.Context, text string, limit int) ([]uuid.UUID, error) {
	match := matchExpression(fulltext.Terms(text), fulltext.MatchAny)
	if match == "" {
		return []uuid.UUID{}, nil
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT t.id, -bm25(transcripts_fts) AS score
		 FROM transcripts_fts JOIN transcripts t ON t.rowid = transcripts_fts.rowid
		 WHERE transcripts_fts MATCH ?
		 ORDER BY score DESC, t.id
		 LIMIT ?`,
		match, limit)
	if err != nil {
		return nil, fmt.Errorf("querying lexical candidates: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var (
			raw   string
			score float64
		)
		if err := rows.Scan(&raw, &score); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: transcript id: %w", storage.ErrSerializationFailed, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// matchExpression renders terms as an FTS5 query. Each term is quoted so
// that FTS5 operators in user text are taken literally.
func matchExpression(terms []string, mode fulltext.Mode) string {
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	sep := " "
	if mode == fulltext.MatchAny {
		sep = " OR "
	}
	return strings.Join(quoted, sep)
}

func scanTranscript(row scanner) (*core.Transcript, error) {
	var (
		t                               core.Transcript
		id, companyID                   string
		paragraphs, orgData, meta       string
		fetchedAt, preprocessedAt, upAt sql.NullInt64
	)
	err := row.Scan(&id, &companyID, &t.FiscalYear, &t.FiscalQuarter, &t.Source, &t.SourceURL,
		&t.RawText, &paragraphs, &t.ContentHash, &orgData, &meta, &fetchedAt, &preprocessedAt, &upAt)
	if err != nil {
		return nil, mapError(err)
	}
	if t.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: transcript id: %w", storage.ErrSerializationFailed, err)
	}
	if t.CompanyID, err = uuid.Parse(companyID); err != nil {
		return nil, fmt.Errorf("%w: company id: %w", storage.ErrSerializationFailed, err)
	}
	if err := errors.Join(
		json.Unmarshal([]byte(paragraphs), &t.Paragraphs),
		json.Unmarshal([]byte(orgData), &t.OrgData),
		json.Unmarshal([]byte(meta), &t.DocumentMeta),
	); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	t.FetchedAt = fromUnix(fetchedAt)
	t.PreprocessedAt = fromUnix(preprocessedAt)
	t.UpdatedAt = fromUnix(upAt)
	return &t, nil
}
