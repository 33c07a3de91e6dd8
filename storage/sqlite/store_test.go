package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/storage"
	"github.com/poiesic/earningsrag/storage/storagetest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return s
}

func TestRepositoryConformance(t *testing.T) {
	suite.Run(t, &storagetest.Suite{Open: func(t *testing.T) storage.Repository {
		return openTestStore(t)
	}})
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "earnings.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	company, _, err := s.GetOrCreateCompany(ctx, &core.Company{Name: "Microsoft", Ticker: "MSFT", ExchangeCode: "US"})
	require.NoError(t, err)
	transcript, err := s.AddTranscript(ctx, storagetest.NewTranscript(company.ID, 2024, 1, "Cloud revenue grew."), nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	var versions int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 1, versions)

	got, err := s.GetTranscript(ctx, transcript.ID)
	require.NoError(t, err)
	assert.Equal(t, transcript.RawText, got.RawText)

	ids, err := s.LexicalCandidates(ctx, "cloud", 5)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, transcript.ID, ids[0])
}

func TestMatchExpression(t *testing.T) {
	assert.Equal(t, "", matchExpression(nil, 0))
	assert.Equal(t, `"cloud" "margin"`, matchExpression([]string{"cloud", "margin"}, 0))
	assert.Equal(t, `"cloud" OR "margin"`, matchExpression([]string{"cloud", "margin"}, 1))
	assert.Equal(t, `"a""b"`, matchExpression([]string{`a"b`}, 0))
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil))
	assert.ErrorIs(t, mapError(sql.ErrNoRows), storage.ErrNotFound)

	other := errors.New("disk on fire")
	assert.Same(t, other, mapError(other))
}

func TestUniqueViolationMapsToConflict(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	ctx := context.Background()

	company, _, err := s.GetOrCreateCompany(ctx, &core.Company{Name: "Microsoft", Ticker: "MSFT", ExchangeCode: "US"})
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO companies (id, name, ticker, exchange_code, created_at) VALUES (?, ?, ?, ?, ?)",
		"00000000-0000-0000-0000-000000000001", "Microsoft", "MSFT", "US", 1)
	require.Error(t, err)
	mapped := mapError(err)
	assert.ErrorIs(t, mapped, storage.ErrConflict)
	assert.Equal(t, core.ClassConflict, core.Classify(mapped))

	again, created, err := s.GetOrCreateCompany(ctx, &core.Company{Name: "Microsoft Corp", Ticker: "msft", ExchangeCode: "US"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, company.ID, again.ID)
}
