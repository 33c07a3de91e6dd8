package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/storage"
)

const companyColumns = "id, name, ticker, exchange_code, security_type, market_sector, created_at"

// GetOrCreateCompany returns the company with the same ticker and exchange,
// inserting it when absent.
func (s *Store) GetOrCreateCompany(ctx context.Context, company *core.Company) (*core.Company, bool, error) {
	if err := core.ValidateCompany(company); err != nil {
		return nil, false, err
	}
	ticker := core.NormalizeTicker(company.Ticker)

	var (
		result  *core.Company
		created bool
	)
	err := s.update(ctx, func(q querier) error {
		existing, err := scanCompany(q.QueryRowContext(ctx,
			"SELECT "+companyColumns+" FROM companies WHERE ticker = ? AND exchange_code = ?",
			ticker, company.ExchangeCode))
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		stored := *company
		stored.Ticker = ticker
		if stored.ID == uuid.Nil {
			stored.ID = uuid.New()
		}
		stored.CreatedAt = time.Now().UTC()
		_, err = q.ExecContext(ctx,
			"INSERT INTO companies ("+companyColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
			stored.ID.String(), stored.Name, stored.Ticker, stored.ExchangeCode,
			stored.SecurityType, stored.MarketSector, toUnix(stored.CreatedAt))
		if err != nil {
			return fmt.Errorf("inserting company: %w", mapError(err))
		}
		result, created = &stored, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

// GetCompany retrieves a company by ID.
func (s *Store) GetCompany(ctx context.Context, id uuid.UUID) (*core.Company, error) {
	return scanCompany(s.conn(ctx).QueryRowContext(ctx,
		"SELECT "+companyColumns+" FROM companies WHERE id = ?", id.String()))
}

// FindCompanies returns the companies whose ticker or name matches ref.
func (s *Store) FindCompanies(ctx context.Context, ref string) ([]*core.Company, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	return s.queryCompanies(ctx,
		"SELECT "+companyColumns+" FROM companies WHERE ticker = ? OR lower(name) = lower(?) ORDER BY ticker, exchange_code",
		core.NormalizeTicker(ref), ref)
}

// ListCompanies returns all companies ordered by ticker.
func (s *Store) ListCompanies(ctx context.Context) ([]*core.Company, error) {
	return s.queryCompanies(ctx, "SELECT "+companyColumns+" FROM companies ORDER BY ticker, exchange_code")
}

func (s *Store) queryCompanies(ctx context.Context, query string, args ...any) ([]*core.Company, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying companies: %w", err)
	}
	defer rows.Close()

	var out []*core.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCompany(row scanner) (*core.Company, error) {
	var (
		c         core.Company
		id        string
		createdAt sql.NullInt64
	)
	err := row.Scan(&id, &c.Name, &c.Ticker, &c.ExchangeCode, &c.SecurityType, &c.MarketSector, &createdAt)
	if err != nil {
		return nil, mapError(err)
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: company id: %w", storage.ErrSerializationFailed, err)
	}
	c.CreatedAt = fromUnix(createdAt)
	return &c, nil
}
