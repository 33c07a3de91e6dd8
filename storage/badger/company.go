package badger

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/storage"
)

// CompanyRepository implements storage.CompanyRepository for BadgerDB.
type CompanyRepository struct {
	backend *Backend
}

var _ storage.CompanyRepository = (*CompanyRepository)(nil)

// NewCompanyRepository creates a new CompanyRepository.
func NewCompanyRepository(backend *Backend) *CompanyRepository {
	return &CompanyRepository{backend: backend}
}

// GetOrCreateCompany returns the company stored under the ticker and exchange
// of company, creating it when absent.
func (r *CompanyRepository) GetOrCreateCompany(ctx context.Context, company *core.Company) (*core.Company, bool, error) {
	if err := core.ValidateCompany(company); err != nil {
		return nil, false, err
	}

	var (
		result  *core.Company
		created bool
	)
	err := r.backend.update(ctx, func(tx *badger.Txn) error {
		result, created = nil, false
		indexKey := makeCompanyTickerKey(company.Ticker, company.ExchangeCode)
		id, err := getID(tx, indexKey)
		if err == nil {
			result, err = r.readCompany(tx, id)
			return err
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		stored := *company
		stored.Ticker = core.NormalizeTicker(stored.Ticker)
		if stored.ID == uuid.Nil {
			stored.ID = uuid.New()
		}
		stored.CreatedAt = time.Now().UTC()
		if err := tx.Set(makeCompanyKey(stored.ID), storage.MarshalCompany(&stored)); err != nil {
			return err
		}
		if err := tx.Set(indexKey, stored.ID[:]); err != nil {
			return err
		}
		result, created = &stored, true
		return nil
	})
	if errors.Is(err, storage.ErrConflict) {
		if _, inTx := txFromContext(ctx); !inTx {
			// Another writer created the company first.
			found, findErr := r.findByTicker(ctx, company.Ticker, company.ExchangeCode)
			return found, false, findErr
		}
	}
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

func (r *CompanyRepository) findByTicker(ctx context.Context, ticker, exchange string) (*core.Company, error) {
	var result *core.Company
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		id, err := getID(tx, makeCompanyTickerKey(ticker, exchange))
		if err != nil {
			return err
		}
		result, err = r.readCompany(tx, id)
		return err
	})
	return result, err
}

// GetCompany retrieves a company by ID.
func (r *CompanyRepository) GetCompany(ctx context.Context, id uuid.UUID) (*core.Company, error) {
	var result *core.Company
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = r.readCompany(tx, id)
		return err
	})
	return result, err
}

// FindCompanies returns the companies whose ticker or name matches ref.
func (r *CompanyRepository) FindCompanies(ctx context.Context, ref string) ([]*core.Company, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	ticker := core.NormalizeTicker(ref)

	all, err := r.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}
	var out []*core.Company
	for _, c := range all {
		if c.Ticker == ticker || strings.EqualFold(c.Name, ref) {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListCompanies returns all companies ordered by ticker, then exchange.
func (r *CompanyRepository) ListCompanies(ctx context.Context) ([]*core.Company, error) {
	var out []*core.Company
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		return scan(tx, []byte(companyRecordPrefix), true, func(_, val []byte) error {
			c, err := storage.UnmarshalCompany(val)
			if err != nil {
				return err
			}
			out = append(out, c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b *core.Company) int {
		if c := strings.Compare(a.Ticker, b.Ticker); c != 0 {
			return c
		}
		return strings.Compare(a.ExchangeCode, b.ExchangeCode)
	})
	return out, nil
}

func (r *CompanyRepository) readCompany(tx *badger.Txn, id uuid.UUID) (*core.Company, error) {
	value, err := get(tx, makeCompanyKey(id))
	if err != nil {
		return nil, err
	}
	return storage.UnmarshalCompany(value)
}
