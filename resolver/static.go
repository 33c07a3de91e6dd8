package resolver

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/earningsrag/core"
)

// StaticEntry is one company known to a Static resolver.
type StaticEntry struct {
	Name         string   `yaml:"name"`
	Ticker       string   `yaml:"ticker"`
	ExchangeCode string   `yaml:"exchange_code"`
	SecurityType string   `yaml:"security_type"`
	MarketSector string   `yaml:"market_sector"`
	Aliases      []string `yaml:"aliases"`
}

// Static resolves companies from a fixed list. A query matches an entry by
// ticker, name or alias, ignoring case.
type Static struct {
	entries []StaticEntry
}

var _ Resolver = (*Static)(nil)

// NewStatic creates a resolver over entries.
func NewStatic(entries ...StaticEntry) *Static {
	return &Static{entries: entries}
}

// LoadStatic reads a YAML list of entries from path:
//
//	- name: Microsoft Corp
//	  ticker: MSFT
//	  exchange_code: US
//	  aliases: [microsoft]
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading companies file: %w", err)
	}
	var entries []StaticEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing companies file %s: %w", path, err)
	}
	return NewStatic(entries...), nil
}

// Resolve returns the first entry matching query on the requested exchange.
func (s *Static) Resolve(_ context.Context, query Query) (*core.Company, error) {
	query = query.Normalize()
	if query.Company == "" {
		return nil, fmt.Errorf("%w: company is required", ErrInvalidQuery)
	}
	for _, e := range s.entries {
		exchange := e.ExchangeCode
		if exchange == "" {
			exchange = DefaultExchangeCode
		}
		if !strings.EqualFold(exchange, query.ExchangeCode) || !e.matches(query.Company) {
			continue
		}
		securityType := e.SecurityType
		if securityType == "" {
			securityType = query.SecurityType
		}
		return &core.Company{
			Name:         e.Name,
			Ticker:       core.NormalizeTicker(e.Ticker),
			ExchangeCode: exchange,
			SecurityType: securityType,
			MarketSector: e.MarketSector,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, query.Company)
}

func (e StaticEntry) matches(ref string) bool {
	if strings.EqualFold(e.Ticker, ref) || strings.EqualFold(e.Name, ref) {
		return true
	}
	for _, alias := range e.Aliases {
		if strings.EqualFold(alias, ref) {
			return true
		}
	}
	return false
}
