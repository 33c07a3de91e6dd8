// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package resolver turns a free-form company reference ("Microsoft",
// "msft") into a listed security with ticker and exchange.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/earningsrag/core"
)

// Defaults applied to an empty Query field.
const (
	DefaultSecurityType = "Common Stock"
	DefaultExchangeCode = "US"
)

var (
	// ErrNotFound is returned when no security matches the query.
	ErrNotFound = fmt.Errorf("resolver: company %w", core.ErrNotFound)

	// ErrInvalidQuery is returned for queries the resolver rejects.
	ErrInvalidQuery = fmt.Errorf("resolver: %w: query rejected", core.ErrInvalid)

	// ErrUnauthorized is returned when the resolver API key is missing or invalid.
	ErrUnauthorized = fmt.Errorf("resolver: %w: api key rejected", core.ErrUpstream)

	// ErrUpstream wraps any other resolver service failure.
	ErrUpstream = fmt.Errorf("resolver: %w", core.ErrUpstream)
)

// Query identifies the company to resolve.
type Query struct {
	// Company is a company name or ticker.
	Company      string
	SecurityType string
	ExchangeCode string
}

// Normalize trims the query and fills in default security type and exchange.
func (q Query) Normalize() Query {
	q.Company = strings.TrimSpace(q.Company)
	q.SecurityType = strings.TrimSpace(q.SecurityType)
	q.ExchangeCode = strings.TrimSpace(q.ExchangeCode)
	if q.SecurityType == "" {
		q.SecurityType = DefaultSecurityType
	}
	if q.ExchangeCode == "" {
		q.ExchangeCode = DefaultExchangeCode
	}
	return q
}

// Resolver finds the listed company for a query. The returned company has no
// ID; storage assigns one on first sight.
// Implementations must be thread-safe for concurrent use.
type Resolver interface {
	Resolve(ctx context.Context, query Query) (*core.Company, error)
}
