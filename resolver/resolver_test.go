package resolver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/earningsrag/core"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *OpenFIGI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenFIGI(srv.URL, WithRateLimit(0, 0))
}

func TestOpenFIGI_ResolveFirstHit(t *testing.T) {
	var got searchRequest
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		apiKey = r.Header.Get("X-OPENFIGI-APIKEY")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"name":"MICROSOFT CORP","ticker":"msft","exchCode":"US","securityType":"Common Stock","marketSector":"Equity"},
			{"name":"MICROSOFT CORP","ticker":"MSFT","exchCode":"UW","securityType":"Common Stock","marketSector":"Equity"}
		]}`))
	}))
	defer srv.Close()

	r := NewOpenFIGI(srv.URL+"/", WithAPIKey("secret"), WithRateLimit(0, 0))
	company, err := r.Resolve(context.Background(), Query{Company: " Microsoft "})
	require.NoError(t, err)

	assert.Equal(t, searchRequest{Query: "Microsoft", SecurityType: "Common Stock", ExchCode: "US"}, got)
	assert.Equal(t, "secret", apiKey)
	assert.Equal(t, &core.Company{
		Name:         "MICROSOFT CORP",
		Ticker:       "MSFT",
		ExchangeCode: "US",
		SecurityType: "Common Stock",
		MarketSector: "Equity",
	}, company)
}

func TestOpenFIGI_NoHits(t *testing.T) {
	r := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})
	_, err := r.Resolve(context.Background(), Query{Company: "Nonexistent"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, core.ClassNotFound, core.Classify(err))
}

func TestOpenFIGI_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
		class  core.ErrorClass
	}{
		{http.StatusBadRequest, ErrInvalidQuery, core.ClassInvalid},
		{http.StatusUnprocessableEntity, ErrInvalidQuery, core.ClassInvalid},
		{http.StatusUnauthorized, ErrUnauthorized, core.ClassUpstream},
		{http.StatusForbidden, ErrUnauthorized, core.ClassUpstream},
		{http.StatusTooManyRequests, ErrUpstream, core.ClassUpstream},
		{http.StatusInternalServerError, ErrUpstream, core.ClassUpstream},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			r := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})
			_, err := r.Resolve(context.Background(), Query{Company: "Microsoft"})
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.class, core.Classify(err))
		})
	}
}

func TestOpenFIGI_ErrorBody(t *testing.T) {
	r := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Invalid query."}`))
	})
	_, err := r.Resolve(context.Background(), Query{Company: "Microsoft"})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "Invalid query.")
}

func TestOpenFIGI_EmptyCompany(t *testing.T) {
	r := NewOpenFIGI("http://127.0.0.1:1")
	_, err := r.Resolve(context.Background(), Query{Company: "  "})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestStatic_Resolve(t *testing.T) {
	r := NewStatic(
		StaticEntry{Name: "Microsoft Corp", Ticker: "msft", Aliases: []string{"Microsoft"}},
		StaticEntry{Name: "Apple Inc", Ticker: "AAPL", ExchangeCode: "US", SecurityType: "Common Stock"},
	)
	ctx := context.Background()

	c, err := r.Resolve(ctx, Query{Company: "microsoft"})
	require.NoError(t, err)
	assert.Equal(t, "MSFT", c.Ticker)
	assert.Equal(t, "US", c.ExchangeCode)
	assert.Equal(t, DefaultSecurityType, c.SecurityType)

	c, err = r.Resolve(ctx, Query{Company: "aapl"})
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", c.Name)

	_, err = r.Resolve(ctx, Query{Company: "aapl", ExchangeCode: "LN"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Resolve(ctx, Query{Company: "Nvidia"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadStatic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- name: Microsoft Corp
  ticker: MSFT
  exchange_code: US
  market_sector: Equity
  aliases: [microsoft]
`), 0644))

	r, err := LoadStatic(path)
	require.NoError(t, err)
	c, err := r.Resolve(context.Background(), Query{Company: "Microsoft"})
	require.NoError(t, err)
	assert.Equal(t, "Equity", c.MarketSector)

	_, err = LoadStatic(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
