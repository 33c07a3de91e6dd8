package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/poiesic/earningsrag/core"
)

// DefaultOpenFIGIBaseURL is the public OpenFIGI API.
const DefaultOpenFIGIBaseURL = "https://api.openfigi.com"

// OpenFIGI anonymous clients are limited to 5 search requests per minute,
// keyed clients to 20.
const (
	anonymousRatePerMinute = 5
	keyedRatePerMinute     = 20
)

// OpenFIGI resolves companies with the OpenFIGI search endpoint. The first
// result of a search wins.
type OpenFIGI struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ Resolver = (*OpenFIGI)(nil)

// OpenFIGIOption configures an OpenFIGI resolver.
type OpenFIGIOption func(*OpenFIGI)

// WithAPIKey sets the X-OPENFIGI-APIKEY header and raises the rate limit.
func WithAPIKey(key string) OpenFIGIOption {
	return func(o *OpenFIGI) {
		o.apiKey = key
	}
}

// WithHTTPClient replaces the default client, e.g. to change the timeout.
func WithHTTPClient(client *http.Client) OpenFIGIOption {
	return func(o *OpenFIGI) {
		if client != nil {
			o.client = client
		}
	}
}

// WithRateLimit overrides the request rate. A zero limit disables limiting.
func WithRateLimit(limit rate.Limit, burst int) OpenFIGIOption {
	return func(o *OpenFIGI) {
		if limit == 0 {
			o.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		o.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) OpenFIGIOption {
	return func(o *OpenFIGI) {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
	}
}

// NewOpenFIGI creates a resolver against baseURL, or the public API when
// baseURL is empty.
func NewOpenFIGI(baseURL string, opts ...OpenFIGIOption) *OpenFIGI {
	if baseURL == "" {
		baseURL = DefaultOpenFIGIBaseURL
	}
	o := &OpenFIGI{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.limiter == nil {
		perMinute := anonymousRatePerMinute
		if o.apiKey != "" {
			perMinute = keyedRatePerMinute
		}
		o.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
	o.logger = o.logger.With("component", "openfigi")
	return o
}

type searchRequest struct {
	Query        string `json:"query"`
	SecurityType string `json:"securityType,omitempty"`
	ExchCode     string `json:"exchCode,omitempty"`
}

type searchResult struct {
	Name         string `json:"name"`
	Ticker       string `json:"ticker"`
	ExchCode     string `json:"exchCode"`
	SecurityType string `json:"securityType"`
	MarketSector string `json:"marketSector"`
}

type searchResponse struct {
	Data  []searchResult `json:"data"`
	Error string         `json:"error"`
}

// Resolve searches OpenFIGI for query and returns the best match.
func (o *OpenFIGI) Resolve(ctx context.Context, query Query) (*core.Company, error) {
	query = query.Normalize()
	if query.Company == "" {
		return nil, fmt.Errorf("%w: company is required", ErrInvalidQuery)
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(searchRequest{
		Query:        query.Company,
		SecurityType: query.SecurityType,
		ExchCode:     query.ExchangeCode,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v3/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("X-OPENFIGI-APIKEY", o.apiKey)
	}

	o.logger.Debug("searching company", "query", query.Company, "exchange", query.ExchangeCode)
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: %s", ErrInvalidQuery, readMessage(resp.Body))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, readMessage(resp.Body))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrUpstream, err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, parsed.Error)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, query.Company)
	}

	best := parsed.Data[0]
	return &core.Company{
		Name:         best.Name,
		Ticker:       core.NormalizeTicker(best.Ticker),
		ExchangeCode: best.ExchCode,
		SecurityType: best.SecurityType,
		MarketSector: best.MarketSector,
	}, nil
}

func readMessage(r io.Reader) string {
	msg, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(msg))
}
