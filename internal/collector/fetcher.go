package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"VolSentinel/internal/model"
)

// Fetcher defines the interface for fetching daily market data.
type Fetcher interface {
	// FetchDaily returns the daily bars of symbol, which is already resolved
	// to the provider's ticker. Providers may return bars outside
	// [start, end]; the collector filters them.
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error)
	Name() string
}

// ErrorKind classifies a failed fetch.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport" // network failure or non-2xx status
	KindSchema    ErrorKind = "schema"    // unexpected response shape
	KindProvider  ErrorKind = "provider"  // provider reported an error (rate limit, bad symbol)
)

// FetchError is returned by every provider fetcher.
type FetchError struct {
	Provider string
	Symbol   string
	Kind     ErrorKind
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s: %s error: %v", e.Provider, e.Symbol, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// newHTTPClient builds the client shared by the provider fetchers, with an
// optional proxy.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// getJSON performs a GET and returns the body of a 2xx response. Anything
// else is a transport error.
func getJSON(ctx context.Context, client *http.Client, provider, symbol, endpoint string, query url.Values) ([]byte, error) {
	u := endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{Provider: provider, Symbol: symbol, Kind: KindTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{Provider: provider, Symbol: symbol, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Provider: provider, Symbol: symbol, Kind: KindTransport, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Provider: provider,
			Symbol:   symbol,
			Kind:     KindTransport,
			Err:      fmt.Errorf("status %d, body: %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}
	return body, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// SymbolMap maps user-facing aliases to provider tickers. Keys are upper
// case; lookups are case-insensitive.
type SymbolMap map[string]string

// DefaultSymbolMap returns the built-in aliases for the S&P 500 and VIX.
func DefaultSymbolMap() SymbolMap {
	return SymbolMap{
		"SPX":    "^GSPC",
		"^SPX":   "^GSPC",
		"^GSPC":  "^GSPC",
		"SP500":  "^GSPC",
		"SPX500": "^GSPC",
		"VIX":    "^VIX",
		"^VIX":   "^VIX",
	}
}

// Merge adds extra aliases, overriding existing ones.
func (m SymbolMap) Merge(extra map[string]string) SymbolMap {
	for k, v := range extra {
		m[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return m
}

// Resolve returns the ticker for symbol, or symbol itself if it has no alias.
func (m SymbolMap) Resolve(symbol string) string {
	if mapped, ok := m[strings.ToUpper(strings.TrimSpace(symbol))]; ok {
		return mapped
	}
	return symbol
}
