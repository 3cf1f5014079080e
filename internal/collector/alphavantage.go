package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"VolSentinel/internal/model"
)

const (
	AlphaVantageBaseURL = "https://www.alphavantage.co"

	FunctionDaily         = "TIME_SERIES_DAILY"
	FunctionDailyAdjusted = "TIME_SERIES_DAILY_ADJUSTED"
)

// AlphaVantageFetcher implements Fetcher using the Alpha Vantage daily time
// series API. It always requests the full history.
type AlphaVantageFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client

	// Function is the default time series function; Functions overrides it
	// per ticker.
	Function  string
	Functions map[string]string
}

// NewAlphaVantageFetcher creates a fetcher with optional proxy support.
func NewAlphaVantageFetcher(baseURL, apiKey, proxyURL string) *AlphaVantageFetcher {
	if baseURL == "" {
		baseURL = AlphaVantageBaseURL
	}
	return &AlphaVantageFetcher{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		APIKey:    apiKey,
		Client:    newHTTPClient(proxyURL),
		Function:  FunctionDaily,
		Functions: map[string]string{},
	}
}

func (f *AlphaVantageFetcher) Name() string { return "alphavantage" }

func (f *AlphaVantageFetcher) function(symbol string) string {
	if fn, ok := f.Functions[symbol]; ok && fn != "" {
		return fn
	}
	if f.Function != "" {
		return f.Function
	}
	return FunctionDaily
}

const avSeriesKey = "Time Series (Daily)"

// avErrorKeys are the top-level fields Alpha Vantage uses instead of data
// when a request is throttled or rejected.
var avErrorKeys = []string{"Error Message", "Note", "Information"}

func (f *AlphaVantageFetcher) FetchDaily(ctx context.Context, symbol string, _, _ time.Time) ([]model.OHLCV, error) {
	q := url.Values{}
	q.Set("function", f.function(symbol))
	q.Set("symbol", symbol)
	q.Set("outputsize", "full")
	q.Set("apikey", f.APIKey)

	body, err := getJSON(ctx, f.Client, f.Name(), symbol, f.BaseURL+"/query", q)
	if err != nil {
		return nil, err
	}
	bars, err := parseAlphaVantage(body)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			fe.Provider, fe.Symbol = f.Name(), symbol
			return nil, fe
		}
		return nil, err
	}
	return bars, nil
}

// parseAlphaVantage decodes a daily time series payload. Value keys carry an
// ordinal prefix ("1. open") which is stripped.
func parseAlphaVantage(body []byte) ([]model.OHLCV, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &FetchError{Kind: KindSchema, Err: fmt.Errorf("decode: %w", err)}
	}
	for _, key := range avErrorKeys {
		if raw, ok := payload[key]; ok {
			var msg string
			if err := json.Unmarshal(raw, &msg); err != nil {
				msg = string(raw)
			}
			return nil, &FetchError{Kind: KindProvider, Err: fmt.Errorf("%s: %s", key, msg)}
		}
	}
	raw, ok := payload[avSeriesKey]
	if !ok {
		return nil, &FetchError{Kind: KindSchema, Err: fmt.Errorf("missing %q", avSeriesKey)}
	}
	var series map[string]map[string]string
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, &FetchError{Kind: KindSchema, Err: fmt.Errorf("decode %q: %w", avSeriesKey, err)}
	}

	bars := make([]model.OHLCV, 0, len(series))
	for day, fields := range series {
		t, err := time.Parse("2006-01-02", day)
		if err != nil {
			return nil, &FetchError{Kind: KindSchema, Err: fmt.Errorf("bad date %q", day)}
		}
		values := make(map[string]float64, len(fields))
		for k, v := range fields {
			if _, name, ok := strings.Cut(k, ". "); ok {
				k = name
			}
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, &FetchError{Kind: KindSchema, Err: fmt.Errorf("%s %s: malformed number %q", day, k, v)}
			}
			values[k] = n
		}
		for _, k := range []string{"open", "high", "low", "close"} {
			if _, ok := values[k]; !ok {
				return nil, &FetchError{Kind: KindSchema, Err: fmt.Errorf("%s: missing %q", day, k)}
			}
		}
		bars = append(bars, model.OHLCV{
			Time:   t,
			Open:   values["open"],
			High:   values["high"],
			Low:    values["low"],
			Close:  values["close"],
			Volume: values["volume"],
		})
	}
	sortBars(bars)
	return bars, nil
}
