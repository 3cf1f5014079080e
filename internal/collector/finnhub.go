package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"VolSentinel/internal/model"
)

const FinnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubFetcher implements Fetcher using the Finnhub candle API.
type FinnhubFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewFinnhubFetcher creates a fetcher with optional proxy support.
func NewFinnhubFetcher(baseURL, apiKey, proxyURL string) *FinnhubFetcher {
	if baseURL == "" {
		baseURL = FinnhubBaseURL
	}
	return &FinnhubFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *FinnhubFetcher) Name() string { return "finnhub" }

// finnhubCandles is the candle response: parallel arrays plus a status.
type finnhubCandles struct {
	Open   []float64 `json:"o"`
	High   []float64 `json:"h"`
	Low    []float64 `json:"l"`
	Close  []float64 `json:"c"`
	Volume []float64 `json:"v"`
	Time   []int64   `json:"t"`
	Status string    `json:"s"`
}

func (f *FinnhubFetcher) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("resolution", "D")
	q.Set("from", strconv.FormatInt(model.DateOf(start).Unix(), 10))
	// to is inclusive of the whole end day
	q.Set("to", strconv.FormatInt(model.DateOf(end).AddDate(0, 0, 1).Unix()-1, 10))
	q.Set("token", f.APIKey)

	body, err := getJSON(ctx, f.Client, f.Name(), symbol, f.BaseURL+"/stock/candle", q)
	if err != nil {
		return nil, err
	}
	bars, ferr := parseFinnhub(body)
	if ferr != nil {
		ferr.Provider, ferr.Symbol = f.Name(), symbol
		return nil, ferr
	}
	return bars, nil
}

func parseFinnhub(body []byte) ([]model.OHLCV, *FetchError) {
	var c finnhubCandles
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, &FetchError{Kind: KindSchema, Err: fmt.Errorf("decode: %w", err)}
	}
	if c.Status != "ok" {
		return nil, &FetchError{Kind: KindProvider, Err: fmt.Errorf("status %q", c.Status)}
	}
	n := len(c.Time)
	for name, arr := range map[string]int{"o": len(c.Open), "h": len(c.High), "l": len(c.Low), "c": len(c.Close)} {
		if arr != n {
			return nil, &FetchError{Kind: KindSchema, Err: fmt.Errorf("array %q has %d values, t has %d", name, arr, n)}
		}
	}
	if len(c.Volume) != 0 && len(c.Volume) != n {
		return nil, &FetchError{Kind: KindSchema, Err: fmt.Errorf("array \"v\" has %d values, t has %d", len(c.Volume), n)}
	}

	bars := make([]model.OHLCV, n)
	for i, ts := range c.Time {
		bars[i] = model.OHLCV{
			Time:  time.Unix(ts, 0).UTC(),
			Open:  c.Open[i],
			High:  c.High[i],
			Low:   c.Low[i],
			Close: c.Close[i],
		}
		if len(c.Volume) == n {
			bars[i].Volume = c.Volume[i]
		}
	}
	sortBars(bars)
	return bars, nil
}
