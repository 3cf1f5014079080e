package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jan2 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	jan5 = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
)

const avDaily = `{
  "Meta Data": {"1. Information": "Daily Prices", "2. Symbol": "^GSPC"},
  "Time Series (Daily)": {
    "2024-01-03": {"1. open": "4725.07", "2. high": "4729.29", "3. low": "4699.71", "4. close": "4704.81", "5. volume": "3950760000"},
    "2024-01-02": {"1. open": "4745.20", "2. high": "4754.33", "3. low": "4722.67", "4. close": "4742.83", "5. volume": "3743050000"}
  }
}`

func kindOf(t *testing.T, err error) ErrorKind {
	t.Helper()
	var fe *FetchError
	require.True(t, errors.As(err, &fe), "want *FetchError, got %v", err)
	return fe.Kind
}

func TestAlphaVantageFetchDaily(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(avDaily))
	}))
	defer srv.Close()

	f := NewAlphaVantageFetcher(srv.URL, "demo", "")
	f.Functions["^GSPC"] = FunctionDailyAdjusted
	bars, err := f.FetchDaily(context.Background(), "^GSPC", jan2, jan5)
	require.NoError(t, err)

	assert.Equal(t, "/query", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, FunctionDailyAdjusted, q.Get("function"))
	assert.Equal(t, "^GSPC", q.Get("symbol"))
	assert.Equal(t, "full", q.Get("outputsize"))
	assert.Equal(t, "demo", q.Get("apikey"))

	require.Len(t, bars, 2)
	assert.Equal(t, jan2, bars[0].Time)
	assert.Equal(t, 4745.20, bars[0].Open)
	assert.Equal(t, 4704.81, bars[1].Close)
	assert.Equal(t, 3950760000.0, bars[1].Volume)
}

func TestAlphaVantageErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   ErrorKind
	}{
		{"rate limit note", 200, `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`, KindProvider},
		{"information", 200, `{"Information": "premium endpoint"}`, KindProvider},
		{"bad symbol", 200, `{"Error Message": "Invalid API call."}`, KindProvider},
		{"missing series", 200, `{"Meta Data": {}}`, KindSchema},
		{"not json", 200, `<html>`, KindSchema},
		{"malformed number", 200, `{"Time Series (Daily)": {"2024-01-02": {"1. open": "x", "2. high": "1", "3. low": "1", "4. close": "1"}}}`, KindSchema},
		{"server error", 503, `unavailable`, KindTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewAlphaVantageFetcher(srv.URL, "k", "").FetchDaily(context.Background(), "^VIX", jan2, jan5)
			require.Error(t, err)
			assert.Equal(t, tt.kind, kindOf(t, err))
			assert.Contains(t, err.Error(), "alphavantage ^VIX")
		})
	}
}

func TestFinnhubFetchDaily(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`{"s":"ok","t":[1704240000,1704153600],"o":[4725.07,4745.2],"h":[4729.29,4754.33],"l":[4699.71,4722.67],"c":[4704.81,4742.83],"v":[1,2]}`))
	}))
	defer srv.Close()

	bars, err := NewFinnhubFetcher(srv.URL, "tok", "").FetchDaily(context.Background(), "^GSPC", jan2, jan5)
	require.NoError(t, err)

	assert.Equal(t, "/stock/candle", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "D", q.Get("resolution"))
	assert.Equal(t, "1704153600", q.Get("from"))
	assert.Equal(t, "1704499199", q.Get("to"))
	assert.Equal(t, "tok", q.Get("token"))

	require.Len(t, bars, 2)
	assert.Equal(t, jan2, bars[0].Time, "bars are sorted")
	assert.Equal(t, 4742.83, bars[0].Close)
	assert.Equal(t, 2.0, bars[0].Volume)
}

func TestFinnhubErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   ErrorKind
	}{
		{"no data", 200, `{"s":"no_data"}`, KindProvider},
		{"mismatched arrays", 200, `{"s":"ok","t":[1,2],"o":[1],"h":[1,1],"l":[1,1],"c":[1,1]}`, KindSchema},
		{"not json", 200, `nope`, KindSchema},
		{"forbidden", 403, `{"error":"You don't have access to this resource."}`, KindTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewFinnhubFetcher(srv.URL, "tok", "").FetchDaily(context.Background(), "^VIX", jan2, jan5)
			require.Error(t, err)
			assert.Equal(t, tt.kind, kindOf(t, err))
		})
	}
}

func TestSymbolMap(t *testing.T) {
	m := DefaultSymbolMap()
	for _, alias := range []string{"SPX", "spx", "^SPX", "^GSPC", "SP500", "SPX500", " spx500 "} {
		assert.Equal(t, "^GSPC", m.Resolve(alias), alias)
	}
	assert.Equal(t, "^VIX", m.Resolve("vix"))
	assert.Equal(t, "AAPL", m.Resolve("AAPL"))

	m.Merge(map[string]string{"ndx": "^NDX"})
	assert.Equal(t, "^NDX", m.Resolve("NDX"))
}
