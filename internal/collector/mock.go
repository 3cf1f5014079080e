package collector

import (
	"context"
	"math"
	"sort"
	"time"

	"VolSentinel/internal/model"
)

// MockFetcher returns deterministic data for development and testing.
// Bars, when set for a ticker, are returned as is; Errors makes a ticker
// fail. Otherwise one bar per weekday in [start, end] is generated around
// Base (default 100).
type MockFetcher struct {
	Base   map[string]float64
	Bars   map[string][]model.OHLCV
	Errors map[string]error

	// Calls counts FetchDaily invocations per ticker.
	Calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDaily(_ context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	if m.Calls == nil {
		m.Calls = map[string]int{}
	}
	m.Calls[symbol]++
	if err, ok := m.Errors[symbol]; ok {
		return nil, &FetchError{Provider: m.Name(), Symbol: symbol, Kind: KindProvider, Err: err}
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	base := m.Base[symbol]
	if base <= 0 {
		base = 100
	}
	return generateMockBars(base, start, end), nil
}

func generateMockBars(base float64, start, end time.Time) []model.OHLCV {
	var bars []model.OHLCV
	for d, i := model.DateOf(start), 0; !d.After(model.DateOf(end)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		p := base * (1 + 0.02*math.Sin(float64(i)/5))
		bars = append(bars, model.OHLCV{
			Time:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
		i++
	}
	return bars
}

func sortBars(bars []model.OHLCV) {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
}
