package model

import "time"

// OHLCV represents a single daily price bar.
type OHLCV struct {
	Time   time.Time `validate:"required"`
	Open   float64   `validate:"gt=0"`
	High   float64   `validate:"gt=0,gtefield=Open,gtefield=Close,gtefield=Low"`
	Low    float64   `validate:"gt=0,ltefield=Open,ltefield=Close"`
	Close  float64   `validate:"gt=0"`
	Volume float64   `validate:"gte=0"`
}

// PriceSeries holds the daily bars of one symbol over a date range,
// oldest first, plus the optional derived columns.
type PriceSeries struct {
	Symbol   string
	Provider string
	Bars     []OHLCV

	// Returns is the simple percentage change of Close; RealizedVol is the
	// rolling, annualized standard deviation of Returns. Both are nil until
	// derived and are aligned with Bars.
	Returns     Series
	RealizedVol Series

	FetchedAt time.Time
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int { return len(s.Bars) }

// Closes extracts the close prices.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
