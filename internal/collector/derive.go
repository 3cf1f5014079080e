package collector

import (
	"fmt"
	"math"
	"sort"
	"time"

	"VolSentinel/internal/calculator"
	"VolSentinel/internal/model"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	RealizedVolWindow = 21
	TradingDays       = 252.0
)

// SimpleReturns is c_t/c_t-1 - 1. The first value is undefined.
func SimpleReturns(closes []float64) model.Series {
	out := make(model.Series, len(closes))
	for i := 1; i < len(closes); i++ {
		out[i] = model.Value(closes[i]/closes[i-1] - 1)
	}
	return out
}

// RollingRealizedVol is the rolling sample standard deviation of returns,
// annualised with factor and expressed in percent.
func RollingRealizedVol(returns model.Series, window int, factor float64) model.Series {
	k := math.Sqrt(factor) * 100
	return calculator.RollingStd(returns, window).Map(func(v float64) float64 { return v * k })
}

// Derive fills in the Returns and RealizedVol columns of s.
func Derive(s *model.PriceSeries) {
	s.Returns = SimpleReturns(s.Closes())
	s.RealizedVol = RollingRealizedVol(s.Returns, RealizedVolWindow, TradingDays)
}

// OuterJoin merges two tables on date. The result has one row per date
// present in either input, sorted ascending, with left's columns followed
// by right's. Values missing on one side are undefined.
func OuterJoin(name string, left, right *model.Table) *model.Table {
	out := model.NewTable(name, append(append([]string(nil), left.Columns...), right.Columns...)...)

	byDate := map[time.Time][]null.Float{}
	var dates []time.Time
	put := func(t *model.Table, offset int) {
		for _, r := range t.Rows {
			d := model.DateOf(r.Date)
			values, ok := byDate[d]
			if !ok {
				values = make([]null.Float, len(out.Columns))
				byDate[d] = values
				dates = append(dates, d)
			}
			copy(values[offset:offset+len(t.Columns)], r.Values)
		}
	}
	put(left, 0)
	put(right, len(left.Columns))

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	for _, d := range dates {
		out.Append(d, byDate[d]...)
	}
	return out
}

// CombinedTable joins the equity close and realized volatility with the
// volatility index close. Columns are prefixed with the given labels.
func CombinedTable(equity, volIndex *model.PriceSeries, equityLabel, volLabel string) *model.Table {
	left := model.NewTable(equityLabel, equityLabel+"_Close", equityLabel+"_RealizedVol")
	for i, b := range equity.Bars {
		var rv null.Float
		if i < len(equity.RealizedVol) {
			rv = equity.RealizedVol[i]
		}
		left.Append(model.DateOf(b.Time), model.Value(b.Close), rv)
	}
	right := model.NewTable(volLabel, volLabel+"_Close")
	for _, b := range volIndex.Bars {
		right.Append(model.DateOf(b.Time), model.Value(b.Close))
	}
	return OuterJoin(equityLabel+"_"+volLabel+"_Combined", left, right)
}

// Premium computes realized volatility minus the volatility index close for
// every row where both are defined, and summarises it.
func Premium(combined *model.Table, realizedCol, indexCol string) (model.Series, model.PremiumSummary, error) {
	rv, ok := combined.Column(realizedCol)
	if !ok {
		return nil, model.PremiumSummary{}, &model.ValidationError{Field: realizedCol, Reason: "missing column"}
	}
	ix, ok := combined.Column(indexCol)
	if !ok {
		return nil, model.PremiumSummary{}, &model.ValidationError{Field: indexCol, Reason: "missing column"}
	}

	premium := make(model.Series, combined.Len())
	var sum model.PremiumSummary
	for i := range premium {
		if rv[i].Valid && ix[i].Valid {
			premium[i] = model.Value(rv[i].Float64 - ix[i].Float64)
			if premium[i].Valid {
				sum.Latest = premium[i].Float64
				sum.LatestDate = combined.Rows[i].Date
			}
		}
	}

	values := premium.Defined()
	sum.Count = len(values)
	if sum.Count == 0 {
		return premium, sum, nil
	}
	sum.Min = floats.Min(values)
	sum.Max = floats.Max(values)
	if sum.Count > 1 {
		sum.Mean, sum.StdDev = stat.MeanStdDev(values, nil)
	} else {
		sum.Mean = values[0]
	}
	return premium, sum, nil
}

// PremiumColumn is the column name used when the premium is added to the
// combined table.
const PremiumColumn = "VolatilityPremium"

func describe(s model.PremiumSummary) string {
	if s.Count == 0 {
		return "no overlapping observations"
	}
	return fmt.Sprintf("count=%d mean=%.2f std=%.2f min=%.2f max=%.2f latest=%.2f (%s)",
		s.Count, s.Mean, s.StdDev, s.Min, s.Max, s.Latest, s.LatestDate.Format("2006-01-02"))
}
