package calculator

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"VolSentinel/internal/model"

	"github.com/guregu/null/v6"
)

// Required input columns of a price table. Names are case-sensitive.
var RequiredColumns = []string{"Open", "High", "Low", "Close"}

// Calculator computes rolling volatility estimators over daily bars.
// It holds no state besides its configuration and is safe to reuse.
type Calculator struct {
	params     Params
	estimators []Estimator
}

// New creates a Calculator. With no names every estimator is enabled;
// otherwise only the named ones, still in canonical output order.
func New(params Params, names ...string) (*Calculator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	c := &Calculator{params: params}
	if len(names) == 0 {
		c.estimators = estimators
		return c, nil
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.ToLower(strings.TrimSpace(n))] = true
	}
	for _, e := range estimators {
		if wanted[e.Name] {
			c.estimators = append(c.estimators, e)
			delete(wanted, e.Name)
		}
	}
	if len(wanted) > 0 {
		unknown := make([]string, 0, len(wanted))
		for n := range wanted {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, &model.ValidationError{
			Field:  "estimators",
			Reason: fmt.Sprintf("unknown %v (use: %s)", unknown, strings.Join(EstimatorNames(), ", ")),
		}
	}
	return c, nil
}

// Params returns the calculator's parameters.
func (c *Calculator) Params() Params { return c.params }

// Dataset is a validated, date-sorted working copy of the input bars with
// their log returns.
type Dataset struct {
	Bars    []model.OHLCV
	Returns model.Series
}

func (d *Dataset) perBar(fn func(model.OHLCV) float64) model.Series {
	out := make(model.Series, len(d.Bars))
	for i, b := range d.Bars {
		out[i] = model.Value(fn(b))
	}
	return out
}

// Prepare validates every bar, rejects duplicate dates, sorts a copy by date
// and computes ln(Close_t / Close_t-1). The caller's slice is not modified.
func Prepare(bars []model.OHLCV) (*Dataset, error) {
	sorted := make([]model.OHLCV, len(bars))
	copy(sorted, bars)
	for _, b := range sorted {
		if err := model.ValidateBar(b); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	for i := 1; i < len(sorted); i++ {
		if model.DateOf(sorted[i].Time).Equal(model.DateOf(sorted[i-1].Time)) {
			return nil, &model.ValidationError{
				Field:  "Date",
				Reason: "duplicate date " + sorted[i].Time.Format("2006-01-02"),
			}
		}
	}

	returns := make(model.Series, len(sorted))
	for i := 1; i < len(sorted); i++ {
		returns[i] = model.Value(math.Log(sorted[i].Close / sorted[i-1].Close))
	}
	return &Dataset{Bars: sorted, Returns: returns}, nil
}

// CalculateAll returns one table holding Close, Daily_Return and every
// enabled estimator, row-aligned with the date-sorted input.
func (c *Calculator) CalculateAll(bars []model.OHLCV) (*model.Table, error) {
	d, err := Prepare(bars)
	if err != nil {
		return nil, err
	}

	columns := []string{ColClose, ColDailyReturn}
	series := []model.Series{closes(d), d.Returns}
	for _, e := range c.estimators {
		columns = append(columns, e.Column)
		series = append(series, e.fn(c, d))
	}

	t := model.NewTable("volatility", columns...)
	for i, b := range d.Bars {
		values := make([]null.Float, len(series))
		for j, s := range series {
			values[j] = s[i]
		}
		t.Append(model.DateOf(b.Time), values...)
	}
	return t, nil
}

// CalculateTable checks that t carries the required price columns, converts
// its rows to bars and runs CalculateAll. A missing column or an undefined
// price aborts with a *model.ValidationError.
func (c *Calculator) CalculateTable(t *model.Table) (*model.Table, error) {
	bars, err := BarsFromTable(t)
	if err != nil {
		return nil, err
	}
	return c.CalculateAll(bars)
}

// BarsFromTable converts a price table to bars. Volume is optional.
func BarsFromTable(t *model.Table) ([]model.OHLCV, error) {
	var missing []string
	for _, col := range RequiredColumns {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &model.ValidationError{
			Field:  strings.Join(missing, ", "),
			Reason: fmt.Sprintf("missing required column (need Date, %s)", strings.Join(RequiredColumns, ", ")),
		}
	}

	oi, hi, li, ci := t.ColumnIndex("Open"), t.ColumnIndex("High"), t.ColumnIndex("Low"), t.ColumnIndex("Close")
	vi := t.ColumnIndex("Volume")
	bars := make([]model.OHLCV, len(t.Rows))
	for i, r := range t.Rows {
		for _, idx := range []int{oi, hi, li, ci} {
			if !r.Values[idx].Valid {
				return nil, &model.ValidationError{
					Field:  t.Columns[idx],
					Reason: "missing value on " + r.Date.Format("2006-01-02"),
				}
			}
		}
		bars[i] = model.OHLCV{
			Time:  r.Date,
			Open:  r.Values[oi].Float64,
			High:  r.Values[hi].Float64,
			Low:   r.Values[li].Float64,
			Close: r.Values[ci].Float64,
		}
		if vi >= 0 {
			bars[i].Volume = r.Values[vi].ValueOrZero()
		}
	}
	return bars, nil
}

func closes(d *Dataset) model.Series {
	out := make(model.Series, len(d.Bars))
	for i, b := range d.Bars {
		out[i] = model.Value(b.Close)
	}
	return out
}

// Reading is one defined value of a result row.
type Reading struct {
	Column string
	Value  float64
}

// Latest returns the date of the last row of t and its defined values in
// column order. ok is false for an empty table.
func Latest(t *model.Table) (date time.Time, readings []Reading, ok bool) {
	if t.Len() == 0 {
		return time.Time{}, nil, false
	}
	last := t.Rows[t.Len()-1]
	for i, v := range last.Values {
		if v.Valid {
			readings = append(readings, Reading{Column: t.Columns[i], Value: v.Float64})
		}
	}
	return last.Date, readings, true
}
