package calculator

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"VolSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

var start = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

var windowed = []string{ColCloseToClose, ColParkinson, ColGarmanKlass, ColYangZhang, ColRogersSatchell}

func flatBars(n int, price float64) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	for i := range bars {
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: price, High: price, Low: price, Close: price}
	}
	return bars
}

func randomBars(n int, seed int64) []model.OHLCV {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]model.OHLCV, n)
	prev := 4500.0
	for i := range bars {
		open := prev * math.Exp(0.002*rng.NormFloat64())
		cl := open * math.Exp(0.01*rng.NormFloat64())
		high := math.Max(open, cl) * (1 + 0.005*math.Abs(rng.NormFloat64()))
		low := math.Min(open, cl) * (1 - 0.005*math.Abs(rng.NormFloat64()))
		// Open sits on the far extreme so every Rogers-Satchell term is
		// non-negative and the windowed mean stays defined.
		if cl >= open {
			low = open
		} else {
			high = open
		}
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: open, High: high, Low: low, Close: cl, Volume: 1e6}
		prev = cl
	}
	return bars
}

func mustCalc(t *testing.T, p Params, names ...string) *Calculator {
	t.Helper()
	c, err := New(p, names...)
	require.NoError(t, err)
	return c
}

func column(t *testing.T, tbl *model.Table, name string) model.Series {
	t.Helper()
	s, ok := tbl.Column(name)
	require.True(t, ok, "column %s", name)
	return s
}

func TestCalculateAll_Columns(t *testing.T) {
	tbl, err := mustCalc(t, DefaultParams()).CalculateAll(randomBars(30, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Close", "Daily_Return", "Close_to_Close_Vol", "Realized_Vol",
		"Parkinson_Vol", "Garman_Klass_Vol", "Yang_Zhang_Vol", "Rogers_Satchell_Vol",
	}, tbl.Columns)
	assert.Equal(t, 30, tbl.Len())

	ret := column(t, tbl, ColDailyReturn)
	assert.False(t, ret[0].Valid, "first log return is undefined")
	assert.True(t, ret[1].Valid)
}

func TestCalculateAll_ConstantPriceIsZero(t *testing.T) {
	tbl, err := mustCalc(t, DefaultParams()).CalculateAll(flatBars(40, 100))
	require.NoError(t, err)

	for _, col := range append(windowed, ColRealized) {
		s := column(t, tbl, col)
		require.NotZero(t, s.CountDefined(), col)
		for i, v := range s {
			if v.Valid {
				assert.Equal(t, 0.0, v.Float64, "%s row %d", col, i)
			}
		}
	}
}

func TestCalculateAll_ConstantReturn(t *testing.T) {
	const r = 0.01
	bars := make([]model.OHLCV, 30)
	price := 100.0
	for i := range bars {
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: price, High: price, Low: price, Close: price}
		price *= math.Exp(r)
	}

	tbl, err := mustCalc(t, DefaultParams()).CalculateAll(bars)
	require.NoError(t, err)

	ctc := column(t, tbl, ColCloseToClose)
	for i := DefaultRollingWindow; i < len(ctc); i++ {
		require.True(t, ctc[i].Valid, "row %d", i)
		assert.InDelta(t, 0, ctc[i].Float64, 1e-9)
	}

	want := r * math.Sqrt(252) * 100
	rv := column(t, tbl, ColRealized)
	assert.False(t, rv[0].Valid)
	for i := 1; i < len(rv); i++ {
		require.True(t, rv[i].Valid, "row %d", i)
		assert.InDelta(t, want, rv[i].Float64, 1e-9)
	}
}

func TestCalculateAll_ShorterThanWindow(t *testing.T) {
	tbl, err := mustCalc(t, DefaultParams()).CalculateAll(randomBars(DefaultRollingWindow-1, 2))
	require.NoError(t, err)
	for _, col := range windowed {
		assert.Zero(t, column(t, tbl, col).CountDefined(), col)
	}
}

func TestCalculateAll_ExactlyWindow(t *testing.T) {
	w := DefaultRollingWindow
	tbl, err := mustCalc(t, DefaultParams()).CalculateAll(randomBars(w, 3))
	require.NoError(t, err)

	for _, col := range []string{ColParkinson, ColGarmanKlass, ColRogersSatchell} {
		s := column(t, tbl, col)
		assert.Equal(t, 1, s.CountDefined(), col)
		assert.True(t, s[w-1].Valid, col)
	}
	// Return-based windows need one extra bar for the first return.
	for _, col := range []string{ColCloseToClose, ColYangZhang} {
		assert.Zero(t, column(t, tbl, col).CountDefined(), col)
	}

	more, err := mustCalc(t, DefaultParams()).CalculateAll(randomBars(w+1, 3))
	require.NoError(t, err)
	for _, col := range []string{ColCloseToClose, ColYangZhang} {
		s := column(t, more, col)
		assert.Equal(t, 1, s.CountDefined(), col)
		assert.True(t, s[w].Valid, col)
	}
}

func TestCalculateAll_Idempotent(t *testing.T) {
	bars := randomBars(80, 4)
	c := mustCalc(t, DefaultParams())
	first, err := c.CalculateAll(bars)
	require.NoError(t, err)
	second, err := c.CalculateAll(bars)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCalculateAll_SortsWithoutMutatingInput(t *testing.T) {
	bars := randomBars(25, 5)
	reversed := make([]model.OHLCV, len(bars))
	for i, b := range bars {
		reversed[len(bars)-1-i] = b
	}
	snapshot := append([]model.OHLCV(nil), reversed...)

	c := mustCalc(t, DefaultParams())
	fromReversed, err := c.CalculateAll(reversed)
	require.NoError(t, err)
	fromSorted, err := c.CalculateAll(bars)
	require.NoError(t, err)

	assert.Equal(t, fromSorted, fromReversed)
	assert.Equal(t, snapshot, reversed)
}

func TestCalculateAll_RejectsInvalidBars(t *testing.T) {
	bars := randomBars(10, 6)
	bars[4].High = bars[4].Low / 2
	_, err := mustCalc(t, DefaultParams()).CalculateAll(bars)
	require.Error(t, err)
	assert.True(t, model.IsValidationError(err))

	dup := randomBars(10, 6)
	dup[5].Time = dup[4].Time
	_, err = mustCalc(t, DefaultParams()).CalculateAll(dup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate date")
}

func TestParkinson_KnownValue(t *testing.T) {
	p := Params{RollingWindow: 2, AnnualisationFactor: 252, RVWindow: 1}
	bars := []model.OHLCV{
		{Time: start, Open: 100, High: 100 * math.Exp(0.01), Low: 100, Close: 100},
		{Time: start.AddDate(0, 0, 1), Open: 100, High: 100 * math.Exp(0.02), Low: 100, Close: 100},
	}
	tbl, err := mustCalc(t, p, "parkinson").CalculateAll(bars)
	require.NoError(t, err)

	want := math.Sqrt((0.01*0.01+0.02*0.02)/(4*2*math.Ln2)) * math.Sqrt(252) * 100
	s := column(t, tbl, ColParkinson)
	assert.False(t, s[0].Valid)
	assert.InDelta(t, want, s[1].Float64, 1e-9)
}

func TestRogersSatchell_KnownValue(t *testing.T) {
	p := Params{RollingWindow: 1, AnnualisationFactor: 252, RVWindow: 1}
	bars := []model.OHLCV{
		{Time: start, Open: 100, High: 110, Low: 100, Close: 105},
		// A down close with H*L above O^2 gives a negative mean.
		{Time: start.AddDate(0, 0, 1), Open: 100, High: 110, Low: 95, Close: 99},
	}
	tbl, err := mustCalc(t, p, "rogers_satchell").CalculateAll(bars)
	require.NoError(t, err)

	s := column(t, tbl, ColRogersSatchell)
	want := math.Sqrt(math.Log(1.1)*math.Log(1.05)) * math.Sqrt(252) * 100
	require.True(t, s[0].Valid)
	assert.InDelta(t, want, s[0].Float64, 1e-9)
	assert.False(t, s[1].Valid, "square root of a negative mean is undefined")
}

func TestYangZhang_MatchesComponentVariances(t *testing.T) {
	w := 5
	bars := randomBars(12, 7)
	tbl, err := mustCalc(t, Params{RollingWindow: w, AnnualisationFactor: 252, RVWindow: 1}).CalculateAll(bars)
	require.NoError(t, err)

	last := len(bars) - 1
	overnight := make([]float64, 0, w)
	openClose := make([]float64, 0, w)
	for i := last - w + 1; i <= last; i++ {
		overnight = append(overnight, math.Log(bars[i].Open/bars[i-1].Close))
		openClose = append(openClose, math.Log(bars[i].Close/bars[i].Open))
	}
	want := math.Sqrt(stat.Variance(overnight, nil)+stat.Variance(openClose, nil)) * math.Sqrt(252) * 100

	s := column(t, tbl, ColYangZhang)
	assert.InDelta(t, want, s[last].Float64, 1e-9)
}

func TestRealizedVolatility_Window(t *testing.T) {
	bars := randomBars(10, 8)
	tbl, err := mustCalc(t, Params{RollingWindow: 3, AnnualisationFactor: 252, RVWindow: 3}, "realized").CalculateAll(bars)
	require.NoError(t, err)

	ret := column(t, tbl, ColDailyReturn)
	rv := column(t, tbl, ColRealized)
	assert.False(t, rv[2].Valid, "needs three defined returns")
	ss := ret[1].Float64*ret[1].Float64 + ret[2].Float64*ret[2].Float64 + ret[3].Float64*ret[3].Float64
	assert.InDelta(t, math.Sqrt(ss)*math.Sqrt(252)*100, rv[3].Float64, 1e-9)
}

func TestNew(t *testing.T) {
	c, err := New(DefaultParams(), "Parkinson", " yang_zhang ")
	require.NoError(t, err)
	tbl, err := c.CalculateAll(randomBars(5, 9))
	require.NoError(t, err)
	assert.Equal(t, []string{ColClose, ColDailyReturn, ColParkinson, ColYangZhang}, tbl.Columns)

	_, err = New(DefaultParams(), "garch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "garch")

	_, err = New(Params{RollingWindow: 0, AnnualisationFactor: 252, RVWindow: 1})
	assert.True(t, model.IsValidationError(err))
	_, err = New(Params{RollingWindow: 21, AnnualisationFactor: 0, RVWindow: 1})
	assert.True(t, model.IsValidationError(err))
}

func TestCalculateTable_MissingColumn(t *testing.T) {
	tbl := model.NewTable("prices", "Open", "High", "Close")
	tbl.Append(start, model.Value(1), model.Value(1), model.Value(1))

	_, err := mustCalc(t, DefaultParams()).CalculateTable(tbl)
	require.Error(t, err)
	assert.True(t, model.IsValidationError(err))
	assert.Contains(t, err.Error(), "Low")
}

func TestCalculateTable_MissingValue(t *testing.T) {
	tbl := model.NewTable("prices", "Open", "High", "Low", "Close")
	tbl.Append(start, model.Value(1), model.Value(1), model.Value(1), model.Value(1))
	tbl.Append(start.AddDate(0, 0, 1), model.Value(1), model.Value(1), model.Value(1))

	_, err := mustCalc(t, DefaultParams()).CalculateTable(tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Close")
}

func TestLatest(t *testing.T) {
	_, _, ok := Latest(model.NewTable("empty", "Close"))
	assert.False(t, ok)

	tbl, err := mustCalc(t, DefaultParams()).CalculateAll(randomBars(30, 10))
	require.NoError(t, err)
	date, readings, ok := Latest(tbl)
	require.True(t, ok)
	assert.Equal(t, start.AddDate(0, 0, 29), date)
	assert.Len(t, readings, len(tbl.Columns))
	assert.Equal(t, ColClose, readings[0].Column)
}

func TestRolling(t *testing.T) {
	xs := model.Series{model.Value(1), model.Value(2), {}, model.Value(4), model.Value(5), model.Value(6)}
	sums := RollingSum(xs, 2)
	assert.False(t, sums[0].Valid)
	assert.Equal(t, 3.0, sums[1].Float64)
	assert.False(t, sums[2].Valid)
	assert.False(t, sums[3].Valid)
	assert.Equal(t, 9.0, sums[4].Float64)
	assert.Equal(t, 11.0, sums[5].Float64)

	assert.Zero(t, RollingVar(xs, 1).CountDefined(), "sample variance of one value is undefined")
	assert.Zero(t, Rolling(xs, 0, sum).CountDefined())
	assert.InDelta(t, 1.0, RollingStd(xs, 3)[5].Float64, 1e-12)
}
