package calculator

import (
	"math"

	"VolSentinel/internal/model"
)

// Output column names, in the order CalculateAll emits them.
const (
	ColClose          = "Close"
	ColDailyReturn    = "Daily_Return"
	ColCloseToClose   = "Close_to_Close_Vol"
	ColRealized       = "Realized_Vol"
	ColParkinson      = "Parkinson_Vol"
	ColGarmanKlass    = "Garman_Klass_Vol"
	ColYangZhang      = "Yang_Zhang_Vol"
	ColRogersSatchell = "Rogers_Satchell_Vol"
)

// Estimator names one volatility estimator and its output column.
type Estimator struct {
	Name   string
	Column string
	fn     func(*Calculator, *Dataset) model.Series
}

var estimators = []Estimator{
	{"close_to_close", ColCloseToClose, (*Calculator).CloseToClose},
	{"realized", ColRealized, (*Calculator).RealizedVolatility},
	{"parkinson", ColParkinson, (*Calculator).Parkinson},
	{"garman_klass", ColGarmanKlass, (*Calculator).GarmanKlass},
	{"yang_zhang", ColYangZhang, (*Calculator).YangZhang},
	{"rogers_satchell", ColRogersSatchell, (*Calculator).RogersSatchell},
}

// EstimatorNames lists every estimator in output order.
func EstimatorNames() []string {
	names := make([]string, len(estimators))
	for i, e := range estimators {
		names[i] = e.Name
	}
	return names
}

var gkCoefficient = 2*math.Ln2 - 1

// CloseToClose is the sample standard deviation of log returns over the
// rolling window.
func (c *Calculator) CloseToClose(d *Dataset) model.Series {
	return c.annualise(RollingStd(d.Returns, c.params.RollingWindow))
}

// RealizedVolatility is the square root of the sum of squared log returns
// over RVWindow returns.
func (c *Calculator) RealizedVolatility(d *Dataset) model.Series {
	squared := d.Returns.Map(func(r float64) float64 { return r * r })
	return c.annualise(RollingSum(squared, c.params.RVWindow).Map(math.Sqrt))
}

// Parkinson uses the squared high-low log range.
func (c *Calculator) Parkinson(d *Dataset) model.Series {
	w := c.params.RollingWindow
	hl := d.perBar(func(b model.OHLCV) float64 {
		r := math.Log(b.High / b.Low)
		return r * r
	})
	scale := 1 / (4 * float64(w) * math.Ln2)
	return c.annualise(RollingSum(hl, w).Map(func(s float64) float64 {
		return math.Sqrt(scale * s)
	}))
}

// GarmanKlass combines the high-low range with the open-close move.
func (c *Calculator) GarmanKlass(d *Dataset) model.Series {
	terms := d.perBar(func(b model.OHLCV) float64 {
		hl := math.Log(b.High / b.Low)
		co := math.Log(b.Close / b.Open)
		return 0.5*hl*hl - gkCoefficient*co*co
	})
	return c.annualise(RollingMean(terms, c.params.RollingWindow).Map(math.Sqrt))
}

// YangZhang adds the rolling variance of overnight jumps
// ln(Open_t/Close_t-1) to the rolling variance of open-to-close moves.
func (c *Calculator) YangZhang(d *Dataset) model.Series {
	w := c.params.RollingWindow
	overnight := make(model.Series, len(d.Bars))
	for i := 1; i < len(d.Bars); i++ {
		overnight[i] = model.Value(math.Log(d.Bars[i].Open / d.Bars[i-1].Close))
	}
	openClose := d.perBar(func(b model.OHLCV) float64 {
		return math.Log(b.Close / b.Open)
	})

	ov := RollingVar(overnight, w)
	oc := RollingVar(openClose, w)
	out := make(model.Series, len(d.Bars))
	for i := range out {
		if ov[i].Valid && oc[i].Valid {
			out[i] = model.Value(math.Sqrt(ov[i].Float64 + oc[i].Float64))
		}
	}
	return c.annualise(out)
}

// RogersSatchell is drift-independent and uses all four prices.
func (c *Calculator) RogersSatchell(d *Dataset) model.Series {
	terms := d.perBar(func(b model.OHLCV) float64 {
		ho := math.Log(b.High / b.Open)
		hc := math.Log(b.High / b.Close)
		lo := math.Log(b.Low / b.Open)
		lc := math.Log(b.Low / b.Close)
		return ho*(ho-hc) + lo*(lo-lc)
	})
	return c.annualise(RollingMean(terms, c.params.RollingWindow).Map(math.Sqrt))
}

// annualise scales a per-period figure to a yearly percentage.
func (c *Calculator) annualise(s model.Series) model.Series {
	k := math.Sqrt(c.params.AnnualisationFactor) * 100
	return s.Map(func(v float64) float64 { return v * k })
}
