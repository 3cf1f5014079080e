package calculator

import (
	"math"

	"VolSentinel/internal/model"

	"gonum.org/v1/gonum/stat"
)

// Rolling applies fn to every right-aligned trailing window of exactly
// window values. Rows with fewer than window prior observations, and windows
// containing an undefined value, are undefined. fn must not retain its
// argument.
func Rolling(xs model.Series, window int, fn func([]float64) float64) model.Series {
	out := make(model.Series, len(xs))
	if window <= 0 {
		return out
	}
	buf := make([]float64, window)
	for i := window - 1; i < len(xs); i++ {
		complete := true
		for j := 0; j < window; j++ {
			v := xs[i-window+1+j]
			if !v.Valid {
				complete = false
				break
			}
			buf[j] = v.Float64
		}
		if complete {
			out[i] = model.Value(fn(buf))
		}
	}
	return out
}

// RollingSum is the trailing sum over window values.
func RollingSum(xs model.Series, window int) model.Series {
	return Rolling(xs, window, sum)
}

// RollingMean is the trailing arithmetic mean over window values.
func RollingMean(xs model.Series, window int) model.Series {
	return Rolling(xs, window, func(w []float64) float64 { return stat.Mean(w, nil) })
}

// RollingVar is the trailing unbiased sample variance (N-1 denominator).
// A window of one value has no sample variance and is undefined.
func RollingVar(xs model.Series, window int) model.Series {
	return Rolling(xs, window, variance)
}

// RollingStd is the trailing sample standard deviation.
func RollingStd(xs model.Series, window int) model.Series {
	return Rolling(xs, window, func(w []float64) float64 { return math.Sqrt(variance(w)) })
}

// variance clamps rounding noise below zero so a constant window yields 0.
func variance(w []float64) float64 {
	return math.Max(0, stat.Variance(w, nil))
}

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}
