package model

import (
	"math"

	"github.com/guregu/null/v6"
)

// Series is a column of values aligned to a row index. An invalid element
// is an undefined value, which is distinct from zero.
type Series []null.Float

// Value wraps f, mapping NaN and ±Inf to an undefined value.
func Value(f float64) null.Float {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

// SeriesOf wraps every element of xs.
func SeriesOf(xs []float64) Series {
	s := make(Series, len(xs))
	for i, x := range xs {
		s[i] = Value(x)
	}
	return s
}

// Map applies fn to every defined element. Undefined elements stay undefined.
func (s Series) Map(fn func(float64) float64) Series {
	out := make(Series, len(s))
	for i, v := range s {
		if v.Valid {
			out[i] = Value(fn(v.Float64))
		}
	}
	return out
}

// Defined returns the defined elements, in order.
func (s Series) Defined() []float64 {
	out := make([]float64, 0, len(s))
	for _, v := range s {
		if v.Valid {
			out = append(out, v.Float64)
		}
	}
	return out
}

// CountDefined returns the number of defined elements.
func (s Series) CountDefined() int {
	n := 0
	for _, v := range s {
		if v.Valid {
			n++
		}
	}
	return n
}
