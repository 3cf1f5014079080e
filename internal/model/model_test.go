package model

import (
	"math"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestValidateBar(t *testing.T) {
	tests := []struct {
		name    string
		bar     OHLCV
		wantErr bool
	}{
		{"valid", OHLCV{Time: day, Open: 100, High: 105, Low: 95, Close: 102, Volume: 10}, false},
		{"flat bar", OHLCV{Time: day, Open: 100, High: 100, Low: 100, Close: 100}, false},
		{"high below close", OHLCV{Time: day, Open: 100, High: 101, Low: 95, Close: 102}, true},
		{"high below open", OHLCV{Time: day, Open: 103, High: 102, Low: 95, Close: 101}, true},
		{"low above open", OHLCV{Time: day, Open: 96, High: 105, Low: 97, Close: 102}, true},
		{"low above close", OHLCV{Time: day, Open: 100, High: 105, Low: 99, Close: 98}, true},
		{"zero price", OHLCV{Time: day, Open: 0, High: 105, Low: 0, Close: 102}, true},
		{"negative volume", OHLCV{Time: day, Open: 100, High: 105, Low: 95, Close: 102, Volume: -1}, true},
		{"missing date", OHLCV{Open: 100, High: 105, Low: 95, Close: 102}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBar(tt.bar)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidationError(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidationErrorNamesDate(t *testing.T) {
	err := ValidateBar(OHLCV{Time: day, Open: 100, High: 99, Low: 95, Close: 98})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2024-03-01")
	assert.Contains(t, err.Error(), "High")
}

func TestValue(t *testing.T) {
	assert.False(t, Value(math.NaN()).Valid)
	assert.False(t, Value(math.Inf(1)).Valid)
	assert.Equal(t, null.FloatFrom(1.5), Value(1.5))
}

func TestSeriesMapKeepsUndefined(t *testing.T) {
	s := Series{null.Float{}, null.FloatFrom(4), null.FloatFrom(-1)}
	out := s.Map(math.Sqrt)
	assert.False(t, out[0].Valid)
	assert.Equal(t, 2.0, out[1].Float64)
	assert.False(t, out[2].Valid, "sqrt of a negative number is undefined")
	assert.Equal(t, 1, out.CountDefined())
	assert.Equal(t, []float64{4, -1}, s.Defined())
}

func TestTable(t *testing.T) {
	tbl := NewTable("prices", "Open", "Close")
	tbl.Append(day, null.FloatFrom(1), null.FloatFrom(2))
	tbl.Append(day.AddDate(0, 0, 1), null.FloatFrom(3))

	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, 1, tbl.ColumnIndex("Close"))
	assert.Equal(t, -1, tbl.ColumnIndex("close"), "column names are case-sensitive")

	closes, ok := tbl.Column("Close")
	require.True(t, ok)
	assert.Equal(t, 2.0, closes[0].Float64)
	assert.False(t, closes[1].Valid)

	tbl.AddColumn("Extra", Series{null.FloatFrom(9)})
	assert.Equal(t, []string{"Open", "Close", "Extra"}, tbl.Columns)
	assert.Len(t, tbl.Rows[1].Values, 3)
	assert.False(t, tbl.Rows[1].Values[2].Valid)
}

func TestDateOf(t *testing.T) {
	ts := time.Date(2024, 3, 1, 21, 30, 0, 0, time.UTC)
	assert.Equal(t, day, DateOf(ts))
}
