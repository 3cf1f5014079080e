package model

import "time"

// PremiumSummary describes the spread between realized volatility of the
// equity index and the close of its volatility index.
type PremiumSummary struct {
	Count      int
	Mean       float64
	StdDev     float64
	Min        float64
	Max        float64
	Latest     float64
	LatestDate time.Time
}
