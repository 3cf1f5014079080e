package recorder

import (
	"time"

	"VolSentinel/internal/model"

	"github.com/google/uuid"
)

// VolatilityRun describes one estimator calculation.
type VolatilityRun struct {
	ID                  string
	Source              string // input file or symbol the bars came from
	RollingWindow       int
	AnnualisationFactor float64
	RVWindow            int
	Estimators          []string
	CreatedAt           time.Time
}

// NewVolatilityRun creates a run with a fresh ID.
func NewVolatilityRun(source string, window int, factor float64, rvWindow int, estimators []string) *VolatilityRun {
	return &VolatilityRun{
		ID:                  uuid.NewString(),
		Source:              source,
		RollingWindow:       window,
		AnnualisationFactor: factor,
		RVWindow:            rvWindow,
		Estimators:          estimators,
		CreatedAt:           time.Now().UTC(),
	}
}

// Recorder persists fetched prices and volatility results for analysis.
type Recorder interface {
	RecordBars(s *model.PriceSeries) error
	RecordVolatility(run *VolatilityRun, t *model.Table) error
	Close() error
}
