package calculator

import "VolSentinel/internal/model"

const (
	// DefaultRollingWindow is one trading month, the window of the
	// published volatility index.
	DefaultRollingWindow = 21
	// DefaultAnnualisationFactor is the number of trading days in a year.
	DefaultAnnualisationFactor = 252.0
	// DefaultRVWindow makes Realized Volatility a daily figure.
	DefaultRVWindow = 1
)

// Params configures the estimators.
type Params struct {
	RollingWindow       int     `yaml:"rolling_window" validate:"min=1"`
	AnnualisationFactor float64 `yaml:"annualisation_factor" validate:"gt=0"`
	RVWindow            int     `yaml:"rv_window" validate:"min=1"`
}

// DefaultParams returns the 21/252/1 parameter set.
func DefaultParams() Params {
	return Params{
		RollingWindow:       DefaultRollingWindow,
		AnnualisationFactor: DefaultAnnualisationFactor,
		RVWindow:            DefaultRVWindow,
	}
}

// Validate checks that every parameter is positive.
func (p Params) Validate() error {
	return model.ValidateStruct(p)
}
