package model

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError reports input that cannot be used for a calculation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidateStruct checks v against its `validate` tags and converts the first
// failure into a *ValidationError.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return &ValidationError{Field: fe.Field(), Reason: fmt.Sprintf("failed %q (value %v)", reason, fe.Value())}
	}
	return &ValidationError{Reason: err.Error()}
}

// ValidateBar checks the OHLC relations of a single bar:
// all prices positive, High >= max(Open, Close), Low <= min(Open, Close).
func ValidateBar(b OHLCV) error {
	if err := ValidateStruct(b); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) && !b.Time.IsZero() {
			ve.Field = b.Time.Format("2006-01-02") + " " + ve.Field
		}
		return err
	}
	return nil
}
