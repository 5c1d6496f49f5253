// Package validator checks result rows before they are exported.
package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jittakal/onebrc/internal/errors"
	"github.com/jittakal/onebrc/pkg/station"
)

// Ensure implementation satisfies interface at compile time.
var _ station.Validator = (*SummaryValidator)(nil)

// SummaryValidator validates station summaries. Only structural properties
// are checked; any value the parser accepts is a valid measurement.
type SummaryValidator struct{}

// NewSummaryValidator creates a new summary validator.
func NewSummaryValidator() *SummaryValidator {
	return &SummaryValidator{}
}

// Validate validates one summary.
func (v *SummaryValidator) Validate(s station.Summary) error {
	if len(s.Name) == 0 {
		return &errors.ValidationError{
			Station: s.Name,
			Field:   "name",
			Reason:  "empty",
		}
	}

	if !utf8.ValidString(s.Name) {
		return &errors.ValidationError{
			Station: s.Name,
			Field:   "name",
			Reason:  "not valid UTF-8",
		}
	}

	if strings.ContainsAny(s.Name, ";\n") {
		return &errors.ValidationError{
			Station: s.Name,
			Field:   "name",
			Reason:  "contains a delimiter",
		}
	}

	if s.Count == 0 {
		return &errors.ValidationError{
			Station: s.Name,
			Field:   "count",
			Reason:  "no measurements",
		}
	}

	// Ordering
	if mean := s.Mean(); s.Min > mean || mean > s.Max {
		return &errors.ValidationError{
			Station: s.Name,
			Field:   "mean",
			Reason:  fmt.Sprintf("min %d <= mean %d <= max %d does not hold", s.Min, mean, s.Max),
		}
	}

	return nil
}

// ValidateRows returns the first failure among rows.
func ValidateRows(v station.Validator, rows []station.Summary) error {
	for _, row := range rows {
		if err := v.Validate(row); err != nil {
			return err
		}
	}
	return nil
}
