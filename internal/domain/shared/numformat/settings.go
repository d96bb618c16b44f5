// Package numformat renders numbers and currency amounts with configurable
// separators, precision and currency label, independent of the host locale.
package numformat

import (
	"math"

	"github.com/contabilidad/backend/internal/domain/shared/valueobject"
)

// Recognized number_format patterns.
const (
	PatternCommaDecimal = "1.234,56"
	PatternSpaceGroup   = "1 234.56"
	PatternDefault      = "1,234.56"
)

// MaxDecimalPlaces is the largest precision accepted from settings.
const MaxDecimalPlaces = 6

// Settings is an immutable formatting configuration.
type Settings struct {
	DecimalPlaces     int    `json:"decimal_places"`
	ThousandSeparator string `json:"thousand_separator"`
	DecimalSeparator  string `json:"decimal_separator"`
	CurrencyLabel     string `json:"currency_label"`
}

// DefaultSettings returns 2 decimals, "," grouping, "." decimals and RD$.
func DefaultSettings() Settings {
	return Settings{
		DecimalPlaces:     2,
		ThousandSeparator: ",",
		DecimalSeparator:  ".",
		CurrencyLabel:     valueobject.DefaultCurrency.Label(),
	}
}

// RawSettings is the accounting settings record as stored by the host
// application. Nil fields are absent and leave the current value untouched.
type RawSettings struct {
	DefaultCurrency *string  `json:"default_currency"`
	DecimalPlaces   *float64 `json:"decimal_places"`
	NumberFormat    *string  `json:"number_format"`
}

// Apply returns a copy of s with every usable field of raw applied.
// Invalid fragments are ignored field by field.
func (s Settings) Apply(raw RawSettings) Settings {
	next := s

	if raw.NumberFormat != nil {
		next.ThousandSeparator, next.DecimalSeparator = SeparatorsFor(*raw.NumberFormat)
	}

	if raw.DefaultCurrency != nil {
		next.CurrencyLabel = valueobject.Currency(*raw.DefaultCurrency).Label()
	}

	if raw.DecimalPlaces != nil {
		if places, ok := validDecimalPlaces(*raw.DecimalPlaces); ok {
			next.DecimalPlaces = places
		}
	}

	return next
}

// SeparatorsFor maps a number_format pattern to its thousand and decimal
// separators. Unrecognized patterns map to "," and ".".
func SeparatorsFor(pattern string) (thousand, decimal string) {
	switch pattern {
	case PatternCommaDecimal:
		return ".", ","
	case PatternSpaceGroup:
		return " ", "."
	default:
		return ",", "."
	}
}

// KnownPatterns lists the recognized number_format patterns
func KnownPatterns() []string {
	return []string{PatternDefault, PatternCommaDecimal, PatternSpaceGroup}
}

// IsKnownPattern reports whether pattern is one of the recognized formats.
func IsKnownPattern(pattern string) bool {
	switch pattern {
	case PatternCommaDecimal, PatternSpaceGroup, PatternDefault:
		return true
	}
	return false
}

func validDecimalPlaces(v float64) (int, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v < 0 || v > MaxDecimalPlaces {
		return 0, false
	}
	return int(math.Trunc(v)), true
}
