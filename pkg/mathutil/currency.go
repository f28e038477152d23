// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// RoundTo rounds a value to the given number of decimal places.
func RoundTo(val float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(val*scale) / scale
}

// IsZero checks if a value is effectively zero (within tolerance)
func IsZero(val float64) bool {
	return math.Abs(val) <= constants.CurrencyTolerance
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// Compound returns the growth factor (1+rate)^years.
func Compound(rate float64, years int) float64 {
	return math.Pow(1+rate, float64(years))
}

// ToPercent converts a ratio into a percentage.
func ToPercent(ratio float64) float64 {
	return ratio * constants.PercentageMultiplier
}
