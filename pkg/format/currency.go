// Package format renders monetary and percentage values for reports.
package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	if amount < 0 && !isZeroCents(amount) {
		return "-$" + NumericCurrency(math.Abs(amount))
	}
	return "$" + NumericCurrency(math.Abs(amount))
}

// NumericCurrency returns a currency string without a currency symbol but with separators (e.g., "-1,234.56").
func NumericCurrency(amount float64) string {
	if isZeroCents(amount) {
		amount = 0
	}
	return printer.Sprintf("%.2f", amount)
}

// Percent returns a percentage with one decimal place (e.g., "12.5%").
func Percent(value float64) string {
	return printer.Sprintf("%.1f%%", value)
}

// isZeroCents reports whether amount rounds to zero cents, so -0.001 is not
// rendered as "-$0.00".
func isZeroCents(amount float64) bool {
	return math.Abs(amount) < 0.005
}
