package shared

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrencyRounding is the euro rounding step.
const DefaultCurrencyRounding = 0.01

// Round rounds v to the nearest multiple of step, halves away from zero.
// This matches the rounding the ledger applies to monetary amounts; mixing
// policies would unbalance the adjustment entry.
func Round(v, step float64) float64 {
	if step <= 0 {
		step = DefaultCurrencyRounding
	}
	return math.Round(v/step) * step
}

// RoundDigits rounds v to the given number of decimal digits.
func RoundDigits(v float64, digits int) float64 {
	pow := math.Pow(10, float64(digits))
	return math.Round(v*pow) / pow
}

// IsZero reports whether v is zero once rounded at step.
func IsZero(v, step float64) bool {
	if step <= 0 {
		step = DefaultCurrencyRounding
	}
	return math.Abs(Round(v, step)) < step/2
}

// IsZeroDigits reports whether v is zero at the given decimal precision.
func IsZeroDigits(v float64, digits int) bool {
	return math.Abs(RoundDigits(v, digits)) < math.Pow(10, -float64(digits))/2
}

// Compare compares two amounts at step precision: -1, 0 or 1.
func Compare(a, b, step float64) int {
	delta := Round(a, step) - Round(b, step)
	if IsZero(delta, step) {
		return 0
	}
	if delta < 0 {
		return -1
	}
	return 1
}

var frPrinter = message.NewPrinter(language.French)

// FormatAmount renders a monetary amount with French digit grouping for
// operator-facing messages.
func FormatAmount(v float64) string {
	return frPrinter.Sprintf("%.2f", v)
}
