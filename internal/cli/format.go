// Package cli renders analytics results as terminal tables.
package cli

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatMoney renders an amount with thousands separators and two decimals.
// e.g., 1234.5 -> "$1,234.50", -20 -> "-$20.00"
func FormatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	if v < 0 {
		return "-" + FormatMoney(-v)
	}
	return printer.Sprintf("$%.2f", v)
}

// FormatOptionalMoney renders nil as a dash.
func FormatOptionalMoney(v *float64) string {
	if v == nil {
		return "-"
	}
	return FormatMoney(*v)
}

// FormatCount adds thousands separators to an integer.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatScore formats an anomaly score.
func FormatScore(s float64) string {
	return fmt.Sprintf("%.2f", s)
}
