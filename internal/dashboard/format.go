package dashboard

import (
	"donorboard/internal/core"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MissingValue is shown for blank amounts and dates.
const MissingValue = "N/A"

const dateLayout = "2006-01-02"

var printer = message.NewPrinter(language.English)

// Amount formats with grouped thousands and two decimals.
func Amount(d decimal.NullDecimal) string {
	if !d.Valid {
		return MissingValue
	}
	return printer.Sprintf("%.2f", d.Decimal.Round(2).InexactFloat64())
}

// Count formats an integer with grouped thousands.
func Count(n int) string {
	return printer.Sprintf("%d", n)
}

// Date formats a calendar date; blank dates are shown as MissingValue.
func Date(d core.Date) string {
	if d.IsEmpty() {
		return MissingValue
	}
	return d.Format(dateLayout)
}
