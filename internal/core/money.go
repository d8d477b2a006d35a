// Package core provides amount and date parsing for donor tables.
//
// This file contains the cell parsers used by every loader so that CSV,
// workbook and Google Sheets sources agree on what a blank or malformed
// cell means.
package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

// nullMarkers are cell values treated as missing, matching common spreadsheet exports.
var nullMarkers = map[string]struct{}{
	"":    {},
	"nan": {},
	"NaN": {},
	"N/A": {},
	"n/a": {},
	"-":   {},
}

// ParseAmount converts a cell into a nullable decimal.
//
// Currency symbols and thousands separators are stripped, so "$1,234.50"
// parses as 1234.50. Blank cells return a null amount and no error.
//
// Examples:
//   ParseAmount("100")       -> 100, valid
//   ParseAmount("$1,234.5")  -> 1234.5, valid
//   ParseAmount("")          -> null
//   ParseAmount("abc")       -> ErrInvalidAmount
//   ParseAmount("-500")      -> ErrInvalidAmount
func ParseAmount(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if _, ok := nullMarkers[s]; ok {
		return decimal.NullDecimal{}, nil
	}
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	return decimal.NewNullDecimal(d), nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-Jan-2006",
	"2-Jan-06",
}

// ParseDate parses a last-gift-date cell. A blank cell yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if _, ok := nullMarkers[s]; ok {
		return Date{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return NewDate(y, int(m), d), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
