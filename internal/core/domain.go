package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Source column headers. Lookups are case- and name-sensitive.
const (
	ColDonorName         = "Donor Name"
	ColGiftFrequency     = "Gift Frequency"
	ColLastGiftDate      = "Last Gift Date"
	ColEventAttendance   = "Event Attendance"
	ColRelationshipNotes = "Relationship Notes"
	ColDonations2022     = "Donations 2022"
	ColDonations2023     = "Donations 2023"
	ColDonations2024     = "Donations 2024"
	ColTotalDonations    = "TotalDonations"
)

// RequiredColumns lists every header a donor table must carry.
var RequiredColumns = []string{
	ColDonorName,
	ColGiftFrequency,
	ColLastGiftDate,
	ColEventAttendance,
	ColRelationshipNotes,
	ColDonations2022,
	ColDonations2023,
	ColDonations2024,
	ColTotalDonations,
}

// YearlyColumns are the per-year donation columns, oldest first.
var YearlyColumns = []string{ColDonations2022, ColDonations2023, ColDonations2024}

// AmountColumns are the yearly columns followed by the total.
var AmountColumns = []string{ColDonations2022, ColDonations2023, ColDonations2024, ColTotalDonations}

const (
	Year2022 YearOption = "2022"
	Year2023 YearOption = "2023"
	Year2024 YearOption = "2024"
	AllYears YearOption = "All Years"
)

// YearOptions is the exclusive set offered by the year selector, in display order.
var YearOptions = []YearOption{Year2022, Year2023, Year2024, AllYears}

type (
	// YearOption selects the sort key of the top/bottom ranking.
	YearOption string

	// Format identifies how a table was decoded.
	Format string

	Date struct {
		time.Time
	}

	// DonorRecord is one row of donor giving history. Amounts are null when
	// the source cell was blank.
	DonorRecord struct {
		DonorName         string
		GiftFrequency     string
		LastGiftDate      Date
		EventAttendance   string
		RelationshipNotes string
		Donations2022     decimal.NullDecimal
		Donations2023     decimal.NullDecimal
		Donations2024     decimal.NullDecimal
		TotalDonations    decimal.NullDecimal
	}

	// Table is the in-memory donor table. Record order is source order.
	Table struct {
		ID       string
		Source   string
		Format   Format
		Header   []string
		Records  []DonorRecord
		LoadedAt time.Time
	}
)

const (
	FormatSpreadsheet Format = "spreadsheet"
	FormatCSV         Format = "csv"
	FormatSheets      Format = "google_sheets"
)

var ErrInvalidYear = errors.New("invalid year option")

// ParseYearOption accepts exactly one of the selector labels.
func ParseYearOption(s string) (YearOption, error) {
	s = strings.TrimSpace(s)
	for _, y := range YearOptions {
		if string(y) == s {
			return y, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidYear, s)
}

// Column returns the donation column used as the ranking key.
func (y YearOption) Column() string {
	switch y {
	case Year2022:
		return ColDonations2022
	case Year2023:
		return ColDonations2023
	case Year2024:
		return ColDonations2024
	default:
		return ColTotalDonations
	}
}

// String implements fmt.Stringer
func (y YearOption) String() string {
	return string(y)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty reports whether the date was absent in the source.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Amount returns the named amount column.
func (r DonorRecord) Amount(column string) (decimal.NullDecimal, error) {
	switch column {
	case ColDonations2022:
		return r.Donations2022, nil
	case ColDonations2023:
		return r.Donations2023, nil
	case ColDonations2024:
		return r.Donations2024, nil
	case ColTotalDonations:
		return r.TotalDonations, nil
	}
	return decimal.NullDecimal{}, fmt.Errorf("unknown amount column %q", column)
}

// YearlyMean is the mean of the non-null yearly donations; null when all three are null.
func (r DonorRecord) YearlyMean() decimal.NullDecimal {
	sum := decimal.Zero
	n := 0
	for _, v := range []decimal.NullDecimal{r.Donations2022, r.Donations2023, r.Donations2024} {
		if !v.Valid {
			continue
		}
		sum = sum.Add(v.Decimal)
		n++
	}
	if n == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(sum.Div(decimal.NewFromInt(int64(n))))
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Empty reports whether there is no table or it has zero rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// ValidateHeader checks that every required column is present and reports all
// missing ones at once.
func ValidateHeader(header []string) error {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[h] = struct{}{}
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Missing: missing}
	}
	return nil
}
