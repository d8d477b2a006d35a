package analytics

import (
	"slices"

	"donorboard/internal/core"

	"github.com/shopspring/decimal"
)

const (
	MinSliceSize     = 5
	MaxSliceSize     = 50
	DefaultSliceSize = 10
)

// ClampSliceSize bounds a slider value to [MinSliceSize, MaxSliceSize].
// Zero means unset and yields the default.
func ClampSliceSize(n int) int {
	switch {
	case n == 0:
		return DefaultSliceSize
	case n < MinSliceSize:
		return MinSliceSize
	case n > MaxSliceSize:
		return MaxSliceSize
	}
	return n
}

// RankedDonor is a de-duplicated record with the value it was ranked by.
type RankedDonor struct {
	core.DonorRecord
	Key decimal.NullDecimal
}

// Ranking holds the top and bottom slices for one year selection.
type Ranking struct {
	Year   core.YearOption
	Column string
	Top    []RankedDonor
	Bottom []RankedDonor
}

// Dedupe keeps the first row per donor name, preserving source order.
func Dedupe(records []core.DonorRecord) []core.DonorRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]core.DonorRecord, 0, len(records))
	for _, r := range records {
		if _, dup := seen[r.DonorName]; dup {
			continue
		}
		seen[r.DonorName] = struct{}{}
		out = append(out, r)
	}
	return out
}

// TopAverageDonors ranks unique donors by the mean of their yearly donations
// and returns the first n.
func TopAverageDonors(t *core.Table, n int) ([]RankedDonor, error) {
	if err := requireRows(t); err != nil {
		return nil, err
	}
	ranked := keyed(Dedupe(t.Records), core.DonorRecord.YearlyMean)
	slices.SortStableFunc(ranked, descending)
	return head(ranked, n), nil
}

// TopBottomByYear ranks unique donors by the selected year's column, or by
// the total for AllYears.
func TopBottomByYear(t *core.Table, year core.YearOption, n int) (Ranking, error) {
	if err := requireRows(t); err != nil {
		return Ranking{}, err
	}
	if _, err := core.ParseYearOption(string(year)); err != nil {
		return Ranking{}, err
	}
	col := year.Column()

	var keyErr error
	desc := keyed(Dedupe(t.Records), func(r core.DonorRecord) decimal.NullDecimal {
		v, err := r.Amount(col)
		if err != nil && keyErr == nil {
			keyErr = err
		}
		return v
	})
	if keyErr != nil {
		return Ranking{}, keyErr
	}
	slices.SortStableFunc(desc, descending)

	asc := slices.Clone(desc)
	slices.SortStableFunc(asc, ascending)

	return Ranking{
		Year:   year,
		Column: col,
		Top:    head(desc, n),
		Bottom: head(asc, n),
	}, nil
}

func keyed(records []core.DonorRecord, key func(core.DonorRecord) decimal.NullDecimal) []RankedDonor {
	out := make([]RankedDonor, len(records))
	for i, r := range records {
		out[i] = RankedDonor{DonorRecord: r, Key: key(r)}
	}
	return out
}

// Missing keys sort last in both directions.
func compareKeys(a, b decimal.NullDecimal, desc bool) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return 1
	case !b.Valid:
		return -1
	}
	if desc {
		return b.Decimal.Cmp(a.Decimal)
	}
	return a.Decimal.Cmp(b.Decimal)
}

func descending(a, b RankedDonor) int { return compareKeys(a.Key, b.Key, true) }
func ascending(a, b RankedDonor) int  { return compareKeys(a.Key, b.Key, false) }

func head(in []RankedDonor, n int) []RankedDonor {
	n = max(n, 0)
	if n < len(in) {
		in = in[:n]
	}
	return slices.Clone(in)
}
