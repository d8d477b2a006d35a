// Package analytics computes the derived views of a donor table.
//
// Every view is a pure function of a table and its parameters. Distribution
// and total views run over every row; ranking views first collapse rows to
// one per donor name.
package analytics

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"donorboard/internal/core"

	"github.com/shopspring/decimal"
)

const (
	// TimelineBins is the fixed bucket count of the last-gift histogram.
	TimelineBins = 15

	// UnspecifiedLabel groups rows whose category cell was blank.
	UnspecifiedLabel = "Unspecified"
)

// Count is one category of a distribution.
type Count struct {
	Label string
	Count int
}

// Bin is one bucket of the last-gift histogram, [Start, End).
// The last bin also includes End.
type Bin struct {
	Start time.Time
	End   time.Time
	Count int
}

// Histogram is the bucketed last-gift timeline. Dropped counts rows with no
// date.
type Histogram struct {
	Bins    []Bin
	Dropped int
}

// Total reports the number of dated rows.
func (h Histogram) Total() int {
	n := 0
	for _, b := range h.Bins {
		n += b.Count
	}
	return n
}

// ColumnAmount pairs an amount column with an aggregate of it.
type ColumnAmount struct {
	Column string
	Amount decimal.NullDecimal
}

func requireRows(t *core.Table) error {
	if t.Empty() {
		return core.ErrEmptyTable
	}
	return nil
}

// GiftFrequency counts rows per gift frequency label.
func GiftFrequency(t *core.Table) ([]Count, error) {
	if err := requireRows(t); err != nil {
		return nil, err
	}
	return countBy(t.Records, func(r core.DonorRecord) string { return r.GiftFrequency }), nil
}

// Attendance counts rows per event attendance label.
func Attendance(t *core.Table) ([]Count, error) {
	if err := requireRows(t); err != nil {
		return nil, err
	}
	return countBy(t.Records, func(r core.DonorRecord) string { return r.EventAttendance }), nil
}

// countBy orders labels by descending count, ties by first appearance.
func countBy(records []core.DonorRecord, label func(core.DonorRecord) string) []Count {
	idx := make(map[string]int)
	var out []Count
	for _, r := range records {
		l := label(r)
		if l == "" {
			l = UnspecifiedLabel
		}
		i, ok := idx[l]
		if !ok {
			i = len(out)
			idx[l] = i
			out = append(out, Count{Label: l})
		}
		out[i].Count++
	}
	slices.SortStableFunc(out, func(a, b Count) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return out
}

// LastGiftTimeline buckets last-gift dates into bins equal-width intervals
// spanning the observed range. Rows without a date are skipped.
func LastGiftTimeline(t *core.Table, bins int) (Histogram, error) {
	if err := requireRows(t); err != nil {
		return Histogram{}, err
	}
	if bins < 1 {
		return Histogram{}, fmt.Errorf("bin count must be positive, got %d", bins)
	}

	var dates []time.Time
	h := Histogram{}
	for _, r := range t.Records {
		if r.LastGiftDate.IsEmpty() {
			h.Dropped++
			continue
		}
		dates = append(dates, r.LastGiftDate.Time)
	}
	if len(dates) == 0 {
		return h, nil
	}

	lo, hi := slices.MinFunc(dates, time.Time.Compare), slices.MaxFunc(dates, time.Time.Compare)
	span := hi.Sub(lo)
	if span == 0 {
		span = 24 * time.Hour
	}
	width := max(span/time.Duration(bins), 1)

	h.Bins = make([]Bin, bins)
	for i := range h.Bins {
		h.Bins[i].Start = lo.Add(time.Duration(i) * width)
		h.Bins[i].End = lo.Add(time.Duration(i+1) * width)
	}
	h.Bins[bins-1].End = lo.Add(span)

	for _, d := range dates {
		i := int(d.Sub(lo) / width)
		if i >= bins {
			i = bins - 1
		}
		h.Bins[i].Count++
	}
	return h, nil
}

// YearlyTotals sums each amount column over every row. Missing cells add
// nothing.
func YearlyTotals(t *core.Table) ([]ColumnAmount, error) {
	if err := requireRows(t); err != nil {
		return nil, err
	}
	out := make([]ColumnAmount, 0, len(core.AmountColumns))
	for _, col := range core.AmountColumns {
		sum := decimal.Zero
		for _, r := range t.Records {
			v, err := r.Amount(col)
			if err != nil {
				return nil, err
			}
			if v.Valid {
				sum = sum.Add(v.Decimal)
			}
		}
		out = append(out, ColumnAmount{Column: col, Amount: decimal.NewNullDecimal(sum)})
	}
	return out, nil
}

// AverageDonations is the mean of each amount column over the rows that have
// a value, rounded half-to-even to cents. A column with no values is null.
func AverageDonations(t *core.Table) ([]ColumnAmount, error) {
	if err := requireRows(t); err != nil {
		return nil, err
	}
	out := make([]ColumnAmount, 0, len(core.AmountColumns))
	for _, col := range core.AmountColumns {
		sum := decimal.Zero
		n := 0
		for _, r := range t.Records {
			v, err := r.Amount(col)
			if err != nil {
				return nil, err
			}
			if v.Valid {
				sum = sum.Add(v.Decimal)
				n++
			}
		}
		ca := ColumnAmount{Column: col}
		if n > 0 {
			ca.Amount = decimal.NewNullDecimal(sum.Div(decimal.NewFromInt(int64(n))).RoundBank(2))
		}
		out = append(out, ca)
	}
	return out, nil
}
